package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
)

// SyncRecordRepository manages the outbox queue in the sync_metadata table.
// Entity repositories append to it inside their own transactions; the sync
// coordinator consumes and deletes records.
type SyncRecordRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewSyncRecordRepository creates a new outbox repository
func NewSyncRecordRepository(db *database.DB, log *logger.Logger) *SyncRecordRepository {
	return &SyncRecordRepository{
		db:     db,
		logger: log.WithComponent("repository.sync_metadata"),
	}
}

// enqueueTx appends one outbox record within the caller's transaction,
// carrying a JSON snapshot of the entity at mutation time.
func (r *SyncRecordRepository) enqueueTx(ctx context.Context, tx *sqlx.Tx, tableName, recordID string, op entities.SyncOperation, payload interface{}) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode sync snapshot: %w", err)
		}
	}

	query := `
		INSERT INTO sync_metadata (id, table_name, record_id, operation, data, timestamp, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`

	_, err := tx.ExecContext(ctx, query,
		uuid.NewString(),
		tableName,
		recordID,
		op,
		data,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sync record: %w", err)
	}

	return nil
}

// GetPending returns every outbox record, oldest first
func (r *SyncRecordRepository) GetPending(ctx context.Context) ([]*entities.SyncRecord, error) {
	var records []*entities.SyncRecord
	query := `SELECT * FROM sync_metadata ORDER BY timestamp ASC`

	if err := r.db.DB.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list sync records: %w", err)
	}

	return records, nil
}

// GetByRecord returns the outbox records for one (table, record) pair
func (r *SyncRecordRepository) GetByRecord(ctx context.Context, tableName, recordID string) ([]*entities.SyncRecord, error) {
	var records []*entities.SyncRecord
	query := `SELECT * FROM sync_metadata WHERE table_name = ? AND record_id = ? ORDER BY timestamp ASC`

	if err := r.db.DB.SelectContext(ctx, &records, query, tableName, recordID); err != nil {
		return nil, fmt.Errorf("failed to list sync records for %s/%s: %w", tableName, recordID, err)
	}

	return records, nil
}

// Delete removes a consumed outbox record
func (r *SyncRecordRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM sync_metadata WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entities.ErrNotFound
	}

	return nil
}

// MarkFailed increments the retry counter and stores the last failure message,
// leaving the record in the queue.
func (r *SyncRecordRepository) MarkFailed(ctx context.Context, id, message string) error {
	query := `UPDATE sync_metadata SET retry_count = retry_count + 1, error = ? WHERE id = ?`

	result, err := r.db.DB.ExecContext(ctx, query, message, id)
	if err != nil {
		return fmt.Errorf("failed to mark sync record failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entities.ErrNotFound
	}

	return nil
}

// Count returns the number of queued records
func (r *SyncRecordRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM sync_metadata`); err != nil {
		return 0, fmt.Errorf("failed to count sync records: %w", err)
	}

	return count, nil
}
