// Package repository implements the persistence layer over the embedded
// SQLite store. A generic base engine provides entity-agnostic CRUD with
// automatic outbox enqueueing; per-entity repositories wrap it with domain
// queries.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
)

func init() {
	// modernc.org/sqlite registers itself as "sqlite", which sqlx does not
	// know a bindvar style for out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// schema describes how one entity kind maps onto its table
type schema[T any] struct {
	table  string
	insert string // named insert statement covering every column
	update string // named update statement covering every mutable column
	meta   func(*T) *entities.SyncMeta

	// defaults optionally fills zero-valued columns before insert
	defaults func(*T)
}

// base is the generic CRUD engine shared by every entity repository.
// Every mutation and its outbox record are written in one transaction.
type base[T any] struct {
	db     *database.DB
	logger *logger.Logger
	outbox *SyncRecordRepository
	sch    schema[T]
}

func newBase[T any](db *database.DB, outbox *SyncRecordRepository, log *logger.Logger, sch schema[T]) base[T] {
	return base[T]{
		db:     db,
		logger: log.WithComponent("repository." + sch.table),
		outbox: outbox,
		sch:    sch,
	}
}

// Create assigns a fresh id, sets both timestamps and the pending status,
// inserts the row and enqueues a create outbox record.
func (r *base[T]) Create(ctx context.Context, entity *T) (*T, error) {
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return r.insertTx(ctx, tx, entity)
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

// insertTx performs the create inside an existing transaction so entity
// repositories can combine it with their own statements.
func (r *base[T]) insertTx(ctx context.Context, tx *sqlx.Tx, entity *T) error {
	meta := r.sch.meta(entity)
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.SyncStatus = entities.SyncStatusPending
	meta.LastSyncAt = nil

	if r.sch.defaults != nil {
		r.sch.defaults(entity)
	}

	if _, err := tx.NamedExecContext(ctx, r.sch.insert, entity); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", r.sch.table, err)
	}

	return r.outbox.enqueueTx(ctx, tx, r.sch.table, meta.ID, entities.SyncOpCreate, entity)
}

// GetByID retrieves an entity by id, or entities.ErrNotFound
func (r *base[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.sch.table)

	if err := r.db.DB.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s row: %w", r.sch.table, err)
	}

	return &entity, nil
}

func (r *base[T]) getTx(ctx context.Context, tx *sqlx.Tx, id string) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.sch.table)

	if err := tx.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s row: %w", r.sch.table, err)
	}

	return &entity, nil
}

// GetAll returns every row ordered by creation time, newest first
func (r *base[T]) GetAll(ctx context.Context) ([]*T, error) {
	var rows []*T
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY created_at DESC", r.sch.table)

	if err := r.db.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.sch.table, err)
	}

	return rows, nil
}

// Update loads the row, applies the mutation, refreshes updatedAt and the
// pending status, writes the row and enqueues an update outbox record.
// Returns entities.ErrNotFound when the id does not exist.
func (r *base[T]) Update(ctx context.Context, id string, apply func(*T)) (*T, error) {
	var updated *T
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entity, err := r.getTx(ctx, tx, id)
		if err != nil {
			return err
		}

		apply(entity)
		updated = entity
		return r.updateTx(ctx, tx, entity)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *base[T]) updateTx(ctx context.Context, tx *sqlx.Tx, entity *T) error {
	meta := r.sch.meta(entity)
	meta.UpdatedAt = time.Now().UTC()
	meta.SyncStatus = entities.SyncStatusPending

	if _, err := tx.NamedExecContext(ctx, r.sch.update, entity); err != nil {
		return fmt.Errorf("failed to update %s row: %w", r.sch.table, err)
	}

	return r.outbox.enqueueTx(ctx, tx, r.sch.table, meta.ID, entities.SyncOpUpdate, entity)
}

// Delete removes the row and enqueues a delete outbox record carrying a
// snapshot of the deleted row. Returns entities.ErrNotFound for a missing id.
func (r *base[T]) Delete(ctx context.Context, id string) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		snapshot, err := r.getTx(ctx, tx, id)
		if err != nil {
			return err
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.sch.table)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to delete %s row: %w", r.sch.table, err)
		}

		return r.outbox.enqueueTx(ctx, tx, r.sch.table, id, entities.SyncOpDelete, snapshot)
	})
}

// GetPendingSync returns rows awaiting propagation, oldest change first
func (r *base[T]) GetPendingSync(ctx context.Context) ([]*T, error) {
	return r.bySyncStatus(ctx, entities.SyncStatusPending, "ASC")
}

// GetConflicts returns rows with a detected mismatch, newest change first
func (r *base[T]) GetConflicts(ctx context.Context) ([]*T, error) {
	return r.bySyncStatus(ctx, entities.SyncStatusConflict, "DESC")
}

func (r *base[T]) bySyncStatus(ctx context.Context, status entities.SyncStatus, order string) ([]*T, error) {
	var rows []*T
	query := fmt.Sprintf("SELECT * FROM %s WHERE sync_status = ? ORDER BY updated_at %s", r.sch.table, order)

	if err := r.db.DB.SelectContext(ctx, &rows, query, status); err != nil {
		return nil, fmt.Errorf("failed to list %s by sync status: %w", r.sch.table, err)
	}

	return rows, nil
}

// BatchCreate inserts many rows in one pass, marked synced immediately and
// without outbox records. Bulk seeding only; normal writes go through Create.
func (r *base[T]) BatchCreate(ctx context.Context, batch []*T) error {
	if len(batch) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for _, entity := range batch {
			meta := r.sch.meta(entity)
			if meta.ID == "" {
				meta.ID = uuid.NewString()
			}
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = now
			}
			if meta.UpdatedAt.IsZero() {
				meta.UpdatedAt = meta.CreatedAt
			}
			meta.SyncStatus = entities.SyncStatusSynced
			syncedAt := now
			meta.LastSyncAt = &syncedAt

			if r.sch.defaults != nil {
				r.sch.defaults(entity)
			}

			if _, err := tx.NamedExecContext(ctx, r.sch.insert, entity); err != nil {
				return fmt.Errorf("failed to batch insert into %s: %w", r.sch.table, err)
			}
		}
		return nil
	})
}

// UpdateSyncStatus writes the sync status directly. It never touches
// updatedAt and never enqueues an outbox record; re-enqueueing on mark-synced
// would loop forever.
func (r *base[T]) UpdateSyncStatus(ctx context.Context, id string, status entities.SyncStatus, lastSyncAt *time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET sync_status = ?, last_sync_at = ? WHERE id = ?", r.sch.table)

	result, err := r.db.DB.ExecContext(ctx, query, status, lastSyncAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sync status on %s: %w", r.sch.table, err)
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
