package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
)

const sessionInsert = `
	INSERT INTO time_sessions (id, task_id, start_time, end_time, duration, notes, sync_status, last_sync_at, created_at, updated_at)
	VALUES (:id, :task_id, :start_time, :end_time, :duration, :notes, :sync_status, :last_sync_at, :created_at, :updated_at)
`

const sessionUpdate = `
	UPDATE time_sessions
	SET start_time = :start_time, end_time = :end_time, duration = :duration, notes = :notes,
	    sync_status = :sync_status, last_sync_at = :last_sync_at, updated_at = :updated_at
	WHERE id = :id
`

// TimeSessionRepository implements the time session repository interface
type TimeSessionRepository struct {
	base[entities.TimeSession]
}

// NewTimeSessionRepository creates a new time session repository
func NewTimeSessionRepository(db *database.DB, outbox *SyncRecordRepository, log *logger.Logger) *TimeSessionRepository {
	return &TimeSessionRepository{
		base: newBase(db, outbox, log, schema[entities.TimeSession]{
			table:  entities.TableTimeSessions,
			insert: sessionInsert,
			update: sessionUpdate,
			meta:   func(s *entities.TimeSession) *entities.SyncMeta { return s.Meta() },
		}),
	}
}

// Start begins a new session for a task. At most one active session may exist
// per task; a second Start fails with entities.ErrSessionActive.
func (r *TimeSessionRepository) Start(ctx context.Context, taskID string, notes *string) (*entities.TimeSession, error) {
	session := &entities.TimeSession{
		TaskID:    taskID,
		StartTime: time.Now().UTC(),
		Notes:     notes,
	}

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM tasks WHERE id = ?", taskID); err != nil {
			return fmt.Errorf("failed to check task: %w", err)
		}
		if count == 0 {
			return entities.ErrNotFound
		}

		var active int
		if err := tx.GetContext(ctx, &active,
			"SELECT COUNT(*) FROM time_sessions WHERE task_id = ? AND end_time IS NULL", taskID); err != nil {
			return fmt.Errorf("failed to check active sessions: %w", err)
		}
		if active > 0 {
			return entities.ErrSessionActive
		}

		return r.insertTx(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// End stops a session, computing duration from start/end. Ending an already
// ended session fails with entities.ErrSessionEnded.
func (r *TimeSessionRepository) End(ctx context.Context, id string) (*entities.TimeSession, error) {
	var ended *entities.TimeSession
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		session, err := r.getTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !session.Active() {
			return entities.ErrSessionEnded
		}

		now := time.Now().UTC()
		duration := int(now.Sub(session.StartTime).Seconds())
		if duration < 0 {
			duration = 0
		}
		session.EndTime = &now
		session.Duration = &duration

		if err := r.updateTx(ctx, tx, session); err != nil {
			return err
		}
		ended = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ended, nil
}

// GetByTask returns a task's sessions, most recent first
func (r *TimeSessionRepository) GetByTask(ctx context.Context, taskID string) ([]*entities.TimeSession, error) {
	var sessions []*entities.TimeSession
	query := `SELECT * FROM time_sessions WHERE task_id = ? ORDER BY start_time DESC`

	if err := r.db.DB.SelectContext(ctx, &sessions, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to list time sessions: %w", err)
	}

	return sessions, nil
}

// GetActive returns the running session for a task, or entities.ErrNotFound
func (r *TimeSessionRepository) GetActive(ctx context.Context, taskID string) (*entities.TimeSession, error) {
	var session entities.TimeSession
	query := `SELECT * FROM time_sessions WHERE task_id = ? AND end_time IS NULL LIMIT 1`

	if err := r.db.DB.GetContext(ctx, &session, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return &session, nil
}

// Stats aggregates durations over a task's completed sessions only
func (r *TimeSessionRepository) Stats(ctx context.Context, taskID string) (*entities.TimeStats, error) {
	row := struct {
		Count int             `db:"count"`
		Total sql.NullInt64   `db:"total"`
		Avg   sql.NullFloat64 `db:"avg"`
		Min   sql.NullInt64   `db:"min"`
		Max   sql.NullInt64   `db:"max"`
	}{}

	query := `
		SELECT COUNT(*) AS count,
		       SUM(duration) AS total,
		       AVG(duration) AS avg,
		       MIN(duration) AS min,
		       MAX(duration) AS max
		FROM time_sessions
		WHERE task_id = ? AND end_time IS NOT NULL
	`

	if err := r.db.DB.GetContext(ctx, &row, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to aggregate time stats: %w", err)
	}

	return &entities.TimeStats{
		SessionCount:   row.Count,
		TotalSeconds:   int(row.Total.Int64),
		AverageSeconds: int(row.Avg.Float64),
		MinSeconds:     int(row.Min.Int64),
		MaxSeconds:     int(row.Max.Int64),
	}, nil
}

// StopAllActive ends every currently running session; used at shutdown/reset.
// Returns the number of sessions ended.
func (r *TimeSessionRepository) StopAllActive(ctx context.Context) (int, error) {
	var ids []string
	if err := r.db.DB.SelectContext(ctx, &ids,
		"SELECT id FROM time_sessions WHERE end_time IS NULL"); err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}

	stopped := 0
	for _, id := range ids {
		if _, err := r.End(ctx, id); err != nil {
			return stopped, fmt.Errorf("failed to stop session %s: %w", id, err)
		}
		stopped++
	}

	return stopped, nil
}
