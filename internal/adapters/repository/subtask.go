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

const subtaskInsert = `
	INSERT INTO subtasks (id, task_id, title, completed, sort_order, sync_status, last_sync_at, created_at, updated_at)
	VALUES (:id, :task_id, :title, :completed, :sort_order, :sync_status, :last_sync_at, :created_at, :updated_at)
`

const subtaskUpdate = `
	UPDATE subtasks
	SET title = :title, completed = :completed, sort_order = :sort_order,
	    sync_status = :sync_status, last_sync_at = :last_sync_at, updated_at = :updated_at
	WHERE id = :id
`

// SubtaskRepository implements the subtask repository interface
type SubtaskRepository struct {
	base[entities.Subtask]
}

// NewSubtaskRepository creates a new subtask repository
func NewSubtaskRepository(db *database.DB, outbox *SyncRecordRepository, log *logger.Logger) *SubtaskRepository {
	return &SubtaskRepository{
		base: newBase(db, outbox, log, schema[entities.Subtask]{
			table:  entities.TableSubtasks,
			insert: subtaskInsert,
			update: subtaskUpdate,
			meta:   func(s *entities.Subtask) *entities.SyncMeta { return s.Meta() },
		}),
	}
}

// Create inserts a subtask, assigning the next order value within its task
// (max existing + 1) in the same transaction as the insert.
func (r *SubtaskRepository) Create(ctx context.Context, subtask *entities.Subtask) (*entities.Subtask, error) {
	if subtask.TaskID == "" {
		return nil, entities.NewValidationError("task_id", "task_id is required")
	}

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM tasks WHERE id = ?", subtask.TaskID); err != nil {
			return fmt.Errorf("failed to check parent task: %w", err)
		}
		if count == 0 {
			return entities.ErrNotFound
		}

		var maxOrder sql.NullInt64
		if err := tx.GetContext(ctx, &maxOrder,
			"SELECT MAX(sort_order) FROM subtasks WHERE task_id = ?", subtask.TaskID); err != nil {
			return fmt.Errorf("failed to compute next order: %w", err)
		}
		subtask.Order = int(maxOrder.Int64) + 1

		return r.insertTx(ctx, tx, subtask)
	})
	if err != nil {
		return nil, err
	}

	return subtask, nil
}

// GetByTask returns a task's subtasks in display order
func (r *SubtaskRepository) GetByTask(ctx context.Context, taskID string) ([]*entities.Subtask, error) {
	var subtasks []*entities.Subtask
	query := `SELECT * FROM subtasks WHERE task_id = ? ORDER BY sort_order ASC`

	if err := r.db.DB.SelectContext(ctx, &subtasks, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}

	return subtasks, nil
}

// ToggleCompletion flips a subtask's completed flag
func (r *SubtaskRepository) ToggleCompletion(ctx context.Context, id string) (*entities.Subtask, error) {
	return r.Update(ctx, id, func(s *entities.Subtask) {
		s.Completed = !s.Completed
	})
}

// MoveUp swaps a subtask's order with its previous sibling. At the top it is
// a no-op.
func (r *SubtaskRepository) MoveUp(ctx context.Context, id string) error {
	return r.swapWithSibling(ctx, id, true)
}

// MoveDown swaps a subtask's order with its next sibling. At the bottom it is
// a no-op.
func (r *SubtaskRepository) MoveDown(ctx context.Context, id string) error {
	return r.swapWithSibling(ctx, id, false)
}

func (r *SubtaskRepository) swapWithSibling(ctx context.Context, id string, up bool) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		subtask, err := r.getTx(ctx, tx, id)
		if err != nil {
			return err
		}

		siblingQuery := `
			SELECT * FROM subtasks
			WHERE task_id = ? AND sort_order < ?
			ORDER BY sort_order DESC LIMIT 1
		`
		if !up {
			siblingQuery = `
				SELECT * FROM subtasks
				WHERE task_id = ? AND sort_order > ?
				ORDER BY sort_order ASC LIMIT 1
			`
		}

		var sibling entities.Subtask
		err = tx.GetContext(ctx, &sibling, siblingQuery, subtask.TaskID, subtask.Order)
		if errors.Is(err, sql.ErrNoRows) {
			// Already at the edge.
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find adjacent subtask: %w", err)
		}

		subtask.Order, sibling.Order = sibling.Order, subtask.Order

		now := time.Now().UTC()
		for _, st := range []*entities.Subtask{subtask, &sibling} {
			st.UpdatedAt = now
			st.SyncStatus = entities.SyncStatusPending

			if _, err := tx.ExecContext(ctx,
				"UPDATE subtasks SET sort_order = ?, updated_at = ?, sync_status = ? WHERE id = ?",
				st.Order, now, entities.SyncStatusPending, st.ID); err != nil {
				return fmt.Errorf("failed to reorder subtask: %w", err)
			}

			if err := r.outbox.enqueueTx(ctx, tx, entities.TableSubtasks, st.ID, entities.SyncOpUpdate, st); err != nil {
				return err
			}
		}

		return nil
	})
}
