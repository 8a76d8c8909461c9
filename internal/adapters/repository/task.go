package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

const taskInsert = `
	INSERT INTO tasks (id, title, description, completed, priority, due_date, category_id, tags, estimated_time, actual_time, sync_status, last_sync_at, created_at, updated_at)
	VALUES (:id, :title, :description, :completed, :priority, :due_date, :category_id, :tags, :estimated_time, :actual_time, :sync_status, :last_sync_at, :created_at, :updated_at)
`

const taskUpdate = `
	UPDATE tasks
	SET title = :title, description = :description, completed = :completed, priority = :priority,
	    due_date = :due_date, category_id = :category_id, tags = :tags,
	    estimated_time = :estimated_time, actual_time = :actual_time,
	    sync_status = :sync_status, last_sync_at = :last_sync_at, updated_at = :updated_at
	WHERE id = :id
`

// TaskRepository implements the task repository interface
type TaskRepository struct {
	base[entities.Task]
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB, outbox *SyncRecordRepository, log *logger.Logger) *TaskRepository {
	return &TaskRepository{
		base: newBase(db, outbox, log, schema[entities.Task]{
			table:  entities.TableTasks,
			insert: taskInsert,
			update: taskUpdate,
			meta:   func(t *entities.Task) *entities.SyncMeta { return t.Meta() },
			defaults: func(t *entities.Task) {
				if t.Priority == "" {
					t.Priority = entities.PriorityLow
				}
			},
		}),
	}
}

// List retrieves tasks matching the filter, newest first
func (r *TaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.Completed != nil {
		conditions = append(conditions, "completed = ?")
		args = append(args, *filter.Completed)
	}

	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}

	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		args = append(args, pattern, pattern)
	}

	if filter.DueFrom != nil {
		conditions = append(conditions, "due_date >= ?")
		args = append(args, *filter.DueFrom)
	}

	if filter.DueTo != nil {
		conditions = append(conditions, "due_date <= ?")
		args = append(args, *filter.DueTo)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT * FROM tasks %s ORDER BY created_at DESC", whereClause)

	var tasks []*entities.Task
	if err := r.db.DB.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// ToggleCompletion flips a task's completed flag. Completing a task cascades
// completion to all of its subtasks; un-completing leaves subtasks as-is.
func (r *TaskRepository) ToggleCompletion(ctx context.Context, id string) (*entities.Task, error) {
	var toggled *entities.Task
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		task, err := r.getTx(ctx, tx, id)
		if err != nil {
			return err
		}

		task.Completed = !task.Completed
		if err := r.updateTx(ctx, tx, task); err != nil {
			return err
		}
		toggled = task

		if !task.Completed {
			return nil
		}

		// Cascade: each completed subtask is a real mutation and gets its
		// own outbox record.
		var subtasks []*entities.Subtask
		if err := tx.SelectContext(ctx, &subtasks,
			"SELECT * FROM subtasks WHERE task_id = ? AND completed = 0 ORDER BY sort_order ASC", id); err != nil {
			return fmt.Errorf("failed to load subtasks for cascade: %w", err)
		}

		now := time.Now().UTC()
		for _, st := range subtasks {
			st.Completed = true
			st.UpdatedAt = now
			st.SyncStatus = entities.SyncStatusPending

			if _, err := tx.ExecContext(ctx,
				"UPDATE subtasks SET completed = 1, updated_at = ?, sync_status = ? WHERE id = ?",
				now, entities.SyncStatusPending, st.ID); err != nil {
				return fmt.Errorf("failed to cascade completion to subtask: %w", err)
			}

			if err := r.outbox.enqueueTx(ctx, tx, entities.TableSubtasks, st.ID, entities.SyncOpUpdate, st); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return toggled, nil
}

// Stats aggregates task counts: totals, per-priority, overdue and due-today
func (r *TaskRepository) Stats(ctx context.Context) (*entities.TaskStats, error) {
	stats := &entities.TaskStats{
		ByPriority: make(map[entities.Priority]int),
	}

	rows := []struct {
		Priority entities.Priority `db:"priority"`
		Count    int               `db:"count"`
	}{}
	if err := r.db.DB.SelectContext(ctx, &rows,
		"SELECT priority, COUNT(*) AS count FROM tasks GROUP BY priority"); err != nil {
		return nil, fmt.Errorf("failed to aggregate tasks by priority: %w", err)
	}
	for _, row := range rows {
		stats.ByPriority[row.Priority] = row.Count
		stats.Total += row.Count
	}

	if err := r.db.DB.GetContext(ctx, &stats.Completed,
		"SELECT COUNT(*) FROM tasks WHERE completed = 1"); err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	now := time.Now().UTC()
	if err := r.db.DB.GetContext(ctx, &stats.Overdue,
		"SELECT COUNT(*) FROM tasks WHERE completed = 0 AND due_date IS NOT NULL AND due_date < ?", now); err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	if err := r.db.DB.GetContext(ctx, &stats.DueToday,
		"SELECT COUNT(*) FROM tasks WHERE due_date IS NOT NULL AND due_date >= ? AND due_date < ?", dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to count tasks due today: %w", err)
	}

	return stats, nil
}
