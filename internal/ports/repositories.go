package ports

import (
	"context"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
)

// SyncStatusWriter updates an entity's sync status directly, without going
// through the normal update path. Used exclusively by the sync coordinator so
// that marking a row synced never re-enqueues an outbox record.
type SyncStatusWriter interface {
	UpdateSyncStatus(ctx context.Context, id string, status entities.SyncStatus, lastSyncAt *time.Time) error
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	SyncStatusWriter
	Create(ctx context.Context, task *entities.Task) (*entities.Task, error)
	GetByID(ctx context.Context, id string) (*entities.Task, error)
	GetAll(ctx context.Context) ([]*entities.Task, error)
	Update(ctx context.Context, id string, apply func(*entities.Task)) (*entities.Task, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	ToggleCompletion(ctx context.Context, id string) (*entities.Task, error)
	Stats(ctx context.Context) (*entities.TaskStats, error)
	GetPendingSync(ctx context.Context) ([]*entities.Task, error)
	GetConflicts(ctx context.Context) ([]*entities.Task, error)
	BatchCreate(ctx context.Context, tasks []*entities.Task) error
}

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	SyncStatusWriter
	Create(ctx context.Context, category *entities.Category) (*entities.Category, error)
	GetByID(ctx context.Context, id string) (*entities.Category, error)
	GetByName(ctx context.Context, name string) (*entities.Category, error)
	GetAll(ctx context.Context) ([]*entities.Category, error)
	Rename(ctx context.Context, id, name string) (*entities.Category, error)
	Update(ctx context.Context, id string, apply func(*entities.Category)) (*entities.Category, error)
	DeleteCategory(ctx context.Context, id string, reassignTo *string) error
	Stats(ctx context.Context) ([]*entities.CategoryStats, error)
	CreateDefaults(ctx context.Context) ([]*entities.Category, error)
	GetPendingSync(ctx context.Context) ([]*entities.Category, error)
}

// SubtaskRepository defines the interface for subtask data operations
type SubtaskRepository interface {
	SyncStatusWriter
	Create(ctx context.Context, subtask *entities.Subtask) (*entities.Subtask, error)
	GetByID(ctx context.Context, id string) (*entities.Subtask, error)
	GetByTask(ctx context.Context, taskID string) ([]*entities.Subtask, error)
	Update(ctx context.Context, id string, apply func(*entities.Subtask)) (*entities.Subtask, error)
	Delete(ctx context.Context, id string) error
	ToggleCompletion(ctx context.Context, id string) (*entities.Subtask, error)
	MoveUp(ctx context.Context, id string) error
	MoveDown(ctx context.Context, id string) error
}

// TimeSessionRepository defines the interface for time session data operations
type TimeSessionRepository interface {
	SyncStatusWriter
	Start(ctx context.Context, taskID string, notes *string) (*entities.TimeSession, error)
	End(ctx context.Context, id string) (*entities.TimeSession, error)
	GetByID(ctx context.Context, id string) (*entities.TimeSession, error)
	GetByTask(ctx context.Context, taskID string) ([]*entities.TimeSession, error)
	GetActive(ctx context.Context, taskID string) (*entities.TimeSession, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, taskID string) (*entities.TimeStats, error)
	StopAllActive(ctx context.Context) (int, error)
}

// SyncRecordRepository defines the interface for the outbox queue
type SyncRecordRepository interface {
	GetPending(ctx context.Context) ([]*entities.SyncRecord, error)
	GetByRecord(ctx context.Context, tableName, recordID string) ([]*entities.SyncRecord, error)
	Delete(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, message string) error
	Count(ctx context.Context) (int, error)
}

// TaskFilter describes optional task query filters
type TaskFilter struct {
	Completed  *bool
	Priority   *entities.Priority
	CategoryID *string
	Search     *string
	DueFrom    *time.Time
	DueTo      *time.Time
}
