package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrNotFound       = errors.New("record not found")
	ErrSessionActive  = errors.New("an active time session already exists for this task")
	ErrSessionEnded   = errors.New("time session is already ended")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// ValidationError indicates invalid input, e.g. a duplicate category name.
// The operation is aborted before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Enums and types
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is a known value
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusConflict SyncStatus = "conflict"
)

type SyncOperation string

const (
	SyncOpCreate SyncOperation = "create"
	SyncOpUpdate SyncOperation = "update"
	SyncOpDelete SyncOperation = "delete"
)

// Table names used by the outbox to identify entity kinds
const (
	TableTasks        = "tasks"
	TableCategories   = "categories"
	TableSubtasks     = "subtasks"
	TableTimeSessions = "time_sessions"
)

// StringList is an ordered list of strings stored as a JSON-encoded TEXT column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// SyncMeta carries the fields every synced entity shares. The repository layer
// owns these: creation assigns the id, both timestamps and the pending status.
type SyncMeta struct {
	ID         string     `json:"id" db:"id"`
	SyncStatus SyncStatus `json:"sync_status" db:"sync_status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Meta returns the embedded sync metadata
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Task represents a task in the system
type Task struct {
	SyncMeta
	Title         string     `json:"title" db:"title"`
	Description   *string    `json:"description,omitempty" db:"description"`
	Completed     bool       `json:"completed" db:"completed"`
	Priority      Priority   `json:"priority" db:"priority"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	CategoryID    *string    `json:"category_id,omitempty" db:"category_id"`
	Tags          StringList `json:"tags,omitempty" db:"tags"`
	EstimatedTime *int       `json:"estimated_time,omitempty" db:"estimated_time"`
	ActualTime    *int       `json:"actual_time,omitempty" db:"actual_time"`
}

// IsOverdue reports whether the task has a due date in the past and is not completed
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}

// IsDueToday reports whether the task is due on the given day
func (t *Task) IsDueToday(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	y1, m1, d1 := t.DueDate.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Category represents a task category. Names are unique case-insensitively.
type Category struct {
	SyncMeta
	Name  string  `json:"name" db:"name"`
	Color string  `json:"color" db:"color"`
	Icon  *string `json:"icon,omitempty" db:"icon"`
}

// Subtask represents a child item of a task, ordered within its parent
type Subtask struct {
	SyncMeta
	TaskID    string `json:"task_id" db:"task_id"`
	Title     string `json:"title" db:"title"`
	Completed bool   `json:"completed" db:"completed"`
	Order     int    `json:"order" db:"sort_order"`
}

// TimeSession represents a time-tracking session for a task.
// EndTime is nil exactly while the session is active; Duration is derived
// from start/end when the session ends, never supplied independently.
type TimeSession struct {
	SyncMeta
	TaskID    string     `json:"task_id" db:"task_id"`
	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`
	Duration  *int       `json:"duration,omitempty" db:"duration"`
	Notes     *string    `json:"notes,omitempty" db:"notes"`
}

// Active reports whether the session is still running
func (s *TimeSession) Active() bool { return s.EndTime == nil }

// SyncRecord is an outbox row describing one pending mutation. No entity owns
// a SyncRecord; it is a pure queue row keyed by (TableName, RecordID).
type SyncRecord struct {
	ID         string          `json:"id" db:"id"`
	TableName  string          `json:"table_name" db:"table_name"`
	RecordID   string          `json:"record_id" db:"record_id"`
	Operation  SyncOperation   `json:"operation" db:"operation"`
	Data       json.RawMessage `json:"data,omitempty" db:"data"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
	RetryCount int             `json:"retry_count" db:"retry_count"`
	Error      *string         `json:"error,omitempty" db:"error"`
}

// TaskStats aggregates task counts for dashboards
type TaskStats struct {
	Total      int              `json:"total"`
	Completed  int              `json:"completed"`
	ByPriority map[Priority]int `json:"by_priority"`
	Overdue    int              `json:"overdue"`
	DueToday   int              `json:"due_today"`
}

// CategoryStats aggregates per-category task counts
type CategoryStats struct {
	CategoryID     string  `json:"category_id" db:"category_id"`
	CategoryName   string  `json:"category_name" db:"category_name"`
	TaskCount      int     `json:"task_count" db:"task_count"`
	CompletedCount int     `json:"completed_count" db:"completed_count"`
	CompletionPct  float64 `json:"completion_pct"`
}

// TimeStats aggregates completed-session durations for a task
type TimeStats struct {
	SessionCount   int `json:"session_count"`
	TotalSeconds   int `json:"total_seconds"`
	AverageSeconds int `json:"average_seconds"`
	MinSeconds     int `json:"min_seconds"`
	MaxSeconds     int `json:"max_seconds"`
}

// HumanTotal renders the total duration for display
func (s TimeStats) HumanTotal() string { return FormatDuration(s.TotalSeconds) }

// FormatDuration renders seconds as a human readable string, e.g. "1h 05m 30s"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
