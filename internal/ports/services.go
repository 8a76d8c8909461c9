package ports

import (
	"context"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
)

// CategorySuggestion is the result of a categorization guess
type CategorySuggestion struct {
	Category   string            `json:"category"`
	Priority   entities.Priority `json:"priority"`
	Confidence int               `json:"confidence"` // 0..100
}

// Categorizer guesses a category and priority for a task. Implementations may
// be local heuristics or remote calls; callers tolerate failure by falling
// back to a default low-confidence guess.
type Categorizer interface {
	Categorize(ctx context.Context, title, description string, knownCategories []string) (CategorySuggestion, error)
}

// CreateTaskRequest is the input for task creation
type CreateTaskRequest struct {
	Title         string              `json:"title" validate:"required,min=1,max=200"`
	Description   *string             `json:"description,omitempty"`
	Priority      entities.Priority   `json:"priority,omitempty"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	CategoryID    *string             `json:"category_id,omitempty"`
	Tags          entities.StringList `json:"tags,omitempty"`
	EstimatedTime *int                `json:"estimated_time,omitempty" validate:"omitempty,min=0"`
	AutoCategory  bool                `json:"auto_category,omitempty"`
}

// UpdateTaskRequest is the input for partial task updates
type UpdateTaskRequest struct {
	Title         *string             `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string             `json:"description,omitempty"`
	Completed     *bool               `json:"completed,omitempty"`
	Priority      *entities.Priority  `json:"priority,omitempty"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	CategoryID    *string             `json:"category_id,omitempty"`
	Tags          entities.StringList `json:"tags,omitempty"`
	EstimatedTime *int                `json:"estimated_time,omitempty" validate:"omitempty,min=0"`
	ActualTime    *int                `json:"actual_time,omitempty" validate:"omitempty,min=0"`
}

// CreateCategoryRequest is the input for category creation
type CreateCategoryRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Color string  `json:"color" validate:"omitempty,max=32"`
	Icon  *string `json:"icon,omitempty"`
}

// CreateSubtaskRequest is the input for subtask creation
type CreateSubtaskRequest struct {
	TaskID string `json:"task_id" validate:"required"`
	Title  string `json:"title" validate:"required,min=1,max=200"`
}

// StartSessionRequest is the input for starting a time session
type StartSessionRequest struct {
	TaskID string  `json:"task_id" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}
