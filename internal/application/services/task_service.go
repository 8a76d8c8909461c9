package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// TaskService handles task-related operations
type TaskService struct {
	taskRepo     ports.TaskRepository
	categoryRepo ports.CategoryRepository
	categorizer  ports.Categorizer
	logger       *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, categoryRepo ports.CategoryRepository, categorizer ports.Categorizer, log *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		categorizer:  categorizer,
		logger:       log.WithComponent("service.task"),
	}
}

// CreateTask creates a new task. When no category is given and auto-category
// is requested, the categorizer proposes one; a categorizer failure falls
// back to the defaults rather than failing the create.
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entities.NewValidationError("title", "title must not be empty")
	}

	priority := req.Priority
	if priority == "" {
		priority = entities.PriorityLow
	}
	if !priority.Valid() {
		return nil, entities.NewValidationError("priority", fmt.Sprintf("unknown priority %q", priority))
	}

	if req.EstimatedTime != nil && *req.EstimatedTime < 0 {
		return nil, entities.NewValidationError("estimated_time", "estimated time must not be negative")
	}

	categoryID := req.CategoryID
	if categoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *categoryID); err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				return nil, entities.NewValidationError("category_id", "category does not exist")
			}
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
	}

	if categoryID == nil && req.AutoCategory {
		if suggested, suggestedPriority, ok := s.suggestCategory(ctx, title, req.Description); ok {
			categoryID = suggested
			if req.Priority == "" {
				priority = suggestedPriority
			}
		}
	}

	task := &entities.Task{
		Title:         title,
		Description:   req.Description,
		Priority:      priority,
		DueDate:       req.DueDate,
		CategoryID:    categoryID,
		Tags:          req.Tags,
		EstimatedTime: req.EstimatedTime,
	}

	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created", "task_id", created.ID, "title", created.Title)
	return created, nil
}

// suggestCategory asks the categorizer for a guess and resolves the suggested
// name to an existing category id. Any failure yields no suggestion.
func (s *TaskService) suggestCategory(ctx context.Context, title string, description *string) (*string, entities.Priority, bool) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		s.logger.WithError(err).Debugw("Skipping auto-categorization")
		return nil, "", false
	}

	names := make([]string, 0, len(categories))
	byName := make(map[string]*entities.Category, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
		byName[strings.ToLower(c.Name)] = c
	}

	desc := ""
	if description != nil {
		desc = *description
	}

	suggestion, err := s.categorizer.Categorize(ctx, title, desc, names)
	if err != nil {
		s.logger.WithError(err).Debugw("Categorizer failed, keeping defaults")
		return nil, "", false
	}

	category, ok := byName[strings.ToLower(suggestion.Category)]
	if !ok {
		return nil, "", false
	}

	return &category.ID, suggestion.Priority, true
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, id string) (*entities.Task, error) {
	return s.taskRepo.GetByID(ctx, id)
}

// ListTasks retrieves tasks matching the filter
func (s *TaskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	return s.taskRepo.List(ctx, filter)
}

// UpdateTask applies a partial update to a task
func (s *TaskService) UpdateTask(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, entities.NewValidationError("title", "title must not be empty")
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, entities.NewValidationError("priority", fmt.Sprintf("unknown priority %q", *req.Priority))
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		if _, err := s.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				return nil, entities.NewValidationError("category_id", "category does not exist")
			}
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
	}

	updated, err := s.taskRepo.Update(ctx, id, func(task *entities.Task) {
		if req.Title != nil {
			task.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			task.Description = req.Description
		}
		if req.Completed != nil {
			task.Completed = *req.Completed
		}
		if req.Priority != nil {
			task.Priority = *req.Priority
		}
		if req.DueDate != nil {
			task.DueDate = req.DueDate
		}
		if req.CategoryID != nil {
			if *req.CategoryID == "" {
				task.CategoryID = nil
			} else {
				task.CategoryID = req.CategoryID
			}
		}
		if req.Tags != nil {
			task.Tags = req.Tags
		}
		if req.EstimatedTime != nil {
			task.EstimatedTime = req.EstimatedTime
		}
		if req.ActualTime != nil {
			task.ActualTime = req.ActualTime
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task updated", "task_id", id)
	return updated, nil
}

// DeleteTask removes a task; its subtasks and sessions go with it
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Infow("Task deleted", "task_id", id)
	return nil
}

// ToggleCompletion flips a task's completed flag with subtask cascade
func (s *TaskService) ToggleCompletion(ctx context.Context, id string) (*entities.Task, error) {
	return s.taskRepo.ToggleCompletion(ctx, id)
}

// Stats returns aggregate task counts
func (s *TaskService) Stats(ctx context.Context) (*entities.TaskStats, error) {
	return s.taskRepo.Stats(ctx)
}

// Suggest runs the categorizer for a title/description without creating
// anything. A categorizer failure degrades to a low-confidence default guess.
func (s *TaskService) Suggest(ctx context.Context, title, description string) (ports.CategorySuggestion, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return ports.CategorySuggestion{}, fmt.Errorf("failed to list categories: %w", err)
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	suggestion, err := s.categorizer.Categorize(ctx, title, description, names)
	if err != nil {
		s.logger.WithError(err).Debugw("Categorizer failed, returning default guess")
		return ports.CategorySuggestion{Priority: entities.PriorityLow, Confidence: 0}, nil
	}

	return suggestion, nil
}
