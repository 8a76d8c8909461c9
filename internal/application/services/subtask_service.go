package services

import (
	"context"
	"strings"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// SubtaskService handles subtask-related operations
type SubtaskService struct {
	subtaskRepo ports.SubtaskRepository
	logger      *logger.Logger
}

// NewSubtaskService creates a new subtask service
func NewSubtaskService(subtaskRepo ports.SubtaskRepository, log *logger.Logger) *SubtaskService {
	return &SubtaskService{
		subtaskRepo: subtaskRepo,
		logger:      log.WithComponent("service.subtask"),
	}
}

// CreateSubtask adds a subtask at the end of its task's list
func (s *SubtaskService) CreateSubtask(ctx context.Context, req ports.CreateSubtaskRequest) (*entities.Subtask, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entities.NewValidationError("title", "title must not be empty")
	}

	subtask := &entities.Subtask{
		TaskID: req.TaskID,
		Title:  title,
	}

	created, err := s.subtaskRepo.Create(ctx, subtask)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Subtask created", "subtask_id", created.ID, "task_id", created.TaskID)
	return created, nil
}

// ListSubtasks returns a task's subtasks in display order
func (s *SubtaskService) ListSubtasks(ctx context.Context, taskID string) ([]*entities.Subtask, error) {
	return s.subtaskRepo.GetByTask(ctx, taskID)
}

// ToggleCompletion flips a subtask's completed flag
func (s *SubtaskService) ToggleCompletion(ctx context.Context, id string) (*entities.Subtask, error) {
	return s.subtaskRepo.ToggleCompletion(ctx, id)
}

// MoveUp moves a subtask one position earlier
func (s *SubtaskService) MoveUp(ctx context.Context, id string) error {
	return s.subtaskRepo.MoveUp(ctx, id)
}

// MoveDown moves a subtask one position later
func (s *SubtaskService) MoveDown(ctx context.Context, id string) error {
	return s.subtaskRepo.MoveDown(ctx, id)
}

// DeleteSubtask removes a subtask
func (s *SubtaskService) DeleteSubtask(ctx context.Context, id string) error {
	return s.subtaskRepo.Delete(ctx, id)
}
