package services

import (
	"context"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// TimeService handles time tracking operations
type TimeService struct {
	sessionRepo ports.TimeSessionRepository
	logger      *logger.Logger
}

// NewTimeService creates a new time tracking service
func NewTimeService(sessionRepo ports.TimeSessionRepository, log *logger.Logger) *TimeService {
	return &TimeService{
		sessionRepo: sessionRepo,
		logger:      log.WithComponent("service.time"),
	}
}

// StartSession begins tracking time against a task
func (s *TimeService) StartSession(ctx context.Context, req ports.StartSessionRequest) (*entities.TimeSession, error) {
	session, err := s.sessionRepo.Start(ctx, req.TaskID, req.Notes)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Time session started", "session_id", session.ID, "task_id", session.TaskID)
	return session, nil
}

// EndSession stops a running session and computes its duration
func (s *TimeService) EndSession(ctx context.Context, id string) (*entities.TimeSession, error) {
	session, err := s.sessionRepo.End(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Time session ended", "session_id", session.ID, "duration_s", *session.Duration)
	return session, nil
}

// ListSessions returns a task's sessions, most recent first
func (s *TimeService) ListSessions(ctx context.Context, taskID string) ([]*entities.TimeSession, error) {
	return s.sessionRepo.GetByTask(ctx, taskID)
}

// ActiveSession returns the running session for a task, if any
func (s *TimeService) ActiveSession(ctx context.Context, taskID string) (*entities.TimeSession, error) {
	return s.sessionRepo.GetActive(ctx, taskID)
}

// Stats aggregates completed-session durations for a task
func (s *TimeService) Stats(ctx context.Context, taskID string) (*entities.TimeStats, error) {
	return s.sessionRepo.Stats(ctx, taskID)
}

// StopAll ends every active session; used at shutdown
func (s *TimeService) StopAll(ctx context.Context) (int, error) {
	stopped, err := s.sessionRepo.StopAllActive(ctx)
	if err != nil {
		return stopped, err
	}

	if stopped > 0 {
		s.logger.Infow("Stopped active time sessions", "count", stopped)
	}
	return stopped, nil
}
