package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
)

// AutoSyncer drains the outbox on a fixed interval in the background
type AutoSyncer struct {
	coordinator *Coordinator
	interval    time.Duration
	stopChan    chan struct{}

	mu      sync.Mutex // guards running; Start and Stop race at shutdown
	running bool
}

// NewAutoSyncer creates an interval-based background syncer
func NewAutoSyncer(coordinator *Coordinator, interval time.Duration) *AutoSyncer {
	return &AutoSyncer{
		coordinator: coordinator,
		interval:    interval,
		stopChan:    make(chan struct{}, 1),
	}
}

// Start launches the background loop. Calling Start twice is a no-op.
func (s *AutoSyncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	go s.loop()
	s.coordinator.logger.Infow("Auto sync started", "interval", s.interval.String())
}

// Stop terminates the background loop
func (s *AutoSyncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stopChan <- struct{}{}
	s.running = false
	s.coordinator.logger.Infow("Auto sync stopped")
}

func (s *AutoSyncer) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopChan:
			return
		}
	}
}

func (s *AutoSyncer) runOnce() {
	result, err := s.coordinator.PerformSync(context.Background())
	if err != nil {
		if errors.Is(err, entities.ErrSyncInProgress) {
			return
		}
		s.coordinator.logger.WithError(err).Warnw("Scheduled sync failed")
		return
	}

	if result.FailedCount > 0 {
		s.coordinator.logger.Warnw("Scheduled sync completed with failures",
			"synced", result.SyncedCount,
			"failed", result.FailedCount,
		)
	}
}
