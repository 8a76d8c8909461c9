package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
)

func TestSessionStartAndEnd(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Focus work", Priority: entities.PriorityHigh})

	session, err := repos.sessions.Start(ctx, task.ID, strPtr("deep work"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !session.Active() {
		t.Error("Expected freshly started session to be active")
	}

	// A second session on the same task is rejected while one runs.
	if _, err := repos.sessions.Start(ctx, task.ID, nil); !errors.Is(err, entities.ErrSessionActive) {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}

	active, err := repos.sessions.GetActive(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if active.ID != session.ID {
		t.Errorf("Expected active session %s, got %s", session.ID, active.ID)
	}

	ended, err := repos.sessions.End(ctx, session.ID)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if ended.Active() {
		t.Error("Expected ended session to be inactive")
	}
	if ended.Duration == nil || *ended.Duration < 0 {
		t.Error("Expected a non-negative computed duration")
	}

	// Ending twice is rejected.
	if _, err := repos.sessions.End(ctx, session.ID); !errors.Is(err, entities.ErrSessionEnded) {
		t.Errorf("Expected ErrSessionEnded, got %v", err)
	}

	if _, err := repos.sessions.GetActive(ctx, task.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected no active session left, got %v", err)
	}

	// Ending freed the task for a new session.
	if _, err := repos.sessions.Start(ctx, task.ID, nil); err != nil {
		t.Errorf("Expected a new session to start after end, got %v", err)
	}
}

func TestSessionStartGuards(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.sessions.Start(context.Background(), "missing-id", nil)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown task, got %v", err)
	}
}

func TestSessionStats(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Tracked", Priority: entities.PriorityMedium})

	start := time.Now().UTC().Add(-time.Hour)
	seed := func(duration int) *entities.TimeSession {
		end := start.Add(time.Duration(duration) * time.Second)
		return &entities.TimeSession{
			TaskID:    task.ID,
			StartTime: start,
			EndTime:   &end,
			Duration:  &duration,
		}
	}

	if err := repos.sessions.BatchCreate(ctx, []*entities.TimeSession{seed(60), seed(120), seed(300)}); err != nil {
		t.Fatalf("BatchCreate failed: %v", err)
	}
	// An active session must not count toward stats.
	if _, err := repos.sessions.Start(ctx, task.ID, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stats, err := repos.sessions.Stats(ctx, task.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.SessionCount != 3 {
		t.Errorf("Expected 3 completed sessions, got %d", stats.SessionCount)
	}
	if stats.TotalSeconds != 480 {
		t.Errorf("Expected 480 total seconds, got %d", stats.TotalSeconds)
	}
	if stats.AverageSeconds != 160 {
		t.Errorf("Expected average 160, got %d", stats.AverageSeconds)
	}
	if stats.MinSeconds != 60 || stats.MaxSeconds != 300 {
		t.Errorf("Expected min 60 / max 300, got %d / %d", stats.MinSeconds, stats.MaxSeconds)
	}
}

func TestSessionStatsEmpty(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Untracked", Priority: entities.PriorityLow})

	stats, err := repos.sessions.Stats(ctx, task.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.SessionCount != 0 || stats.TotalSeconds != 0 {
		t.Errorf("Expected zeroed stats, got %+v", stats)
	}
}

func TestStopAllActive(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first := mustCreateTask(t, repos, &entities.Task{Title: "One", Priority: entities.PriorityLow})
	second := mustCreateTask(t, repos, &entities.Task{Title: "Two", Priority: entities.PriorityLow})

	if _, err := repos.sessions.Start(ctx, first.ID, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := repos.sessions.Start(ctx, second.ID, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopped, err := repos.sessions.StopAllActive(ctx)
	if err != nil {
		t.Fatalf("StopAllActive failed: %v", err)
	}
	if stopped != 2 {
		t.Errorf("Expected 2 stopped sessions, got %d", stopped)
	}

	// Nothing left to stop.
	stopped, err = repos.sessions.StopAllActive(ctx)
	if err != nil {
		t.Fatalf("StopAllActive failed: %v", err)
	}
	if stopped != 0 {
		t.Errorf("Expected 0 stopped on second run, got %d", stopped)
	}
}
