package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
)

func subtaskTitles(t *testing.T, repos *testRepos, taskID string) []string {
	t.Helper()
	subtasks, err := repos.subtasks.GetByTask(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Failed to list subtasks: %v", err)
	}
	titles := make([]string, len(subtasks))
	for i, st := range subtasks {
		titles[i] = st.Title
	}
	return titles
}

func TestSubtaskCreateAssignsOrder(t *testing.T) {
	repos := newTestRepos(t)

	task := mustCreateTask(t, repos, &entities.Task{Title: "Parent", Priority: entities.PriorityLow})

	first := mustCreateSubtask(t, repos, task.ID, "First")
	second := mustCreateSubtask(t, repos, task.ID, "Second")
	third := mustCreateSubtask(t, repos, task.ID, "Third")

	if first.Order != 1 || second.Order != 2 || third.Order != 3 {
		t.Errorf("Expected orders 1,2,3 got %d,%d,%d", first.Order, second.Order, third.Order)
	}

	// Another task starts its own sequence.
	other := mustCreateTask(t, repos, &entities.Task{Title: "Other parent", Priority: entities.PriorityLow})
	solo := mustCreateSubtask(t, repos, other.ID, "Solo")
	if solo.Order != 1 {
		t.Errorf("Expected order 1 for a fresh task, got %d", solo.Order)
	}
}

func TestSubtaskCreateGuards(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.subtasks.Create(ctx, &entities.Subtask{Title: "No parent"})
	if !entities.IsValidation(err) {
		t.Errorf("Expected validation error for empty task_id, got %v", err)
	}

	_, err = repos.subtasks.Create(ctx, &entities.Subtask{TaskID: "missing-id", Title: "Ghost parent"})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown task, got %v", err)
	}
}

func TestSubtaskToggleCompletion(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Parent", Priority: entities.PriorityLow})
	subtask := mustCreateSubtask(t, repos, task.ID, "Flip me")

	toggled, err := repos.subtasks.ToggleCompletion(ctx, subtask.ID)
	if err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if !toggled.Completed {
		t.Error("Expected subtask completed")
	}

	toggled, err = repos.subtasks.ToggleCompletion(ctx, subtask.ID)
	if err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if toggled.Completed {
		t.Error("Expected subtask back to open")
	}
}

func TestSubtaskMove(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Parent", Priority: entities.PriorityLow})
	first := mustCreateSubtask(t, repos, task.ID, "A")
	second := mustCreateSubtask(t, repos, task.ID, "B")
	mustCreateSubtask(t, repos, task.ID, "C")

	// Moving the top item up is a silent no-op.
	if err := repos.subtasks.MoveUp(ctx, first.ID); err != nil {
		t.Fatalf("MoveUp at top failed: %v", err)
	}
	if got := subtaskTitles(t, repos, task.ID); got[0] != "A" {
		t.Errorf("Expected order unchanged, got %v", got)
	}

	before := outboxCount(t, repos)
	if err := repos.subtasks.MoveUp(ctx, second.ID); err != nil {
		t.Fatalf("MoveUp failed: %v", err)
	}
	if got := subtaskTitles(t, repos, task.ID); got[0] != "B" || got[1] != "A" {
		t.Errorf("Expected B,A,C after move, got %v", got)
	}

	// Both touched rows get an outbox record.
	if got := outboxCount(t, repos); got != before+2 {
		t.Errorf("Expected %d outbox records after swap, got %d", before+2, got)
	}

	if err := repos.subtasks.MoveDown(ctx, second.ID); err != nil {
		t.Fatalf("MoveDown failed: %v", err)
	}
	if got := subtaskTitles(t, repos, task.ID); got[0] != "A" || got[1] != "B" {
		t.Errorf("Expected A,B,C after move back, got %v", got)
	}

	if err := repos.subtasks.MoveUp(ctx, "missing-id"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing subtask, got %v", err)
	}
}

func TestSubtaskDeleteCascadesFromTask(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Parent", Priority: entities.PriorityLow})
	subtask := mustCreateSubtask(t, repos, task.ID, "Child")

	if err := repos.tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	// The foreign key cascade removes children without their own outbox record.
	if _, err := repos.subtasks.GetByID(ctx, subtask.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected subtask removed by cascade, got %v", err)
	}
	records, err := repos.records.GetByRecord(ctx, entities.TableSubtasks, subtask.ID)
	if err != nil {
		t.Fatalf("Failed to load sync records: %v", err)
	}
	for _, r := range records {
		if r.Operation == entities.SyncOpDelete {
			t.Error("Cascade delete must not enqueue per-child delete records")
		}
	}
}
