package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
)

func TestOutboxRecordLifecycle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Queued", Priority: entities.PriorityLow})
	if _, err := repos.tasks.Update(ctx, task.ID, func(tk *entities.Task) { tk.Title = "Queued twice" }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	records, err := repos.records.GetByRecord(ctx, entities.TableTasks, task.ID)
	if err != nil {
		t.Fatalf("GetByRecord failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records for the task, got %d", len(records))
	}

	// Snapshots decode back into the entity state at mutation time.
	var snapshot entities.Task
	if err := json.Unmarshal(records[0].Data, &snapshot); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snapshot.ID != task.ID {
		t.Errorf("Snapshot id mismatch: %s vs %s", snapshot.ID, task.ID)
	}

	pending, err := repos.records.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending records, got %d", len(pending))
	}

	if err := repos.records.Delete(ctx, records[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := outboxCount(t, repos); got != 1 {
		t.Errorf("Expected 1 record after delete, got %d", got)
	}

	if err := repos.records.Delete(ctx, records[0].ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestOutboxMarkFailed(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	task := mustCreateTask(t, repos, &entities.Task{Title: "Flaky", Priority: entities.PriorityLow})
	record := lastOutboxRecord(t, repos, entities.TableTasks, task.ID)

	if record.RetryCount != 0 {
		t.Errorf("Expected fresh record with 0 retries, got %d", record.RetryCount)
	}

	if err := repos.records.MarkFailed(ctx, record.ID, "remote unreachable"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if err := repos.records.MarkFailed(ctx, record.ID, "still unreachable"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	reloaded := lastOutboxRecord(t, repos, entities.TableTasks, task.ID)
	if reloaded.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", reloaded.RetryCount)
	}
	if reloaded.Error == nil || *reloaded.Error != "still unreachable" {
		t.Errorf("Expected last failure message recorded, got %v", reloaded.Error)
	}

	// A failed record stays queued.
	if got := outboxCount(t, repos); got != 1 {
		t.Errorf("Expected the record to remain queued, got %d", got)
	}

	if err := repos.records.MarkFailed(ctx, "missing-id", "x"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing record, got %v", err)
	}
}

func TestOutboxSurvivesRollback(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	// A failing multi-row operation must leave the outbox untouched: the
	// enqueue happens in the same transaction as the mutation.
	work, err := repos.categories.Create(ctx, &entities.Category{Name: "Work", Color: "#4A90D9"})
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	mustCreateTask(t, repos, &entities.Task{Title: "Attached", Priority: entities.PriorityLow, CategoryID: &work.ID})
	before := outboxCount(t, repos)

	missing := "missing-id"
	if err := repos.categories.DeleteCategory(ctx, work.ID, &missing); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if got := outboxCount(t, repos); got != before {
		t.Errorf("Expected outbox unchanged after rollback, want %d got %d", before, got)
	}
}
