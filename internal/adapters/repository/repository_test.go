package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/config"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
)

// testRepos bundles every repository over one migrated scratch database
type testRepos struct {
	db         *database.DB
	tasks      *TaskRepository
	categories *CategoryRepository
	subtasks   *SubtaskRepository
	sessions   *TimeSessionRepository
	records    *SyncRecordRepository
}

// newTestRepos opens a fresh database in a temp dir and runs all migrations
func newTestRepos(t *testing.T) *testRepos {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(config.DatabaseConfig{Path: dbPath, BusyTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	log := logger.NewNop()
	records := NewSyncRecordRepository(db, log)

	return &testRepos{
		db:         db,
		tasks:      NewTaskRepository(db, records, log),
		categories: NewCategoryRepository(db, records, log),
		subtasks:   NewSubtaskRepository(db, records, log),
		sessions:   NewTimeSessionRepository(db, records, log),
		records:    records,
	}
}

// mustCreateTask inserts a task and fails the test on error
func mustCreateTask(t *testing.T, repos *testRepos, task *entities.Task) *entities.Task {
	t.Helper()
	created, err := repos.tasks.Create(context.Background(), task)
	if err != nil {
		t.Fatalf("Failed to create task %q: %v", task.Title, err)
	}
	return created
}

// mustCreateSubtask inserts a subtask and fails the test on error
func mustCreateSubtask(t *testing.T, repos *testRepos, taskID, title string) *entities.Subtask {
	t.Helper()
	created, err := repos.subtasks.Create(context.Background(), &entities.Subtask{TaskID: taskID, Title: title})
	if err != nil {
		t.Fatalf("Failed to create subtask %q: %v", title, err)
	}
	return created
}

// outboxCount returns the current number of queued sync records
func outboxCount(t *testing.T, repos *testRepos) int {
	t.Helper()
	count, err := repos.records.Count(context.Background())
	if err != nil {
		t.Fatalf("Failed to count sync records: %v", err)
	}
	return count
}

// lastOutboxRecord returns the newest queued record for a (table, id) pair
func lastOutboxRecord(t *testing.T, repos *testRepos, table, id string) *entities.SyncRecord {
	t.Helper()
	records, err := repos.records.GetByRecord(context.Background(), table, id)
	if err != nil {
		t.Fatalf("Failed to load sync records: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("No sync records queued for %s/%s", table, id)
	}
	return records[len(records)-1]
}

func strPtr(s string) *string { return &s }
