package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Celestial-0/Taskly/internal/adapters/repository"
	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/config"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// serviceFixture wires the services over a migrated scratch database
type serviceFixture struct {
	tasks      *TaskService
	categories *CategoryService
	catRepo    *repository.CategoryRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
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
	records := repository.NewSyncRecordRepository(db, log)
	taskRepo := repository.NewTaskRepository(db, records, log)
	catRepo := repository.NewCategoryRepository(db, records, log)

	return &serviceFixture{
		tasks:      NewTaskService(taskRepo, catRepo, NewKeywordCategorizer(), log),
		categories: NewCategoryService(catRepo, log),
		catRepo:    catRepo,
	}
}

func TestCreateTaskValidation(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	negative := -5

	tests := []struct {
		name string
		req  ports.CreateTaskRequest
	}{
		{"empty title", ports.CreateTaskRequest{Title: "   "}},
		{"unknown priority", ports.CreateTaskRequest{Title: "x", Priority: "sometime"}},
		{"negative estimate", ports.CreateTaskRequest{Title: "x", EstimatedTime: &negative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fx.tasks.CreateTask(ctx, tt.req); !entities.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	missing := "missing-id"
	_, err := fx.tasks.CreateTask(ctx, ports.CreateTaskRequest{Title: "x", CategoryID: &missing})
	if !entities.IsValidation(err) {
		t.Errorf("Expected validation error for unknown category, got %v", err)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	fx := newServiceFixture(t)

	task, err := fx.tasks.CreateTask(context.Background(), ports.CreateTaskRequest{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if task.Title != "Buy milk" {
		t.Errorf("Expected trimmed title, got %q", task.Title)
	}
	if task.Priority != entities.PriorityLow {
		t.Errorf("Expected default low priority, got %s", task.Priority)
	}
	if task.Completed {
		t.Error("Expected new task to be open")
	}
	if task.CategoryID != nil {
		t.Error("Expected no category without auto-categorization")
	}
}

func TestCreateTaskAutoCategory(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	if _, err := fx.catRepo.CreateDefaults(ctx); err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}
	shopping, err := fx.catRepo.GetByName(ctx, "Shopping")
	if err != nil {
		t.Fatalf("Failed to look up Shopping: %v", err)
	}

	task, err := fx.tasks.CreateTask(ctx, ports.CreateTaskRequest{Title: "Buy milk", AutoCategory: true})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if task.CategoryID == nil || *task.CategoryID != shopping.ID {
		t.Error("Expected auto-categorization to pick Shopping")
	}

	// An explicit category wins over auto-categorization.
	work, err := fx.catRepo.GetByName(ctx, "Work")
	if err != nil {
		t.Fatalf("Failed to look up Work: %v", err)
	}
	task, err = fx.tasks.CreateTask(ctx, ports.CreateTaskRequest{Title: "Buy milk", CategoryID: &work.ID, AutoCategory: true})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.CategoryID == nil || *task.CategoryID != work.ID {
		t.Error("Expected the explicit category to be kept")
	}
}

func TestUpdateTask(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	task, err := fx.tasks.CreateTask(ctx, ports.CreateTaskRequest{Title: "Initial"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	newTitle := "Renamed"
	high := entities.PriorityHigh
	updated, err := fx.tasks.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{Title: &newTitle, Priority: &high})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Title != "Renamed" || updated.Priority != entities.PriorityHigh {
		t.Errorf("Update not applied: %q / %s", updated.Title, updated.Priority)
	}

	// Clearing the category uses the empty-string sentinel.
	work, err := fx.categories.CreateCategory(ctx, ports.CreateCategoryRequest{Name: "Work", Color: "#4A90D9"})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	updated, err = fx.tasks.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{CategoryID: &work.ID})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.CategoryID == nil {
		t.Fatal("Expected category assigned")
	}

	empty := ""
	updated, err = fx.tasks.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{CategoryID: &empty})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.CategoryID != nil {
		t.Error("Expected category cleared by empty-string sentinel")
	}

	blank := "  "
	if _, err := fx.tasks.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{Title: &blank}); !entities.IsValidation(err) {
		t.Errorf("Expected validation error for blank title, got %v", err)
	}

	if _, err := fx.tasks.UpdateTask(ctx, "missing-id", ports.UpdateTaskRequest{Title: &newTitle}); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	fx := newServiceFixture(t)

	// With no categories yet, the suggestion may still name one the user
	// could create.
	suggestion, err := fx.tasks.Suggest(context.Background(), "Buy milk", "")
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if suggestion.Category != "Shopping" {
		t.Errorf("Expected Shopping suggestion, got %q", suggestion.Category)
	}
	if suggestion.Confidence < 40 {
		t.Errorf("Expected confident suggestion, got %d", suggestion.Confidence)
	}
}
