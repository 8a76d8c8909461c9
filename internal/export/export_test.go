package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Celestial-0/Taskly/internal/adapters/repository"
	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/config"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
)

type exportFixture struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	records    *repository.SyncRecordRepository
}

func newExportFixture(t *testing.T) *exportFixture {
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
	return &exportFixture{
		tasks:      repository.NewTaskRepository(db, records, log),
		categories: repository.NewCategoryRepository(db, records, log),
		records:    records,
	}
}

func seedExportData(t *testing.T, fx *exportFixture) {
	t.Helper()
	ctx := context.Background()

	work, err := fx.categories.Create(ctx, &entities.Category{Name: "Work", Color: "#4A90D9"})
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	desc := "with a, comma and \"quotes\""
	seeds := []*entities.Task{
		{Title: "Write report", Priority: entities.PriorityHigh, CategoryID: &work.ID, Completed: true},
		{Title: "Tricky fields", Priority: entities.PriorityLow, Description: &desc},
	}
	for _, task := range seeds {
		if _, err := fx.tasks.Create(ctx, task); err != nil {
			t.Fatalf("Failed to create task %q: %v", task.Title, err)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	source := newExportFixture(t)
	seedExportData(t, source)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := NewExporter(source.tasks, source.categories).WriteJSON(ctx, &buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if doc.Version != FormatVersion {
		t.Errorf("Expected version %d, got %d", FormatVersion, doc.Version)
	}
	if doc.TaskCount != 2 || len(doc.Tasks) != 2 {
		t.Fatalf("Expected 2 exported tasks, got %d", len(doc.Tasks))
	}

	// Categories are exported by name.
	var found bool
	for _, row := range doc.Tasks {
		if row.Title == "Write report" {
			found = true
			if row.Category != "Work" {
				t.Errorf("Expected category name Work, got %q", row.Category)
			}
		}
	}
	if !found {
		t.Fatal("Expected the Work task in the export")
	}

	// Import into a fresh store with the same category set.
	target := newExportFixture(t)
	if _, err := target.categories.Create(ctx, &entities.Category{Name: "Work", Color: "#4A90D9"}); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	count, err := NewImporter(target.tasks, target.categories).ReadJSON(ctx, &buf)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 imported tasks, got %d", count)
	}

	imported, err := target.tasks.GetAll(ctx)
	if err != nil {
		t.Fatalf("Failed to list imported tasks: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("Expected 2 tasks in target store, got %d", len(imported))
	}
	for _, task := range imported {
		if task.SyncStatus != entities.SyncStatusSynced {
			t.Errorf("Imported task %q should arrive synced, got %s", task.Title, task.SyncStatus)
		}
		if task.Title == "Write report" {
			if task.CategoryID == nil {
				t.Error("Expected the category resolved by name on import")
			}
			if !task.Completed {
				t.Error("Expected completed flag preserved")
			}
		}
	}

	// Imports bypass the outbox entirely.
	pending, err := target.records.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count sync records: %v", err)
	}
	if pending != 1 { // only the category create
		t.Errorf("Expected 1 outbox record (category only), got %d", pending)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	source := newExportFixture(t)
	seedExportData(t, source)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := NewExporter(source.tasks, source.categories).WriteCSV(ctx, &buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "title,") {
		t.Errorf("Expected header row, got %q", lines[0])
	}

	target := newExportFixture(t)
	count, err := NewImporter(target.tasks, target.categories).ReadCSV(ctx, &buf)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 imported tasks, got %d", count)
	}

	imported, err := target.tasks.GetAll(ctx)
	if err != nil {
		t.Fatalf("Failed to list imported tasks: %v", err)
	}
	for _, task := range imported {
		if task.Title == "Tricky fields" {
			if task.Description == nil || !strings.Contains(*task.Description, "comma") {
				t.Error("Expected quoted description to survive the round trip")
			}
		}
	}
}

func TestReadCSVWithoutHeader(t *testing.T) {
	fx := newExportFixture(t)

	csvBody := `Standalone,,false,,high,2024-01-02T03:04:05Z,2024-01-02T03:04:05Z` + "\n"
	count, err := NewImporter(fx.tasks, fx.categories).ReadCSV(context.Background(), strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 imported task, got %d", count)
	}
}

func TestReadJSONRejectsNewerVersion(t *testing.T) {
	fx := newExportFixture(t)

	body := `{"version": 99, "taskCount": 0, "tasks": []}`
	if _, err := NewImporter(fx.tasks, fx.categories).ReadJSON(context.Background(), strings.NewReader(body)); err == nil {
		t.Error("Expected an error for a newer document version")
	}
}

func TestImportUnknownPriorityAndCategory(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	body := `{"version": 1, "taskCount": 1, "tasks": [{"title": "Odd one", "priority": "whenever", "category": "Nonexistent"}]}`
	count, err := NewImporter(fx.tasks, fx.categories).ReadJSON(ctx, strings.NewReader(body))
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 imported task, got %d", count)
	}

	tasks, err := fx.tasks.GetAll(ctx)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if tasks[0].Priority != entities.PriorityLow {
		t.Errorf("Expected unknown priority coerced to low, got %s", tasks[0].Priority)
	}
	if tasks[0].CategoryID != nil {
		t.Error("Expected unknown category dropped")
	}
}
