// Package export reads and writes the interchange formats for task data:
// a versioned JSON document and an RFC 4180 CSV.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// FormatVersion is the JSON document version
const FormatVersion = 1

var csvHeader = []string{"title", "description", "completed", "category", "priority", "createdAt", "updatedAt"}

// Document is the JSON export envelope
type Document struct {
	Version    int       `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	TaskCount  int       `json:"taskCount"`
	Tasks      []Row     `json:"tasks"`
}

// Row is one exported task. The category is exported by name, not id, so a
// document can be imported into a store with different category ids.
type Row struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Completed   bool              `json:"completed"`
	Category    string            `json:"category,omitempty"`
	Priority    entities.Priority `json:"priority"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Exporter renders tasks into the interchange formats
type Exporter struct {
	taskRepo     ports.TaskRepository
	categoryRepo ports.CategoryRepository
}

// NewExporter creates an exporter over the given repositories
func NewExporter(taskRepo ports.TaskRepository, categoryRepo ports.CategoryRepository) *Exporter {
	return &Exporter{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
	}
}

func (e *Exporter) rows(ctx context.Context) ([]Row, error) {
	tasks, err := e.taskRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	categories, err := e.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	nameByID := make(map[string]string, len(categories))
	for _, c := range categories {
		nameByID[c.ID] = c.Name
	}

	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		row := Row{
			Title:     t.Title,
			Completed: t.Completed,
			Priority:  t.Priority,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		}
		if t.Description != nil {
			row.Description = *t.Description
		}
		if t.CategoryID != nil {
			row.Category = nameByID[*t.CategoryID]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteJSON writes every task as a versioned JSON document
func (e *Exporter) WriteJSON(ctx context.Context, w io.Writer) error {
	rows, err := e.rows(ctx)
	if err != nil {
		return err
	}

	doc := Document{
		Version:    FormatVersion,
		ExportDate: time.Now().UTC(),
		TaskCount:  len(rows),
		Tasks:      rows,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	return nil
}

// WriteCSV writes every task as CSV with a header row
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) error {
	rows, err := e.rows(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Title,
			row.Description,
			strconv.FormatBool(row.Completed),
			row.Category,
			string(row.Priority),
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Importer loads interchange documents back into the store. Imported rows go
// through the bulk-seed path: they arrive already synced and enqueue nothing.
type Importer struct {
	taskRepo     ports.TaskRepository
	categoryRepo ports.CategoryRepository
}

// NewImporter creates an importer over the given repositories
func NewImporter(taskRepo ports.TaskRepository, categoryRepo ports.CategoryRepository) *Importer {
	return &Importer{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
	}
}

// ReadJSON parses a JSON document and inserts its tasks. Returns the number
// of imported tasks.
func (i *Importer) ReadJSON(ctx context.Context, r io.Reader) (int, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to parse import document: %w", err)
	}
	if doc.Version > FormatVersion {
		return 0, fmt.Errorf("unsupported export version %d", doc.Version)
	}

	return i.insert(ctx, doc.Tasks)
}

// ReadCSV parses CSV (with the standard header) and inserts its tasks
func (i *Importer) ReadCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	// Tolerate files without a header row.
	start := 0
	if records[0][0] == csvHeader[0] {
		start = 1
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records[start:] {
		if len(record) < len(csvHeader) {
			return 0, fmt.Errorf("malformed CSV row: expected %d fields, got %d", len(csvHeader), len(record))
		}

		completed, _ := strconv.ParseBool(record[2])
		row := Row{
			Title:       record[0],
			Description: record[1],
			Completed:   completed,
			Category:    record[3],
			Priority:    entities.Priority(record[4]),
		}
		if t, err := time.Parse(time.RFC3339, record[5]); err == nil {
			row.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, record[6]); err == nil {
			row.UpdatedAt = t
		}
		rows = append(rows, row)
	}

	return i.insert(ctx, rows)
}

func (i *Importer) insert(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	categories, err := i.categoryRepo.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	idByName := make(map[string]string, len(categories))
	for _, c := range categories {
		idByName[c.Name] = c.ID
	}

	tasks := make([]*entities.Task, 0, len(rows))
	for _, row := range rows {
		priority := row.Priority
		if !priority.Valid() {
			priority = entities.PriorityLow
		}

		task := &entities.Task{
			Title:     row.Title,
			Completed: row.Completed,
			Priority:  priority,
		}
		task.CreatedAt = row.CreatedAt
		task.UpdatedAt = row.UpdatedAt
		if row.Description != "" {
			desc := row.Description
			task.Description = &desc
		}
		if id, ok := idByName[row.Category]; ok && row.Category != "" {
			categoryID := id
			task.CategoryID = &categoryID
		}
		tasks = append(tasks, task)
	}

	if err := i.taskRepo.BatchCreate(ctx, tasks); err != nil {
		return 0, fmt.Errorf("failed to import tasks: %w", err)
	}

	return len(tasks), nil
}
