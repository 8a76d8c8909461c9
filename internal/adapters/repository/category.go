package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
)

const categoryInsert = `
	INSERT INTO categories (id, name, color, icon, sync_status, last_sync_at, created_at, updated_at)
	VALUES (:id, :name, :color, :icon, :sync_status, :last_sync_at, :created_at, :updated_at)
`

const categoryUpdate = `
	UPDATE categories
	SET name = :name, color = :color, icon = :icon,
	    sync_status = :sync_status, last_sync_at = :last_sync_at, updated_at = :updated_at
	WHERE id = :id
`

// defaultCategories is the starter set seeded by CreateDefaults
var defaultCategories = []entities.Category{
	{Name: "Work", Color: "#4A90D9"},
	{Name: "Personal", Color: "#4ECDC4"},
	{Name: "Shopping", Color: "#F5A623"},
	{Name: "Health", Color: "#7ED321"},
	{Name: "Learning", Color: "#9B59B6"},
}

// CategoryRepository implements the category repository interface
type CategoryRepository struct {
	base[entities.Category]
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB, outbox *SyncRecordRepository, log *logger.Logger) *CategoryRepository {
	return &CategoryRepository{
		base: newBase(db, outbox, log, schema[entities.Category]{
			table:  entities.TableCategories,
			insert: categoryInsert,
			update: categoryUpdate,
			meta:   func(c *entities.Category) *entities.SyncMeta { return c.Meta() },
		}),
	}
}

// Create creates a category after checking name uniqueness (case-insensitive)
func (r *CategoryRepository) Create(ctx context.Context, category *entities.Category) (*entities.Category, error) {
	name := strings.TrimSpace(category.Name)
	if name == "" {
		return nil, entities.NewValidationError("name", "name must not be empty")
	}
	category.Name = name

	existing, err := r.GetByName(ctx, name)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, entities.NewValidationError("name", fmt.Sprintf("category %q already exists", existing.Name))
	}

	return r.base.Create(ctx, category)
}

// GetByName retrieves a category by name, compared case-insensitively
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*entities.Category, error) {
	var category entities.Category
	query := `SELECT * FROM categories WHERE name = ? COLLATE NOCASE`

	if err := r.db.DB.GetContext(ctx, &category, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}

	return &category, nil
}

// Rename changes a category's name, enforcing uniqueness against other rows
func (r *CategoryRepository) Rename(ctx context.Context, id, name string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entities.NewValidationError("name", "name must not be empty")
	}

	existing, err := r.GetByName(ctx, name)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, entities.NewValidationError("name", fmt.Sprintf("category %q already exists", existing.Name))
	}

	return r.base.Update(ctx, id, func(c *entities.Category) {
		c.Name = name
	})
}

// DeleteCategory removes a category. Tasks referencing it are first reassigned
// to reassignTo, or set to no category when reassignTo is nil. The whole
// operation runs in one transaction so a crash cannot leave dangling
// references.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, id string, reassignTo *string) error {
	if reassignTo != nil && *reassignTo == id {
		return entities.NewValidationError("reassign_to", "cannot reassign tasks to the category being deleted")
	}

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		snapshot, err := r.getTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if reassignTo != nil {
			var count int
			if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM categories WHERE id = ?", *reassignTo); err != nil {
				return fmt.Errorf("failed to check reassignment target: %w", err)
			}
			if count == 0 {
				return entities.ErrNotFound
			}
		}

		var tasks []*entities.Task
		if err := tx.SelectContext(ctx, &tasks, "SELECT * FROM tasks WHERE category_id = ?", id); err != nil {
			return fmt.Errorf("failed to load tasks for reassignment: %w", err)
		}

		now := time.Now().UTC()
		for _, task := range tasks {
			task.CategoryID = reassignTo
			task.UpdatedAt = now
			task.SyncStatus = entities.SyncStatusPending

			if _, err := tx.ExecContext(ctx,
				"UPDATE tasks SET category_id = ?, updated_at = ?, sync_status = ? WHERE id = ?",
				reassignTo, now, entities.SyncStatusPending, task.ID); err != nil {
				return fmt.Errorf("failed to reassign task: %w", err)
			}

			if err := r.outbox.enqueueTx(ctx, tx, entities.TableTasks, task.ID, entities.SyncOpUpdate, task); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}

		return r.outbox.enqueueTx(ctx, tx, entities.TableCategories, id, entities.SyncOpDelete, snapshot)
	})
}

// Stats returns task counts and completion percentage per category
func (r *CategoryRepository) Stats(ctx context.Context) ([]*entities.CategoryStats, error) {
	query := `
		SELECT c.id AS category_id, c.name AS category_name,
		       COUNT(t.id) AS task_count,
		       COALESCE(SUM(t.completed), 0) AS completed_count
		FROM categories c
		LEFT JOIN tasks t ON t.category_id = c.id
		GROUP BY c.id, c.name
		ORDER BY c.name COLLATE NOCASE ASC
	`

	var stats []*entities.CategoryStats
	if err := r.db.DB.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to aggregate category stats: %w", err)
	}

	for _, s := range stats {
		if s.TaskCount > 0 {
			s.CompletionPct = float64(s.CompletedCount) / float64(s.TaskCount) * 100
		}
	}

	return stats, nil
}

// CreateDefaults seeds the fixed starter set, skipping names already present
func (r *CategoryRepository) CreateDefaults(ctx context.Context) ([]*entities.Category, error) {
	var created []*entities.Category

	for _, def := range defaultCategories {
		_, err := r.GetByName(ctx, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}

		category := def
		result, err := r.base.Create(ctx, &category)
		if err != nil {
			return nil, fmt.Errorf("failed to seed category %q: %w", def.Name, err)
		}
		created = append(created, result)
	}

	return created, nil
}
