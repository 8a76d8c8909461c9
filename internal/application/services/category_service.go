package services

import (
	"context"
	"strings"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// CategoryService handles category-related operations
type CategoryService struct {
	categoryRepo ports.CategoryRepository
	logger       *logger.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo ports.CategoryRepository, log *logger.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		logger:       log.WithComponent("service.category"),
	}
}

// CreateCategory creates a new category; duplicate names fail with a
// ValidationError regardless of case.
func (s *CategoryService) CreateCategory(ctx context.Context, req ports.CreateCategoryRequest) (*entities.Category, error) {
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = "#4ECDC4"
	}

	category := &entities.Category{
		Name:  req.Name,
		Color: color,
		Icon:  req.Icon,
	}

	created, err := s.categoryRepo.Create(ctx, category)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Category created", "category_id", created.ID, "name", created.Name)
	return created, nil
}

// GetCategory retrieves a category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*entities.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// ListCategories retrieves all categories
func (s *CategoryService) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	return s.categoryRepo.GetAll(ctx)
}

// RenameCategory changes a category's name
func (s *CategoryService) RenameCategory(ctx context.Context, id, name string) (*entities.Category, error) {
	return s.categoryRepo.Rename(ctx, id, name)
}

// DeleteCategory removes a category, reassigning or clearing its tasks first
func (s *CategoryService) DeleteCategory(ctx context.Context, id string, reassignTo *string) error {
	if err := s.categoryRepo.DeleteCategory(ctx, id, reassignTo); err != nil {
		return err
	}

	s.logger.Infow("Category deleted", "category_id", id)
	return nil
}

// Stats returns per-category task counts and completion percentages
func (s *CategoryService) Stats(ctx context.Context) ([]*entities.CategoryStats, error) {
	return s.categoryRepo.Stats(ctx)
}

// SeedDefaults creates the starter categories that are not present yet
func (s *CategoryService) SeedDefaults(ctx context.Context) ([]*entities.Category, error) {
	created, err := s.categoryRepo.CreateDefaults(ctx)
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		s.logger.Infow("Default categories seeded", "count", len(created))
	}
	return created, nil
}
