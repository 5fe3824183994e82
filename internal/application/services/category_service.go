package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// CategoryService handles category operations
type CategoryService struct {
	categoryRepo ports.CategoryRepository
	cache        ports.CacheRepository
	logger       *logger.Logger
	now          func() time.Time
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo ports.CategoryRepository, cache ports.CacheRepository, logger *logger.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateCategory creates a new category for the user. Names are unique per
// user; a duplicate surfaces as entities.ErrDuplicateName.
func (s *CategoryService) CreateCategory(ctx context.Context, userID uuid.UUID, req ports.CreateCategoryRequest) (*entities.Category, error) {
	now := s.now()
	category := &entities.Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Category created", "category_id", category.ID, "user_id", userID)
	return category, nil
}

// UpdateCategory renames or recolors a category owned by the user
func (s *CategoryService) UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, req ports.UpdateCategoryRequest) (*entities.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	category.UpdatedAt = s.now()
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return category, nil
}

// DeleteCategory removes a category; tasks in it lose the association but survive
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	if err := s.categoryRepo.Delete(ctx, userID, categoryID); err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Category deleted", "category_id", categoryID, "user_id", userID)
	return nil
}

// ListCategories returns all of the user's categories
func (s *CategoryService) ListCategories(ctx context.Context, userID uuid.UUID) ([]*entities.Category, error) {
	return s.categoryRepo.List(ctx, userID)
}

func (s *CategoryService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("user:%s:*", userID)); err != nil {
		s.logger.Warn("Failed to invalidate cache", "error", err, "user_id", userID)
	}
}
