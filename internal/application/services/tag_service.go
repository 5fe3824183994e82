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

// Listing is capped; a personal tag set beyond this is unreachable in the UI.
const maxTagList = 100

// TagService handles tag operations
type TagService struct {
	tagRepo ports.TagRepository
	cache   ports.CacheRepository
	logger  *logger.Logger
	now     func() time.Time
}

// NewTagService creates a new tag service
func NewTagService(tagRepo ports.TagRepository, cache ports.CacheRepository, logger *logger.Logger) *TagService {
	return &TagService{
		tagRepo: tagRepo,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateTag creates a new tag for the user. Names are unique per user.
func (s *TagService) CreateTag(ctx context.Context, userID uuid.UUID, req ports.CreateTagRequest) (*entities.Tag, error) {
	now := s.now()
	tag := &entities.Tag{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Tag created", "tag_id", tag.ID, "user_id", userID)
	return tag, nil
}

// UpdateTag renames or recolors a tag owned by the user
func (s *TagService) UpdateTag(ctx context.Context, userID, tagID uuid.UUID, req ports.UpdateTagRequest) (*entities.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tag.Name = *req.Name
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}

	tag.UpdatedAt = s.now()
	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return tag, nil
}

// DeleteTag removes a tag and its task links; the tasks themselves survive
func (s *TagService) DeleteTag(ctx context.Context, userID, tagID uuid.UUID) error {
	if err := s.tagRepo.Delete(ctx, userID, tagID); err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Tag deleted", "tag_id", tagID, "user_id", userID)
	return nil
}

// ListTags returns the user's tags, capped at 100
func (s *TagService) ListTags(ctx context.Context, userID uuid.UUID) ([]*entities.Tag, error) {
	return s.tagRepo.List(ctx, userID, maxTagList)
}

func (s *TagService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("user:%s:*", userID)); err != nil {
		s.logger.Warn("Failed to invalidate cache", "error", err, "user_id", userID)
	}
}
