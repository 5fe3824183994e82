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

// UserService handles profile, onboarding and full account erasure
type UserService struct {
	userRepo   ports.UserRepository
	transactor ports.Transactor
	cache      ports.CacheRepository
	logger     *logger.Logger
	now        func() time.Time
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, transactor ports.Transactor, cache ports.CacheRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo:   userRepo,
		transactor: transactor,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile updates the user's name and timezone
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req ports.UpdateProfileRequest) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, entities.ErrInvalidTimezone
		}
		user.Timezone = *req.Timezone
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("Profile updated", "user_id", id)
	return user, nil
}

// GetOnboarding returns the user's onboarding progress
func (s *UserService) GetOnboarding(ctx context.Context, id uuid.UUID) (*ports.OnboardingState, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ports.OnboardingState{
		Done: user.OnboardingDone,
		Step: user.OnboardingStep,
	}, nil
}

// UpdateOnboarding advances or finishes the user's onboarding
func (s *UserService) UpdateOnboarding(ctx context.Context, id uuid.UUID, req ports.UpdateOnboardingRequest) (*ports.OnboardingState, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Done != nil {
		user.OnboardingDone = *req.Done
	}
	if req.Step != nil {
		user.OnboardingStep = *req.Step
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update onboarding: %w", err)
	}

	return &ports.OnboardingState{
		Done: user.OnboardingDone,
		Step: user.OnboardingStep,
	}, nil
}

// DeleteAccount erases the user and everything they own in one transaction.
// The deletes run in dependency order, join rows first and the user row last;
// a failure at any step rolls back all of them.
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID) (time.Time, error) {
	// Confirm the user exists before opening the transaction so an unknown
	// id surfaces as NotFound, not as a no-op wipe.
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return time.Time{}, err
	}

	err := s.transactor.WipeInTx(ctx, func(wipe ports.AccountWipe) error {
		steps := []func(context.Context, uuid.UUID) error{
			wipe.DeleteTaskTagLinks,
			wipe.DeleteTasks,
			wipe.DeleteCategories,
			wipe.DeleteTags,
			wipe.DeleteNotificationPreference,
			wipe.DeleteSessions,
			wipe.DeleteAccounts,
			wipe.DeleteUser,
		}
		for _, step := range steps {
			if err := step(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to delete account: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, fmt.Sprintf("user:%s:*", id)); err != nil {
			s.logger.Warn("Failed to drop cache for deleted account", "error", err, "user_id", id)
		}
	}

	deletedAt := s.now()
	s.logger.Info("Account deleted", "user_id", id)
	return deletedAt, nil
}
