package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// NotificationService manages the per-user notification preference record
type NotificationService struct {
	notificationRepo ports.NotificationRepository
	logger           *logger.Logger
	now              func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo ports.NotificationRepository, logger *logger.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// Subscribe registers a push subscription. The first subscribe creates the
// preference record with defaults (push on, daily email 08:00, weekly email
// Monday 09:00); later subscribes only replace the push fields and leave the
// email settings as the user configured them.
func (s *NotificationService) Subscribe(ctx context.Context, userID uuid.UUID, req ports.SubscribeRequest) (*entities.NotificationPreference, error) {
	now := s.now()

	pref, err := s.notificationRepo.GetByUserID(ctx, userID)
	switch err {
	case nil:
		pref.PushEnabled = true
		pref.PushEndpoint = &req.Endpoint
		pref.PushP256dhKey = &req.P256dhKey
		pref.PushAuthKey = &req.AuthKey
		pref.UpdatedAt = now
		if err := s.notificationRepo.Update(ctx, pref); err != nil {
			return nil, err
		}
	case entities.ErrPreferenceNotFound:
		pref = entities.DefaultNotificationPreference(userID, now)
		pref.PushEndpoint = &req.Endpoint
		pref.PushP256dhKey = &req.P256dhKey
		pref.PushAuthKey = &req.AuthKey
		if err := s.notificationRepo.Create(ctx, pref); err != nil {
			return nil, err
		}
		s.logger.Info("Notification preference created", "user_id", userID)
	default:
		return nil, err
	}

	return pref, nil
}

// Unsubscribe disables push and clears the subscription keys. The email
// settings survive. A user with no preference record gets NotFound.
func (s *NotificationService) Unsubscribe(ctx context.Context, userID uuid.UUID) (*entities.NotificationPreference, error) {
	pref, err := s.notificationRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pref.PushEnabled = false
	pref.PushEndpoint = nil
	pref.PushP256dhKey = nil
	pref.PushAuthKey = nil
	pref.UpdatedAt = s.now()

	if err := s.notificationRepo.Update(ctx, pref); err != nil {
		return nil, err
	}

	s.logger.Info("Push subscription removed", "user_id", userID)
	return pref, nil
}

// GetPreference returns the user's notification preference record
func (s *NotificationService) GetPreference(ctx context.Context, userID uuid.UUID) (*entities.NotificationPreference, error) {
	return s.notificationRepo.GetByUserID(ctx, userID)
}
