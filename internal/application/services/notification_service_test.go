package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

func subscribeRequest() ports.SubscribeRequest {
	return ports.SubscribeRequest{
		Endpoint:  "https://push.example.com/sub/abc",
		P256dhKey: "p256dh-key",
		AuthKey:   "auth-key",
	}
}

func TestSubscribeCreatesDefaults(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, logger.NewNop())
	userID := uuid.New()

	pref, err := service.Subscribe(context.Background(), userID, subscribeRequest())
	require.NoError(t, err)

	assert.True(t, pref.PushEnabled)
	require.NotNil(t, pref.PushEndpoint)
	assert.Equal(t, "https://push.example.com/sub/abc", *pref.PushEndpoint)
	assert.True(t, pref.DailyEmail)
	assert.Equal(t, "08:00", pref.DailyEmailTime)
	assert.True(t, pref.WeeklyEmail)
	assert.Equal(t, 1, pref.WeeklyEmailDay)
	assert.Equal(t, "09:00", pref.WeeklyEmailTime)
}

func TestSubscribeAgainKeepsEmailSettings(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, logger.NewNop())
	userID := uuid.New()

	_, err := service.Subscribe(context.Background(), userID, subscribeRequest())
	require.NoError(t, err)

	// The user tunes their email schedule...
	pref, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	pref.DailyEmail = false
	pref.WeeklyEmailTime = "18:00"
	require.NoError(t, repo.Update(context.Background(), pref))

	// ...and re-subscribing from a new browser must not reset it.
	req := subscribeRequest()
	req.Endpoint = "https://push.example.com/sub/new-browser"
	updated, err := service.Subscribe(context.Background(), userID, req)
	require.NoError(t, err)

	assert.False(t, updated.DailyEmail)
	assert.Equal(t, "18:00", updated.WeeklyEmailTime)
	require.NotNil(t, updated.PushEndpoint)
	assert.Equal(t, "https://push.example.com/sub/new-browser", *updated.PushEndpoint)
	assert.True(t, updated.PushEnabled)
}

func TestUnsubscribeClearsPushOnly(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, logger.NewNop())
	userID := uuid.New()

	_, err := service.Subscribe(context.Background(), userID, subscribeRequest())
	require.NoError(t, err)

	pref, err := service.Unsubscribe(context.Background(), userID)
	require.NoError(t, err)

	assert.False(t, pref.PushEnabled)
	assert.Nil(t, pref.PushEndpoint)
	assert.Nil(t, pref.PushP256dhKey)
	assert.Nil(t, pref.PushAuthKey)
	assert.True(t, pref.DailyEmail, "email settings survive unsubscribe")
	assert.True(t, pref.WeeklyEmail)
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, logger.NewNop())

	_, err := service.Unsubscribe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrPreferenceNotFound)
}

func TestGetPreference(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, logger.NewNop())
	userID := uuid.New()

	_, err := service.GetPreference(context.Background(), userID)
	assert.ErrorIs(t, err, entities.ErrPreferenceNotFound)

	_, err = service.Subscribe(context.Background(), userID, subscribeRequest())
	require.NoError(t, err)

	pref, err := service.GetPreference(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, pref.UserID)
}
