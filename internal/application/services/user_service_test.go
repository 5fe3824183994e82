package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

func newTestUser() *entities.User {
	return &entities.User{
		ID:       uuid.New(),
		Email:    "ada@example.com",
		Name:     "Ada",
		Timezone: "UTC",
	}
}

func TestUpdateProfile(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	service := NewUserService(users, newFakeWipeStore(user.ID), nil, logger.NewNop())

	name := "Ada Lovelace"
	tz := "Europe/Berlin"
	updated, err := service.UpdateProfile(context.Background(), user.ID, ports.UpdateProfileRequest{
		Name:     &name,
		Timezone: &tz,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "Europe/Berlin", updated.Timezone)
}

func TestUpdateProfileRejectsBogusTimezone(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	service := NewUserService(users, newFakeWipeStore(user.ID), nil, logger.NewNop())

	tz := "Mars/Olympus_Mons"
	_, err := service.UpdateProfile(context.Background(), user.ID, ports.UpdateProfileRequest{Timezone: &tz})
	assert.ErrorIs(t, err, entities.ErrInvalidTimezone)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", stored.Timezone)
}

func TestOnboardingRoundTrip(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	service := NewUserService(users, newFakeWipeStore(user.ID), nil, logger.NewNop())

	state, err := service.GetOnboarding(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, state.Done)
	assert.Equal(t, 0, state.Step)

	step := 3
	state, err = service.UpdateOnboarding(context.Background(), user.ID, ports.UpdateOnboardingRequest{Step: &step})
	require.NoError(t, err)
	assert.Equal(t, 3, state.Step)

	done := true
	state, err = service.UpdateOnboarding(context.Background(), user.ID, ports.UpdateOnboardingRequest{Done: &done})
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Equal(t, 3, state.Step)
}

func TestDeleteAccountRunsStepsInOrder(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	store := newFakeWipeStore(user.ID)
	service := NewUserService(users, store, nil, logger.NewNop())

	deletedAt, err := service.DeleteAccount(context.Background(), user.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), deletedAt, time.Minute)

	assert.Equal(t, []string{
		"task_tags",
		"tasks",
		"categories",
		"tags",
		"notification_preferences",
		"sessions",
		"accounts",
		"user",
	}, store.steps)
	assert.False(t, store.users[user.ID])
	assert.Zero(t, store.tasks)
	assert.Zero(t, store.sessions)
}

func TestDeleteAccountRollsBackOnFailure(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	store := newFakeWipeStore(user.ID)
	store.failAt = "sessions"
	service := NewUserService(users, store, nil, logger.NewNop())

	_, err := service.DeleteAccount(context.Background(), user.ID)
	require.Error(t, err)

	// Everything deleted before the failing step is back.
	assert.True(t, store.users[user.ID])
	assert.Equal(t, 3, store.tasks)
	assert.Equal(t, 2, store.sessions)
}

func TestDeleteAccountUnknownUser(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	store := newFakeWipeStore(user.ID)
	service := NewUserService(users, store, nil, logger.NewNop())

	_, err := service.DeleteAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
	assert.Empty(t, store.steps)
}

func TestDeleteAccountDropsCache(t *testing.T) {
	user := newTestUser()
	users := newFakeUserRepo(user)
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), "user:"+user.ID.String()+":tasks:today", "cached", time.Minute))
	service := NewUserService(users, newFakeWipeStore(user.ID), cache, logger.NewNop())

	_, err := service.DeleteAccount(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}
