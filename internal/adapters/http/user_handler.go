package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// UserHandler handles profile, onboarding and account deletion requests
type UserHandler struct {
	userService ports.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetCurrentUser returns the authenticated user's profile
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	userID := getUserIDFromContext(c)

	user, err := h.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's name and timezone
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Update profile failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// GetOnboarding returns the user's onboarding progress
func (h *UserHandler) GetOnboarding(c echo.Context) error {
	userID := getUserIDFromContext(c)

	state, err := h.userService.GetOnboarding(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, state)
}

// UpdateOnboarding advances or finishes onboarding
func (h *UserHandler) UpdateOnboarding(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.UpdateOnboardingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.userService.UpdateOnboarding(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Update onboarding failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, state)
}

// DeleteAccount erases the user and all owned data
// @Summary Delete account
// @Description Permanently deletes the user and everything they own
// @Tags user
// @Produce json
// @Success 200 {object} DeletedResponse
// @Security BearerAuth
// @Router /user/delete [delete]
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	userID := getUserIDFromContext(c)

	deletedAt, err := h.userService.DeleteAccount(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Account deletion failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, DeletedResponse{
		Message:   "Account deleted",
		DeletedAt: deletedAt.UTC().Format(time.RFC3339),
	})
}
