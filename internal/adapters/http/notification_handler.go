package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// NotificationHandler handles notification preference requests
type NotificationHandler struct {
	notificationService ports.NotificationService
	logger              *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService ports.NotificationService, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// Subscribe registers a push subscription, creating the preference record
// with defaults on first use
func (h *NotificationHandler) Subscribe(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pref, err := h.notificationService.Subscribe(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Subscribe failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, pref)
}

// Unsubscribe disables push; 404 when the user never subscribed
func (h *NotificationHandler) Unsubscribe(c echo.Context) error {
	userID := getUserIDFromContext(c)

	pref, err := h.notificationService.Unsubscribe(c.Request().Context(), userID)
	if err != nil {
		h.logger.Warn("Unsubscribe failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, pref)
}

// GetPreference returns the user's notification preference record
func (h *NotificationHandler) GetPreference(c echo.Context) error {
	userID := getUserIDFromContext(c)

	pref, err := h.notificationService.GetPreference(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, pref)
}
