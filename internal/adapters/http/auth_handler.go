package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

const stateCookieName = "oauth_state"

// AuthHandler handles the Google sign-in flow and session endpoints
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// GoogleLogin redirects the browser to the Google consent screen. The state
// value is mirrored in a short-lived cookie and checked on callback.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	state := hex.EncodeToString(stateBytes)

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusTemporaryRedirect, h.authService.AuthCodeURL(state))
}

// GoogleCallback completes the sign-in: verifies state, exchanges the code
// and returns the session tokens.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	state := c.QueryParam("state")
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || cookie.Value != state {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid oauth state")
	}

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing authorization code")
	}

	response, err := h.authService.HandleGoogleCallback(c.Request().Context(), code)
	if err != nil {
		h.logger.Error("Google callback failed", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Sign-in failed")
	}

	return c.JSON(http.StatusOK, response)
}

// RefreshToken rotates a refresh token into a new session
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		h.logger.Warn("Token refresh failed", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	return c.JSON(http.StatusOK, response)
}

// Logout revokes every session of the authenticated user
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := getUserIDFromContext(c)

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		h.logger.Error("Logout failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
