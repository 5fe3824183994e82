package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// TagHandler handles tag requests
type TagHandler struct {
	tagService ports.TagService
	logger     *logger.Logger
}

// TagResponse wraps a tag mutation result
type TagResponse struct {
	Tag     *entities.Tag `json:"tag"`
	Message string        `json:"message"`
}

// TagListResponse wraps the user's tags
type TagListResponse struct {
	Tags []*entities.Tag `json:"tags"`
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagService ports.TagService, logger *logger.Logger) *TagHandler {
	return &TagHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// CreateTag creates a tag; duplicate names return 409
func (h *TagHandler) CreateTag(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tag, err := h.tagService.CreateTag(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Create tag failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, TagResponse{Tag: tag, Message: "Tag created"})
}

// UpdateTag renames or recolors a tag
func (h *TagHandler) UpdateTag(c echo.Context) error {
	userID := getUserIDFromContext(c)
	tagID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tag, err := h.tagService.UpdateTag(c.Request().Context(), userID, tagID, req)
	if err != nil {
		h.logger.Error("Update tag failed", "error", err, "tag_id", tagID, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, tag)
}

// DeleteTag removes a tag and its task links
func (h *TagHandler) DeleteTag(c echo.Context) error {
	userID := getUserIDFromContext(c)
	tagID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.tagService.DeleteTag(c.Request().Context(), userID, tagID); err != nil {
		h.logger.Error("Delete tag failed", "error", err, "tag_id", tagID, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Tag deleted"})
}

// ListTags returns the user's tags
func (h *TagHandler) ListTags(c echo.Context) error {
	userID := getUserIDFromContext(c)

	tags, err := h.tagService.ListTags(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("List tags failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, TagListResponse{Tags: tags})
}
