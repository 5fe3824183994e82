package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// CategoryHandler handles category requests
type CategoryHandler struct {
	categoryService ports.CategoryService
	logger          *logger.Logger
}

// CategoryResponse wraps a category mutation result
type CategoryResponse struct {
	Category *entities.Category `json:"category"`
	Message  string             `json:"message"`
}

// CategoryListResponse wraps the user's categories
type CategoryListResponse struct {
	Categories []*entities.Category `json:"categories"`
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService ports.CategoryService, logger *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// CreateCategory creates a category; duplicate names return 409
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.categoryService.CreateCategory(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Create category failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, CategoryResponse{Category: category, Message: "Category created"})
}

// UpdateCategory renames or recolors a category
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	userID := getUserIDFromContext(c)
	categoryID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.categoryService.UpdateCategory(c.Request().Context(), userID, categoryID, req)
	if err != nil {
		h.logger.Error("Update category failed", "error", err, "category_id", categoryID, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category; its tasks survive without the association
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	userID := getUserIDFromContext(c)
	categoryID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.categoryService.DeleteCategory(c.Request().Context(), userID, categoryID); err != nil {
		h.logger.Error("Delete category failed", "error", err, "category_id", categoryID, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}

// ListCategories returns all of the user's categories
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	userID := getUserIDFromContext(c)

	categories, err := h.categoryService.ListCategories(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("List categories failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, CategoryListResponse{Categories: categories})
}
