package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/service"
)

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the create category request body
type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// UpdateCategoryRequest represents the update category request body
type UpdateCategoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// MergeCategoriesRequest represents the merge request body
type MergeCategoriesRequest struct {
	TargetID int64 `json:"targetId"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Icon            string `json:"icon"`
	Color           string `json:"color"`
	IsUserDeletable bool   `json:"isUserDeletable"`
	UsageCount      int64  `json:"usageCount"`
	CreatedAt       string `json:"createdAt"`
}

func toCategoryResponse(cat *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:              cat.ID,
		Name:            cat.Name,
		Type:            string(cat.Type),
		Icon:            cat.Icon,
		Color:           cat.Color,
		IsUserDeletable: cat.IsUserDeletable,
		UsageCount:      cat.UsageCount,
		CreatedAt:       cat.CreatedAt.Format(time.RFC3339),
	}
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	created, err := h.categoryService.CreateCategory(c.Request().Context(), service.CreateCategoryInput{
		Name:  req.Name,
		Type:  domain.CategoryType(req.Type),
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNameRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Category name is required"},
			})
		case errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Category name must be 100 characters or less"},
			})
		case errors.Is(err, domain.ErrInvalidDirection):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "type", Message: "Type must be income or expense"},
			})
		}
		log.Error().Err(err).Msg("Failed to create category")
		return NewInternalError(c, "Failed to create category")
	}
	return c.JSON(http.StatusCreated, toCategoryResponse(created))
}

// GetCategories handles GET /api/v1/categories
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	categories, err := h.categoryService.GetCategories(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories")
		return NewInternalError(c, "Failed to list categories")
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		response = append(response, toCategoryResponse(cat))
	}
	return c.JSON(http.StatusOK, response)
}

// GetCategory handles GET /api/v1/categories/:id
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	cat, err := h.categoryService.GetCategoryByID(c.Request().Context(), id)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to get category")
		return NewInternalError(c, "Failed to get category")
	}
	return c.JSON(http.StatusOK, toCategoryResponse(cat))
}

// UpdateCategory handles PUT /api/v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	var req UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	updated, err := h.categoryService.UpdateCategory(c.Request().Context(), id, service.UpdateCategoryInput{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		switch {
		case errors.Is(err, domain.ErrNameRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Category name is required"},
			})
		case errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Category name must be 100 characters or less"},
			})
		}
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to update category")
		return NewInternalError(c, "Failed to update category")
	}
	return c.JSON(http.StatusOK, toCategoryResponse(updated))
}

// DeleteCategory handles DELETE /api/v1/categories/:id
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	if err := h.categoryService.DeleteCategory(c.Request().Context(), id); err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if errors.Is(err, domain.ErrCategoryProtected) {
			return NewConflictError(c, "This category cannot be deleted")
		}
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to delete category")
		return NewInternalError(c, "Failed to delete category")
	}
	return c.NoContent(http.StatusNoContent)
}

// MergeCategories handles POST /api/v1/categories/:id/merge
func (h *CategoryHandler) MergeCategories(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	var req MergeCategoriesRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	merged, err := h.categoryService.MergeCategories(c.Request().Context(), id, req.TargetID)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if errors.Is(err, domain.ErrCategoryProtected) {
			return NewConflictError(c, "This category cannot be merged away")
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "A category cannot be merged into itself", nil)
		}
		log.Error().Err(err).Int64("source_id", id).Int64("target_id", req.TargetID).Msg("Failed to merge categories")
		return NewInternalError(c, "Failed to merge categories")
	}
	return c.JSON(http.StatusOK, toCategoryResponse(merged))
}
