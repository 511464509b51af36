package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// ProblemDetails represents an RFC 7807 Problem Details response.
// Warnings is an extension member for unprocessable statements,
// carrying the per-line diagnostics gathered before the failure.
type ProblemDetails struct {
	Type     string                `json:"type"`
	Title    string                `json:"title"`
	Status   int                   `json:"status"`
	Detail   string                `json:"detail,omitempty"`
	Instance string                `json:"instance,omitempty"`
	Errors   []ValidationError     `json:"errors,omitempty"`
	Warnings []domain.ParseWarning `json:"warnings,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://bitflow.dev/ledger/errors/validation"
	ErrorTypeNotFound     = "https://bitflow.dev/ledger/errors/not-found"
	ErrorTypeUnauthorized = "https://bitflow.dev/ledger/errors/unauthorized"
	ErrorTypeConflict     = "https://bitflow.dev/ledger/errors/conflict"
	ErrorTypeUnparseable  = "https://bitflow.dev/ledger/errors/unparseable-statement"
	ErrorTypeInternal     = "https://bitflow.dev/ledger/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnprocessableError creates a response for statements that could not
// be parsed into transactions. Skipped-line diagnostics, when any were
// gathered before the failure, ride along in the body.
func NewUnprocessableError(c echo.Context, detail string, warnings []domain.ParseWarning) error {
	return c.JSON(http.StatusUnprocessableEntity, ProblemDetails{
		Type:     ErrorTypeUnparseable,
		Title:    "Unprocessable Statement",
		Status:   http.StatusUnprocessableEntity,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Warnings: warnings,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// notFoundSentinels are mapped to 404 by handleNotFound.
var notFoundSentinels = []error{
	domain.ErrAccountNotFound,
	domain.ErrTransactionNotFound,
	domain.ErrCategoryNotFound,
	domain.ErrRuleNotFound,
	domain.ErrImportNotFound,
}

// handleNotFound maps not-found sentinels to a 404 response. Returns
// false when err is some other failure.
func handleNotFound(c echo.Context, err error) (error, bool) {
	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			return NewNotFoundError(c, sentinel.Error()), true
		}
	}
	return nil, false
}
