package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/service"
)

// maxStatementSize caps uploaded statement files at 10 MB.
const maxStatementSize = 10 * 1024 * 1024

// ImportHandler handles statement import HTTP requests
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportStatement handles POST /api/v1/imports
func (h *ImportHandler) ImportStatement(c echo.Context) error {
	accountID, err := strconv.ParseInt(c.FormValue("accountId"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid or missing accountId", []ValidationError{
			{Field: "accountId", Message: "A numeric accountId form field is required"},
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "Missing statement file", []ValidationError{
			{Field: "file", Message: "A multipart file field named 'file' is required"},
		})
	}
	if fileHeader.Size > maxStatementSize {
		return NewValidationError(c, "Statement exceeds the 10 MB size limit", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded statement")
		return NewInternalError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxStatementSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded statement")
		return NewInternalError(c, "Failed to read uploaded file")
	}

	summary, err := h.importService.Import(c.Request().Context(), service.ImportInput{
		AccountID: accountID,
		FileName:  fileHeader.Filename,
		Content:   content,
	})
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		switch {
		case errors.Is(err, domain.ErrUnrecognizedFormat):
			return NewUnprocessableError(c, "Could not recognize the statement format", nil)
		case errors.Is(err, domain.ErrNoTransactions):
			return NewUnprocessableError(c, "No valid transactions found in the statement", statementWarnings(err))
		case errors.Is(err, domain.ErrLockTimeout):
			return NewConflictError(c, "Another import is running for this account, try again shortly")
		case errors.Is(err, domain.ErrImportCancelled):
			return NewConflictError(c, "Import was cancelled before any transactions were written")
		}
		log.Error().Err(err).Int64("account_id", accountID).Str("file", fileHeader.Filename).Msg("Import failed")
		return NewInternalError(c, "Failed to import statement")
	}

	return c.JSON(http.StatusCreated, summary)
}

// statementWarnings pulls the per-line diagnostics off a failed import,
// when the failure carried any.
func statementWarnings(err error) []domain.ParseWarning {
	var stmtErr *domain.StatementError
	if errors.As(err, &stmtErr) {
		return stmtErr.Warnings
	}
	return nil
}

// ListImports handles GET /api/v1/imports
func (h *ImportHandler) ListImports(c echo.Context) error {
	var accountID *int64
	if v := c.QueryParam("accountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return NewValidationError(c, "Invalid accountId", nil)
		}
		accountID = &id
	}

	limit := int32(50)
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 {
			return NewValidationError(c, "Invalid limit", nil)
		}
		limit = int32(n)
	}

	logs, err := h.importService.ListImports(c.Request().Context(), accountID, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list imports")
		return NewInternalError(c, "Failed to list imports")
	}
	return c.JSON(http.StatusOK, logs)
}
