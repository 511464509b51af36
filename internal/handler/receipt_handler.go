package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/service"
)

// ReceiptHandler handles receipt upload and retrieval for transactions
type ReceiptHandler struct {
	attachmentService *service.AttachmentService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(attachmentService *service.AttachmentService) *ReceiptHandler {
	return &ReceiptHandler{attachmentService: attachmentService}
}

// ReceiptResponse represents receipt metadata with presigned URLs
type ReceiptResponse struct {
	ReceiptKey   string `json:"receiptKey"`
	ThumbnailURL string `json:"thumbnailUrl"`
	OriginalURL  string `json:"originalUrl"`
}

func toReceiptResponse(m *service.ReceiptMetadata) ReceiptResponse {
	return ReceiptResponse{
		ReceiptKey:   m.ReceiptKey,
		ThumbnailURL: m.ThumbnailURL,
		OriginalURL:  m.OriginalURL,
	}
}

// AttachReceipt handles POST /api/v1/transactions/:id/receipt
func (h *ReceiptHandler) AttachReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "Missing receipt file", []ValidationError{
			{Field: "file", Message: "A multipart file field named 'file' is required"},
		})
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded receipt")
		return NewInternalError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxReceiptSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded receipt")
		return NewInternalError(c, "Failed to read uploaded file")
	}

	metadata, err := h.attachmentService.AttachReceipt(c.Request().Context(), id, data, fileHeader.Filename)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if resp, ok := receiptValidationResponse(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to attach receipt")
		return NewInternalError(c, "Failed to attach receipt")
	}
	return c.JSON(http.StatusCreated, toReceiptResponse(metadata))
}

func receiptValidationResponse(c echo.Context, err error) (error, bool) {
	switch {
	case errors.Is(err, service.ErrReceiptTooLarge):
		return NewValidationError(c, "Receipt exceeds the 5 MB size limit", nil), true
	case errors.Is(err, service.ErrInvalidReceiptFormat):
		return NewValidationError(c, "Receipt must be a JPEG, PNG or WebP image", nil), true
	case errors.Is(err, service.ErrReceiptTooSmall):
		return NewValidationError(c, "Receipt image is too small", nil), true
	case errors.Is(err, service.ErrInvalidReceiptData):
		return NewValidationError(c, "Receipt file is not a decodable image", nil), true
	case errors.Is(err, service.ErrStorageNotConfigured):
		return NewUnprocessableError(c, "Receipt storage is not configured", nil), true
	}
	return nil, false
}

// GetReceipt handles GET /api/v1/transactions/:id/receipt
func (h *ReceiptHandler) GetReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	metadata, err := h.attachmentService.GetReceipt(c.Request().Context(), id)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if errors.Is(err, service.ErrTransactionHasNoReceipt) {
			return NewNotFoundError(c, "Transaction has no receipt")
		}
		if errors.Is(err, service.ErrStorageNotConfigured) {
			return NewUnprocessableError(c, "Receipt storage is not configured", nil)
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to get receipt")
		return NewInternalError(c, "Failed to get receipt")
	}
	return c.JSON(http.StatusOK, toReceiptResponse(metadata))
}

// DeleteReceipt handles DELETE /api/v1/transactions/:id/receipt
func (h *ReceiptHandler) DeleteReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if err := h.attachmentService.DeleteReceipt(c.Request().Context(), id); err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if errors.Is(err, service.ErrTransactionHasNoReceipt) {
			return NewNotFoundError(c, "Transaction has no receipt")
		}
		if errors.Is(err, service.ErrStorageNotConfigured) {
			return NewUnprocessableError(c, "Receipt storage is not configured", nil)
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to delete receipt")
		return NewInternalError(c, "Failed to delete receipt")
	}
	return c.NoContent(http.StatusNoContent)
}
