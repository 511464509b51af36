package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/service"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the create transaction request body
type CreateTransactionRequest struct {
	AccountID   int64    `json:"accountId"`
	TxnDate     string   `json:"txnDate"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	Direction   string   `json:"direction"`
	CategoryID  *int64   `json:"categoryId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// UpdateTransactionRequest represents the update transaction request body
type UpdateTransactionRequest struct {
	TxnDate     string   `json:"txnDate"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	Direction   string   `json:"direction"`
	Tags        []string `json:"tags,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// RecategorizeRequest represents the recategorize request body
type RecategorizeRequest struct {
	CategoryID int64 `json:"categoryId"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                int64    `json:"id"`
	AccountID         int64    `json:"accountId"`
	TxnDate           string   `json:"txnDate"`
	ValueDate         *string  `json:"valueDate,omitempty"`
	Description       string   `json:"description"`
	Reference         *string  `json:"reference,omitempty"`
	Amount            string   `json:"amount"`
	Direction         string   `json:"direction"`
	CategoryID        *int64   `json:"categoryId,omitempty"`
	Merchant          *string  `json:"merchant,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	ReceiptKey        *string  `json:"receiptKey,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
	BalanceAfter      *string  `json:"balanceAfter,omitempty"`
	IsAutoCategorized bool     `json:"isAutoCategorized"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

func toTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		TxnDate:           t.TxnDate.Format("2006-01-02"),
		Description:       t.Description,
		Reference:         t.Reference,
		Amount:            t.Amount.StringFixed(2),
		Direction:         string(t.Direction),
		CategoryID:        t.CategoryID,
		Merchant:          t.Merchant,
		Tags:              t.Tags,
		ReceiptKey:        t.ReceiptKey,
		Notes:             t.Notes,
		IsAutoCategorized: t.IsAutoCategorized,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         t.UpdatedAt.Format(time.RFC3339),
	}
	if t.ValueDate != nil {
		vd := t.ValueDate.Format("2006-01-02")
		resp.ValueDate = &vd
	}
	if t.BalanceAfter != nil {
		ba := t.BalanceAfter.StringFixed(2)
		resp.BalanceAfter = &ba
	}
	return resp
}

// PaginatedTransactionsResponse wraps a page of transactions
type PaginatedTransactionsResponse struct {
	Data       []TransactionResponse `json:"data"`
	Page       int32                 `json:"page"`
	PageSize   int32                 `json:"pageSize"`
	TotalItems int64                 `json:"totalItems"`
	TotalPages int32                 `json:"totalPages"`
}

func parseTxnDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	txnDate, err := parseTxnDate(req.TxnDate)
	if err != nil {
		return NewValidationError(c, "Invalid transaction date", []ValidationError{
			{Field: "txnDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	created, err := h.transactionService.CreateTransaction(c.Request().Context(), service.CreateTransactionInput{
		AccountID:   req.AccountID,
		TxnDate:     txnDate,
		Description: req.Description,
		Amount:      amount,
		Direction:   domain.Direction(req.Direction),
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
		Notes:       req.Notes,
	})
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if resp, ok := transactionValidationResponse(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("account_id", req.AccountID).Msg("Failed to create transaction")
		return NewInternalError(c, "Failed to create transaction")
	}

	return c.JSON(http.StatusCreated, toTransactionResponse(created))
}

func transactionValidationResponse(c echo.Context, err error) (error, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidDate):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "txnDate", Message: "Transaction date is required"},
		}), true
	case errors.Is(err, domain.ErrNameRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "description", Message: "Description is required"},
		}), true
	case errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "description", Message: "Description must be 500 characters or less"},
		}), true
	case errors.Is(err, domain.ErrInvalidAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Amount must be greater than zero"},
		}), true
	case errors.Is(err, domain.ErrInvalidDirection):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "direction", Message: "Direction must be income or expense"},
		}), true
	case errors.Is(err, domain.ErrNotesTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "notes", Message: "Notes must be 1000 characters or less"},
		}), true
	}
	return nil, false
}

// GetTransactions handles GET /api/v1/transactions
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	filters := &domain.TransactionFilters{}

	if v := c.QueryParam("accountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return NewValidationError(c, "Invalid accountId", nil)
		}
		filters.AccountID = &id
	}
	if v := c.QueryParam("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return NewValidationError(c, "Invalid categoryId", nil)
		}
		filters.CategoryID = &id
	}
	if v := c.QueryParam("direction"); v != "" {
		direction := domain.Direction(v)
		if !domain.ValidDirection(direction) {
			return NewValidationError(c, "Invalid direction", nil)
		}
		filters.Direction = &direction
	}
	if v := c.QueryParam("startDate"); v != "" {
		t, err := parseTxnDate(v)
		if err != nil {
			return NewValidationError(c, "Invalid startDate", nil)
		}
		filters.StartDate = &t
	}
	if v := c.QueryParam("endDate"); v != "" {
		t, err := parseTxnDate(v)
		if err != nil {
			return NewValidationError(c, "Invalid endDate", nil)
		}
		filters.EndDate = &t
	}
	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return NewValidationError(c, "Invalid page", nil)
		}
		filters.Page = int32(page)
	}
	if v := c.QueryParam("pageSize"); v != "" {
		size, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return NewValidationError(c, "Invalid pageSize", nil)
		}
		filters.PageSize = int32(size)
	}

	page, err := h.transactionService.GetTransactions(c.Request().Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transactions")
		return NewInternalError(c, "Failed to list transactions")
	}

	response := PaginatedTransactionsResponse{
		Data:       make([]TransactionResponse, 0, len(page.Data)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
	for _, t := range page.Data {
		response.Data = append(response.Data, toTransactionResponse(t))
	}
	return c.JSON(http.StatusOK, response)
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	t, err := h.transactionService.GetTransactionByID(c.Request().Context(), id)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to get transaction")
		return NewInternalError(c, "Failed to get transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(t))
}

// UpdateTransaction handles PUT /api/v1/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	txnDate, err := parseTxnDate(req.TxnDate)
	if err != nil {
		return NewValidationError(c, "Invalid transaction date", []ValidationError{
			{Field: "txnDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	updated, err := h.transactionService.UpdateTransaction(c.Request().Context(), id, service.UpdateTransactionInput{
		TxnDate:     txnDate,
		Description: req.Description,
		Amount:      amount,
		Direction:   domain.Direction(req.Direction),
		Tags:        req.Tags,
		Notes:       req.Notes,
	})
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		if resp, ok := transactionValidationResponse(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to update transaction")
		return NewInternalError(c, "Failed to update transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(updated))
}

// Recategorize handles PATCH /api/v1/transactions/:id/category
func (h *TransactionHandler) Recategorize(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req RecategorizeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	updated, err := h.transactionService.Recategorize(c.Request().Context(), id, req.CategoryID)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("transaction_id", id).Int64("category_id", req.CategoryID).Msg("Failed to recategorize")
		return NewInternalError(c, "Failed to recategorize transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(updated))
}

// DeleteTransaction handles DELETE /api/v1/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if err := h.transactionService.DeleteTransaction(c.Request().Context(), id); err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to delete transaction")
		return NewInternalError(c, "Failed to delete transaction")
	}
	return c.NoContent(http.StatusNoContent)
}
