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

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
	balanceService *service.BalanceService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService, balanceService *service.BalanceService) *AccountHandler {
	return &AccountHandler{accountService: accountService, balanceService: balanceService}
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Color          string `json:"color,omitempty"`
	Icon           string `json:"icon,omitempty"`
	InitialBalance string `json:"initialBalance,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// UpdateAccountRequest represents the update account request body
type UpdateAccountRequest struct {
	Name           string `json:"name"`
	Color          string `json:"color,omitempty"`
	Icon           string `json:"icon,omitempty"`
	InitialBalance string `json:"initialBalance,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Color          string `json:"color"`
	Icon           string `json:"icon"`
	InitialBalance string `json:"initialBalance"`
	CurrentBalance string `json:"currentBalance"`
	Currency       string `json:"currency"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:             account.ID,
		Name:           account.Name,
		Type:           string(account.Type),
		Color:          account.Color,
		Icon:           account.Icon,
		InitialBalance: account.InitialBalance.StringFixed(2),
		CurrentBalance: account.CurrentBalance.StringFixed(2),
		Currency:       account.Currency,
		CreatedAt:      account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      account.UpdatedAt.Format(time.RFC3339),
	}
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		initialBalance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			return NewValidationError(c, "Invalid initial balance", []ValidationError{
				{Field: "initialBalance", Message: "Must be a valid decimal number"},
			})
		}
	}

	account, err := h.accountService.CreateAccount(c.Request().Context(), service.CreateAccountInput{
		Name:           req.Name,
		Type:           domain.AccountType(req.Type),
		Color:          req.Color,
		Icon:           req.Icon,
		InitialBalance: initialBalance,
		Currency:       req.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNameRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name is required"},
			})
		case errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name must be 255 characters or less"},
			})
		case errors.Is(err, domain.ErrInvalidAccountType):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "type", Message: "Type must be one of: bank, cash, ewallet, credit_card"},
			})
		}
		log.Error().Err(err).Msg("Failed to create account")
		return NewInternalError(c, "Failed to create account")
	}

	log.Info().Int64("account_id", account.ID).Str("name", account.Name).Msg("Account created")
	return c.JSON(http.StatusCreated, toAccountResponse(account))
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	accounts, err := h.accountService.GetAccounts(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get accounts")
		return NewInternalError(c, "Failed to get accounts")
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		response = append(response, toAccountResponse(account))
	}
	return c.JSON(http.StatusOK, response)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	account, err := h.accountService.GetAccountByID(c.Request().Context(), id)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("account_id", id).Msg("Failed to get account")
		return NewInternalError(c, "Failed to get account")
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// UpdateAccount handles PUT /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		initialBalance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			return NewValidationError(c, "Invalid initial balance", []ValidationError{
				{Field: "initialBalance", Message: "Must be a valid decimal number"},
			})
		}
	}

	account, err := h.accountService.UpdateAccount(c.Request().Context(), id, service.UpdateAccountInput{
		Name:           req.Name,
		Color:          req.Color,
		Icon:           req.Icon,
		InitialBalance: initialBalance,
	})
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		switch {
		case errors.Is(err, domain.ErrNameRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name is required"},
			})
		case errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name must be 255 characters or less"},
			})
		}
		log.Error().Err(err).Int64("account_id", id).Msg("Failed to update account")
		return NewInternalError(c, "Failed to update account")
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// DeleteAccount handles DELETE /api/v1/accounts/:id
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	if err := h.accountService.DeleteAccount(c.Request().Context(), id); err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("account_id", id).Msg("Failed to delete account")
		return NewInternalError(c, "Failed to delete account")
	}
	return c.NoContent(http.StatusNoContent)
}

// RecomputeBalance handles POST /api/v1/accounts/:id/recompute
func (h *AccountHandler) RecomputeBalance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	balance, err := h.balanceService.Recompute(c.Request().Context(), id)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("account_id", id).Msg("Failed to recompute balance")
		return NewInternalError(c, "Failed to recompute balance")
	}
	return c.JSON(http.StatusOK, map[string]string{"currentBalance": balance.StringFixed(2)})
}

// BalanceHistoryEntry is one transaction with its running balance
type BalanceHistoryEntry struct {
	TransactionID int64  `json:"transactionId"`
	TxnDate       string `json:"txnDate"`
	Description   string `json:"description"`
	SignedAmount  string `json:"signedAmount"`
	BalanceAfter  string `json:"balanceAfter"`
}

// GetBalanceHistory handles GET /api/v1/accounts/:id/balance-history
func (h *AccountHandler) GetBalanceHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	transactions, err := h.balanceService.SnapshotAfter(c.Request().Context(), id)
	if err != nil {
		if resp, ok := handleNotFound(c, err); ok {
			return resp
		}
		log.Error().Err(err).Int64("account_id", id).Msg("Failed to build balance history")
		return NewInternalError(c, "Failed to build balance history")
	}

	response := make([]BalanceHistoryEntry, 0, len(transactions))
	for _, t := range transactions {
		response = append(response, BalanceHistoryEntry{
			TransactionID: t.ID,
			TxnDate:       t.TxnDate.Format("2006-01-02"),
			Description:   t.Description,
			SignedAmount:  t.SignedAmount().StringFixed(2),
			BalanceAfter:  t.BalanceAfter.StringFixed(2),
		})
	}
	return c.JSON(http.StatusOK, response)
}
