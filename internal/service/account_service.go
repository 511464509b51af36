package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/websocket"
)

// AccountService handles account-related business logic
type AccountService struct {
	accountRepo    domain.AccountRepository
	reconciler     *BalanceService
	eventPublisher websocket.EventPublisher
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.AccountRepository, reconciler *BalanceService) *AccountService {
	return &AccountService{accountRepo: accountRepo, reconciler: reconciler}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *AccountService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateAccountInput holds the input for creating an account
type CreateAccountInput struct {
	Name           string
	Type           domain.AccountType
	Color          string
	Icon           string
	InitialBalance decimal.Decimal
	Currency       string
}

// CreateAccount creates a new account. The cached current balance
// starts equal to the initial balance.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}
	if !domain.ValidAccountType(input.Type) {
		return nil, domain.ErrInvalidAccountType
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}

	account := &domain.Account{
		Name:           name,
		Type:           input.Type,
		Color:          input.Color,
		Icon:           input.Icon,
		InitialBalance: input.InitialBalance,
		Currency:       currency,
	}

	return s.accountRepo.Create(ctx, account)
}

// GetAccounts retrieves all accounts
func (s *AccountService) GetAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.accountRepo.GetAll(ctx)
}

// GetAccountByID retrieves an account by ID
func (s *AccountService) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// UpdateAccountInput holds the editable account fields
type UpdateAccountInput struct {
	Name           string
	Color          string
	Icon           string
	InitialBalance decimal.Decimal
}

// UpdateAccount updates an account's display fields and initial
// balance. Changing the initial balance shifts the cached current
// balance, so it is recomputed afterwards.
func (s *AccountService) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	initialChanged := !account.InitialBalance.Equal(input.InitialBalance)

	account.Name = name
	account.Color = input.Color
	account.Icon = input.Icon
	account.InitialBalance = input.InitialBalance

	updated, err := s.accountRepo.Update(ctx, account)
	if err != nil {
		return nil, err
	}

	if initialChanged {
		balance, err := s.reconciler.Recompute(ctx, id)
		if err != nil {
			return nil, err
		}
		updated.CurrentBalance = balance
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(websocket.AccountUpdated(updated))
	}
	return updated, nil
}

// RecomputeBalance forces a full balance reconciliation for the account
func (s *AccountService) RecomputeBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	return s.reconciler.Recompute(ctx, id)
}

// DeleteAccount deletes an account and, through the schema's cascading
// foreign key, its transactions.
func (s *AccountService) DeleteAccount(ctx context.Context, id int64) error {
	return s.accountRepo.Delete(ctx, id)
}
