package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/parser"
	"github.com/bitflow/ledger-backend/internal/websocket"
)

// TransactionService handles transaction-related business logic.
// Every mutation reconciles the account's cached balance before
// returning.
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	accountRepo     domain.AccountRepository
	categoryRepo    domain.CategoryRepository
	reconciler      *BalanceService
	learner         *CategoryLearner
	eventPublisher  websocket.EventPublisher
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	transactionRepo domain.TransactionRepository,
	accountRepo domain.AccountRepository,
	categoryRepo domain.CategoryRepository,
	reconciler *BalanceService,
	learner *CategoryLearner,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		categoryRepo:    categoryRepo,
		reconciler:      reconciler,
		learner:         learner,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TransactionService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *TransactionService) publish(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// CreateTransactionInput holds the input for creating a transaction manually
type CreateTransactionInput struct {
	AccountID   int64
	TxnDate     time.Time
	Description string
	Amount      decimal.Decimal
	Direction   domain.Direction
	CategoryID  *int64
	Tags        []string
	Notes       *string
}

// CreateTransaction creates a manual transaction. A manually chosen
// category teaches the learner as an accepted correction.
func (s *TransactionService) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	if err := validateTransactionInput(input.TxnDate, input.Description, input.Amount, input.Direction, input.Notes); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, input.AccountID); err != nil {
		return nil, err
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	t := &domain.Transaction{
		AccountID:   input.AccountID,
		TxnDate:     input.TxnDate,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Direction:   input.Direction,
		CategoryID:  input.CategoryID,
		Tags:        input.Tags,
		Notes:       input.Notes,
	}
	if merchant := parser.ExtractMerchant(t.Description); merchant != "" {
		t.Merchant = &merchant
	}

	created, err := s.transactionRepo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	if _, err := s.reconciler.Recompute(ctx, input.AccountID); err != nil {
		return nil, err
	}

	if created.CategoryID != nil {
		if err := s.categoryRepo.IncrementUsage(ctx, *created.CategoryID); err != nil {
			log.Warn().Err(err).Int64("category_id", *created.CategoryID).Msg("Failed to bump category usage")
		}
		if created.Merchant != nil {
			if err := s.learner.Learn(ctx, *created.Merchant, *created.CategoryID, false, true); err != nil {
				log.Warn().Err(err).Str("merchant", *created.Merchant).Msg("Failed to update learning rule")
			}
		}
	}

	s.publish(websocket.TransactionCreated(created))
	return created, nil
}

// GetTransactions retrieves transactions with filters and pagination
func (s *TransactionService) GetTransactions(ctx context.Context, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = domain.DefaultPageSize
	}
	if filters.PageSize > domain.MaxPageSize {
		filters.PageSize = domain.MaxPageSize
	}
	return s.transactionRepo.List(ctx, filters)
}

// GetTransactionByID retrieves a transaction by ID
func (s *TransactionService) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, id)
}

// UpdateTransactionInput holds the editable transaction fields
type UpdateTransactionInput struct {
	TxnDate     time.Time
	Description string
	Amount      decimal.Decimal
	Direction   domain.Direction
	Tags        []string
	Notes       *string
}

// UpdateTransaction updates a transaction's editable fields and
// reconciles the account balance.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, input UpdateTransactionInput) (*domain.Transaction, error) {
	if err := validateTransactionInput(input.TxnDate, input.Description, input.Amount, input.Direction, input.Notes); err != nil {
		return nil, err
	}

	t, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t.TxnDate = input.TxnDate
	t.Description = strings.TrimSpace(input.Description)
	t.Amount = input.Amount
	t.Direction = input.Direction
	t.Tags = input.Tags
	t.Notes = input.Notes
	if merchant := parser.ExtractMerchant(t.Description); merchant != "" {
		t.Merchant = &merchant
	} else {
		t.Merchant = nil
	}

	updated, err := s.transactionRepo.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	if _, err := s.reconciler.Recompute(ctx, t.AccountID); err != nil {
		return nil, err
	}

	s.publish(websocket.TransactionUpdated(updated))
	return updated, nil
}

// Recategorize assigns a transaction to a category as an explicit user
// decision. Overriding an automatic suggestion weakens the rule that
// produced it; confirming one strengthens it.
func (s *TransactionService) Recategorize(ctx context.Context, id int64, categoryID int64) (*domain.Transaction, error) {
	t, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}

	wasAuto := t.IsAutoCategorized
	accepted := t.CategoryID != nil && *t.CategoryID == categoryID

	if err := s.transactionRepo.UpdateCategory(ctx, id, &categoryID, false); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.IncrementUsage(ctx, categoryID); err != nil {
		log.Warn().Err(err).Int64("category_id", categoryID).Msg("Failed to bump category usage")
	}
	if t.Merchant != nil {
		if err := s.learner.Learn(ctx, *t.Merchant, categoryID, wasAuto, accepted); err != nil {
			log.Warn().Err(err).Str("merchant", *t.Merchant).Msg("Failed to update learning rule")
		}
	}

	updated, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(websocket.TransactionUpdated(updated))
	return updated, nil
}

// DeleteTransaction deletes a transaction and reconciles the account balance
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	t, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.transactionRepo.Delete(ctx, id); err != nil {
		return err
	}
	if _, err := s.reconciler.Recompute(ctx, t.AccountID); err != nil {
		return err
	}
	s.publish(websocket.TransactionDeleted(map[string]int64{"id": id, "accountId": t.AccountID}))
	return nil
}

func validateTransactionInput(date time.Time, description string, amount decimal.Decimal, direction domain.Direction, notes *string) error {
	if date.IsZero() {
		return domain.ErrInvalidDate
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.ErrNameRequired
	}
	if len(description) > domain.MaxDescriptionLength {
		return domain.ErrNameTooLong
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !domain.ValidDirection(direction) {
		return domain.ErrInvalidDirection
	}
	if notes != nil && len(*notes) > domain.MaxTransactionNotesLength {
		return domain.ErrNotesTooLong
	}
	return nil
}
