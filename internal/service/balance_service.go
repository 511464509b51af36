package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/util"
)

// BalanceService recomputes account balances from the ledger. The
// cached balance on the account row is a materialized view; every
// writer of it, including the import batch commit, goes through this
// service's per-account lock.
type BalanceService struct {
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
	accounts        *util.KeyedMutex
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(accountRepo domain.AccountRepository, transactionRepo domain.TransactionRepository) *BalanceService {
	return &BalanceService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		accounts:        util.NewKeyedMutex(),
	}
}

// LockAccount takes the account's balance lock, blocking until it is
// held or ctx is done. Release with UnlockAccount.
func (s *BalanceService) LockAccount(ctx context.Context, accountID int64) error {
	return s.accounts.LockContext(ctx, accountLockKey(accountID))
}

// UnlockAccount releases the account's balance lock.
func (s *BalanceService) UnlockAccount(accountID int64) {
	s.accounts.Unlock(accountLockKey(accountID))
}

func accountLockKey(accountID int64) string {
	return fmt.Sprintf("account:%d", accountID)
}

// Compute returns initialBalance + sum(income) - sum(expense) without
// touching the cached value. Decimal arithmetic, no float drift.
func (s *BalanceService) Compute(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	income, expense, err := s.transactionRepo.SumByDirection(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.InitialBalance.Add(income).Sub(expense), nil
}

// Recompute recalculates the balance and rewrites the cached value
// under the account's balance lock, so a recompute cannot interleave
// with an import batch commit on the same account. Called after every
// transaction mutation.
func (s *BalanceService) Recompute(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if err := s.LockAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	defer s.UnlockAccount(accountID)

	balance, err := s.Compute(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.accountRepo.UpdateBalance(ctx, accountID, balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// SnapshotAfter returns the account's transactions in ledger order,
// (txnDate, id) ascending, with BalanceAfter set to the running balance
// immediately after each one. Computed on read, never persisted; the
// parser-captured statement balance on the row is left untouched in
// storage.
func (s *BalanceService) SnapshotAfter(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactionRepo.GetAllForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	running := account.InitialBalance
	for _, t := range transactions {
		running = running.Add(t.SignedAmount())
		after := running
		t.BalanceAfter = &after
	}
	return transactions, nil
}
