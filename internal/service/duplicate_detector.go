package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/parser"
)

// DuplicateDetector partitions candidate transactions into new rows and
// duplicates of already-persisted rows. The identity key is
// (account, date, amount at two decimals, case/space-folded description);
// rounding to two decimals absorbs float artifacts from older exports.
type DuplicateDetector struct {
	transactionRepo domain.TransactionRepository
}

// NewDuplicateDetector creates a new DuplicateDetector
func NewDuplicateDetector(transactionRepo domain.TransactionRepository) *DuplicateDetector {
	return &DuplicateDetector{transactionRepo: transactionRepo}
}

// DuplicateKey builds the duplicate identity key for one transaction.
func DuplicateKey(date time.Time, amount decimal.Decimal, description string) string {
	return date.Format("2006-01-02") + "|" + amount.StringFixed(2) + "|" + parser.NormalizeDescription(description)
}

// DuplicateIndex is the account's existing identity key set, prefetched
// once per batch so each candidate check is O(1) instead of a query.
type DuplicateIndex map[string]struct{}

func (idx DuplicateIndex) Contains(key string) bool {
	_, ok := idx[key]
	return ok
}

func (idx DuplicateIndex) Add(key string) {
	idx[key] = struct{}{}
}

// BuildIndex loads every existing transaction for the account and
// returns its identity key set.
func (d *DuplicateDetector) BuildIndex(ctx context.Context, accountID int64) (DuplicateIndex, error) {
	existing, err := d.transactionRepo.GetAllForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	idx := make(DuplicateIndex, len(existing))
	for _, t := range existing {
		idx.Add(DuplicateKey(t.TxnDate, t.Amount, t.Description))
	}
	return idx, nil
}

// Partition splits candidates into new ones and duplicates, preserving
// order. A candidate matching an existing transaction, or an earlier
// candidate in the same batch, counts as a duplicate. Pure except for
// the initial index load; persisting the new ones is the caller's job.
func (d *DuplicateDetector) Partition(ctx context.Context, accountID int64, candidates []*domain.CandidateTransaction) (newOnes, duplicates []*domain.CandidateTransaction, err error) {
	idx, err := d.BuildIndex(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	for _, cand := range candidates {
		key := DuplicateKey(cand.TxnDate, cand.Amount, cand.Description)
		if idx.Contains(key) {
			duplicates = append(duplicates, cand)
			continue
		}
		idx.Add(key)
		newOnes = append(newOnes, cand)
	}
	return newOnes, duplicates, nil
}

// FindGroups partitions the account's persisted transactions into groups
// sharing the same identity key, returning only groups of two or more.
func (d *DuplicateDetector) FindGroups(ctx context.Context, accountID int64) ([][]*domain.Transaction, error) {
	existing, err := d.transactionRepo.GetAllForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string][]*domain.Transaction)
	var order []string
	for _, t := range existing {
		key := DuplicateKey(t.TxnDate, t.Amount, t.Description)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], t)
	}
	var groups [][]*domain.Transaction
	for _, key := range order {
		if group := byKey[key]; len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}
