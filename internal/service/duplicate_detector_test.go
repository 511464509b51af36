package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/testutil"
)

func candidate(date time.Time, amount, description string) *domain.CandidateTransaction {
	return &domain.CandidateTransaction{
		TxnDate:     date,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		Direction:   domain.DirectionExpense,
	}
}

func TestPartitionAgainstExisting(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	ctx := context.Background()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	repo.Create(ctx, &domain.Transaction{
		AccountID: 1, TxnDate: date,
		Description: "UPI-SWIGGY-ORDER",
		Amount:      decimal.RequireFromString("450.00"),
		Direction:   domain.DirectionExpense,
	})

	detector := NewDuplicateDetector(repo)
	newOnes, duplicates, err := detector.Partition(ctx, 1, []*domain.CandidateTransaction{
		candidate(date, "450.00", "UPI-SWIGGY-ORDER"),
		candidate(date, "99.00", "NETFLIX SUBSCRIPTION"),
	})
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(newOnes) != 1 || newOnes[0].Description != "NETFLIX SUBSCRIPTION" {
		t.Errorf("newOnes = %+v, want only the netflix row", newOnes)
	}
	if len(duplicates) != 1 || duplicates[0].Description != "UPI-SWIGGY-ORDER" {
		t.Errorf("duplicates = %+v, want only the swiggy row", duplicates)
	}
}

func TestPartitionIsCaseAndWhitespaceInsensitive(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	ctx := context.Background()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	repo.Create(ctx, &domain.Transaction{
		AccountID: 1, TxnDate: date,
		Description: "upi-swiggy-order   food",
		Amount:      decimal.RequireFromString("450.00"),
		Direction:   domain.DirectionExpense,
	})

	detector := NewDuplicateDetector(repo)
	newOnes, duplicates, err := detector.Partition(ctx, 1, []*domain.CandidateTransaction{
		candidate(date, "450.00", "  UPI-SWIGGY-ORDER FOOD "),
	})
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(newOnes) != 0 {
		t.Errorf("newOnes = %+v, want none", newOnes)
	}
	if len(duplicates) != 1 {
		t.Errorf("duplicates = %+v, want one", duplicates)
	}
}

func TestPartitionAmountRoundsToTwoDecimals(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	ctx := context.Background()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	repo.Create(ctx, &domain.Transaction{
		AccountID: 1, TxnDate: date,
		Description: "fuel",
		Amount:      decimal.RequireFromString("450"),
		Direction:   domain.DirectionExpense,
	})

	detector := NewDuplicateDetector(repo)
	_, duplicates, err := detector.Partition(ctx, 1, []*domain.CandidateTransaction{
		candidate(date, "450.00", "fuel"),
	})
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(duplicates) != 1 {
		t.Errorf("duplicates = %+v, want trailing-zero amounts to match", duplicates)
	}
}

func TestPartitionCollapsesInBatchDuplicates(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	detector := NewDuplicateDetector(repo)
	newOnes, duplicates, err := detector.Partition(context.Background(), 1, []*domain.CandidateTransaction{
		candidate(date, "450.00", "upi-swiggy"),
		candidate(date, "450.00", "UPI-SWIGGY"),
		candidate(date, "450.00", "upi-swiggy"),
	})
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(newOnes) != 1 {
		t.Errorf("newOnes = %d, want 1", len(newOnes))
	}
	if len(duplicates) != 2 {
		t.Errorf("duplicates = %d, want 2", len(duplicates))
	}
}

func TestPartitionDistinguishesDateAndAmount(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	detector := NewDuplicateDetector(repo)
	newOnes, duplicates, err := detector.Partition(context.Background(), 1, []*domain.CandidateTransaction{
		candidate(date, "450.00", "coffee"),
		candidate(date.AddDate(0, 0, 1), "450.00", "coffee"),
		candidate(date, "450.01", "coffee"),
	})
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(newOnes) != 3 || len(duplicates) != 0 {
		t.Errorf("newOnes = %d, duplicates = %d, want 3 and 0", len(newOnes), len(duplicates))
	}
}

func TestFindGroups(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	ctx := context.Background()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		repo.Create(ctx, &domain.Transaction{
			AccountID: 1, TxnDate: date,
			Description: "duplicate charge",
			Amount:      decimal.RequireFromString("100.00"),
			Direction:   domain.DirectionExpense,
		})
	}
	repo.Create(ctx, &domain.Transaction{
		AccountID: 1, TxnDate: date,
		Description: "unique charge",
		Amount:      decimal.RequireFromString("55.00"),
		Direction:   domain.DirectionExpense,
	})

	detector := NewDuplicateDetector(repo)
	groups, err := detector.FindGroups(ctx, 1)
	if err != nil {
		t.Fatalf("FindGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Errorf("group size = %d, want 2", len(groups[0]))
	}
}
