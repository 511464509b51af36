package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/testutil"
)

func expense(repo *testutil.MockTransactionRepository, merchant string, date time.Time, amount string, categoryID *int64) {
	m := merchant
	repo.Create(context.Background(), &domain.Transaction{
		AccountID:   1,
		TxnDate:     date,
		Description: merchant,
		Merchant:    &m,
		Amount:      decimal.RequireFromString(amount),
		Direction:   domain.DirectionExpense,
		CategoryID:  categoryID,
	})
}

func TestDetectMonthlySubscription(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	entertainment := int64(7)

	// Six charges roughly 30 days apart, within a couple of days of
	// each billing date.
	offsets := []int{0, 30, 61, 91, 120, 150}
	for _, d := range offsets {
		expense(repo, "netflix", start.AddDate(0, 0, d), "649.00", &entertainment)
	}

	service := NewSubscriptionService(repo)
	candidates, err := service.Detect(context.Background(), start.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	c := candidates[0]
	if c.Merchant != "netflix" {
		t.Errorf("Merchant = %q, want netflix", c.Merchant)
	}
	if c.Period != domain.PeriodMonthly {
		t.Errorf("Period = %q, want monthly", c.Period)
	}
	if c.Occurrences != 6 {
		t.Errorf("Occurrences = %d, want 6", c.Occurrences)
	}
	if !c.AverageAmount.Equal(decimal.RequireFromString("649.00")) {
		t.Errorf("AverageAmount = %s, want 649.00", c.AverageAmount)
	}
	if c.Confidence < 0.8 {
		t.Errorf("Confidence = %v, want at least 0.8 for a clean monthly run", c.Confidence)
	}
	last := start.AddDate(0, 0, 150)
	if !c.LastCharge.Equal(last) {
		t.Errorf("LastCharge = %v, want %v", c.LastCharge, last)
	}
	if !c.NextCharge.Equal(last.AddDate(0, 0, 30)) {
		t.Errorf("NextCharge = %v, want %v", c.NextCharge, last.AddDate(0, 0, 30))
	}
	if c.CategoryID == nil || *c.CategoryID != entertainment {
		t.Errorf("CategoryID = %v, want %d", c.CategoryID, entertainment)
	}
}

func TestDetectWeeklySubscription(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		expense(repo, "gym pass", start.AddDate(0, 0, i*7), "250.00", nil)
	}

	service := NewSubscriptionService(repo)
	candidates, err := service.Detect(context.Background(), start.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].Period != domain.PeriodWeekly {
		t.Fatalf("candidates = %+v, want one weekly candidate", candidates)
	}
}

func TestDetectIgnoresIrregularGaps(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range []int{0, 11, 55, 71, 200} {
		expense(repo, "random shop", start.AddDate(0, 0, d), "500.00", nil)
	}

	service := NewSubscriptionService(repo)
	candidates, err := service.Detect(context.Background(), start.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0 for irregular gaps", len(candidates))
	}
}

func TestDetectIgnoresUnstableAmounts(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	amounts := []string{"100.00", "900.00", "120.00", "2500.00"}
	for i, amt := range amounts {
		expense(repo, "grocery mart", start.AddDate(0, 0, i*30), amt, nil)
	}

	service := NewSubscriptionService(repo)
	candidates, err := service.Detect(context.Background(), start.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0 for unstable amounts", len(candidates))
	}
}

func TestDetectRequiresMinimumOccurrences(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expense(repo, "spotify", start, "119.00", nil)
	expense(repo, "spotify", start.AddDate(0, 0, 30), "119.00", nil)

	service := NewSubscriptionService(repo)
	candidates, err := service.Detect(context.Background(), start.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0 below occurrence minimum", len(candidates))
	}
}

func TestDetectIgnoresIncomeAndMerchantless(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		m := "acme corp"
		repo.Create(context.Background(), &domain.Transaction{
			AccountID: 1, TxnDate: start.AddDate(0, 0, i*30),
			Description: "salary", Merchant: &m,
			Amount: decimal.RequireFromString("75000.00"), Direction: domain.DirectionIncome,
		})
		repo.Create(context.Background(), &domain.Transaction{
			AccountID: 1, TxnDate: start.AddDate(0, 0, i*30),
			Description: "cash withdrawal",
			Amount:      decimal.RequireFromString("2000.00"), Direction: domain.DirectionExpense,
		})
	}

	service := NewSubscriptionService(repo)
	candidates, err := service.Detect(context.Background(), start.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(candidates))
	}
}
