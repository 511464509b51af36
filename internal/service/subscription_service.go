package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
)

const (
	// MinOccurrences is how many charges a merchant needs before it can
	// look like a subscription.
	MinOccurrences = 3

	// intervalToleranceDays is how far a gap may drift from the
	// canonical period length and still count as a matching cycle.
	intervalToleranceDays = 3

	// amountTolerance allows small price changes between cycles.
	amountTolerance = 0.15

	// minConsistency is the fraction of gaps that must match the period.
	minConsistency = 0.6

	// DefaultLookback is how far back detection reads by default. Three
	// years makes yearly charges reach the occurrence minimum.
	DefaultLookback = 3 * 365 * 24 * time.Hour
)

var periodDays = map[domain.RecurrencePeriod]int{
	domain.PeriodWeekly:  7,
	domain.PeriodMonthly: 30,
	domain.PeriodYearly:  365,
}

// SubscriptionService detects recurring charges. Pure read-side
// analysis; nothing is persisted.
type SubscriptionService struct {
	transactionRepo domain.TransactionRepository
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(transactionRepo domain.TransactionRepository) *SubscriptionService {
	return &SubscriptionService{transactionRepo: transactionRepo}
}

// Detect groups expenses since cutoff by merchant and reports the
// groups whose charge dates cluster around a weekly, monthly or yearly
// period with near-equal amounts.
func (s *SubscriptionService) Detect(ctx context.Context, cutoff time.Time) ([]*domain.SubscriptionCandidate, error) {
	transactions, err := s.transactionRepo.GetSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	byMerchant := make(map[string][]*domain.Transaction)
	var order []string
	for _, t := range transactions {
		if t.Direction != domain.DirectionExpense || t.Merchant == nil || *t.Merchant == "" {
			continue
		}
		merchant := *t.Merchant
		if _, seen := byMerchant[merchant]; !seen {
			order = append(order, merchant)
		}
		byMerchant[merchant] = append(byMerchant[merchant], t)
	}

	var candidates []*domain.SubscriptionCandidate
	for _, merchant := range order {
		group := byMerchant[merchant]
		if cand := analyzeGroup(merchant, group); cand != nil {
			candidates = append(candidates, cand)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates, nil
}

func analyzeGroup(merchant string, group []*domain.Transaction) *domain.SubscriptionCandidate {
	if len(group) < MinOccurrences {
		return nil
	}
	sort.Slice(group, func(i, j int) bool { return group[i].TxnDate.Before(group[j].TxnDate) })

	gaps := make([]int, 0, len(group)-1)
	for i := 1; i < len(group); i++ {
		days := int(group[i].TxnDate.Sub(group[i-1].TxnDate).Hours() / 24)
		gaps = append(gaps, days)
	}

	period, consistency := bestPeriod(gaps)
	if period == "" || consistency < minConsistency {
		return nil
	}
	if !amountsStable(group) {
		return nil
	}

	// Interval consistency dominates; a long confirmed history adds up
	// to 0.3 on top.
	confidence := consistency*0.7 + minFloat(float64(len(group))/10, 0.3)

	total := decimal.Zero
	for _, t := range group {
		total = total.Add(t.Amount)
	}
	average := total.Div(decimal.NewFromInt(int64(len(group)))).Round(2)

	last := group[len(group)-1].TxnDate
	return &domain.SubscriptionCandidate{
		Merchant:      merchant,
		Period:        period,
		AverageAmount: average,
		Occurrences:   len(group),
		LastCharge:    last,
		NextCharge:    last.AddDate(0, 0, periodDays[period]),
		Confidence:    confidence,
		CategoryID:    dominantCategory(group),
	}
}

// bestPeriod scores each canonical period by the fraction of gaps
// within tolerance and returns the best.
func bestPeriod(gaps []int) (domain.RecurrencePeriod, float64) {
	if len(gaps) == 0 {
		return "", 0
	}
	var bestPeriod domain.RecurrencePeriod
	var bestScore float64
	for period, days := range periodDays {
		matches := 0
		for _, gap := range gaps {
			if gap >= days-intervalToleranceDays && gap <= days+intervalToleranceDays {
				matches++
			}
		}
		score := float64(matches) / float64(len(gaps))
		if score > bestScore {
			bestPeriod = period
			bestScore = score
		}
	}
	return bestPeriod, bestScore
}

// amountsStable reports whether every charge is within tolerance of the
// group's mean amount.
func amountsStable(group []*domain.Transaction) bool {
	total := decimal.Zero
	for _, t := range group {
		total = total.Add(t.Amount)
	}
	mean := total.Div(decimal.NewFromInt(int64(len(group))))
	if mean.IsZero() {
		return false
	}
	limit := mean.Mul(decimal.NewFromFloat(amountTolerance))
	for _, t := range group {
		if t.Amount.Sub(mean).Abs().GreaterThan(limit) {
			return false
		}
	}
	return true
}

// dominantCategory returns the most frequent category in the group.
func dominantCategory(group []*domain.Transaction) *int64 {
	counts := make(map[int64]int)
	for _, t := range group {
		if t.CategoryID != nil {
			counts[*t.CategoryID]++
		}
	}
	var best *int64
	bestCount := 0
	for id, count := range counts {
		if count > bestCount {
			id := id
			best = &id
			bestCount = count
		}
	}
	return best
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
