package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecurrencePeriod string

const (
	PeriodWeekly  RecurrencePeriod = "weekly"
	PeriodMonthly RecurrencePeriod = "monthly"
	PeriodYearly  RecurrencePeriod = "yearly"
)

// SubscriptionCandidate is a detected recurring charge. Detection is a
// pure read-side analysis; nothing is persisted here.
type SubscriptionCandidate struct {
	Merchant      string           `json:"merchant"`
	Period        RecurrencePeriod `json:"period"`
	AverageAmount decimal.Decimal  `json:"averageAmount"`
	Occurrences   int              `json:"occurrences"`
	LastCharge    time.Time        `json:"lastCharge"`
	NextCharge    time.Time        `json:"nextCharge"`
	Confidence    float64          `json:"confidence"`
	CategoryID    *int64           `json:"categoryId,omitempty"`
}
