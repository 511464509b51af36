package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether a transaction increases (income) or
// decreases (expense) an account balance. Amounts are always stored as
// a positive magnitude plus a direction.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// ValidDirection reports whether d is income or expense.
func ValidDirection(d Direction) bool {
	return d == DirectionIncome || d == DirectionExpense
}

type Transaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	TxnDate     time.Time       `json:"txnDate"`
	ValueDate   *time.Time      `json:"valueDate,omitempty"`
	Description string          `json:"description"`
	Reference   *string         `json:"reference,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	// Merchant is the normalized merchant pattern extracted from the
	// description; it keys learning rules and subscription grouping.
	Merchant          *string          `json:"merchant,omitempty"`
	Tags              []string         `json:"tags,omitempty"`
	ReceiptKey        *string          `json:"receiptKey,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	BalanceAfter      *decimal.Decimal `json:"balanceAfter,omitempty"`
	IsAutoCategorized bool             `json:"isAutoCategorized"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// SignedAmount returns the amount with its direction applied.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

type TransactionFilters struct {
	AccountID  *int64
	StartDate  *time.Time
	EndDate    *time.Time
	Direction  *Direction
	CategoryID *int64
	Page       int32
	PageSize   int32
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int32          `json:"totalPages"`
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) (*Transaction, error)
	// CreateBatch inserts all transactions atomically and updates the
	// account's cached balance in the same database transaction.
	// Either every row commits or none do.
	CreateBatch(ctx context.Context, accountID int64, transactions []*Transaction, newBalance decimal.Decimal) ([]*Transaction, error)
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	List(ctx context.Context, filters *TransactionFilters) (*PaginatedTransactions, error)
	// GetAllForAccount returns every transaction for the account ordered
	// by (txn_date, id) ascending. Used by deduplication and the
	// balance reconciler.
	GetAllForAccount(ctx context.Context, accountID int64) ([]*Transaction, error)
	// GetSince returns transactions dated on or after cutoff, across all
	// accounts, for subscription detection.
	GetSince(ctx context.Context, cutoff time.Time) ([]*Transaction, error)
	Update(ctx context.Context, transaction *Transaction) (*Transaction, error)
	UpdateCategory(ctx context.Context, id int64, categoryID *int64, autoAssigned bool) error
	ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	SumByDirection(ctx context.Context, accountID int64) (income, expense decimal.Decimal, err error)
}
