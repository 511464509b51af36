package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCash       AccountType = "cash"
	AccountTypeEwallet    AccountType = "ewallet"
	AccountTypeCreditCard AccountType = "credit_card"
)

// ValidAccountType reports whether t is one of the supported account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeBank, AccountTypeCash, AccountTypeEwallet, AccountTypeCreditCard:
		return true
	}
	return false
}

type Account struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Color          string          `json:"color"`
	Icon           string          `json:"icon"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	// CurrentBalance is a cached materialized view of
	// initialBalance + sum(income) - sum(expense). The reconciler
	// rewrites it after every transaction mutation; it is never the
	// source of truth.
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	Currency       string          `json:"currency"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetAll(ctx context.Context) ([]*Account, error)
	Update(ctx context.Context, account *Account) (*Account, error)
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	Delete(ctx context.Context, id int64) error
}
