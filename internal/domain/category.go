package domain

import (
	"context"
	"time"
)

type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// UncategorizedID is the sentinel category transactions and rules are
// reassigned to when their category is deleted. It is seeded by the
// schema migration and is never user-deletable.
const UncategorizedID int64 = 1

type Category struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Icon      string       `json:"icon"`
	Color     string       `json:"color"`
	// UsageCount increments on every assignment, manual or automatic,
	// and ranks categories in pickers.
	UsageCount      int64     `json:"usageCount"`
	IsUserDeletable bool      `json:"isUserDeletable"`
	IsHidden        bool      `json:"isHidden"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	GetAll(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, category *Category) (*Category, error)
	IncrementUsage(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
