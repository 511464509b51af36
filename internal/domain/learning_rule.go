package domain

import (
	"context"
	"time"
)

// LearningRule maps a normalized merchant pattern to a category with a
// confidence score in [0,1]. Rules are created silently from user
// categorization and compete per merchant: accepted suggestions raise
// confidence, overrides decay it while boosting the rival rule.
type LearningRule struct {
	ID         int64     `json:"id"`
	Pattern    string    `json:"pattern"`
	CategoryID int64     `json:"categoryId"`
	Confidence float64   `json:"confidence"`
	UsageCount int64     `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

type LearningRuleRepository interface {
	// FindByPattern returns the highest-confidence rule for the exact
	// normalized pattern, or ErrRuleNotFound.
	FindByPattern(ctx context.Context, pattern string) (*LearningRule, error)
	// FindAllByPattern returns every rule for the pattern, for
	// competing-rule resolution.
	FindAllByPattern(ctx context.Context, pattern string) ([]*LearningRule, error)
	GetAll(ctx context.Context) ([]*LearningRule, error)
	Create(ctx context.Context, rule *LearningRule) (*LearningRule, error)
	Update(ctx context.Context, rule *LearningRule) (*LearningRule, error)
	ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error)
	DeleteAll(ctx context.Context) error
}
