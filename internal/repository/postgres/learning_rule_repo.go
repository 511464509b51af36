package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// LearningRuleRepository implements domain.LearningRuleRepository using PostgreSQL
type LearningRuleRepository struct {
	pool *pgxpool.Pool
}

// NewLearningRuleRepository creates a new LearningRuleRepository
func NewLearningRuleRepository(pool *pgxpool.Pool) *LearningRuleRepository {
	return &LearningRuleRepository{pool: pool}
}

const ruleColumns = `id, pattern, category_id, confidence, usage_count, created_at, last_used_at`

func scanRule(row pgx.Row) (*domain.LearningRule, error) {
	var rule domain.LearningRule
	err := row.Scan(&rule.ID, &rule.Pattern, &rule.CategoryID, &rule.Confidence,
		&rule.UsageCount, &rule.CreatedAt, &rule.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]*domain.LearningRule, error) {
	defer rows.Close()
	var rules []*domain.LearningRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// FindByPattern returns the strongest rule for the pattern
func (r *LearningRuleRepository) FindByPattern(ctx context.Context, pattern string) (*domain.LearningRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM learning_rules
		WHERE pattern = $1
		ORDER BY confidence DESC, usage_count DESC
		LIMIT 1`,
		pattern)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

// FindAllByPattern returns every rule competing for the pattern
func (r *LearningRuleRepository) FindAllByPattern(ctx context.Context, pattern string) ([]*domain.LearningRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM learning_rules
		WHERE pattern = $1
		ORDER BY confidence DESC, usage_count DESC`,
		pattern)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// GetAll returns every learning rule
func (r *LearningRuleRepository) GetAll(ctx context.Context) ([]*domain.LearningRule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM learning_rules ORDER BY pattern, confidence DESC`)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// Create creates a new learning rule
func (r *LearningRuleRepository) Create(ctx context.Context, rule *domain.LearningRule) (*domain.LearningRule, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO learning_rules (pattern, category_id, confidence, usage_count, last_used_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING `+ruleColumns,
		rule.Pattern, rule.CategoryID, rule.Confidence, rule.UsageCount)
	return scanRule(row)
}

// Update rewrites a rule's confidence and usage
func (r *LearningRuleRepository) Update(ctx context.Context, rule *domain.LearningRule) (*domain.LearningRule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE learning_rules
		SET category_id = $2, confidence = $3, usage_count = $4, last_used_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns,
		rule.ID, rule.CategoryID, rule.Confidence, rule.UsageCount)
	updated, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ReassignCategory moves every rule from one category to another and
// returns how many rows moved
func (r *LearningRuleRepository) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE learning_rules SET category_id = $2 WHERE category_id = $1`,
		fromCategoryID, toCategoryID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAll wipes every learned rule
func (r *LearningRuleRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM learning_rules`)
	return err
}
