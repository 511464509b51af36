package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, name, type, icon, color, usage_count, is_user_deletable, is_hidden, created_at, updated_at`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color,
		&c.UsageCount, &c.IsUserDeletable, &c.IsHidden, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, type, icon, color, is_user_deletable, is_hidden)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+categoryColumns,
		category.Name, string(category.Type), category.Icon, category.Color,
		category.IsUserDeletable, category.IsHidden)
	return scanCategory(row)
}

// GetByID retrieves a category by its ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// GetAll retrieves all categories, most used first
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Update updates a category's editable fields
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $2, type = $3, icon = $4, color = $5, is_hidden = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+categoryColumns,
		category.ID, category.Name, string(category.Type), category.Icon,
		category.Color, category.IsHidden)
	updated, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return updated, nil
}

// IncrementUsage bumps the usage counter by one
func (r *CategoryRepository) IncrementUsage(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}
