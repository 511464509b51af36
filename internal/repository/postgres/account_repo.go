package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, name, type, color, icon, initial_balance, current_balance, currency, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var initial, current pgtype.Numeric
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Color, &a.Icon,
		&initial, &current, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.InitialBalance = pgNumericToDecimal(initial)
	a.CurrentBalance = pgNumericToDecimal(current)
	return &a, nil
}

// Create creates a new account. The cached balance starts at the
// initial balance.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	initialBalance, err := decimalToPgNumeric(account.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid initial balance: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (name, type, color, icon, initial_balance, current_balance, currency)
		VALUES ($1, $2, $3, $4, $5, $5, $6)
		RETURNING `+accountColumns,
		account.Name, string(account.Type), account.Color, account.Icon,
		initialBalance, account.Currency)
	return scanAccount(row)
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetAll retrieves all accounts ordered by name
func (r *AccountRepository) GetAll(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Update updates an account's editable fields
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	initialBalance, err := decimalToPgNumeric(account.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid initial balance: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET name = $2, type = $3, color = $4, icon = $5, initial_balance = $6,
		    currency = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		account.ID, account.Name, string(account.Type), account.Color,
		account.Icon, initialBalance, account.Currency)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return updated, nil
}

// UpdateBalance rewrites the cached balance
func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	num, err := decimalToPgNumeric(balance)
	if err != nil {
		return fmt.Errorf("invalid balance: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET current_balance = $2, updated_at = now() WHERE id = $1`,
		id, num)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Delete removes an account and, via foreign keys, its transactions
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
