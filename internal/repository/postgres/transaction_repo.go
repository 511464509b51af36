package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, account_id, txn_date, value_date, description, reference,
	amount, direction, category_id, merchant, tags, receipt_key, notes,
	balance_after, is_auto_categorized, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount, balanceAfter pgtype.Numeric
	err := row.Scan(&t.ID, &t.AccountID, &t.TxnDate, &t.ValueDate, &t.Description,
		&t.Reference, &amount, &t.Direction, &t.CategoryID, &t.Merchant, &t.Tags,
		&t.ReceiptKey, &t.Notes, &balanceAfter, &t.IsAutoCategorized,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount = pgNumericToDecimal(amount)
	if balanceAfter.Valid {
		bal := pgNumericToDecimal(balanceAfter)
		t.BalanceAfter = &bal
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()
	var result []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func transactionInsertArgs(t *domain.Transaction) ([]any, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	var balanceAfter pgtype.Numeric
	if t.BalanceAfter != nil {
		balanceAfter, err = decimalToPgNumeric(*t.BalanceAfter)
		if err != nil {
			return nil, fmt.Errorf("invalid balance after: %w", err)
		}
	}
	return []any{
		t.AccountID, t.TxnDate, t.ValueDate, t.Description, t.Reference,
		amount, string(t.Direction), t.CategoryID, t.Merchant, t.Tags,
		t.ReceiptKey, t.Notes, balanceAfter, t.IsAutoCategorized,
	}, nil
}

const insertTransactionSQL = `
	INSERT INTO transactions (account_id, txn_date, value_date, description, reference,
		amount, direction, category_id, merchant, tags, receipt_key, notes,
		balance_after, is_auto_categorized)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING ` + transactionColumns

// Create inserts a single transaction
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	args, err := transactionInsertArgs(transaction)
	if err != nil {
		return nil, err
	}
	return scanTransaction(r.pool.QueryRow(ctx, insertTransactionSQL, args...))
}

// CreateBatch inserts all transactions and rewrites the account's cached
// balance inside one database transaction. A failure on any row rolls
// back every row.
func (r *TransactionRepository) CreateBatch(ctx context.Context, accountID int64, transactions []*domain.Transaction, newBalance decimal.Decimal) ([]*domain.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := make([]*domain.Transaction, 0, len(transactions))
	for _, t := range transactions {
		args, err := transactionInsertArgs(t)
		if err != nil {
			return nil, err
		}
		row, err := scanTransaction(tx.QueryRow(ctx, insertTransactionSQL, args...))
		if err != nil {
			return nil, err
		}
		created = append(created, row)
	}

	balance, err := decimalToPgNumeric(newBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET current_balance = $2, updated_at = now() WHERE id = $1`,
		accountID, balance)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrAccountNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns a page of transactions matching the filters, newest first
func (r *TransactionRepository) List(ctx context.Context, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if filters.AccountID != nil {
		where += ` AND account_id = ` + arg(*filters.AccountID)
	}
	if filters.StartDate != nil {
		where += ` AND txn_date >= ` + arg(*filters.StartDate)
	}
	if filters.EndDate != nil {
		where += ` AND txn_date <= ` + arg(*filters.EndDate)
	}
	if filters.Direction != nil {
		where += ` AND direction = ` + arg(string(*filters.Direction))
	}
	if filters.CategoryID != nil {
		where += ` AND category_id = ` + arg(*filters.CategoryID)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY txn_date DESC, id DESC LIMIT ` + arg(pageSize) + ` OFFSET ` + arg((page-1)*pageSize)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	data, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int32(0)
	if total > 0 {
		totalPages = int32((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// GetAllForAccount returns every transaction for the account in ledger
// order, oldest first with the insert id as tiebreaker
func (r *TransactionRepository) GetAllForAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY txn_date, id`,
		accountID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// GetSince returns transactions dated on or after cutoff across all accounts
func (r *TransactionRepository) GetSince(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE txn_date >= $1 ORDER BY txn_date, id`,
		cutoff)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// Update rewrites a transaction's editable fields
func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	args, err := transactionInsertArgs(transaction)
	if err != nil {
		return nil, err
	}
	args = append(args, transaction.ID)
	row := r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET account_id = $1, txn_date = $2, value_date = $3, description = $4,
		    reference = $5, amount = $6, direction = $7, category_id = $8,
		    merchant = $9, tags = $10, receipt_key = $11, notes = $12,
		    balance_after = $13, is_auto_categorized = $14, updated_at = now()
		WHERE id = $15
		RETURNING `+transactionColumns, args...)
	updated, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return updated, nil
}

// UpdateCategory sets the category assignment and whether it came from
// the learner or the user
func (r *TransactionRepository) UpdateCategory(ctx context.Context, id int64, categoryID *int64, autoAssigned bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET category_id = $2, is_auto_categorized = $3, updated_at = now()
		WHERE id = $1`,
		id, categoryID, autoAssigned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// ReassignCategory moves every transaction from one category to another
// and returns how many rows moved
func (r *TransactionRepository) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET category_id = $2, updated_at = now()
		WHERE category_id = $1`,
		fromCategoryID, toCategoryID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a transaction
func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// SumByDirection returns the income and expense totals for an account
func (r *TransactionRepository) SumByDirection(ctx context.Context, accountID int64) (decimal.Decimal, decimal.Decimal, error) {
	var income, expense pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(sum(amount) FILTER (WHERE direction = 'income'), 0),
		       COALESCE(sum(amount) FILTER (WHERE direction = 'expense'), 0)
		FROM transactions
		WHERE account_id = $1`,
		accountID).Scan(&income, &expense)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return pgNumericToDecimal(income), pgNumericToDecimal(expense), nil
}
