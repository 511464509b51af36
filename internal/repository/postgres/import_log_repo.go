package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// ImportLogRepository implements domain.ImportLogRepository using PostgreSQL
type ImportLogRepository struct {
	pool *pgxpool.Pool
}

// NewImportLogRepository creates a new ImportLogRepository
func NewImportLogRepository(pool *pgxpool.Pool) *ImportLogRepository {
	return &ImportLogRepository{pool: pool}
}

const importLogColumns = `id, import_id, account_id, file_name, format, status,
	imported_count, duplicate_count, invalid_count, error, started_at, finished_at`

func scanImportLog(row pgx.Row) (*domain.ImportLog, error) {
	var l domain.ImportLog
	err := row.Scan(&l.ID, &l.ImportID, &l.AccountID, &l.FileName, &l.Format,
		&l.Status, &l.ImportedCount, &l.DuplicateCount, &l.InvalidCount,
		&l.Error, &l.StartedAt, &l.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create records the start of an import run
func (r *ImportLogRepository) Create(ctx context.Context, log *domain.ImportLog) (*domain.ImportLog, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO import_logs (import_id, account_id, file_name, format, status, started_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+importLogColumns,
		log.ImportID, log.AccountID, log.FileName, log.Format, string(log.Status))
	return scanImportLog(row)
}

// Update rewrites an import run's progress and outcome
func (r *ImportLogRepository) Update(ctx context.Context, log *domain.ImportLog) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE import_logs
		SET format = $2, status = $3, imported_count = $4, duplicate_count = $5,
		    invalid_count = $6, error = $7, finished_at = $8
		WHERE import_id = $1`,
		log.ImportID, log.Format, string(log.Status), log.ImportedCount,
		log.DuplicateCount, log.InvalidCount, log.Error, log.FinishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrImportNotFound
	}
	return nil
}

// List returns recent import runs, newest first, optionally for one account
func (r *ImportLogRepository) List(ctx context.Context, accountID *int64, limit int32) ([]*domain.ImportLog, error) {
	if limit < 1 {
		limit = 20
	}
	var rows pgx.Rows
	var err error
	if accountID != nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+importLogColumns+`
			FROM import_logs
			WHERE account_id = $1
			ORDER BY started_at DESC
			LIMIT $2`,
			*accountID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+importLogColumns+`
			FROM import_logs
			ORDER BY started_at DESC
			LIMIT $1`,
			limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ImportLog
	for rows.Next() {
		log, err := scanImportLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
