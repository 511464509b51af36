package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CandidateTransaction is a parsed-but-not-yet-persisted row awaiting
// validation, deduplication and categorization.
type CandidateTransaction struct {
	TxnDate      time.Time
	ValueDate    *time.Time
	Description  string
	Reference    *string
	Amount       decimal.Decimal
	Direction    Direction
	Merchant     string
	BalanceAfter *decimal.Decimal
	// Line is the 1-based line number in the source statement.
	Line int
}

// ParseWarning records a skipped statement line. Parsing is best-effort:
// malformed rows are reported, never silently dropped.
type ParseWarning struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// StatementError is a terminal statement failure that still carries the
// per-line diagnostics gathered before failing. Unwrap exposes the
// underlying sentinel, so errors.Is checks keep working.
type StatementError struct {
	Err      error
	Warnings []ParseWarning
}

func (e *StatementError) Error() string { return e.Err.Error() }

func (e *StatementError) Unwrap() error { return e.Err }

// ParseResult is the output of the statement parser.
type ParseResult struct {
	Format       string
	Candidates   []*CandidateTransaction
	Warnings     []ParseWarning
	// StatementBalance is the closing balance detected from the
	// statement's balance column, when one was present.
	StatementBalance *decimal.Decimal
}

// ImportStatus tracks an import run through its state machine.
type ImportStatus string

const (
	ImportStatusParsing             ImportStatus = "parsing"
	ImportStatusValidating          ImportStatus = "validating"
	ImportStatusDetectingDuplicates ImportStatus = "detecting_duplicates"
	ImportStatusCategorizing        ImportStatus = "categorizing"
	ImportStatusPersisting          ImportStatus = "persisting"
	ImportStatusDone                ImportStatus = "done"
	ImportStatusFailed              ImportStatus = "failed"
)

// ImportSummary is what the caller gets back from a finished import.
type ImportSummary struct {
	ImportID       string          `json:"importId"`
	AccountID      int64           `json:"accountId"`
	FileName       string          `json:"fileName"`
	Format         string          `json:"format"`
	ImportedCount  int             `json:"importedCount"`
	DuplicateCount int             `json:"duplicateCount"`
	InvalidCount   int             `json:"invalidCount"`
	Warnings       []ParseWarning  `json:"warnings,omitempty"`
	NewBalance     decimal.Decimal `json:"newBalance"`
}

// ImportLog is the persisted record of an import run.
type ImportLog struct {
	ID             int64        `json:"id"`
	ImportID       string       `json:"importId"`
	AccountID      int64        `json:"accountId"`
	FileName       string       `json:"fileName"`
	Format         string       `json:"format"`
	Status         ImportStatus `json:"status"`
	ImportedCount  int          `json:"importedCount"`
	DuplicateCount int          `json:"duplicateCount"`
	InvalidCount   int          `json:"invalidCount"`
	Error          *string      `json:"error,omitempty"`
	StartedAt      time.Time    `json:"startedAt"`
	FinishedAt     *time.Time   `json:"finishedAt,omitempty"`
}

type ImportLogRepository interface {
	Create(ctx context.Context, log *ImportLog) (*ImportLog, error)
	Update(ctx context.Context, log *ImportLog) error
	List(ctx context.Context, accountID *int64, limit int32) ([]*ImportLog, error)
}
