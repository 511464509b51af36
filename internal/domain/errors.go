package domain

import "errors"

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternalError       = errors.New("internal error")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrRuleNotFound        = errors.New("learning rule not found")
	ErrImportNotFound      = errors.New("import not found")
	ErrNameRequired        = errors.New("name is required")
	ErrNameTooLong         = errors.New("name exceeds maximum length")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidDirection    = errors.New("direction must be income or expense")
	ErrInvalidDate         = errors.New("transaction date is required")
	ErrCategoryProtected   = errors.New("category is not user-deletable")
	ErrNotesTooLong        = errors.New("notes exceed maximum length")

	// Statement parsing errors
	ErrUnrecognizedFormat = errors.New("unrecognized statement format")
	ErrNoTransactions     = errors.New("no transactions found in statement")

	// Import errors
	ErrImportCancelled = errors.New("import cancelled")
	ErrLockTimeout     = errors.New("timed out waiting for account lock")
)

// Validation constants
const (
	MaxAccountNameLength      = 255
	MaxDescriptionLength      = 500
	MaxTransactionNotesLength = 1000
)
