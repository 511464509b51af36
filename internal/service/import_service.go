package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/parser"
	"github.com/bitflow/ledger-backend/internal/repository/storage"
	"github.com/bitflow/ledger-backend/internal/websocket"
)

// lockTimeout bounds how long an import waits for another import on the
// same account before giving up.
const lockTimeout = 30 * time.Second

// ImportService drives a statement import through its stages:
// parsing, validating, detecting duplicates, categorizing, persisting.
// Stage failures are terminal; per-row failures are reported and
// skipped. Imports on distinct accounts run in parallel; persisting for
// one account holds the reconciler's account lock, the same lock every
// manual balance rewrite takes.
type ImportService struct {
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	importLogRepo   domain.ImportLogRepository
	registry        *parser.Registry
	detector        *DuplicateDetector
	learner         *CategoryLearner
	reconciler      *BalanceService
	store           storage.ObjectStore
	eventPublisher  websocket.EventPublisher
}

// NewImportService creates a new ImportService
func NewImportService(
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	importLogRepo domain.ImportLogRepository,
	registry *parser.Registry,
	detector *DuplicateDetector,
	learner *CategoryLearner,
	reconciler *BalanceService,
) *ImportService {
	return &ImportService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		importLogRepo:   importLogRepo,
		registry:        registry,
		detector:        detector,
		learner:         learner,
		reconciler:      reconciler,
	}
}

// SetObjectStore enables best-effort archival of raw statement files
func (s *ImportService) SetObjectStore(store storage.ObjectStore) {
	s.store = store
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ImportService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *ImportService) publish(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// ImportInput holds the input for importing a statement
type ImportInput struct {
	AccountID int64
	FileName  string
	Content   []byte
}

// Import runs one statement import to completion and returns the
// summary: how many rows were persisted, skipped as duplicates, or
// dropped as invalid, plus the per-line diagnostics. Nothing is
// silently lost.
func (s *ImportService) Import(ctx context.Context, input ImportInput) (*domain.ImportSummary, error) {
	if _, err := s.accountRepo.GetByID(ctx, input.AccountID); err != nil {
		return nil, err
	}

	run := &domain.ImportLog{
		ImportID:  uuid.New().String(),
		AccountID: input.AccountID,
		FileName:  input.FileName,
		Status:    domain.ImportStatusParsing,
	}
	run, err := s.importLogRepo.Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("create import log: %w", err)
	}
	s.publish(websocket.ImportStarted(s.progress(run)))

	// Parsing
	result, err := s.registry.Parse(input.Content)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	run.Format = result.Format

	// Validating
	s.advance(ctx, run, domain.ImportStatusValidating)
	warnings := append([]domain.ParseWarning(nil), result.Warnings...)
	valid := make([]*domain.CandidateTransaction, 0, len(result.Candidates))
	for _, cand := range result.Candidates {
		if reason, ok := validateCandidate(cand); !ok {
			warnings = append(warnings, domain.ParseWarning{Line: cand.Line, Reason: reason})
			continue
		}
		valid = append(valid, cand)
	}
	if len(valid) == 0 {
		return nil, s.fail(ctx, run, &domain.StatementError{Err: domain.ErrNoTransactions, Warnings: warnings})
	}

	// Detecting duplicates
	s.advance(ctx, run, domain.ImportStatusDetectingDuplicates)
	newOnes, duplicates, err := s.detector.Partition(ctx, input.AccountID, valid)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("detect duplicates: %w", err))
	}

	// Categorizing
	s.advance(ctx, run, domain.ImportStatusCategorizing)
	batch := make([]*domain.Transaction, 0, len(newOnes))
	for _, cand := range newOnes {
		t := candidateToTransaction(input.AccountID, cand)
		suggestion, err := s.learner.Suggest(ctx, cand.Merchant)
		if err != nil {
			return nil, s.fail(ctx, run, fmt.Errorf("suggest category: %w", err))
		}
		if suggestion != nil {
			t.CategoryID = &suggestion.CategoryID
			t.IsAutoCategorized = true
		}
		batch = append(batch, t)
	}

	// An abandoned import stops here; once persisting starts the batch
	// commits or fails atomically.
	if ctx.Err() != nil {
		return nil, s.fail(ctx, run, domain.ErrImportCancelled)
	}

	// Persisting
	s.advance(ctx, run, domain.ImportStatusPersisting)
	summary, err := s.persist(ctx, run, input, batch)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	for _, t := range batch {
		if t.CategoryID != nil {
			if err := s.categoryRepo.IncrementUsage(ctx, *t.CategoryID); err != nil {
				log.Warn().Err(err).Int64("category_id", *t.CategoryID).Msg("Failed to bump category usage")
			}
		}
	}
	s.archive(ctx, input, run.ImportID)

	summary.DuplicateCount = len(duplicates)
	summary.InvalidCount = len(warnings)
	summary.Warnings = warnings
	summary.Format = result.Format

	run.Status = domain.ImportStatusDone
	run.ImportedCount = summary.ImportedCount
	run.DuplicateCount = summary.DuplicateCount
	run.InvalidCount = summary.InvalidCount
	now := time.Now()
	run.FinishedAt = &now
	if err := s.importLogRepo.Update(ctx, run); err != nil {
		log.Warn().Err(err).Str("import_id", run.ImportID).Msg("Failed to update import log")
	}
	s.publish(websocket.ImportCompleted(summary))

	log.Info().
		Str("import_id", run.ImportID).
		Int64("account_id", input.AccountID).
		Str("format", summary.Format).
		Int("imported", summary.ImportedCount).
		Int("duplicates", summary.DuplicateCount).
		Int("invalid", summary.InvalidCount).
		Msg("Statement import finished")

	return summary, nil
}

// persist commits the batch and the new cached balance atomically,
// under the account's balance lock.
func (s *ImportService) persist(ctx context.Context, run *domain.ImportLog, input ImportInput, batch []*domain.Transaction) (*domain.ImportSummary, error) {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if err := s.reconciler.LockAccount(lockCtx, input.AccountID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrLockTimeout
		}
		return nil, domain.ErrImportCancelled
	}
	defer s.reconciler.UnlockAccount(input.AccountID)

	newBalance, err := s.reconciler.Compute(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	for _, t := range batch {
		newBalance = newBalance.Add(t.SignedAmount())
	}

	if len(batch) > 0 {
		if _, err := s.transactionRepo.CreateBatch(ctx, input.AccountID, batch, newBalance); err != nil {
			return nil, fmt.Errorf("persist batch: %w", err)
		}
	}

	return &domain.ImportSummary{
		ImportID:      run.ImportID,
		AccountID:     input.AccountID,
		FileName:      input.FileName,
		ImportedCount: len(batch),
		NewBalance:    newBalance,
	}, nil
}

// archive uploads the raw statement for audit. Best effort: a storage
// failure never fails a committed import.
func (s *ImportService) archive(ctx context.Context, input ImportInput, importID string) {
	if s.store == nil {
		return
	}
	objectPath := storage.StatementObjectPath(input.AccountID, importID, input.FileName)
	if _, err := s.store.Upload(ctx, objectPath, bytes.NewReader(input.Content), "text/plain", int64(len(input.Content))); err != nil {
		log.Warn().Err(err).Str("object_path", objectPath).Msg("Failed to archive statement")
	}
}

// ListImports returns recent import runs
func (s *ImportService) ListImports(ctx context.Context, accountID *int64, limit int32) ([]*domain.ImportLog, error) {
	return s.importLogRepo.List(ctx, accountID, limit)
}

func (s *ImportService) advance(ctx context.Context, run *domain.ImportLog, status domain.ImportStatus) {
	run.Status = status
	if err := s.importLogRepo.Update(ctx, run); err != nil {
		log.Warn().Err(err).Str("import_id", run.ImportID).Msg("Failed to update import log")
	}
	s.publish(websocket.ImportProgress(s.progress(run)))
}

func (s *ImportService) fail(ctx context.Context, run *domain.ImportLog, cause error) error {
	run.Status = domain.ImportStatusFailed
	msg := cause.Error()
	run.Error = &msg
	var stmtErr *domain.StatementError
	if errors.As(cause, &stmtErr) {
		run.InvalidCount = len(stmtErr.Warnings)
	}
	now := time.Now()
	run.FinishedAt = &now
	if err := s.importLogRepo.Update(ctx, run); err != nil {
		log.Warn().Err(err).Str("import_id", run.ImportID).Msg("Failed to update import log")
	}
	s.publish(websocket.ImportFailed(s.progress(run)))
	log.Error().Err(cause).Str("import_id", run.ImportID).Int64("account_id", run.AccountID).Msg("Statement import failed")
	return cause
}

func (s *ImportService) progress(run *domain.ImportLog) websocket.ImportProgressPayload {
	payload := websocket.ImportProgressPayload{
		ImportID:  run.ImportID,
		AccountID: run.AccountID,
		Status:    string(run.Status),
	}
	if run.Error != nil {
		payload.Error = *run.Error
	}
	return payload
}

func validateCandidate(cand *domain.CandidateTransaction) (string, bool) {
	if cand.TxnDate.IsZero() {
		return "missing date", false
	}
	if !cand.Amount.IsPositive() {
		return "amount must be greater than zero", false
	}
	if !domain.ValidDirection(cand.Direction) {
		return "direction must be income or expense", false
	}
	if cand.Description == "" {
		return "missing description", false
	}
	if len(cand.Description) > domain.MaxDescriptionLength {
		return "description too long", false
	}
	return "", true
}

func candidateToTransaction(accountID int64, cand *domain.CandidateTransaction) *domain.Transaction {
	t := &domain.Transaction{
		AccountID:    accountID,
		TxnDate:      cand.TxnDate,
		ValueDate:    cand.ValueDate,
		Description:  cand.Description,
		Reference:    cand.Reference,
		Amount:       cand.Amount,
		Direction:    cand.Direction,
		BalanceAfter: cand.BalanceAfter,
	}
	if cand.Merchant != "" {
		merchant := cand.Merchant
		t.Merchant = &merchant
	}
	return t
}
