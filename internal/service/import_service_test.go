package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/parser"
	"github.com/bitflow/ledger-backend/internal/testutil"
)

type importFixture struct {
	service         *ImportService
	accountRepo     *testutil.MockAccountRepository
	transactionRepo *testutil.MockTransactionRepository
	categoryRepo    *testutil.MockCategoryRepository
	importLogRepo   *testutil.MockImportLogRepository
	publisher       *testutil.MockEventPublisher
	store           *testutil.MockObjectStore
}

func newImportFixture() *importFixture {
	accountRepo := testutil.NewMockAccountRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	transactionRepo.AccountRepo = accountRepo
	categoryRepo := testutil.NewMockCategoryRepository()
	ruleRepo := testutil.NewMockLearningRuleRepository()
	importLogRepo := testutil.NewMockImportLogRepository()
	publisher := testutil.NewMockEventPublisher()
	store := testutil.NewMockObjectStore()

	service := NewImportService(
		accountRepo,
		transactionRepo,
		categoryRepo,
		importLogRepo,
		parser.NewRegistry(),
		NewDuplicateDetector(transactionRepo),
		NewCategoryLearner(ruleRepo, categoryRepo, testLearnerConfig()),
		NewBalanceService(accountRepo, transactionRepo),
	)
	service.SetEventPublisher(publisher)
	service.SetObjectStore(store)

	return &importFixture{
		service:         service,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		importLogRepo:   importLogRepo,
		publisher:       publisher,
		store:           store,
	}
}

// buildLargeStatement is a 100-line export: one preamble line, one
// header, 93 fresh rows, one in-batch repeat, one row already in the
// ledger, and three malformed rows.
func buildLargeStatement() []byte {
	var b strings.Builder
	b.WriteString("Account Statement for 1234XXXX5678\n")
	b.WriteString("Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n")
	for i := 1; i <= 93; i++ {
		fmt.Fprintf(&b, "01/04/2024,01/04/2024,POS PURCHASE MERCHANT-%03d,REF%03d,%d.00,,\n", i, i, i*10)
	}
	b.WriteString("01/04/2024,01/04/2024,POS PURCHASE MERCHANT-001,REF901,10.00,,\n")
	b.WriteString("15/03/2024,15/03/2024,NEFT RENT MARCH,REF902,18000.00,,\n")
	b.WriteString("31/02/2024,31/02/2024,IMPOSSIBLE DATE,REF903,100.00,,\n")
	b.WriteString("02/04/2024,02/04/2024,NO AMOUNT ROW,REF904,,,\n")
	b.WriteString("xx/xx/xxxx,,GARBAGE ROW,REF905,50.00,,\n")
	return []byte(b.String())
}

func TestImportEndToEnd(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()

	f.accountRepo.SeedAccount(1, decimal.RequireFromString("100000.00"))
	f.transactionRepo.Create(ctx, &domain.Transaction{
		AccountID: 1, TxnDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "NEFT RENT MARCH",
		Amount:      decimal.RequireFromString("18000.00"),
		Direction:   domain.DirectionExpense,
	})

	summary, err := f.service.Import(ctx, ImportInput{
		AccountID: 1,
		FileName:  "statement_apr.csv",
		Content:   buildLargeStatement(),
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if summary.ImportedCount != 93 {
		t.Errorf("ImportedCount = %d, want 93", summary.ImportedCount)
	}
	if summary.DuplicateCount != 2 {
		t.Errorf("DuplicateCount = %d, want 2", summary.DuplicateCount)
	}
	if summary.InvalidCount != 3 {
		t.Errorf("InvalidCount = %d, want 3", summary.InvalidCount)
	}
	if len(summary.Warnings) != 3 {
		t.Errorf("got %d warnings, want 3", len(summary.Warnings))
	}
	if summary.Format != "debit_credit" {
		t.Errorf("Format = %q, want debit_credit", summary.Format)
	}

	// 100000 - 18000 existing - (10 + 20 + ... + 930) new.
	want := decimal.RequireFromString("38290.00")
	if !summary.NewBalance.Equal(want) {
		t.Errorf("NewBalance = %s, want %s", summary.NewBalance, want)
	}
	account, _ := f.accountRepo.GetByID(ctx, 1)
	if !account.CurrentBalance.Equal(want) {
		t.Errorf("cached balance = %s, want %s", account.CurrentBalance, want)
	}

	if len(f.transactionRepo.Transactions) != 94 { // 1 existing + 93 new
		t.Errorf("stored transactions = %d, want 94", len(f.transactionRepo.Transactions))
	}

	if len(f.importLogRepo.Logs) != 1 {
		t.Fatalf("got %d import logs, want 1", len(f.importLogRepo.Logs))
	}
	run := f.importLogRepo.Logs[0]
	if run.Status != domain.ImportStatusDone {
		t.Errorf("log status = %q, want done", run.Status)
	}
	if run.ImportedCount != 93 || run.DuplicateCount != 2 || run.InvalidCount != 3 {
		t.Errorf("log counts = %d/%d/%d, want 93/2/3", run.ImportedCount, run.DuplicateCount, run.InvalidCount)
	}
	if run.FinishedAt == nil {
		t.Error("log FinishedAt not set")
	}

	types := f.publisher.EventTypes()
	if len(types) == 0 || types[0] != "import.started" || types[len(types)-1] != "import.completed" {
		t.Errorf("event types = %v, want started first and completed last", types)
	}

	archived := false
	for path := range f.store.Objects {
		if strings.HasPrefix(path, "statements/1/") && strings.HasSuffix(path, "_statement_apr.csv") {
			archived = true
		}
	}
	if !archived {
		t.Errorf("statement not archived, objects = %v", f.store.Objects)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("100000.00"))
	content := buildLargeStatement()

	first, err := f.service.Import(ctx, ImportInput{AccountID: 1, FileName: "a.csv", Content: content})
	if err != nil {
		t.Fatalf("first Import() error = %v", err)
	}

	second, err := f.service.Import(ctx, ImportInput{AccountID: 1, FileName: "a.csv", Content: content})
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if second.ImportedCount != 0 {
		t.Errorf("second ImportedCount = %d, want 0", second.ImportedCount)
	}
	if second.DuplicateCount != 95 {
		t.Errorf("second DuplicateCount = %d, want 95", second.DuplicateCount)
	}
	if !second.NewBalance.Equal(first.NewBalance) {
		t.Errorf("balance changed on re-import: %s != %s", second.NewBalance, first.NewBalance)
	}

	account, _ := f.accountRepo.GetByID(ctx, 1)
	if !account.CurrentBalance.Equal(first.NewBalance) {
		t.Errorf("cached balance = %s, want %s", account.CurrentBalance, first.NewBalance)
	}
}

func TestImportAutoCategorizes(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("5000.00"))
	food := f.categoryRepo.SeedCategory("Food & Dining", domain.CategoryTypeExpense)

	content := []byte("Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n" +
		"01/04/2024,01/04/2024,UPI-SWIGGY-ORDER12345,UPI1,450.00,,4550.00\n")

	summary, err := f.service.Import(ctx, ImportInput{AccountID: 1, FileName: "b.csv", Content: content})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if summary.ImportedCount != 1 {
		t.Fatalf("ImportedCount = %d, want 1", summary.ImportedCount)
	}

	var stored *domain.Transaction
	for _, txn := range f.transactionRepo.Transactions {
		stored = txn
	}
	if stored.CategoryID == nil || *stored.CategoryID != food.ID {
		t.Errorf("CategoryID = %v, want seed category %d", stored.CategoryID, food.ID)
	}
	if !stored.IsAutoCategorized {
		t.Error("IsAutoCategorized = false, want true")
	}

	cat, _ := f.categoryRepo.GetByID(ctx, food.ID)
	if cat.UsageCount != 1 {
		t.Errorf("category usage = %d, want 1", cat.UsageCount)
	}
}

func TestImportUnknownAccount(t *testing.T) {
	f := newImportFixture()

	_, err := f.service.Import(context.Background(), ImportInput{AccountID: 42, FileName: "a.csv", Content: buildLargeStatement()})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("Import() error = %v, want ErrAccountNotFound", err)
	}
	if len(f.importLogRepo.Logs) != 0 {
		t.Errorf("got %d import logs, want 0", len(f.importLogRepo.Logs))
	}
}

func TestImportUnrecognizedContent(t *testing.T) {
	f := newImportFixture()
	f.accountRepo.SeedAccount(1, decimal.Zero)

	_, err := f.service.Import(context.Background(), ImportInput{AccountID: 1, FileName: "junk.bin", Content: []byte("%PDF-1.4 binary soup")})
	if !errors.Is(err, domain.ErrUnrecognizedFormat) {
		t.Fatalf("Import() error = %v, want ErrUnrecognizedFormat", err)
	}

	if len(f.importLogRepo.Logs) != 1 {
		t.Fatalf("got %d import logs, want 1", len(f.importLogRepo.Logs))
	}
	run := f.importLogRepo.Logs[0]
	if run.Status != domain.ImportStatusFailed {
		t.Errorf("log status = %q, want failed", run.Status)
	}
	if run.Error == nil {
		t.Error("log Error not set")
	}
	types := f.publisher.EventTypes()
	if len(types) == 0 || types[len(types)-1] != "import.failed" {
		t.Errorf("event types = %v, want import.failed last", types)
	}
}

func TestImportCancelledBeforePersist(t *testing.T) {
	f := newImportFixture()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Import(ctx, ImportInput{AccountID: 1, FileName: "a.csv", Content: buildLargeStatement()})
	if !errors.Is(err, domain.ErrImportCancelled) {
		t.Fatalf("Import() error = %v, want ErrImportCancelled", err)
	}
	if len(f.transactionRepo.Transactions) != 0 {
		t.Errorf("stored transactions = %d, want 0 after cancellation", len(f.transactionRepo.Transactions))
	}
	account, _ := f.accountRepo.GetByID(context.Background(), 1)
	if !account.CurrentBalance.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("balance = %s, want untouched 1000.00", account.CurrentBalance)
	}
}

func TestImportPersistFailureIsAtomic(t *testing.T) {
	f := newImportFixture()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))

	boom := errors.New("connection reset")
	f.transactionRepo.CreateBatchFn = func(ctx context.Context, accountID int64, transactions []*domain.Transaction, newBalance decimal.Decimal) ([]*domain.Transaction, error) {
		return nil, boom
	}

	_, err := f.service.Import(context.Background(), ImportInput{AccountID: 1, FileName: "a.csv", Content: buildLargeStatement()})
	if !errors.Is(err, boom) {
		t.Fatalf("Import() error = %v, want wrapped persistence failure", err)
	}

	if len(f.transactionRepo.Transactions) != 0 {
		t.Errorf("stored transactions = %d, want 0", len(f.transactionRepo.Transactions))
	}
	account, _ := f.accountRepo.GetByID(context.Background(), 1)
	if !account.CurrentBalance.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("balance = %s, want untouched 1000.00", account.CurrentBalance)
	}
	run := f.importLogRepo.Logs[0]
	if run.Status != domain.ImportStatusFailed {
		t.Errorf("log status = %q, want failed", run.Status)
	}
}

func TestImportEmptyStatementFails(t *testing.T) {
	f := newImportFixture()
	f.accountRepo.SeedAccount(1, decimal.Zero)

	content := []byte("Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n" +
		"Closing balance,,,,,,\n")
	_, err := f.service.Import(context.Background(), ImportInput{AccountID: 1, FileName: "empty.csv", Content: content})
	if !errors.Is(err, domain.ErrNoTransactions) {
		t.Fatalf("Import() error = %v, want ErrNoTransactions", err)
	}
}

func TestImportAllRowsMalformedKeepsDiagnostics(t *testing.T) {
	f := newImportFixture()
	f.accountRepo.SeedAccount(1, decimal.Zero)

	content := []byte("Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n" +
		"31/02/2024,,IMPOSSIBLE DATE,R1,100.00,,\n" +
		"01/03/2024,,NO AMOUNT ROW,R2,,,\n" +
		"xx/xx/xxxx,,GARBAGE DATE,R3,50.00,,\n")
	_, err := f.service.Import(context.Background(), ImportInput{AccountID: 1, FileName: "bad.csv", Content: content})
	if !errors.Is(err, domain.ErrNoTransactions) {
		t.Fatalf("Import() error = %v, want ErrNoTransactions", err)
	}

	var stmtErr *domain.StatementError
	if !errors.As(err, &stmtErr) {
		t.Fatalf("Import() error = %T, want *domain.StatementError carrying the diagnostics", err)
	}
	if len(stmtErr.Warnings) != 3 {
		t.Fatalf("got %d warnings, want 3: %v", len(stmtErr.Warnings), stmtErr.Warnings)
	}

	run := f.importLogRepo.Logs[0]
	if run.Status != domain.ImportStatusFailed {
		t.Errorf("log status = %q, want failed", run.Status)
	}
	if run.InvalidCount != 3 {
		t.Errorf("log InvalidCount = %d, want 3", run.InvalidCount)
	}
	if run.Error == nil {
		t.Error("log Error not set")
	}
}

func TestImportAllCandidatesInvalidKeepsDiagnostics(t *testing.T) {
	f := newImportFixture()
	f.accountRepo.SeedAccount(1, decimal.Zero)

	// Parses fine, fails validation: the description is over the limit.
	long := strings.Repeat("X", domain.MaxDescriptionLength+1)
	content := []byte("Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n" +
		"01/04/2024,01/04/2024," + long + ",R1,100.00,,\n")
	_, err := f.service.Import(context.Background(), ImportInput{AccountID: 1, FileName: "long.csv", Content: content})
	if !errors.Is(err, domain.ErrNoTransactions) {
		t.Fatalf("Import() error = %v, want ErrNoTransactions", err)
	}

	var stmtErr *domain.StatementError
	if !errors.As(err, &stmtErr) {
		t.Fatalf("Import() error = %T, want *domain.StatementError carrying the diagnostics", err)
	}
	if len(stmtErr.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(stmtErr.Warnings), stmtErr.Warnings)
	}
	if stmtErr.Warnings[0].Line != 2 {
		t.Errorf("warning line = %d, want 2", stmtErr.Warnings[0].Line)
	}
	if stmtErr.Warnings[0].Reason != "description too long" {
		t.Errorf("warning reason = %q, want description too long", stmtErr.Warnings[0].Reason)
	}
	if run := f.importLogRepo.Logs[0]; run.InvalidCount != 1 {
		t.Errorf("log InvalidCount = %d, want 1", run.InvalidCount)
	}
}

func TestListImports(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	f.accountRepo.SeedAccount(1, decimal.Zero)

	content := []byte("Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n" +
		"01/04/2024,01/04/2024,COFFEE,R1,100.00,,\n")
	if _, err := f.service.Import(ctx, ImportInput{AccountID: 1, FileName: "c.csv", Content: content}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	runs, err := f.service.ListImports(ctx, nil, 10)
	if err != nil {
		t.Fatalf("ListImports() error = %v", err)
	}
	if len(runs) != 1 || runs[0].FileName != "c.csv" {
		t.Errorf("runs = %+v, want the one import", runs)
	}
}
