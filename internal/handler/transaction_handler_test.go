package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/config"
	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/service"
	"github.com/bitflow/ledger-backend/internal/testutil"
)

type transactionHandlerFixture struct {
	handler      *TransactionHandler
	accountRepo  *testutil.MockAccountRepository
	categoryRepo *testutil.MockCategoryRepository
}

func newTransactionHandler() transactionHandlerFixture {
	accountRepo := testutil.NewMockAccountRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	transactionRepo.AccountRepo = accountRepo
	categoryRepo := testutil.NewMockCategoryRepository()
	reconciler := service.NewBalanceService(accountRepo, transactionRepo)
	learner := service.NewCategoryLearner(testutil.NewMockLearningRuleRepository(), categoryRepo, config.LearnerConfig{
		AcceptThreshold: 0.6,
		LearningRate:    0.3,
		OverrideDecay:   0.5,
	})
	transactionService := service.NewTransactionService(transactionRepo, accountRepo, categoryRepo, reconciler, learner)
	return transactionHandlerFixture{
		handler:      NewTransactionHandler(transactionService),
		accountRepo:  accountRepo,
		categoryRepo: categoryRepo,
	}
}

func TestCreateTransaction_Success(t *testing.T) {
	e := echo.New()
	f := newTransactionHandler()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))

	reqBody := `{"accountId": 1, "txnDate": "2024-04-01", "description": "UPI-SWIGGY-ORDER", "amount": "450.00", "direction": "expense"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.CreateTransaction(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var response TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.TxnDate != "2024-04-01" {
		t.Errorf("Expected txnDate '2024-04-01', got %s", response.TxnDate)
	}
	if response.Amount != "450.00" {
		t.Errorf("Expected amount '450.00', got %s", response.Amount)
	}
	if response.Merchant == nil || *response.Merchant != "swiggy" {
		t.Errorf("Expected merchant 'swiggy', got %v", response.Merchant)
	}
}

func TestCreateTransaction_BadDate(t *testing.T) {
	e := echo.New()
	f := newTransactionHandler()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))

	reqBody := `{"accountId": 1, "txnDate": "01/04/2024", "description": "COFFEE", "amount": "100", "direction": "expense"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.CreateTransaction(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateTransaction_InvalidDirection(t *testing.T) {
	e := echo.New()
	f := newTransactionHandler()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))

	reqBody := `{"accountId": 1, "txnDate": "2024-04-01", "description": "COFFEE", "amount": "100", "direction": "sideways"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.CreateTransaction(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(problem.Errors) == 0 || problem.Errors[0].Field != "direction" {
		t.Errorf("Expected a field error on 'direction', got %+v", problem.Errors)
	}
}

func TestRecategorize_Success(t *testing.T) {
	e := echo.New()
	f := newTransactionHandler()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))
	food := f.categoryRepo.SeedCategory("Food & Dining", domain.CategoryTypeExpense)

	// Create through the handler so the merchant is extracted
	createBody := `{"accountId": 1, "txnDate": "2024-04-01", "description": "UPI-SWIGGY-ORDER", "amount": "450.00", "direction": "expense"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := f.handler.CreateTransaction(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var created TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	patchBody := `{"categoryId": ` + strconv.FormatInt(food.ID, 10) + `}`
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/transactions/1/category", strings.NewReader(patchBody))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(created.ID, 10))

	if err := f.handler.Recategorize(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.CategoryID == nil || *response.CategoryID != food.ID {
		t.Errorf("Expected category %d, got %v", food.ID, response.CategoryID)
	}
	if response.IsAutoCategorized {
		t.Error("Expected manual categorization flag")
	}
}

func TestRecategorize_UnknownCategory(t *testing.T) {
	e := echo.New()
	f := newTransactionHandler()
	f.accountRepo.SeedAccount(1, decimal.RequireFromString("1000.00"))

	createBody := `{"accountId": 1, "txnDate": "2024-04-01", "description": "COFFEE", "amount": "100", "direction": "expense"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := f.handler.CreateTransaction(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/transactions/1/category", strings.NewReader(`{"categoryId": 999}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := f.handler.Recategorize(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
