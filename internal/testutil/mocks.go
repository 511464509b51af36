package testutil

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/websocket"
)

// MockAccountRepository is an in-memory implementation of domain.AccountRepository
type MockAccountRepository struct {
	Accounts map[int64]*domain.Account
	NextID   int64

	UpdateBalanceFn func(ctx context.Context, id int64, balance decimal.Decimal) error
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{Accounts: make(map[int64]*domain.Account), NextID: 1}
}

// SeedAccount inserts an account with the given id and balances
func (m *MockAccountRepository) SeedAccount(id int64, initial decimal.Decimal) *domain.Account {
	account := &domain.Account{
		ID:             id,
		Name:           "Test Account",
		Type:           domain.AccountTypeBank,
		InitialBalance: initial,
		CurrentBalance: initial,
		Currency:       "INR",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.Accounts[id] = account
	if id >= m.NextID {
		m.NextID = id + 1
	}
	return account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	account.ID = m.NextID
	m.NextID++
	account.CurrentBalance = account.InitialBalance
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	m.Accounts[account.ID] = account
	return account, nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	if account, ok := m.Accounts[id]; ok {
		return account, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*domain.Account, error) {
	result := make([]*domain.Account, 0, len(m.Accounts))
	for _, account := range m.Accounts {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if _, ok := m.Accounts[account.ID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now()
	m.Accounts[account.ID] = account
	return account, nil
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if m.UpdateBalanceFn != nil {
		return m.UpdateBalanceFn(ctx, id, balance)
	}
	account, ok := m.Accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.CurrentBalance = balance
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.Accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(m.Accounts, id)
	return nil
}

// MockTransactionRepository is an in-memory implementation of domain.TransactionRepository.
// When AccountRepo is set, CreateBatch also rewrites the account's cached
// balance, matching the real repository's atomic behavior.
type MockTransactionRepository struct {
	Transactions map[int64]*domain.Transaction
	NextID       int64
	AccountRepo  *MockAccountRepository

	CreateBatchFn func(ctx context.Context, accountID int64, transactions []*domain.Transaction, newBalance decimal.Decimal) ([]*domain.Transaction, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{Transactions: make(map[int64]*domain.Transaction), NextID: 1}
}

func (m *MockTransactionRepository) insert(t *domain.Transaction) *domain.Transaction {
	t.ID = m.NextID
	m.NextID++
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	m.Transactions[t.ID] = t
	return t
}

func (m *MockTransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	return m.insert(transaction), nil
}

func (m *MockTransactionRepository) CreateBatch(ctx context.Context, accountID int64, transactions []*domain.Transaction, newBalance decimal.Decimal) ([]*domain.Transaction, error) {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, accountID, transactions, newBalance)
	}
	created := make([]*domain.Transaction, 0, len(transactions))
	for _, t := range transactions {
		created = append(created, m.insert(t))
	}
	if m.AccountRepo != nil {
		if err := m.AccountRepo.UpdateBalance(ctx, accountID, newBalance); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	if t, ok := m.Transactions[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) List(ctx context.Context, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	var matched []*domain.Transaction
	for _, t := range m.Transactions {
		if filters.AccountID != nil && t.AccountID != *filters.AccountID {
			continue
		}
		if filters.StartDate != nil && t.TxnDate.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && t.TxnDate.After(*filters.EndDate) {
			continue
		}
		if filters.Direction != nil && t.Direction != *filters.Direction {
			continue
		}
		if filters.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *filters.CategoryID) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].TxnDate.Equal(matched[j].TxnDate) {
			return matched[i].TxnDate.After(matched[j].TxnDate)
		}
		return matched[i].ID > matched[j].ID
	})

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	start := int((page - 1) * pageSize)
	end := start + int(pageSize)
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	total := int64(len(matched))
	totalPages := int32(0)
	if total > 0 {
		totalPages = int32((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &domain.PaginatedTransactions{
		Data:       matched[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

func (m *MockTransactionRepository) GetAllForAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	var result []*domain.Transaction
	for _, t := range m.Transactions {
		if t.AccountID == accountID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].TxnDate.Equal(result[j].TxnDate) {
			return result[i].TxnDate.Before(result[j].TxnDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MockTransactionRepository) GetSince(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	var result []*domain.Transaction
	for _, t := range m.Transactions {
		if !t.TxnDate.Before(cutoff) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].TxnDate.Equal(result[j].TxnDate) {
			return result[i].TxnDate.Before(result[j].TxnDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if _, ok := m.Transactions[transaction.ID]; !ok {
		return nil, domain.ErrTransactionNotFound
	}
	transaction.UpdatedAt = time.Now()
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

func (m *MockTransactionRepository) UpdateCategory(ctx context.Context, id int64, categoryID *int64, autoAssigned bool) error {
	t, ok := m.Transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.CategoryID = categoryID
	t.IsAutoCategorized = autoAssigned
	return nil
}

func (m *MockTransactionRepository) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	var moved int64
	for _, t := range m.Transactions {
		if t.CategoryID != nil && *t.CategoryID == fromCategoryID {
			to := toCategoryID
			t.CategoryID = &to
			moved++
		}
	}
	return moved, nil
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.Transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

func (m *MockTransactionRepository) SumByDirection(ctx context.Context, accountID int64) (decimal.Decimal, decimal.Decimal, error) {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range m.Transactions {
		if t.AccountID != accountID {
			continue
		}
		if t.Direction == domain.DirectionIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, nil
}

// MockCategoryRepository is an in-memory implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Categories map[int64]*domain.Category
	NextID     int64
}

// NewMockCategoryRepository creates a new MockCategoryRepository seeded
// with the protected Uncategorized category.
func NewMockCategoryRepository() *MockCategoryRepository {
	m := &MockCategoryRepository{Categories: make(map[int64]*domain.Category), NextID: 2}
	m.Categories[domain.UncategorizedID] = &domain.Category{
		ID:              domain.UncategorizedID,
		Name:            "Uncategorized",
		Type:            domain.CategoryTypeExpense,
		IsUserDeletable: false,
	}
	return m
}

// SeedCategory inserts a deletable category with the given name
func (m *MockCategoryRepository) SeedCategory(name string, catType domain.CategoryType) *domain.Category {
	category := &domain.Category{
		ID:              m.NextID,
		Name:            name,
		Type:            catType,
		IsUserDeletable: true,
	}
	m.NextID++
	m.Categories[category.ID] = category
	return category
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	category.ID = m.NextID
	m.NextID++
	category.CreatedAt = time.Now()
	category.UpdatedAt = time.Now()
	m.Categories[category.ID] = category
	return category, nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	if category, ok := m.Categories[id]; ok {
		return category, nil
	}
	return nil, domain.ErrCategoryNotFound
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]*domain.Category, error) {
	result := make([]*domain.Category, 0, len(m.Categories))
	for _, category := range m.Categories {
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageCount != result[j].UsageCount {
			return result[i].UsageCount > result[j].UsageCount
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if _, ok := m.Categories[category.ID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	category.UpdatedAt = time.Now()
	m.Categories[category.ID] = category
	return category, nil
}

func (m *MockCategoryRepository) IncrementUsage(ctx context.Context, id int64) error {
	category, ok := m.Categories[id]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	category.UsageCount++
	return nil
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.Categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(m.Categories, id)
	return nil
}

// MockLearningRuleRepository is an in-memory implementation of domain.LearningRuleRepository
type MockLearningRuleRepository struct {
	Rules  map[int64]*domain.LearningRule
	NextID int64
}

// NewMockLearningRuleRepository creates a new MockLearningRuleRepository
func NewMockLearningRuleRepository() *MockLearningRuleRepository {
	return &MockLearningRuleRepository{Rules: make(map[int64]*domain.LearningRule), NextID: 1}
}

func (m *MockLearningRuleRepository) byPattern(pattern string) []*domain.LearningRule {
	var rules []*domain.LearningRule
	for _, rule := range m.Rules {
		if rule.Pattern == pattern {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		return rules[i].UsageCount > rules[j].UsageCount
	})
	return rules
}

func (m *MockLearningRuleRepository) FindByPattern(ctx context.Context, pattern string) (*domain.LearningRule, error) {
	rules := m.byPattern(pattern)
	if len(rules) == 0 {
		return nil, domain.ErrRuleNotFound
	}
	return rules[0], nil
}

func (m *MockLearningRuleRepository) FindAllByPattern(ctx context.Context, pattern string) ([]*domain.LearningRule, error) {
	return m.byPattern(pattern), nil
}

func (m *MockLearningRuleRepository) GetAll(ctx context.Context) ([]*domain.LearningRule, error) {
	result := make([]*domain.LearningRule, 0, len(m.Rules))
	for _, rule := range m.Rules {
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockLearningRuleRepository) Create(ctx context.Context, rule *domain.LearningRule) (*domain.LearningRule, error) {
	rule.ID = m.NextID
	m.NextID++
	rule.CreatedAt = time.Now()
	rule.LastUsedAt = time.Now()
	m.Rules[rule.ID] = rule
	return rule, nil
}

func (m *MockLearningRuleRepository) Update(ctx context.Context, rule *domain.LearningRule) (*domain.LearningRule, error) {
	if _, ok := m.Rules[rule.ID]; !ok {
		return nil, domain.ErrRuleNotFound
	}
	rule.LastUsedAt = time.Now()
	m.Rules[rule.ID] = rule
	return rule, nil
}

func (m *MockLearningRuleRepository) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	var moved int64
	for _, rule := range m.Rules {
		if rule.CategoryID == fromCategoryID {
			rule.CategoryID = toCategoryID
			moved++
		}
	}
	return moved, nil
}

func (m *MockLearningRuleRepository) DeleteAll(ctx context.Context) error {
	m.Rules = make(map[int64]*domain.LearningRule)
	return nil
}

// MockImportLogRepository is an in-memory implementation of domain.ImportLogRepository
type MockImportLogRepository struct {
	Logs   []*domain.ImportLog
	NextID int64
}

// NewMockImportLogRepository creates a new MockImportLogRepository
func NewMockImportLogRepository() *MockImportLogRepository {
	return &MockImportLogRepository{NextID: 1}
}

func (m *MockImportLogRepository) Create(ctx context.Context, log *domain.ImportLog) (*domain.ImportLog, error) {
	log.ID = m.NextID
	m.NextID++
	log.StartedAt = time.Now()
	m.Logs = append(m.Logs, log)
	return log, nil
}

func (m *MockImportLogRepository) Update(ctx context.Context, log *domain.ImportLog) error {
	for i, existing := range m.Logs {
		if existing.ImportID == log.ImportID {
			m.Logs[i] = log
			return nil
		}
	}
	return domain.ErrImportNotFound
}

func (m *MockImportLogRepository) List(ctx context.Context, accountID *int64, limit int32) ([]*domain.ImportLog, error) {
	var result []*domain.ImportLog
	for i := len(m.Logs) - 1; i >= 0; i-- {
		if accountID != nil && m.Logs[i].AccountID != *accountID {
			continue
		}
		result = append(result, m.Logs[i])
		if limit > 0 && int32(len(result)) == limit {
			break
		}
	}
	return result, nil
}

// MockObjectStore is an in-memory blob store
type MockObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte

	UploadFn func(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
}

// NewMockObjectStore creates a new MockObjectStore
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: make(map[string][]byte)}
}

func (m *MockObjectStore) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, objectPath, data, contentType, size)
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Objects[objectPath] = buf
	m.mu.Unlock()
	return objectPath, nil
}

func (m *MockObjectStore) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	delete(m.Objects, objectPath)
	m.mu.Unlock()
	return nil
}

func (m *MockObjectStore) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return "https://example.test/" + objectPath, nil
}

// MockEventPublisher captures published WebSocket events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []websocket.Event
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(event websocket.Event) {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
}

// EventTypes returns the published event type strings in order
func (m *MockEventPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Type)
	}
	return types
}
