package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/domain"
)

// CategoryService handles category-related business logic
type CategoryService struct {
	categoryRepo    domain.CategoryRepository
	transactionRepo domain.TransactionRepository
	ruleRepo        domain.LearningRuleRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo domain.CategoryRepository,
	transactionRepo domain.TransactionRepository,
	ruleRepo domain.LearningRuleRepository,
) *CategoryService {
	return &CategoryService{
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		ruleRepo:        ruleRepo,
	}
}

// CreateCategoryInput holds the input for creating a category
type CreateCategoryInput struct {
	Name  string
	Type  domain.CategoryType
	Icon  string
	Color string
}

// CreateCategory creates a new user-deletable category
func (s *CategoryService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}
	if input.Type != domain.CategoryTypeIncome && input.Type != domain.CategoryTypeExpense {
		return nil, domain.ErrInvalidDirection
	}

	category := &domain.Category{
		Name:            name,
		Type:            input.Type,
		Icon:            input.Icon,
		Color:           input.Color,
		IsUserDeletable: true,
	}
	return s.categoryRepo.Create(ctx, category)
}

// GetCategories retrieves all categories
func (s *CategoryService) GetCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.GetAll(ctx)
}

// GetCategoryByID retrieves a category by ID
func (s *CategoryService) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// UpdateCategoryInput holds the editable category fields
type UpdateCategoryInput struct {
	Name  string
	Icon  string
	Color string
}

// UpdateCategory updates a category's display fields
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, input UpdateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Icon = input.Icon
	category.Color = input.Color
	return s.categoryRepo.Update(ctx, category)
}

// DeleteCategory deletes a user-deletable category. Transactions and
// learning rules pointing at it are reassigned to Uncategorized first,
// so history is never orphaned.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !category.IsUserDeletable || id == domain.UncategorizedID {
		return domain.ErrCategoryProtected
	}

	moved, err := s.transactionRepo.ReassignCategory(ctx, id, domain.UncategorizedID)
	if err != nil {
		return err
	}
	rules, err := s.ruleRepo.ReassignCategory(ctx, id, domain.UncategorizedID)
	if err != nil {
		return err
	}
	if moved > 0 || rules > 0 {
		log.Info().
			Int64("category_id", id).
			Int64("transactions", moved).
			Int64("rules", rules).
			Msg("Reassigned to Uncategorized before category delete")
	}

	return s.categoryRepo.Delete(ctx, id)
}

// MergeCategories moves every transaction and learning rule from the
// source category into the target, then deletes the source. The target
// keeps its own display fields; its usage count absorbs the source's.
func (s *CategoryService) MergeCategories(ctx context.Context, sourceID, targetID int64) (*domain.Category, error) {
	if sourceID == targetID {
		return nil, domain.ErrInvalidInput
	}
	source, err := s.categoryRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.IsUserDeletable || sourceID == domain.UncategorizedID {
		return nil, domain.ErrCategoryProtected
	}
	target, err := s.categoryRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := s.transactionRepo.ReassignCategory(ctx, sourceID, targetID); err != nil {
		return nil, err
	}
	if _, err := s.ruleRepo.ReassignCategory(ctx, sourceID, targetID); err != nil {
		return nil, err
	}

	target.UsageCount += source.UsageCount
	target, err = s.categoryRepo.Update(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Delete(ctx, sourceID); err != nil {
		return nil, err
	}
	return target, nil
}
