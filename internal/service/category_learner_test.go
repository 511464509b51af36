package service

import (
	"context"
	"testing"

	"github.com/bitflow/ledger-backend/internal/config"
	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/testutil"
)

func testLearnerConfig() config.LearnerConfig {
	return config.LearnerConfig{
		AcceptThreshold: 0.6,
		LearningRate:    0.3,
		OverrideDecay:   0.5,
	}
}

func newTestLearner() (*CategoryLearner, *testutil.MockLearningRuleRepository, *testutil.MockCategoryRepository) {
	ruleRepo := testutil.NewMockLearningRuleRepository()
	categoryRepo := testutil.NewMockCategoryRepository()
	return NewCategoryLearner(ruleRepo, categoryRepo, testLearnerConfig()), ruleRepo, categoryRepo
}

func TestLearnCreatesRule(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	if err := learner.Learn(ctx, "Swiggy  Bangalore", 5, false, true); err != nil {
		t.Fatalf("Learn() error = %v", err)
	}

	rule, err := ruleRepo.FindByPattern(ctx, "swiggy bangalore")
	if err != nil {
		t.Fatalf("FindByPattern() error = %v", err)
	}
	if rule.CategoryID != 5 {
		t.Errorf("CategoryID = %d, want 5", rule.CategoryID)
	}
	if rule.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", rule.Confidence)
	}
	if rule.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", rule.UsageCount)
	}
}

func TestLearnEmptyMerchantIsNoOp(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	if err := learner.Learn(ctx, "   ", 5, false, true); err != nil {
		t.Fatalf("Learn() error = %v", err)
	}
	rules, _ := ruleRepo.GetAll(ctx)
	if len(rules) != 0 {
		t.Errorf("got %d rules, want 0", len(rules))
	}
}

func TestLearnConfidenceMonotonic(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	prev := 0.0
	for i := 0; i < 50; i++ {
		if err := learner.Learn(ctx, "netflix", 7, true, true); err != nil {
			t.Fatalf("Learn() error = %v", err)
		}
		rule, err := ruleRepo.FindByPattern(ctx, "netflix")
		if err != nil {
			t.Fatalf("FindByPattern() error = %v", err)
		}
		if rule.Confidence < prev {
			t.Fatalf("confidence decreased after confirmation %d: %v < %v", i+1, rule.Confidence, prev)
		}
		if rule.Confidence > 1 {
			t.Fatalf("confidence exceeded 1: %v", rule.Confidence)
		}
		prev = rule.Confidence
	}
	if prev <= 0.5 {
		t.Errorf("confidence after repeated confirmations = %v, want above initial 0.5", prev)
	}
}

func TestLearnOverrideDecaysCompetingRule(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	ruleRepo.Create(ctx, &domain.LearningRule{Pattern: "amazon", CategoryID: 3, Confidence: 0.8, UsageCount: 4})

	// The user rejects the automatic suggestion and picks category 9.
	if err := learner.Learn(ctx, "amazon", 9, true, false); err != nil {
		t.Fatalf("Learn() error = %v", err)
	}

	rules, err := ruleRepo.FindAllByPattern(ctx, "amazon")
	if err != nil {
		t.Fatalf("FindAllByPattern() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	byCategory := map[int64]*domain.LearningRule{}
	for _, r := range rules {
		byCategory[r.CategoryID] = r
	}
	if got := byCategory[3].Confidence; got != 0.4 {
		t.Errorf("overridden rule confidence = %v, want 0.4", got)
	}
	if got := byCategory[9].Confidence; got != 0.5 {
		t.Errorf("new rule confidence = %v, want 0.5", got)
	}
}

func TestLearnAcceptedSuggestionKeepsCompetitors(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	ruleRepo.Create(ctx, &domain.LearningRule{Pattern: "uber", CategoryID: 3, Confidence: 0.7})
	ruleRepo.Create(ctx, &domain.LearningRule{Pattern: "uber", CategoryID: 4, Confidence: 0.65})

	if err := learner.Learn(ctx, "uber", 4, true, true); err != nil {
		t.Fatalf("Learn() error = %v", err)
	}

	rules, _ := ruleRepo.FindAllByPattern(ctx, "uber")
	for _, r := range rules {
		if r.CategoryID == 3 && r.Confidence != 0.7 {
			t.Errorf("competitor confidence = %v, want 0.7 untouched", r.Confidence)
		}
	}
}

func TestSuggestExactRuleWins(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	ruleRepo.Create(ctx, &domain.LearningRule{Pattern: "spotify", CategoryID: 11, Confidence: 0.9})

	suggestion, err := learner.Suggest(ctx, "Spotify")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion == nil {
		t.Fatal("Suggest() = nil, want suggestion")
	}
	if suggestion.CategoryID != 11 {
		t.Errorf("CategoryID = %d, want 11", suggestion.CategoryID)
	}
	if suggestion.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", suggestion.Confidence)
	}
}

func TestSuggestFragmentMatch(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	ruleRepo.Create(ctx, &domain.LearningRule{Pattern: "irctc", CategoryID: 6, Confidence: 0.85})

	suggestion, err := learner.Suggest(ctx, "irctc rail connect")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion == nil || suggestion.CategoryID != 6 {
		t.Fatalf("Suggest() = %+v, want fragment match on category 6", suggestion)
	}
}

func TestSuggestBelowThresholdFallsThrough(t *testing.T) {
	learner, ruleRepo, _ := newTestLearner()
	ctx := context.Background()

	ruleRepo.Create(ctx, &domain.LearningRule{Pattern: "obscureshop", CategoryID: 6, Confidence: 0.3})

	suggestion, err := learner.Suggest(ctx, "obscureshop")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion != nil {
		t.Errorf("Suggest() = %+v, want nil below threshold", suggestion)
	}
}

func TestSuggestFromSeeds(t *testing.T) {
	learner, _, categoryRepo := newTestLearner()
	ctx := context.Background()

	food := categoryRepo.SeedCategory("Food & Dining", domain.CategoryTypeExpense)

	suggestion, err := learner.Suggest(ctx, "swiggy bangalore")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion == nil {
		t.Fatal("Suggest() = nil, want seed suggestion")
	}
	if suggestion.CategoryID != food.ID {
		t.Errorf("CategoryID = %d, want %d", suggestion.CategoryID, food.ID)
	}
	if suggestion.Confidence != 0.65 {
		t.Errorf("Confidence = %v, want 0.65", suggestion.Confidence)
	}
}

func TestSuggestSeedWithoutCategoryIsNil(t *testing.T) {
	learner, _, _ := newTestLearner()
	ctx := context.Background()

	// Seed rules name "Entertainment" but the install has no such category.
	suggestion, err := learner.Suggest(ctx, "netflix")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion != nil {
		t.Errorf("Suggest() = %+v, want nil", suggestion)
	}
}

func TestSuggestEmptyMerchant(t *testing.T) {
	learner, _, _ := newTestLearner()

	suggestion, err := learner.Suggest(context.Background(), "")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion != nil {
		t.Errorf("Suggest() = %+v, want nil", suggestion)
	}
}
