package service

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/bitflow/ledger-backend/internal/config"
	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/util"
)

//go:embed seed_rules.yaml
var seedRulesYAML []byte

// seedConfidence is the confidence assigned to a starter-rule match. It
// clears the default acceptance threshold but loses to any learned rule
// the user has confirmed.
const seedConfidence = 0.65

// initialConfidence is the confidence a freshly learned rule starts at.
const initialConfidence = 0.5

type seedRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

// Suggestion is a category proposal for a merchant.
type Suggestion struct {
	CategoryID int64
	Confidence float64
}

// CategoryLearner learns merchant to category mappings from user
// behavior. Rules compete per merchant pattern: acceptance pushes
// confidence toward 1, an override decays the losing rule and
// strengthens the chosen one. All confidence arithmetic for one merchant
// runs under a per-pattern lock.
type CategoryLearner struct {
	ruleRepo     domain.LearningRuleRepository
	categoryRepo domain.CategoryRepository
	cfg          config.LearnerConfig
	seeds        []seedRule
	merchants    *util.KeyedMutex
}

// NewCategoryLearner creates a new CategoryLearner
func NewCategoryLearner(ruleRepo domain.LearningRuleRepository, categoryRepo domain.CategoryRepository, cfg config.LearnerConfig) *CategoryLearner {
	var seeds seedFile
	if err := yaml.Unmarshal(seedRulesYAML, &seeds); err != nil {
		// The seed file is compiled in; a parse failure is a build
		// defect, not a runtime condition.
		log.Error().Err(err).Msg("Failed to parse seed rules")
	}
	return &CategoryLearner{
		ruleRepo:     ruleRepo,
		categoryRepo: categoryRepo,
		cfg:          cfg,
		seeds:        seeds.Rules,
		merchants:    util.NewKeyedMutex(),
	}
}

// normalizePattern canonicalizes a merchant name for rule lookup.
func normalizePattern(merchant string) string {
	return strings.Join(strings.Fields(strings.ToLower(merchant)), " ")
}

// Suggest proposes a category for the merchant, or nil when no rule
// clears the acceptance threshold. Exact learned rules win; otherwise
// the strongest fragment-matching learned rule; otherwise a starter
// rule from the embedded seed set.
func (l *CategoryLearner) Suggest(ctx context.Context, merchant string) (*Suggestion, error) {
	pattern := normalizePattern(merchant)
	if pattern == "" {
		return nil, nil
	}

	rule, err := l.ruleRepo.FindByPattern(ctx, pattern)
	if err != nil && !errors.Is(err, domain.ErrRuleNotFound) {
		return nil, err
	}
	if rule != nil && rule.Confidence >= l.cfg.AcceptThreshold {
		return &Suggestion{CategoryID: rule.CategoryID, Confidence: rule.Confidence}, nil
	}

	// Fragment match over all learned rules, best confidence wins.
	all, err := l.ruleRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var best *domain.LearningRule
	for _, r := range all {
		if r.Pattern == pattern || !strings.Contains(pattern, r.Pattern) {
			continue
		}
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}
	if best != nil && best.Confidence >= l.cfg.AcceptThreshold {
		return &Suggestion{CategoryID: best.CategoryID, Confidence: best.Confidence}, nil
	}

	return l.suggestFromSeeds(ctx, pattern)
}

func (l *CategoryLearner) suggestFromSeeds(ctx context.Context, pattern string) (*Suggestion, error) {
	var match *seedRule
	for i := range l.seeds {
		if strings.Contains(pattern, l.seeds[i].Pattern) {
			match = &l.seeds[i]
			break
		}
	}
	if match == nil {
		return nil, nil
	}

	categories, err := l.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, match.Category) {
			return &Suggestion{CategoryID: c.ID, Confidence: seedConfidence}, nil
		}
	}
	// Seed names a category this install doesn't have; no suggestion.
	return nil, nil
}

// Learn records a categorization event for the merchant. The chosen
// category's rule is strengthened or created; when the user overrode an
// automatic suggestion, every competing rule for the pattern decays.
// Empty merchant names create no rule.
func (l *CategoryLearner) Learn(ctx context.Context, merchant string, categoryID int64, wasAutoSuggested, wasAccepted bool) error {
	pattern := normalizePattern(merchant)
	if pattern == "" {
		return nil
	}

	if err := l.merchants.LockContext(ctx, pattern); err != nil {
		return err
	}
	defer l.merchants.Unlock(pattern)

	rules, err := l.ruleRepo.FindAllByPattern(ctx, pattern)
	if err != nil {
		return err
	}

	var chosen *domain.LearningRule
	for _, rule := range rules {
		if rule.CategoryID == categoryID {
			chosen = rule
			continue
		}
		if wasAutoSuggested && !wasAccepted {
			rule.Confidence = clamp01(rule.Confidence * l.cfg.OverrideDecay)
			if _, err := l.ruleRepo.Update(ctx, rule); err != nil {
				return err
			}
		}
	}

	if chosen == nil {
		_, err := l.ruleRepo.Create(ctx, &domain.LearningRule{
			Pattern:    pattern,
			CategoryID: categoryID,
			Confidence: initialConfidence,
			UsageCount: 1,
		})
		return err
	}

	chosen.Confidence = clamp01(chosen.Confidence + (1-chosen.Confidence)*l.cfg.LearningRate)
	chosen.UsageCount++
	_, err = l.ruleRepo.Update(ctx, chosen)
	return err
}

// Rules returns every learned rule
func (l *CategoryLearner) Rules(ctx context.Context) ([]*domain.LearningRule, error) {
	return l.ruleRepo.GetAll(ctx)
}

// Reset wipes every learned rule, keeping only the seed set
func (l *CategoryLearner) Reset(ctx context.Context) error {
	return l.ruleRepo.DeleteAll(ctx)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
