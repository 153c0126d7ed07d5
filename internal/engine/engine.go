// Package engine combines the classification strategies into an orchestrator
// that produces ranked suggestions and runs bulk sweeps over uncategorized
// transactions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/oskarvik/kontosort/internal/classify"
	"github.com/oskarvik/kontosort/internal/llm"
	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/service"
)

const (
	defaultLLMGate         = 0.4
	defaultTraditionalGate = 0.6

	// reviewFloor is the minimum top-suggestion confidence for a record to
	// enter the review queue instead of being left untouched.
	reviewFloor = 0.4

	reviewTopN = 3
)

// Config tunes the orchestrator. Zero-value gates fall back to the defaults.
type Config struct {
	// LLMPriority places LLM-backed strategies ahead of the traditional
	// ones; when false the order is reversed.
	LLMPriority bool

	// LLMMinConfidence and TraditionalMinConfidence are the per-class
	// admission gates, compared strictly (a suggestion must exceed them).
	LLMMinConfidence         float64
	TraditionalMinConfidence float64

	// RelearnInterval rebuilds the learned profiles every N applied records
	// during a sweep. 0 disables mid-sweep rebuilds.
	RelearnInterval int
}

func (c Config) withDefaults() Config {
	if c.LLMMinConfidence <= 0 {
		c.LLMMinConfidence = defaultLLMGate
	}
	if c.TraditionalMinConfidence <= 0 {
		c.TraditionalMinConfidence = defaultTraditionalGate
	}
	return c
}

// Orchestrator owns an ordered list of classification strategies and merges
// their answers into deduplicated, ranked suggestion lists.
type Orchestrator struct {
	repo       service.TransactionRepository
	strategies []classify.Strategy
	learned    *classify.LearnedClassifier
	cfg        Config
	logger     *slog.Logger
}

// NewOrchestrator builds the strategy list. Strategy construction failures
// are logged and skipped, never fatal: a sweep with only pattern rules is
// still a useful sweep.
func NewOrchestrator(ctx context.Context, repo service.TransactionRepository, llmCfg llm.Config, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	categories, err := repo.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	pattern, err := classify.NewPatternClassifier(classify.DefaultRules())
	if err != nil {
		return nil, fmt.Errorf("building pattern classifier: %w", err)
	}

	traditional := []classify.Strategy{pattern}

	learned, err := classify.NewLearnedClassifier(ctx, repo)
	if err != nil {
		logger.Warn("learned classifier unavailable, skipping", "error", err)
		learned = nil
	} else {
		traditional = append(traditional, learned)
	}

	var remote classify.Strategy
	if llmCfg.Enabled {
		cached, cacheErr := llm.NewCachedClassifier(ctx, llmCfg, llm.NewOllamaClient(llmCfg), categories, logger)
		if cacheErr != nil {
			logger.Warn("llm classifier unavailable, continuing without it", "error", cacheErr)
		} else {
			remote = cached
		}
	}

	var llmGroup []classify.Strategy
	if hybrid, hybridErr := classify.NewHybridClassifier(pattern, remote, categories, logger); hybridErr != nil {
		logger.Warn("hybrid classifier unavailable, skipping", "error", hybridErr)
		if remote != nil {
			llmGroup = append(llmGroup, remote)
		}
	} else {
		llmGroup = append(llmGroup, hybrid)
	}

	var strategies []classify.Strategy
	if cfg.LLMPriority {
		strategies = append(append(strategies, llmGroup...), traditional...)
	} else {
		strategies = append(append(strategies, traditional...), llmGroup...)
	}

	return &Orchestrator{
		repo:       repo,
		strategies: strategies,
		learned:    learned,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}, nil
}

// Strategies returns the names of the active strategies in evaluation order.
func (o *Orchestrator) Strategies() []string {
	names := make([]string, 0, len(o.strategies))
	for _, s := range o.strategies {
		names = append(names, s.Name())
	}
	return names
}

// ClassifyTransaction runs every strategy and returns the merged suggestion
// list: LLM-backed suggestions first, each group sorted by descending
// confidence, at most one suggestion per category.
func (o *Orchestrator) ClassifyTransaction(ctx context.Context, txn model.Transaction) ([]model.Suggestion, error) {
	var llmGroup, tradGroup []model.Suggestion

	for _, strategy := range o.strategies {
		result, err := strategy.Classify(ctx, txn)
		if err != nil {
			o.logger.Warn("strategy failed",
				"strategy", strategy.Name(),
				"description", txn.Description,
				"error", err)
			continue
		}
		if !result.Matched() {
			continue
		}

		suggestion := model.Suggestion{
			Category:   result.Category,
			Classifier: strategy.Name(),
			Class:      strategy.Class(),
			Confidence: result.Confidence,
		}

		switch strategy.Class() {
		case model.ClassLLM:
			if result.Confidence > o.cfg.LLMMinConfidence {
				llmGroup = append(llmGroup, suggestion)
			}
		default:
			if result.Confidence > o.cfg.TraditionalMinConfidence {
				tradGroup = append(tradGroup, suggestion)
			}
		}
	}

	sortByConfidence(llmGroup)
	sortByConfidence(tradGroup)

	merged := append(llmGroup, tradGroup...)

	seen := make(map[string]struct{}, len(merged))
	deduped := merged[:0]
	for _, s := range merged {
		if _, ok := seen[s.Category]; ok {
			continue
		}
		seen[s.Category] = struct{}{}
		deduped = append(deduped, s)
	}

	return deduped, nil
}

// AutoClassifyUncategorized sweeps up to maxRecords uncategorized
// transactions. Records whose top suggestion reaches threshold are applied;
// records with a plausible but unconvincing top suggestion go to the review
// queue; the rest are left untouched. A failure on one record is logged and
// skipped, never aborts the sweep.
func (o *Orchestrator) AutoClassifyUncategorized(ctx context.Context, threshold float64, maxRecords int, progress service.ProgressFunc) (int, []model.ReviewItem, error) {
	records, err := o.repo.GetUncategorized(ctx, maxRecords, 0)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching uncategorized transactions: %w", err)
	}

	applied := 0
	var review []model.ReviewItem

	for i, txn := range records {
		suggestions, classifyErr := o.ClassifyTransaction(ctx, txn)
		if classifyErr != nil {
			o.logger.Warn("classification failed for transaction",
				"id", txn.ID,
				"description", txn.Description,
				"error", classifyErr)
		} else if len(suggestions) > 0 {
			top := suggestions[0]
			switch {
			case top.Confidence >= threshold:
				if applyErr := o.repo.ReclassifyTransaction(ctx, txn.ID, top.Category, top.Confidence, top.Classifier); applyErr != nil {
					o.logger.Warn("failed to apply classification",
						"id", txn.ID,
						"category", top.Category,
						"error", applyErr)
					break
				}
				applied++
				o.maybeRelearn(ctx, applied)
			case top.Confidence >= reviewFloor:
				review = append(review, model.ReviewItem{
					TransactionID: txn.ID,
					Description:   txn.Description,
					Amount:        txn.Amount,
					Date:          txn.Date,
					Suggestions:   topSuggestions(suggestions, reviewTopN),
				})
			}
		}

		if progress != nil {
			progress(i+1, len(records), txn.Description)
		}
	}

	return applied, review, nil
}

// maybeRelearn rebuilds the learned profiles every RelearnInterval applied
// records so a long sweep benefits from its own early assignments.
func (o *Orchestrator) maybeRelearn(ctx context.Context, applied int) {
	if o.cfg.RelearnInterval <= 0 || o.learned == nil {
		return
	}
	if applied%o.cfg.RelearnInterval != 0 {
		return
	}
	if err := o.learned.Rebuild(ctx); err != nil {
		o.logger.Warn("mid-sweep relearn failed", "error", err)
	}
}

func sortByConfidence(suggestions []model.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
}

func topSuggestions(suggestions []model.Suggestion, n int) []model.Suggestion {
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return append([]model.Suggestion(nil), suggestions...)
}
