package classify

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/oskarvik/kontosort/internal/metrics"
	"github.com/oskarvik/kontosort/internal/model"
)

const (
	instantAcceptConfidence = 0.85
	ruleAcceptConfidence    = 0.8
	llmEscalateBelow        = 0.7
	llmPreferFloor          = 0.6
	minDescriptionLen       = 3
	maxSimpleTokens         = 4
)

// ambiguousTerms are payment-app and generic purchase markers that pattern
// rules cannot disambiguate; their presence escalates to the LLM.
var ambiguousTerms = []string{"BETALNING", "KÖPT", "SWISH", "KORT", "ONLINE"}

// HybridStats is a snapshot of the hybrid classifier's routing counters.
type HybridStats struct {
	TotalCalls  int64
	InstantHits int64
	RuleHits    int64
	LLMCalls    int64
}

// HybridClassifier routes each transaction through three tiers: an instant
// high-precision pattern table, the rule classifier, and finally the LLM for
// cases the first two tiers cannot settle confidently.
type HybridClassifier struct {
	instant    []compiledRule
	rules      *PatternClassifier
	llm        Strategy // nil when no LLM classifier is available
	categories map[string]struct{}
	logger     *slog.Logger

	totalCalls  atomic.Int64
	instantHits atomic.Int64
	ruleHits    atomic.Int64
	llmCalls    atomic.Int64
}

// NewHybridClassifier creates a hybrid classifier. llm may be nil, in which
// case tier 3 is skipped entirely. knownCategories gates the instant table:
// a pattern whose category does not exist locally never fires.
func NewHybridClassifier(rules *PatternClassifier, llm Strategy, knownCategories []string, logger *slog.Logger) (*HybridClassifier, error) {
	instant, err := compileRules(InstantRules())
	if err != nil {
		return nil, err
	}

	categories := make(map[string]struct{}, len(knownCategories))
	for _, c := range knownCategories {
		categories[c] = struct{}{}
	}

	return &HybridClassifier{
		instant:    instant,
		rules:      rules,
		llm:        llm,
		categories: categories,
		logger:     logger,
	}, nil
}

// Name identifies the classifier in classification_method tags.
func (c *HybridClassifier) Name() string { return "hybrid-llm" }

// Class reports the classifier class.
func (c *HybridClassifier) Class() model.ClassifierClass { return model.ClassLLM }

// Stats returns a snapshot of the routing counters.
func (c *HybridClassifier) Stats() HybridStats {
	return HybridStats{
		TotalCalls:  c.totalCalls.Load(),
		InstantHits: c.instantHits.Load(),
		RuleHits:    c.ruleHits.Load(),
		LLMCalls:    c.llmCalls.Load(),
	}
}

// Classify evaluates the three tiers in order, short-circuiting on the first
// qualifying result.
func (c *HybridClassifier) Classify(ctx context.Context, txn model.Transaction) (Result, error) {
	c.totalCalls.Add(1)

	description := strings.TrimSpace(txn.Description)
	if len([]rune(description)) < minDescriptionLen {
		return Result{}, nil
	}

	// Tier 1: instant pattern table.
	if instant := c.classifyInstant(description); instant.Confidence >= instantAcceptConfidence {
		c.instantHits.Add(1)
		metrics.InstantHits.Inc()
		return instant, nil
	}

	// Tier 2: rule classifier.
	ruleResult, err := c.rules.Classify(ctx, txn)
	if err != nil {
		return Result{}, err
	}
	if ruleResult.Matched() && ruleResult.Confidence >= ruleAcceptConfidence {
		c.ruleHits.Add(1)
		metrics.RuleHits.Inc()
		return ruleResult, nil
	}

	// Tier 3: LLM, only for cases worth the round trip.
	if c.llm != nil && c.shouldUseLLM(description, ruleResult.Confidence) {
		c.llmCalls.Add(1)
		metrics.LLMCalls.Inc()

		llmResult, llmErr := c.llm.Classify(ctx, txn)
		if llmErr != nil {
			c.logger.Warn("llm classification failed, falling back to rules",
				"description", description,
				"error", llmErr)
		} else if llmResult.Matched() && llmResult.Confidence > maxFloat(ruleResult.Confidence, llmPreferFloor) {
			return llmResult, nil
		}
	}

	if ruleResult.Matched() {
		c.ruleHits.Add(1)
		metrics.RuleHits.Inc()
		return ruleResult, nil
	}

	return Result{}, nil
}

// classifyInstant matches against the expanded instant table, skipping rules
// whose category is unknown locally.
func (c *HybridClassifier) classifyInstant(description string) Result {
	upper := strings.ToUpper(description)

	var best Result
	for i := range c.instant {
		rule := &c.instant[i]
		if _, ok := c.categories[rule.category]; !ok {
			continue
		}
		for _, re := range rule.patterns {
			if re.MatchString(upper) {
				if rule.confidence > best.Confidence {
					best = Result{Category: rule.category, Confidence: rule.confidence}
				}
				break
			}
		}
	}
	return best
}

// shouldUseLLM gates tier 3: escalate when the rules were unsure, when the
// description is long, or when it contains a known-ambiguous term.
func (c *HybridClassifier) shouldUseLLM(description string, ruleConfidence float64) bool {
	if ruleConfidence < llmEscalateBelow {
		return true
	}
	if len(strings.Fields(description)) > maxSimpleTokens {
		return true
	}
	upper := strings.ToUpper(description)
	for _, term := range ambiguousTerms {
		if strings.Contains(upper, term) {
			return true
		}
	}
	return false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
