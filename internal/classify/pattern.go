package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/oskarvik/kontosort/internal/model"
)

// compiledRule holds a rule with its regex alternatives compiled.
type compiledRule struct {
	category     string
	amountFilter AmountFilter
	patterns     []*regexp.Regexp
	confidence   float64
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{
			category:     r.Category,
			confidence:   r.Confidence,
			amountFilter: r.AmountFilter,
			patterns:     make([]*regexp.Regexp, 0, len(r.Patterns)),
		}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("failed to compile pattern %q for category %s: %w", p, r.Category, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

// matchesAmount checks the rule's amount-sign filter.
func (r *compiledRule) matchesAmount(amount float64) bool {
	switch r.amountFilter {
	case AmountPositive:
		return amount > 0
	case AmountNegative:
		return amount < 0
	default:
		return true
	}
}

// PatternClassifier classifies transactions with a fixed set of regex rules.
// It is stateless after construction and a pure function of the input.
type PatternClassifier struct {
	rules []compiledRule
}

// NewPatternClassifier creates a pattern classifier from the given rules.
func NewPatternClassifier(rules []Rule) (*PatternClassifier, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &PatternClassifier{rules: compiled}, nil
}

// Name identifies the classifier in classification_method tags.
func (c *PatternClassifier) Name() string { return "rules" }

// Class reports the classifier class.
func (c *PatternClassifier) Class() model.ClassifierClass { return model.ClassTraditional }

// Classify matches the uppercased description against every rule and returns
// the category of the strictly highest-confidence matching rule. Every rule
// is evaluated; list order does not affect the winner.
func (c *PatternClassifier) Classify(_ context.Context, txn model.Transaction) (Result, error) {
	description := strings.ToUpper(txn.Description)

	var best Result
	for i := range c.rules {
		rule := &c.rules[i]
		if !rule.matchesAmount(txn.Amount) {
			continue
		}
		for _, re := range rule.patterns {
			if re.MatchString(description) {
				if rule.confidence > best.Confidence {
					best = Result{Category: rule.category, Confidence: rule.confidence}
				}
				break
			}
		}
	}

	return best, nil
}
