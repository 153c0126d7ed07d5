// Package classify provides the classification strategies that propose budget
// categories for financial transactions.
package classify

import (
	"context"

	"github.com/oskarvik/kontosort/internal/model"
)

// Result is one strategy's answer for one transaction. A zero Result (empty
// category) means the strategy found no classification; errors are reserved
// for genuine I/O failures.
type Result struct {
	Category   string
	Confidence float64
}

// Matched reports whether the strategy proposed a category.
func (r Result) Matched() bool {
	return r.Category != ""
}

// Strategy is one classification algorithm. Implementations never mutate the
// transaction and must return confidence in [0, 1].
type Strategy interface {
	// Name identifies the strategy in logs and classification_method tags.
	Name() string

	// Class reports whether the strategy is LLM-backed or traditional.
	Class() model.ClassifierClass

	// Classify proposes a category for the transaction, or a zero Result
	// when it has none to offer.
	Classify(ctx context.Context, txn model.Transaction) (Result, error)
}
