package model

import "time"

// ClassifierClass distinguishes LLM-backed classifiers from traditional ones.
// The orchestrator applies different confidence floors and priority per class.
type ClassifierClass string

// Classifier class constants.
const (
	ClassLLM         ClassifierClass = "llm"
	ClassTraditional ClassifierClass = "traditional"
)

// Suggestion is a candidate (category, confidence) pairing proposed by one
// classifier for one transaction. Confidence is always in [0, 1].
type Suggestion struct {
	Category   string
	Classifier string
	Class      ClassifierClass
	Confidence float64
}

// ReviewItem is a transaction the sweep could not auto-classify with enough
// confidence, queued for manual review together with its top suggestions.
type ReviewItem struct {
	Date          time.Time
	Description   string
	Suggestions   []Suggestion
	Amount        float64
	TransactionID int64
}
