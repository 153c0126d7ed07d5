package classify

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/service"
)

// wordRe extracts the tokens profiles are built from: runs of at least three
// uppercase letters, Swedish characters included. Input is uppercased first.
var wordRe = regexp.MustCompile(`[A-ZÅÄÖ]{3,}`)

const (
	learnedWordWeight   = 0.7
	learnedAmountWeight = 0.3
	learnedMinScore     = 0.4
	learnedMaxScore     = 0.95
	profileTopWords     = 10
)

// categoryProfile is the word and amount fingerprint of one category, derived
// from its already-classified transactions.
type categoryProfile struct {
	words     map[string]struct{}
	wordCount int
	meanAmt   float64
	stddevAmt float64
	samples   int
}

// LearnedClassifier scores transactions against per-category profiles built
// from the classified record set. Profiles are an immutable snapshot; call
// Rebuild to pick up records classified since construction.
type LearnedClassifier struct {
	repo     service.TransactionRepository
	profiles map[string]categoryProfile
	mu       sync.RWMutex
}

// NewLearnedClassifier builds profiles from the current classified set.
func NewLearnedClassifier(ctx context.Context, repo service.TransactionRepository) (*LearnedClassifier, error) {
	c := &LearnedClassifier{repo: repo}
	if err := c.Rebuild(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Rebuild re-queries the classified record set and re-derives every profile.
func (c *LearnedClassifier) Rebuild(ctx context.Context) error {
	classified, err := c.repo.GetClassifiedForPatterns(ctx)
	if err != nil {
		return fmt.Errorf("failed to load classified transactions: %w", err)
	}

	type accumulator struct {
		wordFreq map[string]int
		amounts  []float64
	}
	byCategory := make(map[string]*accumulator)

	for _, tx := range classified {
		acc, ok := byCategory[tx.Category]
		if !ok {
			acc = &accumulator{wordFreq: make(map[string]int)}
			byCategory[tx.Category] = acc
		}
		acc.amounts = append(acc.amounts, tx.Amount)
		for _, w := range wordRe.FindAllString(strings.ToUpper(tx.Description), -1) {
			acc.wordFreq[w]++
		}
	}

	profiles := make(map[string]categoryProfile, len(byCategory))
	for category, acc := range byCategory {
		words := topWords(acc.wordFreq, profileTopWords)
		profiles[category] = categoryProfile{
			words:     words,
			wordCount: len(words),
			meanAmt:   mean(acc.amounts),
			stddevAmt: stddev(acc.amounts),
			samples:   len(acc.amounts),
		}
	}

	c.mu.Lock()
	c.profiles = profiles
	c.mu.Unlock()
	return nil
}

// topWords keeps the n most frequent words that occur more than once.
func topWords(freq map[string]int, n int) map[string]struct{} {
	type wf struct {
		word  string
		count int
	}
	ranked := make([]wf, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, wf{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	words := make(map[string]struct{})
	for _, r := range ranked {
		if r.count > 1 {
			words[r.word] = struct{}{}
		}
	}
	return words
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation, zero for fewer than two samples.
func stddev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// Name identifies the classifier in classification_method tags.
func (c *LearnedClassifier) Name() string { return "learning" }

// Class reports the classifier class.
func (c *LearnedClassifier) Class() model.ClassifierClass { return model.ClassTraditional }

// Classify scores the transaction against every category profile and returns
// the best-scoring category when it clears the minimum score. Confidence is
// capped at 0.95: learned profiles never beat an exact rule match.
func (c *LearnedClassifier) Classify(_ context.Context, txn model.Transaction) (Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.profiles) == 0 {
		return Result{}, nil
	}

	words := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToUpper(txn.Description), -1) {
		words[w] = struct{}{}
	}

	var best Result
	for category, profile := range c.profiles {
		score := 0.0

		if profile.wordCount > 0 {
			matches := 0
			for w := range words {
				if _, ok := profile.words[w]; ok {
					matches++
				}
			}
			score += float64(matches) / float64(profile.wordCount) * learnedWordWeight
		}

		if profile.stddevAmt > 0 {
			diff := math.Abs(txn.Amount - profile.meanAmt)
			amtScore := math.Max(0, 1-diff/(profile.stddevAmt*2))
			score += amtScore * learnedAmountWeight
		}

		// Small boost for categories with more training data.
		score += math.Min(0.1, float64(profile.samples)/100)

		if score > best.Confidence {
			best = Result{Category: category, Confidence: score}
		}
	}

	if best.Confidence > learnedMinScore {
		best.Confidence = math.Min(best.Confidence, learnedMaxScore)
		return best, nil
	}
	return Result{}, nil
}
