package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oskarvik/kontosort/internal/classify"
	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/service"
)

const minDescriptionLen = 3

// Classifier sends each transaction to a remote inference service and parses
// the reply into a classification result. All network and parse failures are
// swallowed into an empty result; this strategy never fails a sweep.
type Classifier struct {
	client        Client
	logger        *slog.Logger
	categories    []string
	retryOpts     service.RetryOptions
	timeout       time.Duration
	minConfidence float64
}

// NewClassifier creates an LLM classifier. It probes the inference endpoint
// and returns common.ErrLLMUnavailable when the service is disabled,
// unreachable, or missing the configured model.
func NewClassifier(ctx context.Context, cfg Config, client Client, categories []string, logger *slog.Logger) (*Classifier, error) {
	cfg = cfg.withDefaults()

	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: disabled by configuration", common.ErrLLMUnavailable)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	models, err := client.Models(probeCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLLMUnavailable, err)
	}
	found := false
	for _, name := range models {
		if strings.Contains(name, cfg.Model) {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: model %s not loaded", common.ErrLLMUnavailable, cfg.Model)
	}

	// Exclude the sentinel so the model cannot "classify" into it.
	known := make([]string, 0, len(categories))
	for _, c := range categories {
		if c != model.UncategorizedName {
			known = append(known, c)
		}
	}

	return &Classifier{
		client:        client,
		logger:        logger,
		categories:    known,
		timeout:       cfg.Timeout,
		minConfidence: cfg.MinConfidence,
		retryOpts: service.RetryOptions{
			MaxAttempts:  2, // one retry at most
			InitialDelay: 500 * time.Millisecond,
		},
	}, nil
}

// Name identifies the classifier in classification_method tags.
func (c *Classifier) Name() string { return "remote-llm" }

// Class reports the classifier class.
func (c *Classifier) Class() model.ClassifierClass { return model.ClassLLM }

// Classify builds a prompt for the transaction and parses the reply.
func (c *Classifier) Classify(ctx context.Context, txn model.Transaction) (classify.Result, error) {
	description := strings.TrimSpace(txn.Description)
	if len([]rune(description)) < minDescriptionLen {
		return classify.Result{}, nil
	}

	prompt := c.buildPrompt(description, txn.Amount)

	var reply string
	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var genErr error
		reply, genErr = c.client.Generate(callCtx, prompt)
		return genErr
	}, c.retryOpts)
	if err != nil {
		c.logger.Warn("llm request failed",
			"description", description,
			"error", err)
		return classify.Result{}, nil
	}

	category, confidence, ok := parseClassification(reply, c.categories)
	if !ok {
		c.logger.Debug("llm reply did not parse",
			"description", description,
			"reply", truncate(reply, 120))
		return classify.Result{}, nil
	}

	if confidence < c.minConfidence {
		return classify.Result{}, nil
	}

	return classify.Result{Category: category, Confidence: confidence}, nil
}

// buildPrompt embeds the transaction, the allowed categories, and a few
// worked examples, and demands a JSON-only reply.
func (c *Classifier) buildPrompt(description string, amount float64) string {
	var b strings.Builder
	b.WriteString("Swedish transaction classification:\n\n")
	fmt.Fprintf(&b, "Description: %s\n", description)
	fmt.Fprintf(&b, "Amount: %.0f SEK\n\n", amount)
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(c.categories, ", "))
	b.WriteString("Quick rules: ICA/COOP/Hemköp = Mat, SL = Transport, McDonald's/Pizza = Nöje, Vattenfall/Hyra = Boende\n\n")
	b.WriteString(`Respond only with JSON: {"category": "Mat", "confidence": 0.9}` + "\n\n")
	b.WriteString(`If uncertain: {"category": null, "confidence": 0.0}`)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
