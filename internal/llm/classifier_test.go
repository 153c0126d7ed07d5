package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Enabled:       true,
		Host:          "http://localhost:11434",
		Model:         "phi3:mini",
		Timeout:       time.Second,
		MinConfidence: 0.6,
	}
}

func availableClient(reply string) *MockClient {
	return &MockClient{
		ModelsFunc: func(context.Context) ([]string, error) {
			return []string{"phi3:mini", "llama3:8b"}, nil
		},
		GenerateFunc: func(context.Context, string) (string, error) {
			return reply, nil
		},
	}
}

func testTxn(description string, amount float64) model.Transaction {
	return model.Transaction{Description: description, Amount: amount}
}

func TestNewClassifierDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := NewClassifier(context.Background(), cfg, availableClient(""), knownCategories, discardLogger())
	require.ErrorIs(t, err, common.ErrLLMUnavailable)
}

func TestNewClassifierProbeFailure(t *testing.T) {
	client := &MockClient{
		ModelsFunc: func(context.Context) ([]string, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.ErrorIs(t, err, common.ErrLLMUnavailable)
}

func TestNewClassifierModelMissing(t *testing.T) {
	client := &MockClient{
		ModelsFunc: func(context.Context) ([]string, error) {
			return []string{"llama3:8b"}, nil
		},
	}

	_, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.ErrorIs(t, err, common.ErrLLMUnavailable)
}

func TestClassifierHappyPath(t *testing.T) {
	client := availableClient(`{"category": "Mat", "confidence": 0.85}`)

	classifier, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTxn("ICA KVANTUM", -300))
	require.NoError(t, err)
	assert.Equal(t, "Mat", result.Category)
	assert.InDelta(t, 0.85, result.Confidence, 0.001)
	assert.Equal(t, 1, client.GenerateCalls())
}

func TestClassifierPromptContents(t *testing.T) {
	client := availableClient(`{"category": "Mat", "confidence": 0.85}`)

	classifier, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.NoError(t, err)

	_, err = classifier.Classify(context.Background(), testTxn("ICA KVANTUM", -300))
	require.NoError(t, err)

	prompts := client.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "ICA KVANTUM")
	assert.Contains(t, prompts[0], "-300 SEK")
	assert.Contains(t, prompts[0], "Mat, Transport")
}

func TestClassifierBelowMinConfidence(t *testing.T) {
	client := availableClient(`{"category": "Mat", "confidence": 0.3}`)

	classifier, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTxn("ICA KVANTUM", -300))
	require.NoError(t, err)
	assert.False(t, result.Matched())
}

func TestClassifierGenerateFailureIsSwallowed(t *testing.T) {
	client := availableClient("")
	client.GenerateFunc = func(context.Context, string) (string, error) {
		return "", errors.New("timeout")
	}

	classifier, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTxn("ICA KVANTUM", -300))
	require.NoError(t, err, "network failures must not propagate")
	assert.False(t, result.Matched())
	assert.Equal(t, 2, client.GenerateCalls(), "one retry after the first failure")
}

func TestClassifierRetriesOnce(t *testing.T) {
	calls := 0
	client := availableClient("")
	client.GenerateFunc = func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return `{"category": "Transport", "confidence": 0.9}`, nil
	}

	classifier, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTxn("SL ACCESS", -44))
	require.NoError(t, err)
	assert.Equal(t, "Transport", result.Category)
	assert.Equal(t, 2, calls)
}

func TestClassifierShortDescription(t *testing.T) {
	client := availableClient(`{"category": "Mat", "confidence": 0.85}`)

	classifier, err := NewClassifier(context.Background(), testConfig(), client, knownCategories, discardLogger())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTxn("AB", -300))
	require.NoError(t, err)
	assert.False(t, result.Matched())
	assert.Zero(t, client.GenerateCalls())
}

func TestClassifierExcludesUncategorizedSentinel(t *testing.T) {
	client := availableClient(`{"category": "Uncategorized", "confidence": 0.9}`)

	categories := append([]string{model.UncategorizedName}, knownCategories...)
	classifier, err := NewClassifier(context.Background(), testConfig(), client, categories, discardLogger())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTxn("MYSTERY SHOP", -300))
	require.NoError(t, err)
	assert.False(t, result.Matched())
}
