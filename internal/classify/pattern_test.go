package classify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskarvik/kontosort/internal/model"
)

func testTransaction(description string, amount float64) model.Transaction {
	return model.Transaction{
		Description: description,
		Amount:      amount,
		Date:        time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestPatternClassifier(t *testing.T) {
	classifier, err := NewPatternClassifier(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		name           string
		description    string
		wantCategory   string
		amount         float64
		wantConfidence float64
	}{
		{
			name:           "grocery store",
			description:    "ICA SUPERMARKET STOCKHOLM",
			amount:         -450.50,
			wantCategory:   "Mat",
			wantConfidence: 0.95,
		},
		{
			name:           "systembolaget",
			description:    "SYSTEMBOLAGET SÖDERMALM",
			amount:         -320.00,
			wantCategory:   "Mat",
			wantConfidence: 0.95,
		},
		{
			name:           "public transit",
			description:    "SL ACCESS PENDELTÅG",
			amount:         -44.00,
			wantCategory:   "Transport",
			wantConfidence: 0.9,
		},
		{
			name:           "fuel station",
			description:    "OKQ8 HUDDINGE",
			amount:         -612.30,
			wantCategory:   "Transport",
			wantConfidence: 0.85,
		},
		{
			name:           "parking",
			description:    "APCOA PARKERING GARAGE",
			amount:         -35.00,
			wantCategory:   "Transport",
			wantConfidence: 0.8,
		},
		{
			name:           "pharmacy",
			description:    "APOTEKET HJÄRTAT",
			amount:         -189.00,
			wantCategory:   "Hälsa",
			wantConfidence: 0.9,
		},
		{
			name:           "restaurant",
			description:    "RESTAURANG PELIKAN",
			amount:         -780.00,
			wantCategory:   "Nöje",
			wantConfidence: 0.8,
		},
		{
			name:           "cinema",
			description:    "FILMSTADEN SERGEL",
			amount:         -145.00,
			wantCategory:   "Nöje",
			wantConfidence: 0.9,
		},
		{
			name:           "rent",
			description:    "HYRA AUGUSTI BOSTADSRÄTT",
			amount:         -8900.00,
			wantCategory:   "Boende",
			wantConfidence: 0.85,
		},
		{
			name:           "salary is income",
			description:    "LÖN AUGUSTI",
			amount:         28000.00,
			wantCategory:   "Inkomst",
			wantConfidence: 0.95,
		},
		{
			name:         "salary pattern with negative amount is skipped",
			description:  "LÖN AUGUSTI",
			amount:       -28000.00,
			wantCategory: "",
		},
		{
			name:         "unknown merchant",
			description:  "OKÄND BUTIK 123",
			amount:       -100.00,
			wantCategory: "",
		},
		{
			name:           "lowercase input is folded",
			description:    "ica nära hornstull",
			amount:         -89.50,
			wantCategory:   "Mat",
			wantConfidence: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classifier.Classify(context.Background(), testTransaction(tt.description, tt.amount))
			require.NoError(t, err)

			if tt.wantCategory == "" {
				assert.False(t, result.Matched(), "expected no classification, got %+v", result)
				return
			}
			assert.Equal(t, tt.wantCategory, result.Category)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 0.001)
		})
	}
}

func TestPatternClassifierDeterminism(t *testing.T) {
	classifier, err := NewPatternClassifier(DefaultRules())
	require.NoError(t, err)

	txn := testTransaction("COOP KONSUM VASASTAN", -230.00)
	first, err := classifier.Classify(context.Background(), txn)
	require.NoError(t, err)
	second, err := classifier.Classify(context.Background(), txn)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPatternClassifierConfidenceBounds(t *testing.T) {
	classifier, err := NewPatternClassifier(DefaultRules())
	require.NoError(t, err)

	descriptions := []string{
		"ICA MAXI", "SL", "SHELL 7-ELEVEN", "APOTEK", "RESTAURANG",
		"VATTENFALL AB", "LÖN", "PENSION SEPTEMBER", "RANDOM TEXT",
	}
	for _, desc := range descriptions {
		for _, amount := range []float64{-500, 500} {
			result, err := classifier.Classify(context.Background(), testTransaction(desc, amount))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.Confidence, 0.0)
			assert.LessOrEqual(t, result.Confidence, 1.0)
		}
	}
}

func TestPatternClassifierHighestConfidenceWins(t *testing.T) {
	// A description matching both the 0.85 fuel rule and the 0.8 parking rule
	// must resolve to the higher-confidence rule regardless of list order.
	classifier, err := NewPatternClassifier(DefaultRules())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), testTransaction("SHELL PARKERING", -50))
	require.NoError(t, err)
	assert.Equal(t, "Transport", result.Category)
	assert.InDelta(t, 0.85, result.Confidence, 0.001)
}

func TestCompileRulesRejectsBadPattern(t *testing.T) {
	_, err := NewPatternClassifier([]Rule{{
		Category:   "Mat",
		Patterns:   []string{`[`},
		Confidence: 0.9,
	}})
	require.Error(t, err)
}
