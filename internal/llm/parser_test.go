package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownCategories = []string{"Mat", "Transport", "Nöje", "Boende"}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantOK  bool
	}{
		{
			name:   "pure json",
			input:  `{"category": "Mat", "confidence": 0.9}`,
			want:   `{"category": "Mat", "confidence": 0.9}`,
			wantOK: true,
		},
		{
			name:   "json wrapped in prose",
			input:  "Sure! Here is the answer: {\"category\": \"Mat\", \"confidence\": 0.9} Hope that helps.",
			want:   `{"category": "Mat", "confidence": 0.9}`,
			wantOK: true,
		},
		{
			name:   "nested braces",
			input:  `{"outer": {"inner": 1}, "confidence": 0.5}`,
			want:   `{"outer": {"inner": 1}, "confidence": 0.5}`,
			wantOK: true,
		},
		{
			name:   "brace inside string literal",
			input:  `{"category": "Mat }", "confidence": 0.9}`,
			want:   `{"category": "Mat }", "confidence": 0.9}`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			input:  `{"category": "Ma\"t", "confidence": 0.9}`,
			want:   `{"category": "Ma\"t", "confidence": 0.9}`,
			wantOK: true,
		},
		{
			name:   "no braces",
			input:  "the category is Mat",
			wantOK: false,
		},
		{
			name:   "unbalanced",
			input:  `{"category": "Mat"`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name           string
		reply          string
		wantCategory   string
		wantConfidence float64
		wantOK         bool
	}{
		{
			name:           "structured reply",
			reply:          `{"category": "Mat", "confidence": 0.85}`,
			wantCategory:   "Mat",
			wantConfidence: 0.85,
			wantOK:         true,
		},
		{
			name:           "confidence above one is clamped",
			reply:          `{"category": "Transport", "confidence": 1.7}`,
			wantCategory:   "Transport",
			wantConfidence: 1.0,
			wantOK:         true,
		},
		{
			name:           "negative confidence is clamped",
			reply:          `{"category": "Transport", "confidence": -0.2}`,
			wantCategory:   "Transport",
			wantConfidence: 0.0,
			wantOK:         true,
		},
		{
			name:   "unknown category rejected, no fallback hit",
			reply:  `{"category": "Krypto", "confidence": 0.9}`,
			wantOK: false,
		},
		{
			name:   "null category means uncertain",
			reply:  `{"category": null, "confidence": 0.0}`,
			wantOK: false,
		},
		{
			name:           "prose fallback finds category name",
			reply:          "I think this is groceries, so Mat.",
			wantCategory:   "Mat",
			wantConfidence: fallbackConfidence,
			wantOK:         true,
		},
		{
			name:           "fallback is case insensitive",
			reply:          "definitely TRANSPORT related",
			wantCategory:   "Transport",
			wantConfidence: fallbackConfidence,
			wantOK:         true,
		},
		{
			name:   "nothing usable",
			reply:  "I cannot classify this.",
			wantOK: false,
		},
		{
			name:           "invalid json falls back to text scan",
			reply:          `{"category": Mat, "confidence":} ... the Mat category`,
			wantCategory:   "Mat",
			wantConfidence: fallbackConfidence,
			wantOK:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, confidence, ok := parseClassification(tt.reply, knownCategories)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCategory, category)
				assert.InDelta(t, tt.wantConfidence, confidence, 0.001)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-5))
	assert.Equal(t, 1.0, clamp01(5))
	assert.Equal(t, 0.5, clamp01(0.5))
}
