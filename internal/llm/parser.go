package llm

import (
	"encoding/json"
	"strings"
)

// classificationReply is the JSON shape the prompt asks the model to return.
type classificationReply struct {
	Category   *string `json:"category"`
	Confidence float64 `json:"confidence"`
}

// fallbackConfidence is assigned when structured parsing fails but a known
// category name appears in the raw reply text.
const fallbackConfidence = 0.75

// extractJSONObject returns the first balanced {...} span in s. Models often
// wrap the JSON in prose or markdown fences; brace counting is more robust
// than trusting the reply to be pure JSON.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// parseClassification decodes a model reply into (category, confidence).
// Categories outside the known set are rejected; confidence is clamped to
// [0, 1]. When structured parsing fails, the raw text is scanned for a known
// category name at a fixed fallback confidence.
func parseClassification(reply string, categories []string) (string, float64, bool) {
	if span, ok := extractJSONObject(reply); ok {
		var parsed classificationReply
		if err := json.Unmarshal([]byte(span), &parsed); err == nil && parsed.Category != nil {
			category := strings.TrimSpace(*parsed.Category)
			if knownCategory(category, categories) {
				return category, clamp01(parsed.Confidence), true
			}
		}
	}

	// Fallback: scan the raw text for a category name.
	upper := strings.ToUpper(reply)
	for _, category := range categories {
		if strings.Contains(upper, strings.ToUpper(category)) {
			return category, fallbackConfidence, true
		}
	}

	return "", 0, false
}

func knownCategory(name string, categories []string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
