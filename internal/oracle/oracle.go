// Package oracle provides the category oracles behind categorize.Oracle:
// hosted completion models and an offline classifier trained on history.
package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/spendlens/internal/categorize"
	"github.com/cleared-dev/spendlens/internal/model"
)

// Provider names accepted by New.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderBayes     = "bayes"
)

// Settings select and configure a provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
}

// ErrMissingAPIKey is returned when a hosted provider has no key.
var ErrMissingAPIKey = errors.New("missing API key")

// New builds the oracle named by s.Provider. history is only used by the
// offline provider.
func New(s Settings, history []model.Transaction) (categorize.Oracle, error) {
	switch strings.ToLower(s.Provider) {
	case ProviderGemini:
		return NewGemini(s)
	case ProviderAnthropic:
		return NewAnthropic(s)
	case ProviderBayes:
		return NewBayes(history)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", s.Provider)
	}
}

// DecodeResponse extracts the assignments object from model output that may
// be wrapped in markdown fences or surrounded by prose.
func DecodeResponse(raw string) (*categorize.Response, error) {
	text := cleanModelJSON(raw)
	if text == "" {
		return nil, errors.New("empty response from model")
	}

	var envelope struct {
		Assignments *[]categorize.Assignment `json:"assignments"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("decoding model JSON: %w", err)
	}
	if envelope.Assignments == nil {
		return nil, errors.New("model response has no assignments array")
	}
	return &categorize.Response{Assignments: *envelope.Assignments}, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Keep only the outermost object if there is prose around it.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// responseFormat is appended to the system prompt for providers without a
// native response schema.
const responseFormat = `Respond with JSON only, no prose, matching: ` +
	`{"assignments":[{"transaction_id":string,"category_path":string,"confidence":number between 0 and 1}]}. ` +
	`All three fields are required for every assignment.`
