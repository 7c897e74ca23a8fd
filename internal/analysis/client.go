// Package analysis evaluates scraped articles with an LLM. A small client
// interface keeps providers swappable; the analyzer asks for a strict JSON
// verdict and persists it to the article store.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// LLMClient defines the interface for LLM providers.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Verdict is the structured evaluation the model must return.
type Verdict struct {
	Evaluation string  `json:"evaluation"` // positive, negative, neutral
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"` // 0..1
}

// ParseVerdict decodes the model's JSON reply. Markdown code fences around
// the JSON are tolerated; anything else is an error.
func ParseVerdict(raw string) (*Verdict, error) {
	cleaned := stripCodeFence(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("failed to parse verdict %q: %w", truncate(raw, 200), err)
	}
	if v.Evaluation == "" {
		return nil, fmt.Errorf("verdict missing evaluation field")
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return nil, fmt.Errorf("verdict confidence %v out of range", v.Confidence)
	}
	return &v, nil
}

// stripCodeFence unwraps ```json ... ``` style fences.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
