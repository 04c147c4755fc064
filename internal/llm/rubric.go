// ABOUTME: Rubric-driven LLM category classifier used as the low-confidence fallback
// ABOUTME: Expects {category, confidence, reason} and maps coarse confidence to fixed buckets
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/feedback-radar/internal/textnorm"
)

// ErrUnknownCategory is returned when the model answers outside the rubric.
var ErrUnknownCategory = errors.New("category not in rubric")

// Confidence buckets for coarse LLM answers.
const (
	ConfidenceHigh   = 0.9
	ConfidenceMedium = 0.7
	ConfidenceLow    = 0.5
)

// DefaultMaxChars bounds the item text sent with each call.
const DefaultMaxChars = 500

// Category is one rubric entry.
type Category struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Verdict is a parsed fallback answer.
type Verdict struct {
	Category   string
	Confidence float64
	Reason     string
}

type rubricResponse struct {
	Category   string          `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
	Reason     string          `json:"reason"`
}

// RubricClassifier asks an LLM to pick one category from a fixed rubric.
type RubricClassifier struct {
	completer  Completer
	categories []Category
	system     string
	maxChars   int
}

// NewRubricClassifier builds the fixed system prompt once.
func NewRubricClassifier(completer Completer, categories []Category) (*RubricClassifier, error) {
	if completer == nil {
		return nil, ErrNoLLM
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("rubric must list at least one category")
	}

	var b strings.Builder
	b.WriteString("You classify customer feedback written to financial content creators (\"masters\") and their communities.\n")
	b.WriteString("Choose exactly one category from this list:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	b.WriteString("\nRespond with ONLY a JSON object, no other text:\n")
	b.WriteString(`{"category": "<one name from the list>", "confidence": "high|medium|low", "reason": "<one short sentence>"}`)

	return &RubricClassifier{
		completer:  completer,
		categories: categories,
		system:     b.String(),
		maxChars:   DefaultMaxChars,
	}, nil
}

// Classify returns the model's verdict. Malformed or out-of-rubric answers
// are errors; the caller decides how to degrade.
func (r *RubricClassifier) Classify(ctx context.Context, text string) (*Verdict, error) {
	resp, err := r.completer.Complete(ctx, CompletionRequest{
		System:      r.system,
		User:        textnorm.Truncate(text, r.maxChars),
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := ParseJSON[rubricResponse](resp.Text)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(parsed.Category)
	if !r.known(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}

	return &Verdict{
		Category:   name,
		Confidence: BucketConfidence(parsed.Confidence),
		Reason:     parsed.Reason,
	}, nil
}

func (r *RubricClassifier) known(name string) bool {
	for _, c := range r.categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// BucketConfidence maps a coarse label or a number to a fixed bucket.
func BucketConfidence(raw json.RawMessage) float64 {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		switch {
		case num >= 0.8:
			return ConfidenceHigh
		case num >= 0.5:
			return ConfidenceMedium
		default:
			return ConfidenceLow
		}
	}

	var label string
	_ = json.Unmarshal(raw, &label)
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high", "높음":
		return ConfidenceHigh
	case "medium", "중간":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
