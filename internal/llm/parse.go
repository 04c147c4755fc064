// ABOUTME: Tolerant JSON extraction from LLM responses
// ABOUTME: Strips code fences and doubled braces before unmarshaling a single object
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks a response that could not be parsed as JSON.
var ErrMalformedResponse = errors.New("malformed LLM response")

// ParseJSON extracts the outermost JSON object from raw and decodes it into T.
func ParseJSON[T any](raw string) (T, error) {
	var zero T

	text := strings.TrimSpace(raw)
	if strings.Contains(text, "```") {
		parts := strings.Split(text, "```")
		if len(parts) >= 3 {
			text = parts[1]
		}
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "json"))
	}

	// Prompts that show {{ }} templates are sometimes echoed literally
	if strings.HasPrefix(text, "{{") && strings.HasSuffix(text, "}}") {
		text = text[1 : len(text)-1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return zero, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var result T
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result, nil
}
