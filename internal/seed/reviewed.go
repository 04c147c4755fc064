// ABOUTME: Reviewed production examples exported from the labeling tool
// ABOUTME: Maps reviewer labels onto the index categories before indexing
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
)

// maxExampleRunes bounds reviewed example text.
const maxExampleRunes = 500

// ReviewedLabels maps reviewer labels to index categories. Labels missing
// here are skipped.
var ReviewedLabels = map[string]string{
	"긍정 피드백": "감사·후기",
	"부정 피드백": "불편사항",
	"질문/문의":  "질문·토론",
	"정보 공유":  "정보성 글",
	"일상 소통":  "일상·공감",
}

type reviewedEntry struct {
	ID       json.RawMessage `json:"id"`
	Text     string          `json:"text"`
	NewLabel string          `json:"new_label"`
}

// Reviewed loads a JSON array of {id, text, new_label}. Entries with empty
// text or an unmapped label are skipped; entries without an id get one.
func Reviewed(path string) ([]models.LabeledExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reviewed examples: %w", err)
	}

	var entries []reviewedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse reviewed examples: %w", err)
	}

	out := make([]models.LabeledExample, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		category, ok := ReviewedLabels[e.NewLabel]
		if text == "" || !ok {
			continue
		}

		id := rawID(e.ID)
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, models.LabeledExample{
			ID:       "reviewed-" + id,
			Text:     textnorm.Truncate(text, maxExampleRunes),
			Category: category,
			Source:   models.SourceReviewed,
		})
	}
	return out, nil
}

// rawID accepts string or numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
