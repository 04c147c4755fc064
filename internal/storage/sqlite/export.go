// ABOUTME: Export of an indexed collection for review and re-seeding
// ABOUTME: Supports YAML (re-loadable as an example set), Markdown, and JSON vector dumps
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExportVersion is the example-set version written by WriteYAML.
const ExportVersion = 1

// ExportData is a snapshot of one collection without its vectors.
type ExportData struct {
	Version        int             `yaml:"version" json:"version"`
	ExportedAt     string          `yaml:"exported_at" json:"exported_at"`
	Tool           string          `yaml:"tool" json:"tool"`
	Collection     string          `yaml:"collection" json:"collection"`
	EmbeddingModel string          `yaml:"embedding_model" json:"embedding_model"`
	Examples       []ExportExample `yaml:"examples" json:"examples"`
}

// ExportExample is one example as written to YAML or Markdown.
type ExportExample struct {
	ID       string `yaml:"id" json:"id"`
	Text     string `yaml:"text" json:"text"`
	Category string `yaml:"category" json:"category"`
	Source   string `yaml:"source,omitempty" json:"source,omitempty"`
}

// Export reads every example in the named collection in insertion order.
func Export(ctx context.Context, db *DB, collection string) (*ExportData, error) {
	c, err := NewCollectionStore(db).Get(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}

	stored, err := NewExampleStore(db).All(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}

	data := &ExportData{
		Version:        ExportVersion,
		ExportedAt:     time.Now().Format(time.RFC3339),
		Tool:           "feedback-radar",
		Collection:     c.Name,
		EmbeddingModel: c.EmbeddingModel,
		Examples:       make([]ExportExample, 0, len(stored)),
	}
	for _, ex := range stored {
		data.Examples = append(data.Examples, ExportExample{
			ID:       ex.ID,
			Text:     ex.Text,
			Category: ex.Category,
			Source:   ex.Metadata["source"],
		})
	}
	return data, nil
}

// WriteYAML encodes data in the example-set layout.
func WriteYAML(w io.Writer, data *ExportData) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteMarkdown renders a review sheet grouped by category, largest first.
func WriteMarkdown(w io.Writer, data *ExportData) error {
	byCategory := map[string][]ExportExample{}
	for _, ex := range data.Examples {
		byCategory[ex.Category] = append(byCategory[ex.Category], ex)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := byCategory[categories[i]], byCategory[categories[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return categories[i] < categories[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Collection Export - %s\n\n", data.Collection)
	fmt.Fprintf(&b, "Generated: %s  \n", data.ExportedAt)
	fmt.Fprintf(&b, "Embedding model: %s  \n", data.EmbeddingModel)
	fmt.Fprintf(&b, "Examples: %d\n\n", len(data.Examples))

	b.WriteString("| Category | Examples |\n")
	b.WriteString("|----------|----------|\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "| %s | %d |\n", c, len(byCategory[c]))
	}
	b.WriteString("\n")

	for _, c := range categories {
		fmt.Fprintf(&b, "## %s\n\n", c)
		for _, ex := range byCategory[c] {
			text := strings.Join(strings.Fields(ex.Text), " ")
			if ex.Source != "" {
				fmt.Fprintf(&b, "- `%s` (%s) %s\n", ex.ID, ex.Source, text)
			} else {
				fmt.Fprintf(&b, "- `%s` %s\n", ex.ID, text)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteVectorsJSON dumps every example's vector for offline analysis.
func WriteVectorsJSON(ctx context.Context, db *DB, collection string, w io.Writer) error {
	stored, err := NewExampleStore(db).All(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to list examples: %w", err)
	}

	type vectorExport struct {
		ID       string    `json:"id"`
		Category string    `json:"category"`
		Vector   []float64 `json:"vector"`
	}
	out := make([]vectorExport, 0, len(stored))
	for _, ex := range stored {
		out = append(out, vectorExport{ID: ex.ID, Category: ex.Category, Vector: ex.Vector})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
