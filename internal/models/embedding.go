// ABOUTME: Labeled reference examples and vector search results
// ABOUTME: Defines LabeledExample and VectorSearchResult structures
package models

import "fmt"

// ExampleSource tells curated seed data apart from reviewed production items.
type ExampleSource string

const (
	SourceSeed     ExampleSource = "seed"
	SourceReviewed ExampleSource = "reviewed"
)

// LabeledExample is a reference example held by the vector store.
// It is immutable once indexed.
type LabeledExample struct {
	ID       string            `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Category string            `json:"category" yaml:"category"`
	Source   ExampleSource     `json:"source,omitempty" yaml:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks that an example can be indexed.
func (e LabeledExample) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("example id cannot be empty")
	}
	if e.Text == "" {
		return fmt.Errorf("example %s: text cannot be empty", e.ID)
	}
	if e.Category == "" {
		return fmt.Errorf("example %s: category cannot be empty", e.ID)
	}
	return nil
}

// VectorSearchResult is one neighbor returned by a similarity search.
// Distance is cosine distance: 0 is identical, 1 is orthogonal.
type VectorSearchResult struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float64           `json:"distance"`
}

// Category returns the neighbor's label.
func (r VectorSearchResult) Category() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata["category"]
}

// Similarity is 1 - Distance, floored at 0.
func (r VectorSearchResult) Similarity() float64 {
	return max(0, 1-r.Distance)
}
