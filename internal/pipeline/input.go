// ABOUTME: Reads and writes the run's JSON input and report files
// ABOUTME: Items missing an id are given a random one so reports can reference them
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/harper/feedback-radar/internal/models"
)

// LoadInput reads {"this": [...], "prev": [...]}. Items without an id get one.
func LoadInput(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read input: %w", err)
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	assignIDs(in.This)
	assignIDs(in.Prev)
	return in, nil
}

func assignIDs(items []models.FeedbackItem) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
}

// WriteReport encodes the report as indented JSON.
func WriteReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// SaveReport writes the report to path.
func SaveReport(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
