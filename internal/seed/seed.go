// ABOUTME: Versioned seed data for the classifiers, embedded at build time
// ABOUTME: Examples, redirect rules, label map, lexicon, rubric, and tag catalog with file overrides
package seed

import (
	"embed"
	"fmt"
	"os"

	"github.com/harper/feedback-radar/internal/ensemble"
	"github.com/harper/feedback-radar/internal/knn"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/tags"
	"github.com/harper/feedback-radar/internal/twoaxis"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// ExampleSet is a versioned list of reference examples.
type ExampleSet struct {
	Version  int                     `yaml:"version"`
	Examples []models.LabeledExample `yaml:"examples"`
}

func readFixture(name string) ([]byte, error) {
	data, err := fixtures.ReadFile("fixtures/" + name)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	return data, nil
}

// ParseExamples decodes and validates an example set. Every example is
// tagged as seed data unless it names another source.
func ParseExamples(data []byte) (*ExampleSet, error) {
	var set ExampleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}

	seen := make(map[string]bool, len(set.Examples))
	for i := range set.Examples {
		ex := &set.Examples[i]
		if err := ex.Validate(); err != nil {
			return nil, err
		}
		if seen[ex.ID] {
			return nil, fmt.Errorf("duplicate example id %q", ex.ID)
		}
		seen[ex.ID] = true
		if ex.Source == "" {
			ex.Source = models.SourceSeed
		}
	}
	return &set, nil
}

// Examples returns the embedded example set.
func Examples() (*ExampleSet, error) {
	data, err := readFixture("examples.yaml")
	if err != nil {
		return nil, err
	}
	return ParseExamples(data)
}

// LoadExamplesFile reads an example set from disk.
func LoadExamplesFile(path string) (*ExampleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples %s: %w", path, err)
	}
	return ParseExamples(data)
}

// Rules returns the embedded redirect rules, or the rules at path when set.
func Rules(path string) ([]knn.RedirectRule, error) {
	if path != "" {
		return knn.LoadRules(path)
	}
	data, err := readFixture("rules.yaml")
	if err != nil {
		return nil, err
	}
	return knn.ParseRules(data)
}

// LabelMap returns the embedded ensemble label map, or the map at path.
func LabelMap(path string) (ensemble.LabelMap, error) {
	if path != "" {
		return ensemble.LoadLabelMap(path)
	}
	data, err := readFixture("labelmap.yaml")
	if err != nil {
		return ensemble.LabelMap{}, err
	}
	return ensemble.ParseLabelMap(data)
}

// Lexicon returns the embedded sentiment lexicon, or the lexicon at path.
func Lexicon(path string) (*twoaxis.Lexicon, error) {
	if path != "" {
		return twoaxis.LoadLexicon(path)
	}
	data, err := readFixture("lexicon.yaml")
	if err != nil {
		return nil, err
	}
	return twoaxis.ParseLexicon(data)
}

// Rubric returns the embedded category rubric, or the rubric at path.
func Rubric(path string) ([]llm.Category, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = readFixture("rubric.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}

	var doc struct {
		Categories []llm.Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("rubric lists no categories")
	}
	return doc.Categories, nil
}

// TagCatalog returns the embedded detail-tag catalog, or the catalog at path.
func TagCatalog(path string) (tags.Catalog, error) {
	if path != "" {
		return tags.LoadCatalog(path)
	}
	data, err := readFixture("tags.yaml")
	if err != nil {
		return nil, err
	}
	return tags.ParseCatalog(data)
}
