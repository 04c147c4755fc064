// ABOUTME: Per-topic catalog of allowed category tags
// ABOUTME: Loaded from YAML so the tag vocabulary can change without a rebuild
package tags

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog maps a topic to the category tags allowed for it.
type Catalog map[string][]string

// ParseCatalog reads a YAML document of the form `topics: {topic: [tags]}`.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Topics Catalog `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tag catalog: %w", err)
	}
	if len(doc.Topics) == 0 {
		return nil, fmt.Errorf("tag catalog lists no topics")
	}
	for topic, list := range doc.Topics {
		if len(list) == 0 {
			return nil, fmt.Errorf("tag catalog topic %q has no tags", topic)
		}
	}
	return doc.Topics, nil
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Allows reports whether tag is in topic's list.
func (c Catalog) Allows(topic, tag string) bool {
	for _, t := range c[topic] {
		if t == tag {
			return true
		}
	}
	return false
}
