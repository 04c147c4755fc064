// ABOUTME: Category tag frequency rollups for the report
// ABOUTME: Coverage is the share of items carrying at least one catalog tag
package tags

import (
	"math"

	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/twoaxis"
)

// Rollup counts category tags overall and per topic and sentiment.
type Rollup struct {
	TotalItems  int                       `json:"total_items"`
	TaggedItems int                       `json:"tagged_items"`
	Coverage    float64                   `json:"tag_coverage"`
	Overall     map[string]int            `json:"overall"`
	ByTopic     map[string]map[string]int `json:"by_topic"`
	BySentiment map[string]map[string]int `json:"by_sentiment"`
}

// Aggregate rolls up the tags attached to items. Coverage is the percentage
// of items with at least one category tag, rounded to one decimal.
func Aggregate(items []models.LabeledItem) Rollup {
	r := Rollup{
		TotalItems:  len(items),
		Overall:     map[string]int{},
		ByTopic:     map[string]map[string]int{},
		BySentiment: map[string]map[string]int{},
	}

	for _, item := range items {
		if item.Tags == nil || len(item.Tags.CategoryTags) == 0 {
			continue
		}
		r.TaggedItems++
		pair := twoaxis.PairOf(item)
		for _, tag := range item.Tags.CategoryTags {
			r.Overall[tag]++
			bump(r.ByTopic, pair.Topic, tag)
			bump(r.BySentiment, pair.Sentiment, tag)
		}
	}

	if r.TotalItems > 0 {
		r.Coverage = math.Round(float64(r.TaggedItems)/float64(r.TotalItems)*1000) / 10
	}
	return r
}

func bump(m map[string]map[string]int, key, tag string) {
	if m[key] == nil {
		m[key] = map[string]int{}
	}
	m[key][tag]++
}
