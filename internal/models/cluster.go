// ABOUTME: Sub-theme analysis output: clusters and notable negative patterns
// ABOUTME: Cluster identity is not tracked across runs, only aggregate counts
package models

// CohortCount pairs a cohort with an item count.
type CohortCount struct {
	Cohort string `json:"cohort"`
	Count  int    `json:"count"`
}

// Cluster is one discovered sub-theme within a topic.
type Cluster struct {
	ID            int            `json:"id"`
	Label         string         `json:"label"`
	Count         int            `json:"count"`
	SentimentDist map[string]int `json:"sentiment_dist"`
	TopCohorts    []CohortCount  `json:"top_cohorts"`
	Samples       []string       `json:"samples"`
	MemberIDs     []string       `json:"member_ids,omitempty"`
}

// NotablePattern summarizes recurring negative themes in a topic.
type NotablePattern struct {
	Topic         string        `json:"topic"`
	NegativeCount int           `json:"negative_count"`
	TotalInTopic  int           `json:"total_in_topic"`
	NegativeRatio float64       `json:"negative_ratio"`
	TopCohorts    []CohortCount `json:"top_cohorts"`
	Summary       string        `json:"summary"`
}

// SubThemeResult is the sub-theme analyzer's full output.
type SubThemeResult struct {
	Topic      string           `json:"topic"`
	K          int              `json:"k,omitempty"`
	Score      float64          `json:"score,omitempty"`
	Skipped    string           `json:"skipped,omitempty"`
	Clusters   []Cluster        `json:"clusters"`
	Notable    []NotablePattern `json:"notable_patterns"`
	LLMCalls   int              `json:"llm_calls"`
	LLMFailure int              `json:"llm_failures"`
}
