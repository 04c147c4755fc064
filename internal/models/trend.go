// ABOUTME: Derived per-cohort period summaries and trend events
// ABOUTME: Recomputed every report run and never persisted as primary entities
package models

// Phase is the per-cohort data availability state.
type Phase string

const (
	PhaseNoData         Phase = "no_data"
	PhaseHasThisPeriod  Phase = "has_this_period"
	PhaseHasBothPeriods Phase = "has_both_periods"
)

// PeriodCounts holds one cohort's label counts for one period.
type PeriodCounts struct {
	Total         int            `json:"total"`
	Letters       int            `json:"letters"`
	Posts         int            `json:"posts"`
	ByCategory    map[string]int `json:"by_category"`
	BySentiment   map[string]int `json:"by_sentiment"`
	Negative      int            `json:"negative"`
	NegativeRatio float64        `json:"negative_ratio"`
}

// CohortPeriodSummary compares a cohort's current period to the previous one.
type CohortPeriodSummary struct {
	Cohort string       `json:"cohort"`
	Period string       `json:"period,omitempty"`
	This   PeriodCounts `json:"this"`
	Prev   PeriodCounts `json:"prev"`
	Phase  Phase        `json:"phase"`
}

// ChangePp is the negative-share change in percentage points.
func (s CohortPeriodSummary) ChangePp() float64 {
	return s.This.NegativeRatio*100 - s.Prev.NegativeRatio*100
}

// TrendEvent is a flagged spike or drop in negative share.
type TrendEvent struct {
	Cohort    string   `json:"cohort"`
	ChangePp  float64  `json:"change_pp"`
	ThisRatio float64  `json:"this_ratio"`
	PrevRatio float64  `json:"prev_ratio"`
	ThisTotal int      `json:"this_total"`
	PrevTotal int      `json:"prev_total"`
	Samples   []string `json:"samples"`
}

// TotalStats counts items across all cohorts for both periods.
type TotalStats struct {
	This  PeriodTotals `json:"this"`
	Prev  PeriodTotals `json:"prev"`
	Delta PeriodTotals `json:"delta"`
}

// PeriodTotals splits a period's volume by channel.
type PeriodTotals struct {
	Letters int `json:"letters"`
	Posts   int `json:"posts"`
	Total   int `json:"total"`
}

// ServiceIssue is a negative item in the operational topic.
type ServiceIssue struct {
	ID      string `json:"id"`
	Cohort  string `json:"cohort"`
	Kind    string `json:"kind"`
	Snippet string `json:"snippet"`
}

// TrendReport is the trend detector's full output.
type TrendReport struct {
	Spikes        []TrendEvent                    `json:"spikes"`
	Drops         []TrendEvent                    `json:"drops"`
	Summaries     map[string]*CohortPeriodSummary `json:"summaries"`
	Totals        TotalStats                      `json:"totals"`
	Matrix        map[string]map[string]int       `json:"topic_sentiment_matrix"`
	ServiceIssues []ServiceIssue                  `json:"service_issues"`
}
