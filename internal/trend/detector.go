// ABOUTME: Per-cohort negative-share trend detection across two periods
// ABOUTME: Flags spikes and drops behind a volume guard and gathers report aggregates
package trend

import (
	"cmp"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
	"github.com/harper/feedback-radar/internal/twoaxis"
)

// Detector compares this period's labeled items to the previous period's.
// The zero value is not usable; start from NewDetector.
type Detector struct {
	SpikeThresholdPp float64
	MinVolume        int
	MaxSamples       int
	SampleChars      int
	NegativeLabel    string
	IssueTopic       string
	UnknownCohort    string
	Logger           *log.Logger
}

// NewDetector returns a Detector with the standard thresholds.
func NewDetector() *Detector {
	return &Detector{
		SpikeThresholdPp: 10,
		MinVolume:        5,
		MaxSamples:       5,
		SampleChars:      200,
		NegativeLabel:    twoaxis.SentimentNegative,
		IssueTopic:       twoaxis.TopicService,
		UnknownCohort:    textnorm.UnknownCohort,
		Logger:           log.Default(),
	}
}

func sentiment(item models.LabeledItem) string {
	return twoaxis.PairOf(item).Sentiment
}

func topic(item models.LabeledItem) string {
	return twoaxis.PairOf(item).Topic
}

func (d *Detector) isNegative(item models.LabeledItem) bool {
	return sentiment(item) == d.NegativeLabel
}

func (d *Detector) count(into *models.PeriodCounts, item models.LabeledItem) {
	into.Total++
	if item.Kind == models.KindPost {
		into.Posts++
	} else {
		into.Letters++
	}

	key := item.Category()
	if key == "" {
		key = topic(item)
	}
	if key != "" {
		into.ByCategory[key]++
	}
	if s := sentiment(item); s != "" {
		into.BySentiment[s]++
	}
	if d.isNegative(item) {
		into.Negative++
	}
}

func newCounts() models.PeriodCounts {
	return models.PeriodCounts{ByCategory: map[string]int{}, BySentiment: map[string]int{}}
}

// Summarize builds one summary per cohort seen in either period. A cohort
// moves from NoData to HasThisPeriod on its first current-period item and to
// HasBothPeriods once previous-period items exist too.
func (d *Detector) Summarize(this, prev []models.LabeledItem) map[string]*models.CohortPeriodSummary {
	summaries := make(map[string]*models.CohortPeriodSummary)
	get := func(item models.LabeledItem) *models.CohortPeriodSummary {
		cohort := item.CohortKey()
		s, ok := summaries[cohort]
		if !ok {
			s = &models.CohortPeriodSummary{
				Cohort: cohort,
				Period: item.Period,
				This:   newCounts(),
				Prev:   newCounts(),
				Phase:  models.PhaseNoData,
			}
			summaries[cohort] = s
		}
		return s
	}

	for _, item := range this {
		s := get(item)
		if s.Period == "" {
			s.Period = item.Period
		}
		d.count(&s.This, item)
	}
	for _, item := range prev {
		d.count(&get(item).Prev, item)
	}

	for _, s := range summaries {
		s.This.NegativeRatio = ratio(s.This.Negative, s.This.Total)
		s.Prev.NegativeRatio = ratio(s.Prev.Negative, s.Prev.Total)
		switch {
		case s.This.Total > 0 && s.Prev.Total > 0:
			s.Phase = models.PhaseHasBothPeriods
		case s.This.Total > 0:
			s.Phase = models.PhaseHasThisPeriod
		}
	}
	return summaries
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// changePp removes float noise so that exact threshold crossings compare as exact.
func changePp(s *models.CohortPeriodSummary) float64 {
	return math.Round(s.ChangePp()*1e6) / 1e6
}

// Detect summarizes both periods and flags spikes and drops.
func (d *Detector) Detect(this, prev []models.LabeledItem) *models.TrendReport {
	summaries := d.Summarize(this, prev)
	report := &models.TrendReport{
		Spikes:        []models.TrendEvent{},
		Drops:         []models.TrendEvent{},
		Summaries:     summaries,
		Totals:        Totals(this, prev),
		Matrix:        Matrix(this),
		ServiceIssues: d.ServiceIssues(this),
	}

	for cohort, s := range summaries {
		if cohort == d.UnknownCohort || s.Phase != models.PhaseHasBothPeriods {
			continue
		}
		change := changePp(s)
		switch {
		case change >= d.SpikeThresholdPp && s.This.Total >= d.MinVolume:
			report.Spikes = append(report.Spikes, d.event(s, change, this))
		case change <= -d.SpikeThresholdPp && s.Prev.Total >= d.MinVolume:
			report.Drops = append(report.Drops, d.event(s, change, this))
		}
	}

	slices.SortFunc(report.Spikes, func(a, b models.TrendEvent) int {
		return cmp.Or(cmp.Compare(b.ChangePp, a.ChangePp), cmp.Compare(a.Cohort, b.Cohort))
	})
	slices.SortFunc(report.Drops, func(a, b models.TrendEvent) int {
		return cmp.Or(cmp.Compare(a.ChangePp, b.ChangePp), cmp.Compare(a.Cohort, b.Cohort))
	})

	d.Logger.Info("trend detection complete",
		"cohorts", len(summaries), "spikes", len(report.Spikes), "drops", len(report.Drops))
	return report
}

func (d *Detector) event(s *models.CohortPeriodSummary, change float64, this []models.LabeledItem) models.TrendEvent {
	samples := []string{}
	for _, item := range this {
		if len(samples) >= d.MaxSamples {
			break
		}
		if item.CohortKey() == s.Cohort && d.isNegative(item) {
			samples = append(samples, textnorm.Clean(item.Text, d.SampleChars))
		}
	}
	return models.TrendEvent{
		Cohort:    s.Cohort,
		ChangePp:  change,
		ThisRatio: s.This.NegativeRatio,
		PrevRatio: s.Prev.NegativeRatio,
		ThisTotal: s.This.Total,
		PrevTotal: s.Prev.Total,
		Samples:   samples,
	}
}

// Totals counts letters and posts in both periods.
func Totals(this, prev []models.LabeledItem) models.TotalStats {
	tally := func(items []models.LabeledItem) models.PeriodTotals {
		var t models.PeriodTotals
		for _, item := range items {
			if item.Kind == models.KindPost {
				t.Posts++
			} else {
				t.Letters++
			}
		}
		t.Total = t.Letters + t.Posts
		return t
	}
	a, b := tally(this), tally(prev)
	return models.TotalStats{
		This: a,
		Prev: b,
		Delta: models.PeriodTotals{
			Letters: a.Letters - b.Letters,
			Posts:   a.Posts - b.Posts,
			Total:   a.Total - b.Total,
		},
	}
}

// Matrix counts this period's items per topic and sentiment. Every known
// topic and sentiment appears, zero-filled.
func Matrix(items []models.LabeledItem) map[string]map[string]int {
	m := make(map[string]map[string]int, len(twoaxis.Topics))
	for _, t := range twoaxis.Topics {
		m[t] = make(map[string]int, len(twoaxis.Sentiments))
		for _, s := range twoaxis.Sentiments {
			m[t][s] = 0
		}
	}
	for _, item := range items {
		row, ok := m[topic(item)]
		if !ok {
			continue
		}
		if _, ok := row[sentiment(item)]; ok {
			row[sentiment(item)]++
		}
	}
	return m
}

// ServiceIssues lists negative items in the issue topic, in input order.
func (d *Detector) ServiceIssues(items []models.LabeledItem) []models.ServiceIssue {
	issues := []models.ServiceIssue{}
	for _, item := range items {
		if topic(item) == d.IssueTopic && d.isNegative(item) {
			issues = append(issues, models.ServiceIssue{
				ID:      item.ID,
				Cohort:  item.CohortKey(),
				Kind:    string(item.Kind),
				Snippet: textnorm.Clean(item.Text, d.SampleChars),
			})
		}
	}
	return issues
}
