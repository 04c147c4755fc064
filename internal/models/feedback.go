// ABOUTME: Feedback item model for customer letters and community posts
// ABOUTME: Carries raw text plus the cohort and period keys attached by the caller
package models

import (
	"time"

	"github.com/harper/feedback-radar/internal/textnorm"
)

// ItemKind distinguishes the two feedback channels.
type ItemKind string

const (
	KindLetter ItemKind = "letter"
	KindPost   ItemKind = "post"
)

// FeedbackItem is one unit of customer text.
type FeedbackItem struct {
	ID        string    `json:"id"`
	Kind      ItemKind  `json:"kind,omitempty"`
	Text      string    `json:"text"`
	Title     string    `json:"title,omitempty"`
	RawCohort string    `json:"master_name,omitempty"`
	Cohort    string    `json:"cohort,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Period    string    `json:"period,omitempty"`
}

// CohortKey returns the item's cohort, deriving it from RawCohort when unset.
func (f FeedbackItem) CohortKey() string {
	if f.Cohort != "" {
		return f.Cohort
	}
	return textnorm.CohortName(f.RawCohort)
}

// Content returns the text to classify: the body, or the title when the
// body is empty.
func (f FeedbackItem) Content() string {
	if f.Text != "" {
		return f.Text
	}
	return f.Title
}

// WeekStart returns the Monday 00:00 of t's ISO week in loc, formatted as a
// period key. Callers that bucket by week use it to fill Period.
func WeekStart(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	monday := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return monday.Format("2006-01-02")
}
