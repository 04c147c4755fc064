// ABOUTME: Tests for the batch run: labeling, tagging, trends, and report I/O
// ABOUTME: Classifiers are static fakes keyed by text so trend outcomes are exact
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/llm/llmtest"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/tags"
	"github.com/harper/feedback-radar/internal/trend"
	"github.com/harper/feedback-radar/internal/twoaxis"
)

type keywordTwoAxis struct{ err error }

func (k keywordTwoAxis) ClassifyBatch(ctx context.Context, texts []string) ([]models.TwoAxisClassification, error) {
	if k.err != nil {
		return nil, k.err
	}
	out := make([]models.TwoAxisClassification, len(texts))
	for i, t := range texts {
		s := twoaxis.SentimentPositive
		if strings.Contains(t, "불만") {
			s = twoaxis.SentimentNegative
		}
		out[i] = models.TwoAxisClassification{Topic: twoaxis.TopicService, Sentiment: s, Method: models.MethodTwoAxis}
	}
	return out, nil
}

type constOneAxis struct{}

func (constOneAxis) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	out := make([]models.Classification, len(texts))
	for i := range texts {
		out[i] = models.Classification{Category: "서비스 피드백", Confidence: 0.8, Method: models.MethodVector}
	}
	return out, nil
}

type countingTagger struct{ seen int }

func (c *countingTagger) ExtractBatch(ctx context.Context, items []models.LabeledItem) []models.DetailTags {
	c.seen += len(items)
	out := make([]models.DetailTags, len(items))
	for i := range out {
		out[i] = models.DetailTags{CategoryTags: []string{"결제/환불/구독"}, ParseOK: true}
	}
	return out
}

func (c *countingTagger) Stats() tags.Stats { return tags.Stats{Calls: int64(c.seen)} }

func items(prefix, cohort string, negative, total int) []models.FeedbackItem {
	out := make([]models.FeedbackItem, total)
	for i := range out {
		text := "좋아요"
		if i < negative {
			text = "불만 있어요"
		}
		out[i] = models.FeedbackItem{ID: fmt.Sprintf("%s-%d", prefix, i), Text: text, RawCohort: cohort, Kind: models.KindLetter}
	}
	return out
}

func quietDetector() *trend.Detector {
	d := trend.NewDetector()
	d.Logger = log.New(io.Discard)
	return d
}

func TestRunBuildsReport(t *testing.T) {
	tagger := &countingTagger{}
	meter := llm.NewMetered(&llmtest.Completer{Default: "ok"}, 0)
	_, _ = meter.Complete(context.Background(), llm.CompletionRequest{User: "x"})
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	p, err := New(
		WithTwoAxis(keywordTwoAxis{}),
		WithOneAxis(constOneAxis{}),
		WithTagger(tagger),
		WithDetector(quietDetector()),
		WithUsage(meter),
		WithClock(func() time.Time { return fixed }),
		WithLogger(log.New(io.Discard)),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := Input{
		This: items("t", "김마스터1", 8, 20),
		Prev: items("p", "김마스터", 2, 20),
	}
	report, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if len(report.Items) != 20 {
		t.Fatalf("len(Items) = %d, want 20 (current period only)", len(report.Items))
	}
	first := report.Items[0]
	if first.TwoAxis == nil || first.Classification == nil || first.Tags == nil {
		t.Errorf("Items[0] = %+v, want both labels and tags", first)
	}
	if first.Cohort != "김마스터" {
		t.Errorf("Cohort = %q, want trailing digits stripped", first.Cohort)
	}
	if tagger.seen != 20 {
		t.Errorf("tagged %d items, want 20", tagger.seen)
	}
	if report.Tags == nil || report.Tags.Coverage != 100 {
		t.Errorf("Tags = %+v, want full coverage", report.Tags)
	}

	if len(report.Trends.Spikes) != 1 || report.Trends.Spikes[0].Cohort != "김마스터" {
		t.Fatalf("Spikes = %+v, want one for 김마스터", report.Trends.Spikes)
	}
	if got := report.Trends.Spikes[0].ChangePp; got != 30 {
		t.Errorf("ChangePp = %v, want 30", got)
	}
	if report.Usage.Calls != 1 {
		t.Errorf("Usage.Calls = %d, want 1", report.Usage.Calls)
	}
	if report.SubThemes != nil {
		t.Error("SubThemes set without an analyzer")
	}
}

// escalatingOneAxis counts how many texts went through each path.
type escalatingOneAxis struct {
	escalated, local int
}

func (e *escalatingOneAxis) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	e.escalated += len(texts)
	return constOneAxis{}.ClassifyBatch(ctx, texts)
}

func (e *escalatingOneAxis) LocalClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	e.local += len(texts)
	return constOneAxis{}.ClassifyBatch(ctx, texts)
}

func TestRunLabelsPreviousPeriodLocally(t *testing.T) {
	clf := &escalatingOneAxis{}
	p, err := New(WithOneAxis(clf), WithDetector(quietDetector()), WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := Input{This: items("t", "A", 1, 5), Prev: items("p", "A", 1, 7)}
	report, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if clf.escalated != 5 {
		t.Errorf("escalating path saw %d items, want 5 (current period only)", clf.escalated)
	}
	if clf.local != 7 {
		t.Errorf("local path saw %d items, want 7", clf.local)
	}
	if len(report.Items) != 5 {
		t.Errorf("len(Items) = %d, want 5", len(report.Items))
	}
}

func TestRunPropagatesClassifierErrors(t *testing.T) {
	boom := errors.New("model missing")
	p, err := New(WithTwoAxis(keywordTwoAxis{err: boom}), WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), Input{This: items("t", "A", 1, 2)}); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestRunEmptyInput(t *testing.T) {
	p, err := New(WithOneAxis(constOneAxis{}), WithDetector(quietDetector()), WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	report, err := p.Run(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Items) != 0 || len(report.Trends.Spikes) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestNewRequiresClassifier(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New() without classifiers error = nil, want error")
	}
}

func TestLoadInputAndWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	data := `{"this": [{"id": "a", "text": "환불 요청", "master_name": "박마스터2", "kind": "letter"}, {"text": "아이디 없음"}], "prev": []}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	in, err := LoadInput(path)
	if err != nil {
		t.Fatalf("LoadInput() error = %v", err)
	}
	if len(in.This) != 2 || in.This[0].RawCohort != "박마스터2" {
		t.Fatalf("This = %+v", in.This)
	}
	if in.This[1].ID == "" {
		t.Error("missing id was not assigned")
	}

	if _, err := LoadInput(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadInput(missing) error = nil, want error")
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, &Report{RunID: "run-1", Trends: &models.TrendReport{}}); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"run_id": "run-1"`) {
		t.Errorf("report JSON = %s", buf.String())
	}
}
