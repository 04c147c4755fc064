// ABOUTME: Tests for the ensemble combiner
// ABOUTME: Agreement boost, disagreement discount, label mapping, empties, and agreement rate
package ensemble

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/harper/feedback-radar/internal/models"
)

type staticClassifier struct {
	results []models.Classification
	err     error
}

func (s staticClassifier) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	return s.results, s.err
}

func vec(cat string, conf float64) models.Classification {
	return models.Classification{Category: cat, Confidence: conf, Method: models.MethodVector}
}

func seq(cat string, conf float64) models.Classification {
	return models.Classification{Category: cat, Confidence: conf, Method: models.MethodFinetuned}
}

func newTestEnsemble(t *testing.T, v, s []models.Classification, labels LabelMap) *Ensemble {
	t.Helper()
	e, err := New(staticClassifier{results: v}, staticClassifier{results: s}, labels)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestCombine_AgreementBoost(t *testing.T) {
	e := newTestEnsemble(t, nil, nil, LabelMap{})
	got := e.Combine(vec("A", 0.6), seq("A", 0.8))

	if got.Category != "A" || got.Method != models.MethodEnsembleAgree {
		t.Errorf("Combine() = %+v, want A/ensemble_agree", got)
	}
	if math.Abs(got.Confidence-0.8) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}

	capped := e.Combine(vec("A", 0.98), seq("A", 0.99))
	if capped.Confidence != 1 {
		t.Errorf("capped Confidence = %v, want 1", capped.Confidence)
	}
}

func TestCombine_DisagreementKeepsVector(t *testing.T) {
	e := newTestEnsemble(t, nil, nil, LabelMap{})
	got := e.Combine(vec("A", 0.5), seq("B", 0.99))

	if got.Category != "A" || got.Method != models.MethodEnsembleVector {
		t.Errorf("Combine() = %+v, want A/ensemble_vector", got)
	}
	if math.Abs(got.Confidence-0.45) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.45", got.Confidence)
	}
}

func TestCombine_LabelMapping(t *testing.T) {
	labels := LabelMap{
		Vector:   map[string]string{"감사·후기": "긍정 피드백"},
		Sequence: map[string]string{"positive": "긍정 피드백"},
	}
	e := newTestEnsemble(t, nil, nil, labels)

	got := e.Combine(vec("감사·후기", 0.6), seq("positive", 0.6))
	if got.Category != "긍정 피드백" || got.Method != models.MethodEnsembleAgree {
		t.Errorf("mapped Combine() = %+v, want agreement on 긍정 피드백", got)
	}

	passthrough := e.Combine(vec("unmapped", 0.6), seq("unmapped", 0.6))
	if passthrough.Category != "unmapped" || passthrough.Method != models.MethodEnsembleAgree {
		t.Errorf("unmapped Combine() = %+v, want pass-through agreement", passthrough)
	}
}

func TestCombine_EmptyPassesThrough(t *testing.T) {
	e := newTestEnsemble(t, nil, nil, LabelMap{})
	empty := models.EmptyClassification()
	if got := e.Combine(empty, empty); got != empty {
		t.Errorf("Combine(empty, empty) = %+v, want empty sentinel", got)
	}
}

func TestClassifyBatch(t *testing.T) {
	v := []models.Classification{vec("A", 0.6), vec("A", 0.5), models.EmptyClassification()}
	s := []models.Classification{seq("A", 0.8), seq("B", 0.9), models.EmptyClassification()}
	e := newTestEnsemble(t, v, s, LabelMap{})

	outcomes, err := e.Compare(context.Background(), []string{"x", "y", ""})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	wantMethods := []models.Method{models.MethodEnsembleAgree, models.MethodEnsembleVector, models.MethodEmpty}
	for i, o := range outcomes {
		if o.Combined.Method != wantMethods[i] {
			t.Errorf("item %d method = %s, want %s", i, o.Combined.Method, wantMethods[i])
		}
		if o.Combined.Confidence < 0 || o.Combined.Confidence > 1 {
			t.Errorf("item %d confidence %v out of range", i, o.Combined.Confidence)
		}
	}
	if got := Agreement(outcomes); got != 0.5 {
		t.Errorf("Agreement() = %v, want 0.5", got)
	}
}

func TestClassifyBatch_Errors(t *testing.T) {
	boom := errors.New("boom")
	e, _ := New(staticClassifier{err: boom}, staticClassifier{}, LabelMap{})
	if _, err := e.ClassifyBatch(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("ClassifyBatch() error = %v, want boom", err)
	}

	short, _ := New(staticClassifier{results: []models.Classification{vec("A", 1)}}, staticClassifier{}, LabelMap{})
	if _, err := short.ClassifyBatch(context.Background(), []string{"x"}); err == nil {
		t.Error("ClassifyBatch() should reject a short result slice")
	}
}

func TestParseLabelMap(t *testing.T) {
	m, err := ParseLabelMap([]byte("vector:\n  불편사항: 부정 피드백\nsequence:\n  부정: 부정 피드백\n"))
	if err != nil {
		t.Fatalf("ParseLabelMap() error = %v", err)
	}
	if m.Vector["불편사항"] != "부정 피드백" || m.Sequence["부정"] != "부정 피드백" {
		t.Errorf("ParseLabelMap() = %+v", m)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, staticClassifier{}, LabelMap{}); err == nil {
		t.Error("New() without vector classifier should fail")
	}
	if _, err := New(staticClassifier{}, staticClassifier{}, LabelMap{}, WithAgreementBonus(2)); err == nil {
		t.Error("bonus 2 should fail")
	}
}

type escalatingClassifier struct {
	staticClassifier
	local []models.Classification
}

func (s escalatingClassifier) LocalClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	return s.local, nil
}

func TestLocalClassifyBatch_SkipsVectorEscalation(t *testing.T) {
	vector := escalatingClassifier{
		staticClassifier: staticClassifier{results: []models.Classification{{Category: "A", Confidence: 0.9, Method: models.MethodLLM}}},
		local:            []models.Classification{vec("B", 0.4)},
	}
	e, err := New(vector, staticClassifier{results: []models.Classification{seq("B", 0.6)}}, LabelMap{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := e.LocalClassifyBatch(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("LocalClassifyBatch() error = %v", err)
	}
	if got[0].Category != "B" || got[0].Method != models.MethodEnsembleAgree {
		t.Errorf("LocalClassifyBatch() = %+v, want agreement on the local vector label B", got[0])
	}

	got, _ = e.ClassifyBatch(context.Background(), []string{"x"})
	if got[0].Category != "A" {
		t.Errorf("ClassifyBatch() category = %q, want A from the escalated vector result", got[0].Category)
	}
}

func TestLocalClassifyBatch_FallsBackWithoutLocalVector(t *testing.T) {
	e := newTestEnsemble(t, []models.Classification{vec("A", 0.6)}, []models.Classification{seq("A", 0.8)}, LabelMap{})
	got, err := e.LocalClassifyBatch(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("LocalClassifyBatch() error = %v", err)
	}
	if got[0].Method != models.MethodEnsembleAgree {
		t.Errorf("Method = %s, want %s", got[0].Method, models.MethodEnsembleAgree)
	}
}
