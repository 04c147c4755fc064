// ABOUTME: Tests for sub-theme clustering, labels, notable patterns, and the call budget
// ABOUTME: Uses fixed embeddings with three separated groups and scripted completions
package subtheme_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/llm/llmtest"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/subtheme"
	"github.com/harper/feedback-radar/internal/twoaxis"
)

func item(id, text, cohort, topic, sentiment string) models.LabeledItem {
	return models.LabeledItem{
		FeedbackItem: models.FeedbackItem{ID: id, Text: text, Cohort: cohort},
		TwoAxis:      &models.TwoAxisClassification{Topic: topic, Sentiment: sentiment},
	}
}

// issueFixture builds three well-separated groups of four service issues.
func issueFixture() ([]models.LabeledItem, *llmtest.Embedder) {
	emb := &llmtest.Embedder{Vectors: map[string][]float64{}, Dim: 4}
	groups := []string{"refund", "login", "upload"}
	var items []models.LabeledItem
	for g, name := range groups {
		for j := 0; j < 4; j++ {
			text := fmt.Sprintf("%s problem %d", name, j)
			v := make([]float64, 4)
			v[g] = 10
			v[3] = 0.1 * float64(j)
			emb.Vectors[text] = v
			cohort := "A"
			if j == 3 {
				cohort = "B"
			}
			items = append(items, item(fmt.Sprintf("%s-%d", name, j), text, cohort, twoaxis.TopicService, twoaxis.SentimentNegative))
		}
	}
	return items, emb
}

func newAnalyzer(emb *llmtest.Embedder, c *llmtest.Completer) *subtheme.Analyzer {
	var a *subtheme.Analyzer
	if c == nil {
		a = subtheme.NewAnalyzer(emb, nil)
	} else {
		a = subtheme.NewAnalyzer(emb, c)
	}
	a.Logger = log.New(io.Discard)
	return a
}

func TestAnalyzeFindsSeparatedSubThemes(t *testing.T) {
	items, emb := issueFixture()
	c := &llmtest.Completer{Default: "\"환불 요청\""}

	res, err := newAnalyzer(emb, c).Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.K != 3 {
		t.Fatalf("K = %d, want 3", res.K)
	}
	if len(res.Clusters) != 3 {
		t.Fatalf("len(Clusters) = %d, want 3", len(res.Clusters))
	}
	for _, cl := range res.Clusters {
		if cl.Count != 4 {
			t.Errorf("cluster %d Count = %d, want 4", cl.ID, cl.Count)
		}
		prefix := strings.SplitN(cl.MemberIDs[0], "-", 2)[0]
		for _, id := range cl.MemberIDs {
			if !strings.HasPrefix(id, prefix+"-") {
				t.Errorf("cluster %d mixes %s and %s", cl.ID, prefix, id)
			}
		}
		if cl.Label != "환불 요청" {
			t.Errorf("cluster %d Label = %q, want quotes stripped", cl.ID, cl.Label)
		}
		if cl.SentimentDist[twoaxis.SentimentNegative] != 4 {
			t.Errorf("cluster %d SentimentDist = %v, want 4 negative", cl.ID, cl.SentimentDist)
		}
		if len(cl.TopCohorts) != 2 || cl.TopCohorts[0] != (models.CohortCount{Cohort: "A", Count: 3}) {
			t.Errorf("cluster %d TopCohorts = %v, want A:3 first", cl.ID, cl.TopCohorts)
		}
	}
	if res.Score < 0.9 {
		t.Errorf("Score = %v, want >= 0.9", res.Score)
	}
	if res.LLMCalls != 3 || res.LLMFailure != 0 {
		t.Errorf("LLMCalls, LLMFailure = %d, %d, want 3, 0", res.LLMCalls, res.LLMFailure)
	}
	for _, req := range c.Requests() {
		if req.MaxTokens != 30 {
			t.Errorf("label MaxTokens = %d, want 30", req.MaxTokens)
		}
	}
}

func TestAnalyzeBelowMinimumSkipsClustering(t *testing.T) {
	items, emb := issueFixture()
	c := &llmtest.Completer{Default: "label"}

	res, err := newAnalyzer(emb, c).Analyze(context.Background(), items[:9])
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Clusters) != 0 {
		t.Errorf("len(Clusters) = %d, want 0", len(res.Clusters))
	}
	if res.Skipped == "" {
		t.Error("Skipped is empty, want a reason")
	}
	if emb.Calls() != 0 || c.Calls() != 0 {
		t.Errorf("embed calls %d, llm calls %d, want none", emb.Calls(), c.Calls())
	}
}

func TestAnalyzeLabelFailureFallsBackToTopic(t *testing.T) {
	items, emb := issueFixture()
	c := llmtest.FailingCompleter()

	res, err := newAnalyzer(emb, c).Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, cl := range res.Clusters {
		if cl.Label != twoaxis.TopicService {
			t.Errorf("Label = %q, want %q", cl.Label, twoaxis.TopicService)
		}
	}
	if res.LLMFailure != 3 {
		t.Errorf("LLMFailure = %d, want 3", res.LLMFailure)
	}
}

func TestAnalyzeEmbedFailureDegrades(t *testing.T) {
	items, emb := issueFixture()
	emb.Err = errors.New("embeddings down")

	res, err := newAnalyzer(emb, nil).Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Clusters) != 0 || res.Skipped == "" {
		t.Errorf("Clusters = %v, Skipped = %q, want none and a reason", res.Clusters, res.Skipped)
	}
}

func TestAnalyzeNotablePatterns(t *testing.T) {
	var items []models.LabeledItem
	for i := 0; i < 8; i++ {
		sentiment := twoaxis.SentimentNegative
		if i >= 5 {
			sentiment = twoaxis.SentimentPositive
		}
		cohort := "X"
		if i%2 == 1 {
			cohort = "Y"
		}
		items = append(items, item(fmt.Sprintf("c%d", i), fmt.Sprintf("영상이 별로 %d", i), cohort, twoaxis.TopicContent, sentiment))
	}
	for i := 0; i < 4; i++ {
		items = append(items, item(fmt.Sprintf("i%d", i), "주식 손실", "Z", twoaxis.TopicInvesting, twoaxis.SentimentNegative))
	}

	c := &llmtest.Completer{Rules: []llmtest.Rule{{Contains: twoaxis.TopicContent, Reply: "- 업로드 지연\n- 음질 불만"}}}
	res, err := newAnalyzer(&llmtest.Embedder{Dim: 4}, c).Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.Notable) != 1 {
		t.Fatalf("len(Notable) = %d, want 1", len(res.Notable))
	}
	p := res.Notable[0]
	if p.Topic != twoaxis.TopicContent {
		t.Errorf("Topic = %q, want %q", p.Topic, twoaxis.TopicContent)
	}
	if p.NegativeCount != 5 || p.TotalInTopic != 8 {
		t.Errorf("NegativeCount, TotalInTopic = %d, %d, want 5, 8", p.NegativeCount, p.TotalInTopic)
	}
	if p.NegativeRatio != 62.5 {
		t.Errorf("NegativeRatio = %v, want 62.5", p.NegativeRatio)
	}
	if p.TopCohorts[0] != (models.CohortCount{Cohort: "X", Count: 3}) {
		t.Errorf("TopCohorts[0] = %v, want X:3", p.TopCohorts[0])
	}
	if p.Summary != "- 업로드 지연\n- 음질 불만" {
		t.Errorf("Summary = %q", p.Summary)
	}
	reqs := c.Requests()
	if len(reqs) != 1 || reqs[0].MaxTokens != 300 {
		t.Errorf("requests = %+v, want one summary call with MaxTokens 300", reqs)
	}
}

func TestAnalyzeBudgetBoundsCalls(t *testing.T) {
	items, emb := issueFixture()
	for i := 0; i < 5; i++ {
		items = append(items, item(fmt.Sprintf("n%d", i), "불만", "X", twoaxis.TopicCommunity, twoaxis.SentimentNegative))
	}
	c := &llmtest.Completer{Default: "label"}

	a := newAnalyzer(emb, c)
	a.MaxLLMCalls = 2
	res, err := a.Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if c.Calls() != 2 {
		t.Errorf("completer calls = %d, want 2", c.Calls())
	}
	if res.LLMCalls != 2 {
		t.Errorf("LLMCalls = %d, want 2", res.LLMCalls)
	}
	if res.LLMFailure != 2 {
		t.Errorf("LLMFailure = %d, want 2 (one label and one summary denied)", res.LLMFailure)
	}
	if res.Notable[0].Summary != subtheme.SummaryFailed {
		t.Errorf("Summary = %q, want %q", res.Notable[0].Summary, subtheme.SummaryFailed)
	}
}

func TestAnalyzeWithoutCompleter(t *testing.T) {
	items, emb := issueFixture()

	res, err := newAnalyzer(emb, nil).Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.LLMCalls != 0 || res.LLMFailure != 0 {
		t.Errorf("LLMCalls, LLMFailure = %d, %d, want 0, 0", res.LLMCalls, res.LLMFailure)
	}
	for _, cl := range res.Clusters {
		if cl.Label != twoaxis.TopicService {
			t.Errorf("Label = %q, want %q", cl.Label, twoaxis.TopicService)
		}
	}
}

func TestAnalyzeRepeatedComplaintsHaveNoEmptyClusters(t *testing.T) {
	emb := &llmtest.Embedder{Vectors: map[string][]float64{
		"환불이 안 돼요":  {10, 0, 0},
		"로그인이 안 돼요": {0, 10, 0},
	}, Dim: 3}
	var items []models.LabeledItem
	for i := 0; i < 11; i++ {
		items = append(items, item(fmt.Sprintf("refund-%d", i), "환불이 안 돼요", "A", twoaxis.TopicService, twoaxis.SentimentNegative))
	}
	items = append(items, item("login-0", "로그인이 안 돼요", "B", twoaxis.TopicService, twoaxis.SentimentNegative))

	res, err := newAnalyzer(emb, nil).Analyze(context.Background(), items)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Skipped != "" {
		t.Fatalf("Skipped = %q, want clustering to run", res.Skipped)
	}
	if res.K != len(res.Clusters) {
		t.Errorf("K = %d, len(Clusters) = %d, want equal", res.K, len(res.Clusters))
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("len(Clusters) = %d, want 2", len(res.Clusters))
	}
	for i, cl := range res.Clusters {
		if cl.Count == 0 {
			t.Errorf("cluster %d is empty", i)
		}
	}
	if res.Clusters[0].Count != 11 || res.Clusters[1].Count != 1 {
		t.Errorf("Counts = %d, %d, want 11, 1", res.Clusters[0].Count, res.Clusters[1].Count)
	}
}
