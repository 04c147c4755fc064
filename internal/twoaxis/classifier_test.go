// ABOUTME: Tests for the two-axis classifier
// ABOUTME: Independent axes, sentiment-only refinement, empties, and error propagation
package twoaxis

import (
	"context"
	"errors"
	"testing"

	"github.com/harper/feedback-radar/internal/models"
)

type staticModel struct {
	results []models.Classification
	err     error
}

func (s staticModel) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	return s.results, s.err
}

func ft(cat string, conf float64) models.Classification {
	return models.Classification{Category: cat, Confidence: conf, Method: models.MethodFinetuned}
}

func TestClassifyBatch(t *testing.T) {
	texts := []string{"앱 결제 오류 때문에 답답하고 불만입니다", "다음 강의는 언제인가요?", ""}
	topic := staticModel{results: []models.Classification{ft(TopicService, 0.9), ft(TopicContent, 0.8), models.EmptyClassification()}}
	sentiment := staticModel{results: []models.Classification{ft(SentimentPositive, 0.55), ft(SentimentNegative, 0.6), models.EmptyClassification()}}

	c, err := New(topic, sentiment, mustLexicon(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := c.ClassifyBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}

	first := got[0]
	if first.Topic != TopicService || first.TopicConfidence != 0.9 {
		t.Errorf("topic = %s/%v, want %s/0.9", first.Topic, first.TopicConfidence, TopicService)
	}
	if first.Sentiment != SentimentNegative || !first.Refined {
		t.Errorf("sentiment = %s refined=%v, want %s refined", first.Sentiment, first.Refined, SentimentNegative)
	}
	if first.SentimentConfidence != 0.55 {
		t.Errorf("SentimentConfidence = %v, want model's 0.55", first.SentimentConfidence)
	}
	if first.Method != models.MethodTwoAxis {
		t.Errorf("Method = %s, want %s", first.Method, models.MethodTwoAxis)
	}

	if got[1].Topic != TopicContent || got[1].Sentiment != SentimentNeutral {
		t.Errorf("question item = %s/%s, want %s/%s", got[1].Topic, got[1].Sentiment, TopicContent, SentimentNeutral)
	}
	if got[2].Method != models.MethodEmpty {
		t.Errorf("empty item Method = %s, want empty", got[2].Method)
	}
}

func TestClassifyBatch_NoLexicon(t *testing.T) {
	topic := staticModel{results: []models.Classification{ft(TopicCommunity, 0.7)}}
	sentiment := staticModel{results: []models.Classification{ft(SentimentPositive, 0.7)}}
	c, _ := New(topic, sentiment, nil)

	got, _ := c.Classify(context.Background(), "이거 정말 불만 실망 답답")
	if got.Sentiment != SentimentPositive || got.Refined {
		t.Errorf("Classify() = %+v, want the model's sentiment untouched", got)
	}
}

func TestClassifyBatch_ModelError(t *testing.T) {
	boom := errors.New("boom")
	c, _ := New(staticModel{results: []models.Classification{ft(TopicCommunity, 1)}}, staticModel{err: boom}, nil)
	if _, err := c.ClassifyBatch(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("ClassifyBatch() error = %v, want boom", err)
	}
}

func TestTaxonomyMappings(t *testing.T) {
	if p := ToTwoAxis("감사·후기"); p != (Pair{TopicContent, SentimentPositive}) {
		t.Errorf("ToTwoAxis(감사·후기) = %v", p)
	}
	if p := ToTwoAxis("없는 카테고리"); p != (Pair{TopicCommunity, SentimentNeutral}) {
		t.Errorf("ToTwoAxis(unknown) = %v", p)
	}
	if c := ToOneAxis(TopicService, SentimentNegative); c != "서비스 불편사항" {
		t.Errorf("ToOneAxis(service, negative) = %s", c)
	}
	if c := ToOneAxis("x", "y"); c != "일상·공감" {
		t.Errorf("ToOneAxis(unknown) = %s", c)
	}
	for _, topic := range Topics {
		for _, s := range Sentiments {
			if ToOneAxis(topic, s) == "" {
				t.Errorf("ToOneAxis(%s, %s) is empty", topic, s)
			}
		}
	}
}
