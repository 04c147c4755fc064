// ABOUTME: Two-axis classifier running independent topic and sentiment models
// ABOUTME: Lexicon refinement runs after inference and touches only the sentiment axis
package twoaxis

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
)

// BatchClassifier labels a batch, one result per input in input order.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// Classifier produces a topic and a sentiment per item.
type Classifier struct {
	topic     BatchClassifier
	sentiment BatchClassifier
	lexicon   *Lexicon
	logger    *log.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// New builds a Classifier. lexicon may be nil to skip refinement.
func New(topic, sentiment BatchClassifier, lexicon *Lexicon, opts ...Option) (*Classifier, error) {
	if topic == nil || sentiment == nil {
		return nil, fmt.Errorf("two-axis classifier needs a topic and a sentiment model")
	}
	c := &Classifier{topic: topic, sentiment: sentiment, lexicon: lexicon, logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify labels one text.
func (c *Classifier) Classify(ctx context.Context, text string) (models.TwoAxisClassification, error) {
	out, err := c.ClassifyBatch(ctx, []string{text})
	if err != nil {
		return models.TwoAxisClassification{}, err
	}
	return out[0], nil
}

// ClassifyBatch runs both models over texts, then refines sentiment.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) ([]models.TwoAxisClassification, error) {
	topics, err := c.topic.ClassifyBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("topic model: %w", err)
	}
	sentiments, err := c.sentiment.ClassifyBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("sentiment model: %w", err)
	}
	if len(topics) != len(texts) || len(sentiments) != len(texts) {
		return nil, fmt.Errorf("models returned %d/%d results for %d texts", len(topics), len(sentiments), len(texts))
	}

	out := make([]models.TwoAxisClassification, len(texts))
	refined := 0
	for i, text := range texts {
		t, s := topics[i], sentiments[i]
		if t.Method == models.MethodEmpty || s.Method == models.MethodEmpty {
			out[i] = models.TwoAxisClassification{
				Topic:     models.CategoryEmpty,
				Sentiment: models.CategoryEmpty,
				Method:    models.MethodEmpty,
			}
			continue
		}

		result := models.TwoAxisClassification{
			Topic:               t.Category,
			TopicConfidence:     t.Confidence,
			Sentiment:           s.Category,
			SentimentConfidence: s.Confidence,
			Method:              models.MethodTwoAxis,
		}
		if c.lexicon != nil {
			result.Sentiment, result.Refined = c.lexicon.Refine(textnorm.Normalize(text), s.Category)
			if result.Refined {
				refined++
			}
		}
		out[i] = result
	}

	c.logger.Debug("two-axis batch", "items", len(texts), "refined", refined)
	return out, nil
}
