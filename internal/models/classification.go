// ABOUTME: Classification result types for one-axis and two-axis labeling
// ABOUTME: Method tags make every item's resolution path auditable
package models

import "fmt"

// Method records which path produced a classification.
type Method string

const (
	MethodVector         Method = "vector"
	MethodFinetuned      Method = "finetuned"
	MethodLLM            Method = "llm"
	MethodEnsembleAgree  Method = "ensemble_agree"
	MethodEnsembleVector Method = "ensemble_vector"
	MethodEmpty          Method = "empty"
	MethodNone           Method = "none"
	MethodTwoAxis        Method = "finetuned_two_axis"
)

// Sentinel categories for inputs that never reach a vote.
const (
	CategoryEmpty        = "empty"
	CategoryUnclassified = "unclassified"
)

// Classification is a one-axis label with its confidence.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
	Reason     string  `json:"reason,omitempty"`
}

// EmptyClassification is the result for text that normalizes to nothing.
func EmptyClassification() Classification {
	return Classification{Category: CategoryEmpty, Confidence: 0, Method: MethodEmpty}
}

// Validate checks the confidence range.
func (c Classification) Validate() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", c.Confidence)
	}
	if c.Method == "" {
		return fmt.Errorf("method cannot be empty")
	}
	return nil
}

// TwoAxisClassification carries independent topic and sentiment labels.
type TwoAxisClassification struct {
	Topic               string  `json:"topic"`
	TopicConfidence     float64 `json:"topic_confidence"`
	Sentiment           string  `json:"sentiment"`
	SentimentConfidence float64 `json:"sentiment_confidence"`
	Method              Method  `json:"method"`
	Refined             bool    `json:"refined,omitempty"`
}

// DetailTags are fine-grained tags attached after two-axis labeling.
type DetailTags struct {
	CategoryTags []string `json:"category_tags"`
	FreeTags     []string `json:"free_tags"`
	Summary      string   `json:"summary"`
	ParseOK      bool     `json:"parse_ok"`
}

// LabeledItem is a FeedbackItem plus classification output.
type LabeledItem struct {
	FeedbackItem
	Classification *Classification        `json:"classification,omitempty"`
	TwoAxis        *TwoAxisClassification `json:"two_axis,omitempty"`
	Tags           *DetailTags            `json:"tags,omitempty"`
}

// Topic returns the two-axis topic, or "" when the item has none.
func (l LabeledItem) Topic() string {
	if l.TwoAxis == nil {
		return ""
	}
	return l.TwoAxis.Topic
}

// Sentiment returns the two-axis sentiment, or "" when the item has none.
func (l LabeledItem) Sentiment() string {
	if l.TwoAxis == nil {
		return ""
	}
	return l.TwoAxis.Sentiment
}

// Category returns the one-axis category, or "" when the item has none.
func (l LabeledItem) Category() string {
	if l.Classification == nil {
		return ""
	}
	return l.Classification.Category
}
