// ABOUTME: Topic and sentiment label sets plus one-axis compatibility mappings
// ABOUTME: Lets reports built on the older single-axis categories read two-axis output
package twoaxis

import "github.com/harper/feedback-radar/internal/models"

// Topic labels.
const (
	TopicContent   = "콘텐츠 반응"
	TopicInvesting = "투자 이야기"
	TopicService   = "서비스 이슈"
	TopicCommunity = "커뮤니티 소통"
)

// Sentiment labels.
const (
	SentimentPositive = "긍정"
	SentimentNegative = "부정"
	SentimentNeutral  = "중립"
)

// Topics lists topic labels in model id order.
var Topics = []string{TopicContent, TopicInvesting, TopicService, TopicCommunity}

// Sentiments lists sentiment labels in model id order.
var Sentiments = []string{SentimentPositive, SentimentNegative, SentimentNeutral}

// Pair is a (topic, sentiment) label pair.
type Pair struct {
	Topic     string `json:"topic"`
	Sentiment string `json:"sentiment"`
}

var oneToTwo = map[string]Pair{
	"감사·후기":     {TopicContent, SentimentPositive},
	"질문·토론":     {TopicInvesting, SentimentNeutral},
	"정보성 글":     {TopicInvesting, SentimentNeutral},
	"서비스 피드백":   {TopicService, SentimentNeutral},
	"서비스 불편사항":  {TopicService, SentimentNegative},
	"서비스 제보/건의": {TopicService, SentimentNeutral},
	"불편사항":      {TopicService, SentimentNegative},
	"일상·공감":     {TopicCommunity, SentimentPositive},
}

var twoToOne = map[Pair]string{
	{TopicContent, SentimentPositive}:   "감사·후기",
	{TopicContent, SentimentNegative}:   "일상·공감",
	{TopicContent, SentimentNeutral}:    "감사·후기",
	{TopicInvesting, SentimentPositive}: "감사·후기",
	{TopicInvesting, SentimentNegative}: "일상·공감",
	{TopicInvesting, SentimentNeutral}:  "질문·토론",
	{TopicService, SentimentPositive}:   "서비스 피드백",
	{TopicService, SentimentNegative}:   "서비스 불편사항",
	{TopicService, SentimentNeutral}:    "서비스 피드백",
	{TopicCommunity, SentimentPositive}: "일상·공감",
	{TopicCommunity, SentimentNegative}: "일상·공감",
	{TopicCommunity, SentimentNeutral}:  "일상·공감",
}

// ToTwoAxis maps a one-axis category to its default pair. Unknown
// categories land in community/neutral.
func ToTwoAxis(category string) Pair {
	if p, ok := oneToTwo[category]; ok {
		return p
	}
	return Pair{TopicCommunity, SentimentNeutral}
}

// ToOneAxis maps a pair back to a one-axis category for report compatibility.
func ToOneAxis(topic, sentiment string) string {
	if c, ok := twoToOne[Pair{topic, sentiment}]; ok {
		return c
	}
	return "일상·공감"
}

// PairOf returns the item's two-axis labels, deriving them from the one-axis
// category when the item was not two-axis labeled. Unlabeled items yield
// an empty pair.
func PairOf(item models.LabeledItem) Pair {
	if item.TwoAxis != nil {
		return Pair{Topic: item.TwoAxis.Topic, Sentiment: item.TwoAxis.Sentiment}
	}
	if item.Classification != nil {
		return ToTwoAxis(item.Classification.Category)
	}
	return Pair{}
}
