// ABOUTME: LLM detail-tag extraction run after two-axis labeling
// ABOUTME: Picks catalog tags, free-form search tags, and a one-line summary per item
package tags

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
	"github.com/harper/feedback-radar/internal/twoaxis"
	"github.com/harper/feedback-radar/internal/util"
)

const (
	minRunes      = 10
	maxFreeTags   = 3
	maxSummary    = 60
	defaultTokens = 300
)

const systemTemplate = `당신은 금융 교육 플랫폼의 VOC(Voice of Customer) 데이터 분석가입니다.
사용자가 보낸 편지글이나 게시글을 읽고 태그를 추출합니다.
마스터는 투자 교육 커뮤니티를 운영하는 금융 콘텐츠 크리에이터입니다.

1. category_tags: 아래 목록에서 1~2개를 선택하세요. 목록에 있는 것만 선택하세요.
%s
2. free_tags: 다른 팀이 검색할 때 유용한 구체적 명사구 2~3개 (2~5단어).
   예: "게시판 폐쇄 사전 공지 부족", "ARKK 포트폴리오 비중 논란"
3. summary: 15~40자 내외의 한 줄 요약.

반드시 아래 JSON만 출력하세요:
{"category_tags": ["태그1"], "free_tags": ["태그1", "태그2"], "summary": "한 줄 요약"}`

// Stats counts extraction traffic since the extractor was built.
type Stats struct {
	Calls         int64 `json:"calls"`
	ParseFailures int64 `json:"parse_failures"`
	InvalidTags   int64 `json:"invalid_tags"`
}

// Extractor attaches DetailTags to labeled items.
type Extractor struct {
	completer llm.Completer
	catalog   Catalog
	workers   int
	maxChars  int
	logger    *log.Logger

	calls    atomic.Int64
	failures atomic.Int64
	invalid  atomic.Int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets the pool size.
func WithWorkers(n int) Option {
	return func(e *Extractor) { e.workers = n }
}

// WithMaxChars bounds the item text sent per call.
func WithMaxChars(n int) Option {
	return func(e *Extractor) { e.maxChars = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor builds an extractor. A missing completer or an empty
// catalog is a setup error.
func NewExtractor(completer llm.Completer, catalog Catalog, opts ...Option) (*Extractor, error) {
	if completer == nil {
		return nil, llm.ErrNoLLM
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("tags: catalog is empty")
	}
	e := &Extractor{
		completer: completer,
		catalog:   catalog,
		workers:   util.DefaultWorkers,
		maxChars:  llm.DefaultMaxChars,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type response struct {
	CategoryTags []string `json:"category_tags"`
	FreeTags     []string `json:"free_tags"`
	Summary      string   `json:"summary"`
}

// Extract tags one item. It never returns an error: failures come back
// with ParseOK false and are counted in Stats.
func (e *Extractor) Extract(ctx context.Context, text, topic, sentiment string) models.DetailTags {
	empty := models.DetailTags{CategoryTags: []string{}, FreeTags: []string{}}

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minRunes {
		empty.ParseOK = true
		return empty
	}

	e.calls.Add(1)
	resp, err := e.completer.Complete(ctx, llm.CompletionRequest{
		System:    e.systemPrompt(topic),
		User:      fmt.Sprintf("[감성: %s]\n\n%s", sentiment, textnorm.Truncate(trimmed, e.maxChars)),
		MaxTokens: defaultTokens,
	})
	if err != nil {
		e.failures.Add(1)
		e.logger.Warn("detail tag call failed", "topic", topic, "error", err)
		return empty
	}

	parsed, err := llm.ParseJSON[response](resp.Text)
	if err != nil {
		e.failures.Add(1)
		e.logger.Debug("detail tag parse failed", "error", err)
		return empty
	}

	out := models.DetailTags{CategoryTags: []string{}, FreeTags: []string{}, ParseOK: true}
	for _, tag := range parsed.CategoryTags {
		if e.catalog.Allows(topic, tag) {
			out.CategoryTags = append(out.CategoryTags, tag)
		} else {
			e.invalid.Add(1)
		}
	}
	for _, tag := range parsed.FreeTags {
		if len(out.FreeTags) == maxFreeTags {
			break
		}
		if tag = strings.TrimSpace(tag); tag != "" {
			out.FreeTags = append(out.FreeTags, tag)
		}
	}
	out.Summary = textnorm.Truncate(strings.TrimSpace(parsed.Summary), maxSummary)
	return out
}

// ExtractBatch tags every item in order. Items without a two-axis label
// are treated as community/neutral.
func (e *Extractor) ExtractBatch(ctx context.Context, items []models.LabeledItem) []models.DetailTags {
	return util.MapOrdered(ctx, e.workers, len(items), func(ctx context.Context, i int) models.DetailTags {
		pair := twoaxis.PairOf(items[i])
		if pair.Topic == "" {
			pair = twoaxis.Pair{Topic: twoaxis.TopicCommunity, Sentiment: twoaxis.SentimentNeutral}
		}
		return e.Extract(ctx, items[i].Text, pair.Topic, pair.Sentiment)
	})
}

// Stats returns the current counters.
func (e *Extractor) Stats() Stats {
	return Stats{
		Calls:         e.calls.Load(),
		ParseFailures: e.failures.Load(),
		InvalidTags:   e.invalid.Load(),
	}
}

func (e *Extractor) systemPrompt(topic string) string {
	var b strings.Builder
	for _, tag := range e.catalog[topic] {
		fmt.Fprintf(&b, "- %s\n", tag)
	}
	return fmt.Sprintf(systemTemplate, strings.TrimRight(b.String(), "\n"))
}
