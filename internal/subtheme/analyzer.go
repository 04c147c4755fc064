// ABOUTME: Sub-theme discovery inside the service-issue topic plus negative pattern summaries
// ABOUTME: Embeds, projects, clusters, and asks the LLM for short labels under a shared call budget
package subtheme

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
	"github.com/harper/feedback-radar/internal/twoaxis"
	"github.com/harper/feedback-radar/internal/util"
)

// SummaryFailed is the summary recorded when a pattern summary call fails.
const SummaryFailed = "- 요약 생성 실패"

const labelSystem = "당신은 고객 피드백 분석가입니다. 주어진 피드백 묶음의 공통 주제를 2~4단어 명사구로만 답하세요."

const summarySystem = "당신은 고객 피드백 분석가입니다. 부정 피드백에서 반복되는 불만 테마를 간결하게 정리합니다."

// Analyzer finds sub-themes in the issue topic and summarizes negative
// patterns elsewhere. Start from NewAnalyzer; fields may be tuned before use.
type Analyzer struct {
	Embedder  llm.Embedder
	Completer llm.Completer

	IssueTopic       string
	NegativeLabel    string
	Topics           []string
	MinItems         int
	NotableNegatives int
	MaxComponents    int
	MinK             int
	MaxK             int
	Seed             uint64
	NInit            int
	Metric           QualityMetric
	Workers          int
	MaxLLMCalls      int

	EmbedChars        int
	SampleChars       int
	MaxClusterSamples int
	MaxSummarySamples int
	TopCohorts        int

	Logger *log.Logger
}

// NewAnalyzer returns an Analyzer with the standard settings. completer may
// be nil, in which case labels and summaries fall back without calls.
func NewAnalyzer(embedder llm.Embedder, completer llm.Completer) *Analyzer {
	return &Analyzer{
		Embedder:          embedder,
		Completer:         completer,
		IssueTopic:        twoaxis.TopicService,
		NegativeLabel:     twoaxis.SentimentNegative,
		Topics:            twoaxis.Topics,
		MinItems:          10,
		NotableNegatives:  5,
		MaxComponents:     50,
		MinK:              3,
		MaxK:              15,
		Seed:              42,
		NInit:             10,
		Metric:            Silhouette,
		Workers:           util.DefaultWorkers,
		EmbedChars:        500,
		SampleChars:       200,
		MaxClusterSamples: 5,
		MaxSummarySamples: 20,
		TopCohorts:        3,
		Logger:            log.Default(),
	}
}

type run struct {
	*Analyzer
	completer *llm.Metered
	failures  atomic.Int64
}

// Analyze runs clustering and pattern summaries over one period's items.
// LLM problems never fail the call; they show up in LLMFailure.
func (a *Analyzer) Analyze(ctx context.Context, items []models.LabeledItem) (*models.SubThemeResult, error) {
	r := &run{Analyzer: a}
	if a.Completer != nil {
		r.completer = llm.NewMetered(a.Completer, a.MaxLLMCalls)
	}

	result := &models.SubThemeResult{Topic: a.IssueTopic, Clusters: []models.Cluster{}}

	var issues []models.LabeledItem
	for _, item := range items {
		if twoaxis.PairOf(item).Topic == a.IssueTopic {
			issues = append(issues, item)
		}
	}

	switch {
	case len(issues) < a.MinItems:
		result.Skipped = fmt.Sprintf("%d items, need %d", len(issues), a.MinItems)
	case a.Embedder == nil:
		result.Skipped = "no embedder configured"
	default:
		if err := r.cluster(ctx, issues, result); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.Logger.Warn("sub-theme clustering skipped", "topic", a.IssueTopic, "error", err)
			result.Skipped = err.Error()
			result.Clusters = []models.Cluster{}
		}
	}

	result.Notable = r.notable(ctx, items)

	if r.completer != nil {
		usage := r.completer.Usage()
		result.LLMCalls = int(usage.Calls)
	}
	result.LLMFailure = int(r.failures.Load())
	return result, nil
}

func (r *run) cluster(ctx context.Context, issues []models.LabeledItem, result *models.SubThemeResult) error {
	texts := make([]string, len(issues))
	for i, item := range issues {
		texts[i] = textnorm.Truncate(item.Text, r.EmbedChars)
	}

	vectors, err := r.Embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed issue texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	points, err := Project(vectors, r.MaxComponents)
	if err != nil {
		return err
	}

	k, score := r.chooseK(points)
	final := KMeans(points, k, r.NInit, r.Seed)

	grouped := make([][]models.LabeledItem, k)
	for i, label := range final.Labels {
		grouped[label] = append(grouped[label], issues[i])
	}
	// Lloyd can leave a partition empty when points repeat; those are not themes
	var members [][]models.LabeledItem
	for _, group := range grouped {
		if len(group) > 0 {
			members = append(members, group)
		}
	}
	if len(members) < k {
		r.Logger.Debug("dropped empty clusters", "k", k, "kept", len(members))
	}
	k = len(members)
	result.K = k
	result.Score = score

	clusters := make([]models.Cluster, k)
	for c := range clusters {
		clusters[c] = models.Cluster{ID: c, SentimentDist: map[string]int{}}
	}

	for c, group := range members {
		cl := &clusters[c]
		cl.Count = len(group)
		for _, item := range group {
			if s := twoaxis.PairOf(item).Sentiment; s != "" {
				cl.SentimentDist[s]++
			}
			cl.MemberIDs = append(cl.MemberIDs, item.ID)
			if len(cl.Samples) < r.MaxClusterSamples {
				cl.Samples = append(cl.Samples, textnorm.Truncate(item.Text, r.SampleChars))
			}
		}
		cl.TopCohorts = topCohorts(group, r.TopCohorts)
	}

	labels := util.MapOrdered(ctx, r.Workers, k, func(ctx context.Context, c int) string {
		return r.label(ctx, clusters[c].Samples)
	})
	for c := range clusters {
		clusters[c].Label = labels[c]
	}

	// Largest first; ids stay stable for MemberIDs lookups.
	slices.SortStableFunc(clusters, func(x, y models.Cluster) int {
		return cmp.Compare(y.Count, x.Count)
	})
	result.Clusters = clusters
	return nil
}

// chooseK scores each k in [MinK, min(MaxK, n/3, distinct points)] and keeps
// the first best. MinK is used when n/3 is smaller, but k never exceeds the
// number of distinct points.
func (r *run) chooseK(points [][]float64) (int, float64) {
	distinct := countDistinct(points)
	upper := min(r.MaxK, len(points)/3, distinct)
	metric := r.Metric
	if metric == nil {
		metric = Silhouette
	}

	bestK, bestScore := r.MinK, -1.0
	for k := r.MinK; k <= upper; k++ {
		c := KMeans(points, k, r.NInit, r.Seed)
		score := metric(points, c.Labels)
		r.Logger.Debug("scored k", "k", k, "score", score, "inertia", c.Inertia)
		if score > bestScore {
			bestK, bestScore = k, score
		}
	}
	if distinct < r.MinK && distinct >= 2 {
		bestK = distinct
		bestScore = metric(points, KMeans(points, bestK, r.NInit, r.Seed).Labels)
	}
	bestK = min(bestK, distinct)
	return bestK, bestScore
}

func countDistinct(points [][]float64) int {
	seen := make(map[string]struct{}, len(points))
	var b strings.Builder
	for _, p := range points {
		b.Reset()
		for _, x := range p {
			b.WriteString(strconv.FormatUint(math.Float64bits(x), 16))
			b.WriteByte(',')
		}
		seen[b.String()] = struct{}{}
	}
	return len(seen)
}

func (r *run) label(ctx context.Context, samples []string) string {
	if r.completer == nil || len(samples) == 0 {
		return r.IssueTopic
	}

	var b strings.Builder
	b.WriteString("다음은 같은 그룹으로 묶인 고객 피드백입니다. 이 그룹의 공통 주제를 2~4단어로 요약하세요.\n")
	b.WriteString("예시: \"환불 요청\", \"강의 접속 장애\", \"멤버십 해지 문의\", \"콘텐츠 업로드 지연\"\n\n")
	for _, s := range samples {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n주제:")

	resp, err := r.completer.Complete(ctx, llm.CompletionRequest{
		System:      labelSystem,
		User:        b.String(),
		MaxTokens:   30,
		Temperature: 0.1,
	})
	if err != nil {
		r.failures.Add(1)
		r.Logger.Warn("cluster label failed", "error", err)
		return r.IssueTopic
	}

	label := strings.Trim(strings.TrimSpace(resp.Text), "\"'`“”‘’ ")
	if label == "" {
		r.failures.Add(1)
		return r.IssueTopic
	}
	return label
}

func (r *run) notable(ctx context.Context, items []models.LabeledItem) []models.NotablePattern {
	var patterns []models.NotablePattern
	var negatives [][]models.LabeledItem

	for _, topic := range r.Topics {
		if topic == r.IssueTopic {
			continue
		}
		var total int
		var neg []models.LabeledItem
		for _, item := range items {
			pair := twoaxis.PairOf(item)
			if pair.Topic != topic {
				continue
			}
			total++
			if pair.Sentiment == r.NegativeLabel {
				neg = append(neg, item)
			}
		}
		if len(neg) < r.NotableNegatives {
			continue
		}

		patterns = append(patterns, models.NotablePattern{
			Topic:         topic,
			NegativeCount: len(neg),
			TotalInTopic:  total,
			NegativeRatio: math.Round(float64(len(neg))/float64(total)*1000) / 10,
			TopCohorts:    topCohorts(neg, r.TopCohorts),
		})
		negatives = append(negatives, neg)
	}

	summaries := util.MapOrdered(ctx, r.Workers, len(patterns), func(ctx context.Context, i int) string {
		return r.summarize(ctx, patterns[i].Topic, negatives[i])
	})
	for i := range patterns {
		patterns[i].Summary = summaries[i]
	}
	if patterns == nil {
		patterns = []models.NotablePattern{}
	}
	return patterns
}

func (r *run) summarize(ctx context.Context, topic string, negatives []models.LabeledItem) string {
	if r.completer == nil {
		return SummaryFailed
	}

	var b strings.Builder
	fmt.Fprintf(&b, "다음은 '%s' 주제의 부정 피드백입니다.\n", topic)
	b.WriteString("반복되는 불만 테마 2~3개를 \"- \"로 시작하는 한 줄씩 정리하세요.\n\n")
	for i, item := range negatives {
		if i >= r.MaxSummarySamples {
			break
		}
		fmt.Fprintf(&b, "- %s\n", textnorm.Truncate(item.Text, r.SampleChars))
	}

	resp, err := r.completer.Complete(ctx, llm.CompletionRequest{
		System:      summarySystem,
		User:        b.String(),
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		r.failures.Add(1)
		r.Logger.Warn("pattern summary failed", "topic", topic, "error", err)
		return SummaryFailed
	}
	return strings.TrimSpace(resp.Text)
}

// topCohorts returns the n most frequent cohorts, ties broken by name.
func topCohorts(items []models.LabeledItem, n int) []models.CohortCount {
	counts := map[string]int{}
	for _, item := range items {
		counts[item.CohortKey()]++
	}
	out := make([]models.CohortCount, 0, len(counts))
	for cohort, count := range counts {
		out = append(out, models.CohortCount{Cohort: cohort, Count: count})
	}
	slices.SortFunc(out, func(x, y models.CohortCount) int {
		return cmp.Or(cmp.Compare(y.Count, x.Count), cmp.Compare(x.Cohort, y.Cohort))
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
