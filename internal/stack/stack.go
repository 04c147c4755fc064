// ABOUTME: Builds the classifier stack from configuration for the CLI and benchmark runner
// ABOUTME: Opens the index, wraps the LLM in a metered budget, and loads trained models when configured
package stack

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/config"
	"github.com/harper/feedback-radar/internal/ensemble"
	"github.com/harper/feedback-radar/internal/knn"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/pipeline"
	"github.com/harper/feedback-radar/internal/seed"
	"github.com/harper/feedback-radar/internal/seqclf"
	"github.com/harper/feedback-radar/internal/storage/sqlite"
	"github.com/harper/feedback-radar/internal/subtheme"
	"github.com/harper/feedback-radar/internal/tags"
	"github.com/harper/feedback-radar/internal/trend"
	"github.com/harper/feedback-radar/internal/twoaxis"
	"github.com/harper/feedback-radar/internal/vectorstore"
)

// Stack holds the components one command invocation uses. Metered,
// Ensemble, and TwoAxis are nil when not configured.
type Stack struct {
	Config   *config.Config
	DB       *sqlite.DB
	Embedder llm.Embedder
	Store    *vectorstore.Store
	Metered  *llm.Metered

	KNN      *knn.Classifier
	Ensemble *ensemble.Ensemble
	TwoAxis  *twoaxis.Classifier

	models []*seqclf.Model
	logger *log.Logger
}

// Options selects which parts Open builds.
type Options struct {
	// CreateIndex creates the collection when it does not exist yet.
	CreateIndex bool
	// InMemory uses a throwaway database instead of Config.DBPath.
	InMemory bool
	// Classifiers builds the k-NN classifier and any trained models.
	Classifiers bool
	Logger      *log.Logger
}

// Open builds a Stack from cfg. Any failure is a setup error and nothing is
// left open.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Stack, error) {
	s := &Stack{Config: cfg, logger: opts.Logger}
	if s.logger == nil {
		s.logger = log.Default()
	}

	if err := s.openIndex(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}

	if cfg.LLMEnabled {
		completer, err := llm.NewCompleter(cfg.LLMConfig())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("initializing LLM client: %w", err)
		}
		s.Metered = llm.NewMetered(completer, cfg.MaxLLMCalls)
		s.logger.Debug("LLM enabled", "provider", cfg.Provider, "max_calls", cfg.MaxLLMCalls)
	}

	if opts.Classifiers {
		if err := s.buildClassifiers(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Stack) openIndex(ctx context.Context, opts Options) error {
	switch s.Config.Embedder {
	case config.EmbedderOpenAI:
		client, err := llm.NewOpenAIClientWithConfig(s.Config.EmbedderConfig())
		if err != nil {
			return fmt.Errorf("initializing embedder: %w", err)
		}
		s.Embedder = client
	default:
		s.Embedder = vectorstore.NewHashEmbedder(s.Config.HashDim)
	}

	var err error
	if opts.InMemory {
		s.DB, err = sqlite.OpenInMemory()
	} else {
		s.DB, err = sqlite.Open(s.Config.DBPath)
	}
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	storeOpts := []vectorstore.Option{vectorstore.WithLogger(s.logger)}
	if opts.CreateIndex || opts.InMemory {
		storeOpts = append(storeOpts, vectorstore.WithCreateIfMissing())
	}
	s.Store, err = vectorstore.Open(ctx, s.DB, s.Config.Collection, s.Embedder, storeOpts...)
	if err != nil {
		return fmt.Errorf("opening index (run 'radar seed' first?): %w", err)
	}
	return nil
}

func (s *Stack) buildClassifiers() error {
	cfg := s.Config

	rules, err := seed.Rules(cfg.RulesPath)
	if err != nil {
		return err
	}
	knnOpts := []knn.Option{
		knn.WithK(cfg.K),
		knn.WithThreshold(cfg.Threshold),
		knn.WithRules(rules),
		knn.WithWorkers(cfg.Workers),
		knn.WithLogger(s.logger),
	}
	if s.Metered != nil {
		rubric, err := seed.Rubric(cfg.RubricPath)
		if err != nil {
			return err
		}
		escalator, err := llm.NewRubricClassifier(s.Metered, rubric)
		if err != nil {
			return err
		}
		knnOpts = append(knnOpts, knn.WithEscalator(escalator))
	}
	s.KNN, err = knn.New(s.Store, knnOpts...)
	if err != nil {
		return err
	}

	if cfg.SequenceModelDir != "" {
		model, err := s.loadModel(cfg.SequenceModelDir)
		if err != nil {
			return err
		}
		labels, err := seed.LabelMap(cfg.LabelMapPath)
		if err != nil {
			return err
		}
		s.Ensemble, err = ensemble.New(s.KNN, model, labels, ensemble.WithLogger(s.logger))
		if err != nil {
			return err
		}
	}

	if cfg.TopicModelDir != "" && cfg.SentimentModelDir != "" {
		topic, err := s.loadModel(cfg.TopicModelDir)
		if err != nil {
			return err
		}
		sentiment, err := s.loadModel(cfg.SentimentModelDir)
		if err != nil {
			return err
		}
		lexicon, err := seed.Lexicon(cfg.LexiconPath)
		if err != nil {
			return err
		}
		s.TwoAxis, err = twoaxis.New(topic, sentiment, lexicon, twoaxis.WithLogger(s.logger))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Stack) loadModel(dir string) (*seqclf.Model, error) {
	model, err := seqclf.Load(dir, seqclf.WithTimeout(s.Config.Timeout), seqclf.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", dir, err)
	}
	s.models = append(s.models, model)
	s.logger.Debug("loaded model", "dir", dir, "labels", len(model.Labels()))
	return model, nil
}

// Completer returns the metered LLM, or a nil interface when disabled.
func (s *Stack) Completer() llm.Completer {
	if s.Metered == nil {
		return nil
	}
	return s.Metered
}

// Classifier returns the ensemble when a sequence model is loaded.
func (s *Stack) Classifier() pipeline.OneAxisClassifier {
	if s.Ensemble != nil {
		return s.Ensemble
	}
	return s.KNN
}

// Usage returns LLM traffic so far.
func (s *Stack) Usage() llm.Usage {
	if s.Metered == nil {
		return llm.Usage{}
	}
	return s.Metered.Usage()
}

// Pipeline wires the batch job. Two-axis labels are used when both models
// are configured; otherwise the one-axis labels are mapped onto the axes.
func (s *Stack) Pipeline() (*pipeline.Pipeline, error) {
	cfg := s.Config

	detector := trend.NewDetector()
	detector.SpikeThresholdPp = cfg.SpikeThresholdPp
	detector.MinVolume = cfg.MinVolume
	detector.Logger = s.logger

	opts := []pipeline.Option{
		pipeline.WithDetector(detector),
		pipeline.WithLogger(s.logger),
	}
	if s.TwoAxis != nil {
		opts = append(opts, pipeline.WithTwoAxis(s.TwoAxis))
	} else if s.KNN != nil {
		opts = append(opts, pipeline.WithOneAxis(s.Classifier()))
	}
	if s.Metered != nil {
		opts = append(opts, pipeline.WithUsage(s.Metered))
	}

	if cfg.DetailTags {
		catalog, err := seed.TagCatalog(cfg.TagCatalogPath)
		if err != nil {
			return nil, err
		}
		extractor, err := tags.NewExtractor(s.Completer(), catalog,
			tags.WithWorkers(cfg.Workers), tags.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithTagger(extractor))
	}

	if cfg.SubThemes {
		analyzer := subtheme.NewAnalyzer(s.Embedder, s.Completer())
		analyzer.Workers = cfg.Workers
		analyzer.Logger = s.logger
		opts = append(opts, pipeline.WithAnalyzer(analyzer))
	}

	return pipeline.New(opts...)
}

// Close releases the loaded models and the database.
func (s *Stack) Close() {
	for _, m := range s.models {
		if err := m.Close(); err != nil {
			s.logger.Warn("closing model", "dir", m.Dir(), "error", err)
		}
	}
	s.models = nil
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.logger.Warn("closing database", "error", err)
		}
	}
}
