// ABOUTME: ONNX backend for the sequence classifier built on hugot's pure-Go session
// ABOUTME: Reads the HuggingFace tokenizer.json and config.json next to model.onnx
package seqclf

import (
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

type onnxBackend struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

func openONNX(dir string) (Backend, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create inference session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath:    dir,
		Name:         dir,
		OnnxFilename: ModelFile,
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("create text classification pipeline: %w", err)
	}
	return &onnxBackend{session: session, pipeline: pipeline}, nil
}

func (b *onnxBackend) Predict(texts []string) ([][]Score, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, err := b.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, err
	}
	out := make([][]Score, len(result.ClassificationOutputs))
	for i, labels := range result.ClassificationOutputs {
		out[i] = make([]Score, len(labels))
		for j, l := range labels {
			out[i][j] = Score{Label: l.Label, Prob: float64(l.Score)}
		}
	}
	return out, nil
}

func (b *onnxBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Destroy()
}
