// ABOUTME: Deterministic offline embedder built on feature hashing
// ABOUTME: Hashes words and character bigrams into a fixed-width, L2-normalized vector
package vectorstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/floats"
)

// DefaultHashDim is the vector width of a zero-configured HashEmbedder.
const DefaultHashDim = 256

// HashEmbedder needs no network and returns the same vector for the same text.
// It is good enough to make near-duplicate texts neighbors.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder returns a HashEmbedder of the given width.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashEmbedder{Dim: dim}
}

// Model implements llm.Embedder.
func (h *HashEmbedder) Model() string {
	return "hash-" + strconv.Itoa(h.dim())
}

// Embed implements llm.Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) dim() int {
	if h.Dim <= 0 {
		return DefaultHashDim
	}
	return h.Dim
}

func (h *HashEmbedder) vector(text string) []float64 {
	dim := uint64(h.dim())
	v := make([]float64, dim)

	add := func(feature string, weight float64) {
		sum := xxhash.Sum64String(feature)
		if sum>>63 == 1 {
			weight = -weight
		}
		v[sum%dim] += weight
	}

	for _, word := range strings.Fields(strings.ToLower(text)) {
		add("w:"+word, 1)
		runes := []rune(word)
		for i := 0; i+1 < len(runes); i++ {
			add("b:"+string(runes[i:i+2]), 0.5)
		}
	}

	if n := floats.Norm(v, 2); n > 0 {
		floats.Scale(1/n, v)
	}
	return v
}
