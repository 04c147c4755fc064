// ABOUTME: Tests for the offline hash embedder
// ABOUTME: Determinism, unit norm, and neighbor quality on near-duplicates
package vectorstore

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(32)
	ctx := context.Background()

	a, _ := h.Embed(ctx, []string{"서비스 오류가 계속 납니다"})
	b, _ := h.Embed(ctx, []string{"서비스 오류가 계속 납니다"})
	if !reflect.DeepEqual(a, b) {
		t.Error("same text produced different vectors")
	}
	if len(a[0]) != 32 {
		t.Errorf("len(vector) = %d, want 32", len(a[0]))
	}

	var norm float64
	for _, v := range a[0] {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("squared norm = %v, want 1", norm)
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	got, _ := NewHashEmbedder(0).Embed(context.Background(), []string{""})
	if len(got[0]) != DefaultHashDim {
		t.Errorf("len(vector) = %d, want %d", len(got[0]), DefaultHashDim)
	}
	for _, v := range got[0] {
		if v != 0 {
			t.Fatal("empty text should embed to the zero vector")
		}
	}
}

func TestHashEmbedder_NearDuplicatesAreCloser(t *testing.T) {
	h := NewHashEmbedder(256)
	vecs, _ := h.Embed(context.Background(), []string{
		"환불 요청 드립니다 빠른 처리 부탁드려요",
		"환불 요청 드립니다 처리 부탁드려요",
		"오늘 시장 분석 강의 감사합니다",
	})

	near := CosineDistance(vecs[0], vecs[1], 0)
	far := CosineDistance(vecs[0], vecs[2], 0)
	if near >= far {
		t.Errorf("near distance %v should be below far distance %v", near, far)
	}
}

func TestHashEmbedder_Model(t *testing.T) {
	if got := NewHashEmbedder(64).Model(); got != "hash-64" {
		t.Errorf("Model() = %s, want hash-64", got)
	}
}
