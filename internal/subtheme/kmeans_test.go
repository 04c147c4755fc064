// ABOUTME: Tests for k-means, silhouette scoring, and the PCA projection
// ABOUTME: Synthetic blobs make the expected partitions unambiguous
package subtheme

import (
	"math"
	"testing"
)

func blobs(perGroup int) ([][]float64, []int) {
	var points [][]float64
	var truth []int
	for g := 0; g < 3; g++ {
		for j := 0; j < perGroup; j++ {
			p := make([]float64, 4)
			p[g] = 10
			p[3] = 0.1 * float64(j)
			points = append(points, p)
			truth = append(truth, g)
		}
	}
	return points, truth
}

func samePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab := map[int]int{}
	ba := map[int]int{}
	for i := range a {
		if x, ok := ab[a[i]]; ok && x != b[i] {
			return false
		}
		if y, ok := ba[b[i]]; ok && y != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}

func TestKMeansRecoversSeparatedGroups(t *testing.T) {
	points, truth := blobs(4)
	c := KMeans(points, 3, 10, 42)

	if !samePartition(c.Labels, truth) {
		t.Errorf("Labels = %v, want partition of %v", c.Labels, truth)
	}
	if len(c.Centroids) != 3 {
		t.Errorf("len(Centroids) = %d, want 3", len(c.Centroids))
	}
	if c.Inertia > 1 {
		t.Errorf("Inertia = %v, want < 1", c.Inertia)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	points, _ := blobs(5)
	a := KMeans(points, 4, 5, 7)
	b := KMeans(points, 4, 5, 7)

	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("Labels differ at %d: %d vs %d", i, a.Labels[i], b.Labels[i])
		}
	}
	if a.Inertia != b.Inertia {
		t.Errorf("Inertia = %v and %v, want equal", a.Inertia, b.Inertia)
	}
}

func TestKMeansIdenticalPoints(t *testing.T) {
	points := make([][]float64, 6)
	for i := range points {
		points[i] = []float64{1, 1}
	}
	c := KMeans(points, 3, 3, 1)

	if len(c.Labels) != 6 {
		t.Fatalf("len(Labels) = %d, want 6", len(c.Labels))
	}
	if c.Inertia != 0 {
		t.Errorf("Inertia = %v, want 0", c.Inertia)
	}
}

func TestSilhouette(t *testing.T) {
	points, truth := blobs(4)

	if got := Silhouette(points, truth); got < 0.9 {
		t.Errorf("Silhouette(true groups) = %v, want >= 0.9", got)
	}

	single := make([]int, len(points))
	if got := Silhouette(points, single); got != -1 {
		t.Errorf("Silhouette(one cluster) = %v, want -1", got)
	}
}

func TestSilhouetteSamplesLargeInputs(t *testing.T) {
	idx := sampleIndices(2000, SilhouetteSampleSize)
	if len(idx) != SilhouetteSampleSize {
		t.Fatalf("len(sample) = %d, want %d", len(idx), SilhouetteSampleSize)
	}
	again := sampleIndices(2000, SilhouetteSampleSize)
	for i := range idx {
		if idx[i] != again[i] {
			t.Fatalf("sample differs at %d", i)
		}
	}
	if got := len(sampleIndices(10, SilhouetteSampleSize)); got != 10 {
		t.Errorf("len(sample of 10) = %d, want 10", got)
	}
}

func TestProject(t *testing.T) {
	points, _ := blobs(4)

	out, err := Project(points, 50)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(out) != len(points) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(points))
	}
	if got := len(out[0]); got != 4 {
		t.Errorf("components = %d, want 4 (input dimension)", got)
	}

	out, err = Project(points, 2)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if got := len(out[0]); got != 2 {
		t.Errorf("components = %d, want 2", got)
	}

	// Projection preserves pairwise distances when no component is dropped.
	full, _ := Project(points, 50)
	before := math.Sqrt(sqDist(points[0], points[5]))
	after := math.Sqrt(sqDist(full[0], full[5]))
	if math.Abs(before-after) > 1e-9 {
		t.Errorf("distance = %v after projection, want %v", after, before)
	}
}

func TestProjectRejectsBadInput(t *testing.T) {
	if _, err := Project([][]float64{{1, 2}}, 5); err == nil {
		t.Error("Project(one point) = nil error, want error")
	}
	if _, err := Project([][]float64{{1, 2}, {1}}, 5); err == nil {
		t.Error("Project(ragged) = nil error, want error")
	}
}
