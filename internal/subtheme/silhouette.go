// ABOUTME: Cluster quality scoring used to choose the number of sub-themes
// ABOUTME: Silhouette is computed on a seeded sample so large topics stay cheap
package subtheme

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// QualityMetric scores a labeling of points; higher is better.
type QualityMetric func(points [][]float64, labels []int) float64

// SilhouetteSampleSize caps the points scored by Silhouette.
const SilhouetteSampleSize = 500

// Silhouette returns the mean silhouette coefficient over a deterministic
// sample of at most SilhouetteSampleSize points. It returns -1 when the
// labeling has fewer than two clusters or every point is its own cluster.
func Silhouette(points [][]float64, labels []int) float64 {
	idx := sampleIndices(len(points), SilhouetteSampleSize)

	sp := make([][]float64, len(idx))
	sl := make([]int, len(idx))
	for j, i := range idx {
		sp[j] = points[i]
		sl[j] = labels[i]
	}
	return silhouette(sp, sl)
}

func sampleIndices(n, size int) []int {
	if n <= size {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewPCG(0, uint64(n)))
	idx := rng.Perm(n)[:size]
	slices.Sort(idx)
	return idx
}

func silhouette(points [][]float64, labels []int) float64 {
	n := len(points)
	sizes := map[int]int{}
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) >= n {
		return -1
	}

	var total float64
	for i, p := range points {
		if sizes[labels[i]] == 1 {
			// Singletons score zero.
			continue
		}

		sums := map[int]float64{}
		for j, q := range points {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(p, q, 2)
		}

		a := sums[labels[i]] / float64(sizes[labels[i]]-1)
		b := -1.0
		for l, s := range sums {
			if l == labels[i] {
				continue
			}
			if mean := s / float64(sizes[l]); b < 0 || mean < b {
				b = mean
			}
		}

		if denom := max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}
