// ABOUTME: Seeded k-means with k-means++ initialization and best-of-n restarts
// ABOUTME: The same seed and input always produce the same assignment
package subtheme

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

const maxIterations = 300

// Clustering is one k-means solution.
type Clustering struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

// KMeans runs nInit seeded restarts and keeps the lowest inertia.
// Callers ensure 1 <= k <= len(points).
func KMeans(points [][]float64, k, nInit int, seed uint64) Clustering {
	if nInit < 1 {
		nInit = 1
	}

	var best Clustering
	best.Inertia = math.Inf(1)
	for run := 0; run < nInit; run++ {
		rng := rand.New(rand.NewPCG(seed, uint64(run)))
		c := lloyd(points, initPlusPlus(points, k, rng))
		if c.Inertia < best.Inertia {
			best = c
		}
	}
	return best
}

// initPlusPlus picks k starting centroids, each new one drawn with
// probability proportional to its squared distance from the nearest pick.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(n)]))

	nearest := make([]float64, n)
	for i, p := range points {
		nearest[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(nearest)
		next := 0
		if total <= 0 {
			next = rng.IntN(n)
		} else {
			target := rng.Float64() * total
			for i, w := range nearest {
				target -= w
				if target <= 0 {
					next = i
					break
				}
				next = i
			}
		}

		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64) Clustering {
	n, k := len(points), len(centroids)
	dim := len(points[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			if c := closest(p, centroids); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Reseed an empty cluster at the point worst served by its centroid.
				far := farthest(points, labels, centroids)
				centroids[c] = clone(points[far])
				labels[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return Clustering{Labels: labels, Centroids: centroids, Inertia: inertia}
}

func closest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthest(points [][]float64, labels []int, centroids [][]float64) int {
	idx, worst := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > worst {
			idx, worst = i, d
		}
	}
	return idx
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
