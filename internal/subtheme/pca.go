// ABOUTME: Principal component projection of embedding vectors
// ABOUTME: Centers the data and keeps the leading components before clustering
package subtheme

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateInput is returned when the vectors cannot be projected.
var ErrDegenerateInput = errors.New("degenerate input for projection")

// Project reduces points to at most components dimensions. The count is
// also capped by n-1 and the input dimension.
func Project(points [][]float64, components int) ([][]float64, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrDegenerateInput, n)
	}
	dim := len(points[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vectors", ErrDegenerateInput)
	}

	k := min(components, n-1, dim)
	if k < 1 {
		return nil, fmt.Errorf("%w: no components to keep", ErrDegenerateInput)
	}

	x := mat.NewDense(n, dim, nil)
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("%w: vector %d has length %d, want %d", ErrDegenerateInput, i, len(p), dim)
		}
		x.SetRow(i, p)
	}

	for j := 0; j < dim; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := range col {
			x.Set(i, j, col[i]-mean)
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("%w: decomposition failed", ErrDegenerateInput)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, available := vecs.Dims()
	k = min(k, available)

	var proj mat.Dense
	proj.Mul(x, vecs.Slice(0, dim, 0, k))

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &proj)
	}
	return out, nil
}
