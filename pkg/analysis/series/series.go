// Package series holds the shared numeric helpers of the analysis
// packages: distance grids and a piecewise linear predictor that,
// unlike a clamped fit, extends the outer segments past the data.
package series

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Grid returns n evenly spaced points from 0 to hi inclusive.
func Grid(hi float64, n int) []float64 {
	if n == 1 {
		return []float64{0}
	}
	dst := make([]float64, n)
	floats.Span(dst, 0, hi)
	return dst
}

// Linear is a piecewise linear predictor over strictly increasing xs.
// Queries outside the fitted range follow the slope of the nearest
// outer segment.
type Linear struct {
	xs []float64
	ys []float64
}

// NewLinear fits a predictor to (xs, ys). xs must be non decreasing;
// consecutive duplicates are collapsed, keeping the first value. At
// least two distinct xs are required.
func NewLinear(xs, ys []float64) (*Linear, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("mismatched series lengths %d and %d", len(xs), len(ys))
	}
	l := &Linear{}
	for i := range xs {
		if i > 0 && xs[i] < xs[i-1] {
			return nil, fmt.Errorf("xs not sorted at index %d", i)
		}
		if len(l.xs) > 0 && xs[i] == l.xs[len(l.xs)-1] {
			continue
		}
		l.xs = append(l.xs, xs[i])
		l.ys = append(l.ys, ys[i])
	}
	if len(l.xs) < 2 {
		return nil, fmt.Errorf("need at least 2 distinct xs, got %d", len(l.xs))
	}
	return l, nil
}

// Predict evaluates the fit at x.
func (l *Linear) Predict(x float64) float64 {
	n := len(l.xs)
	// pick the segment; queries beyond either end reuse the outermost one
	j := sort.SearchFloat64s(l.xs, x)
	if j < 1 {
		j = 1
	}
	if j > n-1 {
		j = n - 1
	}
	x0, x1 := l.xs[j-1], l.xs[j]
	y0, y1 := l.ys[j-1], l.ys[j]
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// PredictAll evaluates the fit at every grid point.
func (l *Linear) PredictAll(grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = l.Predict(x)
	}
	return out
}
