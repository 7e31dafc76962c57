package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	g := Grid(100, 5)
	assert.Equal(t, []float64{0, 25, 50, 75, 100}, g)
	assert.Equal(t, []float64{0}, Grid(100, 1))
}

func TestLinearPredict(t *testing.T) {
	l, err := NewLinear([]float64{0, 10, 20}, []float64{0, 10, 40})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, l.Predict(5), 1e-9)
	assert.InDelta(t, 25.0, l.Predict(15), 1e-9)
	// past the ends the outer segment slopes continue
	assert.InDelta(t, -5.0, l.Predict(-5), 1e-9)
	assert.InDelta(t, 55.0, l.Predict(25), 1e-9)
}

func TestLinearCollapsesDuplicates(t *testing.T) {
	l, err := NewLinear([]float64{0, 0, 10}, []float64{1, 9, 11})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, l.Predict(0), 1e-9)
	assert.InDelta(t, 6.0, l.Predict(5), 1e-9)
}

func TestLinearRejectsBadInput(t *testing.T) {
	_, err := NewLinear([]float64{0, 1}, []float64{0})
	assert.Error(t, err)
	_, err = NewLinear([]float64{1, 0}, []float64{0, 1})
	assert.Error(t, err)
	_, err = NewLinear([]float64{5, 5}, []float64{0, 1})
	assert.Error(t, err)
}

func TestPredictAll(t *testing.T) {
	l, err := NewLinear([]float64{0, 10}, []float64{0, 100})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 50, 100}, l.PredictAll([]float64{0, 5, 10}))
}
