package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
)

// gridLap builds a resampled lap with n samples over [0, maxDist]
// whose current time follows timeAt.
func gridLap(num, n int, maxDist float64, timeAt func(d float64) float64) *model.ResampledLap {
	lap := &model.ResampledLap{LapNumber: num, FrameCount: n}
	for i := 0; i < n; i++ {
		d := maxDist * float64(i) / float64(n-1)
		lap.Samples = append(lap.Samples, model.LapSample{
			LapDistance: d,
			CurrentTime: timeAt(d),
			Speed:       50 + d/100,
			Throttle:    0.8,
			Brake:       0.1,
			Steering:    0,
			PosX:        d,
			PosZ:        -d,
		})
	}
	lap.LapTime = timeAt(maxDist)
	return lap
}

func TestCompareIdenticalLaps(t *testing.T) {
	timeAt := func(d float64) float64 { return d * 0.05 }
	res, err := Compare(gridLap(1, 200, 2000, timeAt), gridLap(2, 200, 2000, timeAt))
	require.NoError(t, err)

	assert.Len(t, res.DeltaTime, DefaultGridPoints)
	for i, v := range res.DeltaTime {
		assert.InDelta(t, 0.0, v, 1e-9, "index %d", i)
	}
	assert.Empty(t, res.TimeLossSegments)
	assert.Empty(t, res.TimeGainSegments)
	for _, p := range res.TrackMap {
		assert.Equal(t, 0, p.Color)
	}
	assert.InDelta(t, 0.0, res.Summary.FinalDelta, 1e-9)
}

func TestCompareSlowerSecondLap(t *testing.T) {
	lap1 := gridLap(1, 200, 2000, func(d float64) float64 { return d * 0.05 })
	lap2 := gridLap(2, 200, 2000, func(d float64) float64 { return d * 0.06 })
	res, err := Compare(lap1, lap2)
	require.NoError(t, err)

	// lap 2 loses time everywhere, so delta rises monotonically
	assert.InDelta(t, 2000*0.01, res.Summary.FinalDelta, 1e-6)
	assert.Greater(t, res.Summary.MaxDelta, 0.0)
	assert.NotEmpty(t, res.TimeLossSegments)
	assert.Empty(t, res.TimeGainSegments)

	lossColored := 0
	for _, p := range res.TrackMap {
		if p.Color == 1 {
			lossColored++
		}
		assert.NotEqual(t, -1, p.Color)
	}
	assert.Greater(t, lossColored, 0)
}

func TestCompareUsesShorterLapDistance(t *testing.T) {
	lap1 := gridLap(1, 100, 1500, func(d float64) float64 { return d * 0.05 })
	lap2 := gridLap(2, 100, 2000, func(d float64) float64 { return d * 0.05 })
	res, err := Compare(lap1, lap2)
	require.NoError(t, err)
	assert.InDelta(t, 1500.0, res.Distance[len(res.Distance)-1], 1e-9)
}

func TestCompareRejectsDegenerateLap(t *testing.T) {
	lap1 := gridLap(1, 100, 1500, func(d float64) float64 { return d * 0.05 })
	short := &model.ResampledLap{LapNumber: 2, Samples: []model.LapSample{{}}}
	_, err := Compare(lap1, short)
	assert.Error(t, err)
}

func TestCompareOptions(t *testing.T) {
	timeAt := func(d float64) float64 { return d * 0.05 }
	res, err := Compare(
		gridLap(1, 100, 1000, timeAt), gridLap(2, 100, 1000, timeAt),
		WithGridPoints(100), WithWindowSize(10), WithTopSegments(2), WithTrackMapBlock(10))
	require.NoError(t, err)
	assert.Len(t, res.Distance, 100)
	assert.Len(t, res.TrackMap, 10)
}

func TestTopSegmentsGreedyNonOverlap(t *testing.T) {
	// delta ramps up over [10, 30) and [60, 80), flat elsewhere
	n := 100
	grid := make([]float64, n)
	delta := make([]float64, n)
	level := 0.0
	for i := 0; i < n; i++ {
		grid[i] = float64(i)
		if (i >= 10 && i < 30) || (i >= 60 && i < 80) {
			level += 0.1
		}
		delta[i] = level
	}

	segs := topSegments(grid, delta, 20, 5, false)
	require.NotEmpty(t, segs)
	assert.LessOrEqual(t, len(segs), 5)
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			disjoint := segs[i].EndDistance < segs[j].StartDistance ||
				segs[j].EndDistance < segs[i].StartDistance
			assert.True(t, disjoint, "segments %d and %d overlap", i, j)
		}
		assert.Greater(t, segs[i].TimeChange, 0.0)
	}

	// no time is ever gained here
	assert.Empty(t, topSegments(grid, delta, 20, 5, true))
}

func TestTopSegmentsWindowLargerThanSeries(t *testing.T) {
	assert.Empty(t, topSegments([]float64{0, 1}, []float64{0, 1}, 50, 5, false))
}

func TestTrackMapColorPrecedence(t *testing.T) {
	lap := gridLap(1, 100, 1000, func(d float64) float64 { return d * 0.05 })
	overlap := []Segment{{StartDistance: 0, EndDistance: 500, TimeChange: 1}}
	gain := []Segment{{StartDistance: 400, EndDistance: 600, TimeChange: -1}}

	points := trackMap(lap, 10, overlap, gain)
	require.Len(t, points, 10)
	for _, p := range points {
		switch {
		case p.Distance >= 400 && p.Distance <= 600:
			assert.Equal(t, -1, p.Color, "distance %f", p.Distance)
		case p.Distance <= 500:
			assert.Equal(t, 1, p.Color, "distance %f", p.Distance)
		default:
			assert.Equal(t, 0, p.Color, "distance %f", p.Distance)
		}
	}
}
