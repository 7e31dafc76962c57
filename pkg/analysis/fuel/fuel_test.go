package fuel

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
)

// fuelLap builds a lap over [0, maxDist] whose fuel level drops
// linearly from startFuel by usedFuel.
func fuelLap(num, n int, maxDist, startFuel, usedFuel float64) *model.ResampledLap {
	lap := &model.ResampledLap{LapNumber: num, LapTime: 90, FrameCount: n}
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		liters := startFuel - usedFuel*frac
		lap.Samples = append(lap.Samples, model.LapSample{
			LapDistance:  maxDist * frac,
			FuelLiters:   liters,
			FuelLevelPct: liters / 100,
			FuelCapacity: 100,
			Speed:        40 + 10*frac,
			Throttle:     0.7,
			Gear:         4,
		})
	}
	return lap
}

func TestAnalyzeLap(t *testing.T) {
	res, err := AnalyzeLap(fuelLap(3, 200, 4000, 50, 2))
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 3, s.LapNumber)
	assert.InDelta(t, 50.0, s.FuelStartLiters, 1e-9)
	assert.InDelta(t, 48.0, s.FuelEndLiters, 1e-9)
	assert.InDelta(t, 2.0, s.FuelUsedLiters, 1e-9)
	assert.InDelta(t, 0.5, s.ConsumptionPerKm, 1e-9)
	assert.InDelta(t, 24.0, float64(s.EstimatedLapsRemaining), 1e-9)

	require.Len(t, res.Curve, SingleLapGridPoints)
	assert.InDelta(t, 0.0, res.Curve[0].LapDistance, 1e-9)
	assert.InDelta(t, 4000.0, res.Curve[len(res.Curve)-1].LapDistance, 1e-9)
	assert.InDelta(t, 50.0, res.Curve[0].FuelLiters, 1e-6)
	assert.InDelta(t, 48.0, res.Curve[len(res.Curve)-1].FuelLiters, 1e-6)
	// percentage curve tracks the liters curve
	assert.InDelta(t, 0.5, res.Curve[0].FuelLevelPct, 1e-6)
}

func TestAnalyzeLapNoConsumption(t *testing.T) {
	res, err := AnalyzeLap(fuelLap(1, 100, 3000, 40, 0))
	require.NoError(t, err)

	s := res.Summary
	assert.InDelta(t, 0.0, s.FuelUsedLiters, 1e-9)
	assert.InDelta(t, 0.0, s.ConsumptionPerKm, 1e-9)
	assert.True(t, math.IsInf(float64(s.EstimatedLapsRemaining), 1))

	buf, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(buf), `"estimated_laps_remaining":null`)
}

func TestAnalyzeLapRejectsDegenerateLap(t *testing.T) {
	_, err := AnalyzeLap(&model.ResampledLap{LapNumber: 1})
	assert.Error(t, err)
}

func TestCompareLaps(t *testing.T) {
	lap1 := fuelLap(1, 200, 4000, 50, 2)
	lap2 := fuelLap(2, 200, 4000, 48, 3)
	res, err := CompareLaps(lap1, lap2)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Summary.FuelUsedDelta, 1e-9)
	assert.InDelta(t, 0.25, res.Summary.ConsumptionDelta, 1e-9)
	assert.Equal(t, 1, res.Summary.MoreEfficientLap)

	require.Len(t, res.Points, CompareGridPoints)
	first := res.Points[0]
	assert.InDelta(t, 0.0, first.Lap1Consumed, 1e-9)
	assert.InDelta(t, 0.0, first.Lap2Consumed, 1e-9)
	last := res.Points[len(res.Points)-1]
	assert.InDelta(t, 2.0, last.Lap1Consumed, 1e-6)
	assert.InDelta(t, 3.0, last.Lap2Consumed, 1e-6)
	assert.InDelta(t, 1.0, last.Delta, 1e-6)
}

func TestCompareLapsTieFavorsFirst(t *testing.T) {
	res, err := CompareLaps(fuelLap(7, 100, 4000, 50, 2), fuelLap(9, 100, 4000, 48, 2))
	require.NoError(t, err)
	assert.Equal(t, 7, res.Summary.MoreEfficientLap)
}

func TestCompareLapsSecondMoreEfficient(t *testing.T) {
	res, err := CompareLaps(fuelLap(1, 100, 4000, 50, 3), fuelLap(2, 100, 4000, 48, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.MoreEfficientLap)
}

func TestCompareLapsCapsAtShorterLap(t *testing.T) {
	res, err := CompareLaps(fuelLap(1, 100, 3000, 50, 2), fuelLap(2, 100, 4000, 50, 2))
	require.NoError(t, err)
	assert.InDelta(t, 3000.0, res.Points[len(res.Points)-1].LapDistance, 1e-9)
}

func TestEfficiencyScatter(t *testing.T) {
	points := EfficiencyScatter(fuelLap(1, 500, 4000, 50, 5))
	require.NotEmpty(t, points)
	for _, p := range points {
		assert.Greater(t, p.FuelUsedLiters, 0.0)
		assert.Equal(t, 4, p.Gear)
		assert.InDelta(t, 0.7, p.AvgThrottle, 1e-9)
		assert.Greater(t, p.AvgSpeedKph, 0.0)
	}
}

func TestEfficiencyScatterSkipsFlatSections(t *testing.T) {
	assert.Empty(t, EfficiencyScatter(fuelLap(1, 500, 4000, 50, 0)))
}
