package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/frame"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/timeline"
)

func telAt(tick uint32, speed float64, gear int) *frame.Telemetry {
	return &frame.Telemetry{TickCount: tick, Speed: speed, Gear: gear, Throttle: 0.5}
}

func timAt(dist, cur float64) *frame.Timing {
	return &frame.Timing{CurrentLap: 1, LapDistance: dist, CurrentTime: cur}
}

func testLap() timeline.Lap {
	lap := timeline.Lap{Number: 1}
	for i := 0; i <= 10; i++ {
		tick := uint32(100 + i*10)
		lap.Frames = append(lap.Frames, telAt(tick, float64(tick), 3))
	}
	for i := 0; i <= 10; i++ {
		lap.Frames = append(lap.Frames, timAt(float64(i*100), float64(i*6)))
	}
	return lap
}

func TestTargetFrames(t *testing.T) {
	mk := func(n int) timeline.Lap {
		lap := timeline.Lap{}
		for i := 0; i < n; i++ {
			lap.Frames = append(lap.Frames, telAt(uint32(i), 0, 1))
		}
		return lap
	}
	assert.Equal(t, 0, TargetFrames(nil))
	assert.Equal(t, 7, TargetFrames([]timeline.Lap{mk(10), mk(20)}))
	assert.Equal(t, 1, TargetFrames([]timeline.Lap{mk(2)}))
}

func TestLapResamplesOnBothAxes(t *testing.T) {
	rl, err := Lap(testLap(), 10)
	require.NoError(t, err)

	assert.Equal(t, 10, rl.FrameCount)
	assert.Len(t, rl.Samples, 10)
	assert.Equal(t, 11, rl.OriginalTelemetryPoints)
	assert.Equal(t, 11, rl.OriginalTimingPoints)
	assert.InDelta(t, 60.0, rl.LapTime, 1e-9)

	// distance axis spans 0 to the maximum observed distance
	assert.InDelta(t, 0.0, rl.Samples[0].LapDistance, 1e-9)
	assert.InDelta(t, 1000.0, rl.Samples[9].LapDistance, 1e-9)

	// speed was fed the raw tick count, so each resampled value must
	// match the tick grid point it was interpolated at
	for i, s := range rl.Samples {
		wantTick := 100.0 + float64(i)*(100.0/9.0)
		assert.InDelta(t, wantTick, s.Speed, 1e-9, "sample %d", i)
		assert.InDelta(t, s.LapDistance*0.06, s.CurrentTime, 1e-9, "sample %d", i)
		assert.Equal(t, 3, s.Gear)
		assert.InDelta(t, 0.5, s.Throttle, 1e-9)
	}
}

func TestLapClampsOutsideTimingRange(t *testing.T) {
	lap := timeline.Lap{Number: 2}
	lap.Frames = append(lap.Frames,
		telAt(10, 50, 2), telAt(20, 60, 2),
		// first timing sample sits mid lap, so the grid start lies
		// below the fitted range and must clamp to its value
		timAt(500, 30), timAt(1000, 60),
	)
	rl, err := Lap(lap, 4)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, rl.Samples[0].CurrentTime, 1e-9)
	assert.InDelta(t, 60.0, rl.Samples[3].CurrentTime, 1e-9)
}

func TestLapTooFewFrames(t *testing.T) {
	tests := []struct {
		name   string
		frames []frame.Frame
	}{
		{"no frames", nil},
		{"single telemetry", []frame.Frame{
			telAt(1, 0, 1), timAt(0, 0), timAt(100, 5),
		}},
		{"single timing", []frame.Frame{
			telAt(1, 0, 1), telAt(2, 0, 1), timAt(0, 0),
		}},
		{"duplicate ticks only", []frame.Frame{
			telAt(5, 0, 1), telAt(5, 1, 1), timAt(0, 0), timAt(100, 5),
		}},
		{"duplicate distances only", []frame.Frame{
			telAt(1, 0, 1), telAt(2, 0, 1), timAt(50, 0), timAt(50, 5),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lap(timeline.Lap{Number: 4, Frames: tc.frames}, 5)
			var ile *InvalidLapError
			require.ErrorAs(t, err, &ile)
			assert.Equal(t, 4, ile.LapNumber)
		})
	}
}

func TestRaceFailsOnAnyInvalidLap(t *testing.T) {
	good := testLap()
	bad := timeline.Lap{Number: 2, Frames: []frame.Frame{telAt(1, 0, 1)}}
	_, err := Race([]timeline.Lap{good, bad})
	var ile *InvalidLapError
	require.ErrorAs(t, err, &ile)
	assert.Equal(t, 2, ile.LapNumber)
}

func TestRaceUsesCommonGridSize(t *testing.T) {
	laps, err := Race([]timeline.Lap{testLap(), testLap()})
	require.NoError(t, err)
	require.Len(t, laps, 2)
	// 22 frames per lap, mean 22, halved
	assert.Equal(t, 11, laps[0].FrameCount)
	assert.Equal(t, 11, laps[1].FrameCount)
}

func TestSanitize(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"clean stays untouched", []float64{1, 2, 3}, []float64{1, 2, 3}},
		{"all invalid goes to zero", []float64{nan, inf, nan}, []float64{0, 0, 0}},
		{"interior forward filled", []float64{1, nan, 3}, []float64{1, 1, 3}},
		{"leading back filled", []float64{nan, nan, 5}, []float64{5, 5, 5}},
		{"trailing forward filled", []float64{2, nan, inf}, []float64{2, 2, 2}},
		{"negative infinity", []float64{math.Inf(-1), 4}, []float64{4, 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(append([]float64(nil), tc.in...))
			assert.Equal(t, tc.want, got)
			// idempotent
			assert.Equal(t, tc.want, Sanitize(got))
		})
	}
}

func TestNearest(t *testing.T) {
	xs := []float64{0, 10, 20}
	ys := []float64{1, 2, 3}
	assert.Equal(t, 1.0, nearest(xs, ys, -5))
	assert.Equal(t, 1.0, nearest(xs, ys, 4))
	assert.Equal(t, 2.0, nearest(xs, ys, 6))
	// midpoint prefers the lower index
	assert.Equal(t, 1.0, nearest(xs, ys, 5))
	assert.Equal(t, 3.0, nearest(xs, ys, 25))
}

func TestInvalidLapErrorMessage(t *testing.T) {
	err := &InvalidLapError{LapNumber: 3, TelemetryFrames: 1, TimingFrames: 0}
	assert.True(t, errors.As(error(err), new(*InvalidLapError)))
	assert.Contains(t, err.Error(), "lap 3")
}
