// Package resample converts variable rate lap timelines into fixed
// size grids suitable for lap to lap comparison.
package resample

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/frame"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/timeline"
)

// Reduction divides the mean raw frame count per lap to obtain the
// resampling grid size.
const Reduction = 2

// InvalidLapError marks a lap with too little data to resample. It is
// not recoverable; a capture containing such a lap fails as a whole.
type InvalidLapError struct {
	LapNumber       int
	TelemetryFrames int
	TimingFrames    int
}

func (e *InvalidLapError) Error() string {
	return fmt.Sprintf(
		"lap %d cannot be resampled: %d telemetry and %d timing frames (need at least 2 of each)",
		e.LapNumber, e.TelemetryFrames, e.TimingFrames)
}

// TargetFrames computes the grid size for a race: the mean raw frame
// count per lap divided by Reduction, never below 1.
func TargetFrames(laps []timeline.Lap) int {
	if len(laps) == 0 {
		return 0
	}
	counts := make([]float64, len(laps))
	for i := range laps {
		counts[i] = float64(len(laps[i].Frames))
	}
	n := int(math.Floor(stat.Mean(counts, nil))) / Reduction
	if n < 1 {
		n = 1
	}
	return n
}

// Race resamples every lap of a race onto a common grid size derived
// from the race itself. Any lap short on data fails the whole call.
func Race(laps []timeline.Lap) ([]*model.ResampledLap, error) {
	if len(laps) == 0 {
		return nil, nil
	}
	n := TargetFrames(laps)
	ret := make([]*model.ResampledLap, 0, len(laps))
	for i := range laps {
		rl, err := Lap(laps[i], n)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rl)
	}
	return ret, nil
}

// Lap resamples a single lap onto targetFrames rows. Telemetry
// channels are interpolated over the tick axis, distance and time over
// the lap distance axis, and both axes are zipped row by row.
func Lap(lap timeline.Lap, targetFrames int) (*model.ResampledLap, error) {
	telFrames := lap.Telemetry()
	timFrames := lap.Timings()
	if len(telFrames) < 2 || len(timFrames) < 2 {
		return nil, &InvalidLapError{
			LapNumber:       lap.Number,
			TelemetryFrames: len(telFrames),
			TimingFrames:    len(timFrames),
		}
	}
	if targetFrames < 1 {
		return nil, fmt.Errorf("target frame count %d is not positive", targetFrames)
	}

	tel, err := resampleTelemetry(telFrames, targetFrames)
	if err != nil {
		return nil, &InvalidLapError{
			LapNumber:       lap.Number,
			TelemetryFrames: len(telFrames),
			TimingFrames:    len(timFrames),
		}
	}
	tim, err := resampleTimings(timFrames, targetFrames)
	if err != nil {
		return nil, &InvalidLapError{
			LapNumber:       lap.Number,
			TelemetryFrames: len(telFrames),
			TimingFrames:    len(timFrames),
		}
	}

	samples := make([]model.LapSample, targetFrames)
	for i := range samples {
		s := &samples[i]
		s.LapDistance = tim.distances[i]
		s.CurrentTime = tim.times[i]
		s.Gear = tel.gear[i]
		for c, ch := range continuousChannels {
			ch.set(s, tel.values[c][i])
		}
	}
	return &model.ResampledLap{
		LapNumber:               lap.Number,
		LapTime:                 tim.lapTime,
		FrameCount:              targetFrames,
		OriginalTelemetryPoints: len(telFrames),
		OriginalTimingPoints:    len(timFrames),
		Samples:                 samples,
	}, nil
}

// channel binds a telemetry field to its slot in a lap sample.
type channel struct {
	name string
	get  func(*frame.Telemetry) float64
	set  func(*model.LapSample, float64)
}

var continuousChannels = []channel{
	{"throttle",
		func(t *frame.Telemetry) float64 { return t.Throttle },
		func(s *model.LapSample, v float64) { s.Throttle = v }},
	{"brake",
		func(t *frame.Telemetry) float64 { return t.Brake },
		func(s *model.LapSample, v float64) { s.Brake = v }},
	{"steering",
		func(t *frame.Telemetry) float64 { return t.Steering },
		func(s *model.LapSample, v float64) { s.Steering = v }},
	{"speed",
		func(t *frame.Telemetry) float64 { return t.Speed },
		func(s *model.LapSample, v float64) { s.Speed = v }},
	{"rpm",
		func(t *frame.Telemetry) float64 { return t.RPM },
		func(s *model.LapSample, v float64) { s.RPM = v }},
	{"yaw",
		func(t *frame.Telemetry) float64 { return t.Yaw },
		func(s *model.LapSample, v float64) { s.Yaw = v }},
	{"pos_x",
		func(t *frame.Telemetry) float64 { return t.PosX },
		func(s *model.LapSample, v float64) { s.PosX = v }},
	{"pos_z",
		func(t *frame.Telemetry) float64 { return t.PosZ },
		func(s *model.LapSample, v float64) { s.PosZ = v }},
	{"fuel_capacity",
		func(t *frame.Telemetry) float64 { return t.FuelCapacity },
		func(s *model.LapSample, v float64) { s.FuelCapacity = v }},
	{"fuel_level_percentage",
		func(t *frame.Telemetry) float64 { return t.FuelLevelPct },
		func(s *model.LapSample, v float64) { s.FuelLevelPct = v }},
	{"fuel_liters",
		func(t *frame.Telemetry) float64 { return t.FuelLiters },
		func(s *model.LapSample, v float64) { s.FuelLiters = v }},
}

type telemetrySeries struct {
	ticks  []float64
	values [][]float64 // indexed like continuousChannels
	gear   []int
}

func resampleTelemetry(frames []*frame.Telemetry, n int) (*telemetrySeries, error) {
	sorted := make([]*frame.Telemetry, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TickCount < sorted[j].TickCount
	})
	// collapse duplicate ticks, keeping the first occurrence
	uniq := sorted[:0]
	for _, f := range sorted {
		if len(uniq) == 0 || uniq[len(uniq)-1].TickCount != f.TickCount {
			uniq = append(uniq, f)
		}
	}
	if len(uniq) < 2 {
		return nil, fmt.Errorf("fewer than 2 distinct tick counts")
	}

	xs := make([]float64, len(uniq))
	for i, f := range uniq {
		xs[i] = float64(f.TickCount)
	}
	grid := span(xs[0], xs[len(xs)-1], n)

	ts := &telemetrySeries{
		ticks:  grid,
		values: make([][]float64, len(continuousChannels)),
	}
	raw := make([]float64, len(uniq))
	for c, ch := range continuousChannels {
		for i, f := range uniq {
			raw[i] = ch.get(f)
		}
		out, err := interpolate(xs, Sanitize(raw), grid)
		if err != nil {
			return nil, err
		}
		ts.values[c] = Sanitize(out)
	}

	gears := make([]float64, len(uniq))
	for i, f := range uniq {
		gears[i] = float64(f.Gear)
	}
	ts.gear = make([]int, n)
	for i, x := range grid {
		ts.gear[i] = int(nearest(xs, gears, x))
	}
	return ts, nil
}

type timingSeries struct {
	distances []float64
	times     []float64
	lapTime   float64
}

func resampleTimings(frames []*frame.Timing, n int) (*timingSeries, error) {
	sorted := make([]*frame.Timing, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LapDistance < sorted[j].LapDistance
	})
	uniq := sorted[:0]
	for _, f := range sorted {
		if len(uniq) == 0 || uniq[len(uniq)-1].LapDistance != f.LapDistance {
			uniq = append(uniq, f)
		}
	}
	if len(uniq) < 2 {
		return nil, fmt.Errorf("fewer than 2 distinct lap distances")
	}

	xs := make([]float64, len(uniq))
	ys := make([]float64, len(uniq))
	lapTime := 0.0
	for i, f := range uniq {
		xs[i] = f.LapDistance
		ys[i] = f.CurrentTime
	}
	for _, f := range frames {
		if f.CurrentTime > lapTime {
			lapTime = f.CurrentTime
		}
	}

	grid := span(0, xs[len(xs)-1], n)
	times, err := interpolate(xs, Sanitize(ys), grid)
	if err != nil {
		return nil, err
	}
	return &timingSeries{
		distances: grid,
		times:     Sanitize(times),
		lapTime:   lapTime,
	}, nil
}

// interpolate evaluates a clamped piecewise linear fit of (xs, ys) at
// every grid point. Values outside the fitted range take the nearest
// boundary value.
func interpolate(xs, ys, grid []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// nearest returns the ys value whose xs entry is closest to x,
// preferring the lower index on exact midpoints. xs must be sorted.
func nearest(xs, ys []float64, x float64) float64 {
	i := sort.SearchFloat64s(xs, x)
	if i == 0 {
		return ys[0]
	}
	if i == len(xs) {
		return ys[len(ys)-1]
	}
	if x-xs[i-1] <= xs[i]-x {
		return ys[i-1]
	}
	return ys[i]
}

// span builds an evenly spaced grid of n points from lo to hi
// inclusive.
func span(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	dst := make([]float64, n)
	floats.Span(dst, lo, hi)
	return dst
}
