// Package comparison aligns two resampled laps on a common distance
// grid and derives delta time, notable segments and a colored track
// map from them.
package comparison

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/analysis/series"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
)

const (
	DefaultGridPoints    = 1000
	DefaultWindowSize    = 50
	DefaultTopSegments   = 5
	DefaultTrackMapBlock = 20

	mpsToKph = 3.6
)

type Option func(*settings)

type settings struct {
	gridPoints    int
	windowSize    int
	topSegments   int
	trackMapBlock int
}

// WithGridPoints sets the size of the common distance grid.
func WithGridPoints(n int) Option {
	return func(s *settings) { s.gridPoints = n }
}

// WithWindowSize sets the sliding window width, in grid points, used
// for segment detection.
func WithWindowSize(w int) Option {
	return func(s *settings) { s.windowSize = w }
}

// WithTopSegments sets how many gain and loss segments to report.
func WithTopSegments(k int) Option {
	return func(s *settings) { s.topSegments = k }
}

// WithTrackMapBlock sets the number of position samples collapsed into
// one track map point.
func WithTrackMapBlock(b int) Option {
	return func(s *settings) { s.trackMapBlock = b }
}

// Segment is a stretch of track where one lap consistently gained or
// lost time against the other.
type Segment struct {
	StartDistance float64 `json:"start_distance"`
	EndDistance   float64 `json:"end_distance"`
	TimeChange    float64 `json:"time_change"`
}

// LapSeries carries one lap's channels evaluated on the common grid.
type LapSeries struct {
	LapNumber   int       `json:"lap_number"`
	LapTime     float64   `json:"lap_time"`
	CurrentTime []float64 `json:"current_time"`
	SpeedKph    []float64 `json:"speed_kph"`
	Throttle    []float64 `json:"throttle"`
	Brake       []float64 `json:"brake"`
	Steering    []float64 `json:"steering"`
}

// TrackPoint is one downsampled position of the reference lap. Color
// is 0 for neutral track, +1 inside a time loss segment and -1 inside
// a time gain segment.
type TrackPoint struct {
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Distance float64 `json:"distance"`
	Color    int     `json:"color"`
}

type Summary struct {
	FinalDelta       float64 `json:"final_delta"`
	MinDelta         float64 `json:"min_delta"`
	MinDeltaDistance float64 `json:"min_delta_distance"`
	MaxDelta         float64 `json:"max_delta"`
	MaxDeltaDistance float64 `json:"max_delta_distance"`
	Lap1MaxSpeedKph  float64 `json:"lap1_max_speed_kph"`
	Lap2MaxSpeedKph  float64 `json:"lap2_max_speed_kph"`
}

// Result is the full outcome of comparing lap 2 against lap 1.
// DeltaTime is lap 2 time minus lap 1 time, so positive values mean
// lap 2 is slower.
type Result struct {
	Summary          Summary      `json:"summary"`
	Distance         []float64    `json:"distance"`
	DeltaTime        []float64    `json:"delta_time"`
	Lap1             LapSeries    `json:"lap1"`
	Lap2             LapSeries    `json:"lap2"`
	TimeLossSegments []Segment    `json:"time_loss_segments"`
	TimeGainSegments []Segment    `json:"time_gain_segments"`
	TrackMap         []TrackPoint `json:"track_map"`
}

// Compare aligns the two laps on a shared distance grid capped at the
// shorter lap and produces the full comparison.
func Compare(lap1, lap2 *model.ResampledLap, opts ...Option) (*Result, error) {
	cfg := settings{
		gridPoints:    DefaultGridPoints,
		windowSize:    DefaultWindowSize,
		topSegments:   DefaultTopSegments,
		trackMapBlock: DefaultTrackMapBlock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(lap1.Samples) < 2 || len(lap2.Samples) < 2 {
		return nil, fmt.Errorf("laps %d and %d need at least 2 samples each to compare",
			lap1.LapNumber, lap2.LapNumber)
	}

	maxDist := lap1.MaxDistance()
	if d := lap2.MaxDistance(); d < maxDist {
		maxDist = d
	}
	grid := series.Grid(maxDist, cfg.gridPoints)

	s1, err := lapSeries(lap1, grid)
	if err != nil {
		return nil, fmt.Errorf("lap %d: %w", lap1.LapNumber, err)
	}
	s2, err := lapSeries(lap2, grid)
	if err != nil {
		return nil, fmt.Errorf("lap %d: %w", lap2.LapNumber, err)
	}

	delta := make([]float64, len(grid))
	for i := range grid {
		delta[i] = s2.CurrentTime[i] - s1.CurrentTime[i]
	}

	loss := topSegments(grid, delta, cfg.windowSize, cfg.topSegments, false)
	gain := topSegments(grid, delta, cfg.windowSize, cfg.topSegments, true)

	return &Result{
		Summary:          summarize(grid, delta, s1, s2),
		Distance:         grid,
		DeltaTime:        delta,
		Lap1:             *s1,
		Lap2:             *s2,
		TimeLossSegments: loss,
		TimeGainSegments: gain,
		TrackMap:         trackMap(lap1, cfg.trackMapBlock, loss, gain),
	}, nil
}

func lapSeries(lap *model.ResampledLap, grid []float64) (*LapSeries, error) {
	xs := lap.Distances()
	eval := func(get func(*model.LapSample) float64) ([]float64, error) {
		l, err := series.NewLinear(xs, lap.Channel(get))
		if err != nil {
			return nil, err
		}
		return l.PredictAll(grid), nil
	}

	cur, err := eval(func(s *model.LapSample) float64 { return s.CurrentTime })
	if err != nil {
		return nil, err
	}
	speed, err := eval(func(s *model.LapSample) float64 { return s.Speed * mpsToKph })
	if err != nil {
		return nil, err
	}
	throttle, err := eval(func(s *model.LapSample) float64 { return s.Throttle })
	if err != nil {
		return nil, err
	}
	brake, err := eval(func(s *model.LapSample) float64 { return s.Brake })
	if err != nil {
		return nil, err
	}
	steering, err := eval(func(s *model.LapSample) float64 { return s.Steering })
	if err != nil {
		return nil, err
	}

	return &LapSeries{
		LapNumber:   lap.LapNumber,
		LapTime:     lap.LapTime,
		CurrentTime: cur,
		SpeedKph:    speed,
		Throttle:    throttle,
		Brake:       brake,
		Steering:    steering,
	}, nil
}

// topSegments ranks every sliding window by the delta change across
// it (last point minus first) and picks the strongest non overlapping
// ones. gain selects the most negative changes, otherwise the most
// positive; windows with no change in the wanted direction are never
// reported.
func topSegments(grid, delta []float64, window, topN int, gain bool) []Segment {
	n := len(delta)
	if window < 2 || n < window || topN < 1 {
		return []Segment{}
	}

	type candidate struct {
		start  int
		change float64
	}
	cands := make([]candidate, 0, n-window+1)
	for i := 0; i+window <= n; i++ {
		cands = append(cands, candidate{i, delta[i+window-1] - delta[i]})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if gain {
			return cands[i].change < cands[j].change
		}
		return cands[i].change > cands[j].change
	})

	used := make([]bool, n)
	out := []Segment{}
	for _, c := range cands {
		if len(out) == topN {
			break
		}
		if (gain && c.change >= 0) || (!gain && c.change <= 0) {
			break
		}
		overlaps := false
		for j := c.start; j < c.start+window; j++ {
			if used[j] {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		for j := c.start; j < c.start+window; j++ {
			used[j] = true
		}
		out = append(out, Segment{
			StartDistance: grid[c.start],
			EndDistance:   grid[c.start+window-1],
			TimeChange:    c.change,
		})
	}
	return out
}

// trackMap collapses blocks of the reference lap's position samples to
// their midpoints and colors them by the segments they fall in. Loss
// segments paint first so gain wins where both apply.
func trackMap(lap *model.ResampledLap, block int, loss, gain []Segment) []TrackPoint {
	if block < 1 {
		block = 1
	}
	points := []TrackPoint{}
	for start := 0; start < len(lap.Samples); start += block {
		end := start + block
		if end > len(lap.Samples) {
			end = len(lap.Samples)
		}
		mid := &lap.Samples[start+(end-start)/2]
		p := TrackPoint{X: mid.PosX, Z: mid.PosZ, Distance: mid.LapDistance}
		for _, seg := range loss {
			if p.Distance >= seg.StartDistance && p.Distance <= seg.EndDistance {
				p.Color = 1
				break
			}
		}
		for _, seg := range gain {
			if p.Distance >= seg.StartDistance && p.Distance <= seg.EndDistance {
				p.Color = -1
				break
			}
		}
		points = append(points, p)
	}
	return points
}

func summarize(grid, delta []float64, s1, s2 *LapSeries) Summary {
	minIdx, maxIdx := 0, 0
	for i, v := range delta {
		if v < delta[minIdx] {
			minIdx = i
		}
		if v > delta[maxIdx] {
			maxIdx = i
		}
	}
	return Summary{
		FinalDelta:       delta[len(delta)-1],
		MinDelta:         delta[minIdx],
		MinDeltaDistance: grid[minIdx],
		MaxDelta:         delta[maxIdx],
		MaxDeltaDistance: grid[maxIdx],
		Lap1MaxSpeedKph:  lo.Max(s1.SpeedKph),
		Lap2MaxSpeedKph:  lo.Max(s2.SpeedKph),
	}
}
