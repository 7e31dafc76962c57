// Package fuel derives consumption summaries, curves and lap to lap
// fuel deltas from resampled laps.
package fuel

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/analysis/series"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
)

const (
	SingleLapGridPoints = 500
	CompareGridPoints   = 1000

	efficiencySegments = 100
)

// EstimatedLaps is a lap count projection. It marshals to null when
// not finite, which happens whenever no fuel was consumed.
type EstimatedLaps float64

func (e EstimatedLaps) MarshalJSON() ([]byte, error) {
	f := float64(e)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// LapSummary aggregates the fuel figures of one lap.
type LapSummary struct {
	LapNumber              int           `json:"lap_number"`
	LapTime                float64       `json:"lap_time"`
	FuelStartLiters        float64       `json:"fuel_start_liters"`
	FuelEndLiters          float64       `json:"fuel_end_liters"`
	FuelUsedLiters         float64       `json:"fuel_used_liters"`
	ConsumptionPerKm       float64       `json:"consumption_rate_per_km"`
	EstimatedLapsRemaining EstimatedLaps `json:"estimated_laps_remaining"`
}

// CurvePoint is one sample of the single lap fuel curve.
type CurvePoint struct {
	LapDistance  float64 `json:"lap_distance"`
	FuelLiters   float64 `json:"fuel_liters"`
	FuelLevelPct float64 `json:"fuel_level_percentage"`
}

// Analysis is the single lap fuel result.
type Analysis struct {
	Summary LapSummary   `json:"summary"`
	Curve   []CurvePoint `json:"curve"`
}

// DeltaPoint is one sample of the two lap fuel comparison. Consumed
// values count from the start of each lap; Delta is lap 2 consumed
// minus lap 1 consumed.
type DeltaPoint struct {
	LapDistance  float64 `json:"lap_distance"`
	Lap1Consumed float64 `json:"lap1_consumed"`
	Lap2Consumed float64 `json:"lap2_consumed"`
	Delta        float64 `json:"delta"`
}

// ComparisonSummary aggregates both laps and their differences.
type ComparisonSummary struct {
	Lap1             LapSummary `json:"lap1"`
	Lap2             LapSummary `json:"lap2"`
	FuelUsedDelta    float64    `json:"fuel_used_delta"`
	ConsumptionDelta float64    `json:"consumption_rate_delta"`
	MoreEfficientLap int        `json:"more_efficient_lap"`
}

// Comparison is the two lap fuel result.
type Comparison struct {
	Summary ComparisonSummary `json:"summary"`
	Points  []DeltaPoint      `json:"points"`
}

// EfficiencyPoint relates fuel burn to how a track section was driven.
type EfficiencyPoint struct {
	AvgSpeedKph    float64 `json:"avg_speed_kph"`
	AvgThrottle    float64 `json:"avg_throttle"`
	FuelUsedLiters float64 `json:"fuel_used_liters"`
	Gear           int     `json:"gear"`
}

// AnalyzeLap computes the fuel summary and curve of a single lap.
func AnalyzeLap(lap *model.ResampledLap) (*Analysis, error) {
	if len(lap.Samples) < 2 {
		return nil, fmt.Errorf("lap %d needs at least 2 samples for fuel analysis", lap.LapNumber)
	}
	grid := series.Grid(lap.MaxDistance(), SingleLapGridPoints)
	xs := lap.Distances()

	liters, err := series.NewLinear(xs, lap.Channel(func(s *model.LapSample) float64 { return s.FuelLiters }))
	if err != nil {
		return nil, err
	}
	pct, err := series.NewLinear(xs, lap.Channel(func(s *model.LapSample) float64 { return s.FuelLevelPct }))
	if err != nil {
		return nil, err
	}

	curve := make([]CurvePoint, len(grid))
	for i, d := range grid {
		curve[i] = CurvePoint{
			LapDistance:  d,
			FuelLiters:   liters.Predict(d),
			FuelLevelPct: pct.Predict(d),
		}
	}
	return &Analysis{Summary: summarize(lap), Curve: curve}, nil
}

// CompareLaps interpolates both laps' consumed fuel onto a shared
// distance grid capped at the shorter lap and reports the running
// delta plus aggregate figures.
func CompareLaps(lap1, lap2 *model.ResampledLap) (*Comparison, error) {
	if len(lap1.Samples) < 2 || len(lap2.Samples) < 2 {
		return nil, fmt.Errorf("laps %d and %d need at least 2 samples each for fuel comparison",
			lap1.LapNumber, lap2.LapNumber)
	}
	maxDist := lap1.MaxDistance()
	if d := lap2.MaxDistance(); d < maxDist {
		maxDist = d
	}
	grid := series.Grid(maxDist, CompareGridPoints)

	c1, err := consumedOnGrid(lap1, grid)
	if err != nil {
		return nil, err
	}
	c2, err := consumedOnGrid(lap2, grid)
	if err != nil {
		return nil, err
	}

	points := make([]DeltaPoint, len(grid))
	for i, d := range grid {
		points[i] = DeltaPoint{
			LapDistance:  d,
			Lap1Consumed: c1[i],
			Lap2Consumed: c2[i],
			Delta:        c2[i] - c1[i],
		}
	}

	s1 := summarize(lap1)
	s2 := summarize(lap2)
	efficient := lap1.LapNumber
	if s2.FuelUsedLiters < s1.FuelUsedLiters {
		efficient = lap2.LapNumber
	}
	return &Comparison{
		Summary: ComparisonSummary{
			Lap1:             s1,
			Lap2:             s2,
			FuelUsedDelta:    s2.FuelUsedLiters - s1.FuelUsedLiters,
			ConsumptionDelta: s2.ConsumptionPerKm - s1.ConsumptionPerKm,
			MoreEfficientLap: efficient,
		},
		Points: points,
	}, nil
}

// EfficiencyScatter splits the lap into fixed track sections and
// relates each section's fuel burn to its average speed, throttle and
// most used gear. Sections without positive consumption are dropped.
func EfficiencyScatter(lap *model.ResampledLap) []EfficiencyPoint {
	points := []EfficiencyPoint{}
	n := len(lap.Samples)
	if n < 2 {
		return points
	}
	size := n / efficiencySegments
	if size < 1 {
		size = 1
	}
	for start := 0; start+1 < n; start += size {
		end := start + size
		if end >= n {
			end = n - 1
		}
		used := lap.Samples[start].FuelLiters - lap.Samples[end].FuelLiters
		if used <= 0 {
			continue
		}
		speed, throttle := 0.0, 0.0
		gearCounts := map[int]int{}
		for i := start; i <= end; i++ {
			speed += lap.Samples[i].Speed * 3.6
			throttle += lap.Samples[i].Throttle
			gearCounts[lap.Samples[i].Gear]++
		}
		count := float64(end - start + 1)
		points = append(points, EfficiencyPoint{
			AvgSpeedKph:    speed / count,
			AvgThrottle:    throttle / count,
			FuelUsedLiters: used,
			Gear:           modalGear(gearCounts),
		})
	}
	return points
}

func summarize(lap *model.ResampledLap) LapSummary {
	start := lap.Samples[0].FuelLiters
	end := lap.Samples[len(lap.Samples)-1].FuelLiters
	used := start - end

	rate := 0.0
	if km := lap.MaxDistance() / 1000; km > 0 {
		rate = used / km
	}
	remaining := EstimatedLaps(math.Inf(1))
	if used > 0 {
		remaining = EstimatedLaps(end / used)
	}
	return LapSummary{
		LapNumber:              lap.LapNumber,
		LapTime:                lap.LapTime,
		FuelStartLiters:        start,
		FuelEndLiters:          end,
		FuelUsedLiters:         used,
		ConsumptionPerKm:       rate,
		EstimatedLapsRemaining: remaining,
	}
}

func modalGear(counts map[int]int) int {
	gear, best := 0, -1
	for g, c := range counts {
		if c > best || (c == best && g < gear) {
			gear, best = g, c
		}
	}
	return gear
}

// consumedOnGrid evaluates a lap's fuel consumed since the lap start
// at every grid point.
func consumedOnGrid(lap *model.ResampledLap, grid []float64) ([]float64, error) {
	l, err := series.NewLinear(lap.Distances(),
		lap.Channel(func(s *model.LapSample) float64 { return s.FuelLiters }))
	if err != nil {
		return nil, err
	}
	out := l.PredictAll(grid)
	start := out[0]
	for i, v := range out {
		out[i] = start - v
	}
	return out, nil
}
