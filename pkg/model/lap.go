// Package model holds the domain types shared between the pipeline,
// the repositories and the API surface.
package model

// LapSample is one row of a resampled lap. LapDistance and CurrentTime
// live on the distance axis, the telemetry channels on the tick axis;
// row i zips both axes by index.
type LapSample struct {
	LapDistance  float64 `json:"lap_distance"`
	CurrentTime  float64 `json:"current_time"`
	PosX         float64 `json:"pos_x"`
	PosZ         float64 `json:"pos_z"`
	Speed        float64 `json:"speed"`
	RPM          float64 `json:"rpm"`
	Throttle     float64 `json:"throttle"`
	Brake        float64 `json:"brake"`
	Steering     float64 `json:"steering"`
	Yaw          float64 `json:"yaw"`
	FuelCapacity float64 `json:"fuel_capacity"`
	FuelLevelPct float64 `json:"fuel_level_percentage"`
	FuelLiters   float64 `json:"fuel_liters"`
	Gear         int     `json:"gear"`
}

// ResampledLap is the fixed grid representation of one lap.
type ResampledLap struct {
	LapNumber               int         `json:"lap_number"`
	LapTime                 float64     `json:"lap_time"`
	FrameCount              int         `json:"frame_count"`
	OriginalTelemetryPoints int         `json:"original_telemetry_points"`
	OriginalTimingPoints    int         `json:"original_timing_points"`
	Samples                 []LapSample `json:"data"`
}

// MaxDistance returns the lap distance of the last sample.
func (r *ResampledLap) MaxDistance() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[len(r.Samples)-1].LapDistance
}

// Distances returns the distance axis of the lap.
func (r *ResampledLap) Distances() []float64 {
	ret := make([]float64, len(r.Samples))
	for i := range r.Samples {
		ret[i] = r.Samples[i].LapDistance
	}
	return ret
}

// Channel extracts one sample field as a series using the given getter.
func (r *ResampledLap) Channel(get func(*LapSample) float64) []float64 {
	ret := make([]float64, len(r.Samples))
	for i := range r.Samples {
		ret[i] = get(&r.Samples[i])
	}
	return ret
}
