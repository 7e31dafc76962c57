// Package frame holds the decoded packet types produced by the
// telemetry parser. Frames are immutable once decoded.
package frame

// Kind discriminates the two decoded packet layouts.
type Kind int

const (
	KindTelemetry Kind = iota
	KindTiming
)

func (k Kind) String() string {
	switch k {
	case KindTelemetry:
		return "telemetry"
	case KindTiming:
		return "timing"
	default:
		return "unknown"
	}
}

// Frame is either a *Telemetry or a *Timing sample.
type Frame interface {
	FrameKind() Kind
}

// Telemetry is one decoded car physics sample (packet type 0).
// TickCount is the only reliable monotonic clock in the stream.
type Telemetry struct {
	Throttle     float64 // 0..1
	Brake        float64 // 0..1
	Steering     float64 // -1..1
	Speed        float64 // m/s
	RPM          float64
	MaxRPM       int
	Gear         int
	FuelCapacity float64 // liters
	FuelLevelPct float64 // 0..1
	FuelLiters   float64 // derived, rounded to 2 decimals
	Yaw          float64
	PosX         float64
	PosY         float64
	PosZ         float64
	TickCount    uint32
}

func (t *Telemetry) FrameKind() Kind { return KindTelemetry }

// Timing is one decoded race progress sample (packet type 3) for the
// local participant. TickCount is zero for layout revisions that do not
// carry it; Timestamp is the participants-changed timestamp usable as an
// auxiliary identifier.
type Timing struct {
	CurrentLap  int
	CurrentTime float64 // lap relative, seconds
	LapDistance float64 // meters
	Timestamp   uint32
	TickCount   uint32
}

func (t *Timing) FrameKind() Kind { return KindTiming }
