package parse

import "fmt"

// Layout describes the protocol revision dependent sizes of the AMS2
// shared memory UDP packets. The field offsets inside a packet are
// identical across the known revisions; the revisions differ in the
// minimum telemetry packet size and in whether the timing packet
// carries a trailing tick count after its participant array.
type Layout struct {
	Name            string
	HeaderLen       int // bytes before the payload fields start
	TypeTagOffset   int // offset of the packet type byte
	TelemetryMinLen int
	TimingMinLen    int
	// TimingTickCount selects the revision where the timing packet ends
	// with a tick count located after numParticipants entries of
	// TimingParticipantStride bytes each.
	TimingTickCount         bool
	TimingParticipantStride int
}

var (
	// LayoutV1 is the revision without a tick count in timing packets.
	LayoutV1 = Layout{
		Name:            "v1",
		HeaderLen:       12,
		TypeTagOffset:   10,
		TelemetryMinLen: 556,
		TimingMinLen:    50,
	}

	// LayoutV2 carries a trailing tick count in timing packets and pins
	// the telemetry packet to its full 559 byte size.
	LayoutV2 = Layout{
		Name:                    "v2",
		HeaderLen:               12,
		TypeTagOffset:           10,
		TelemetryMinLen:         559,
		TimingMinLen:            50,
		TimingTickCount:         true,
		TimingParticipantStride: 32,
	}
)

func LayoutByName(name string) (Layout, error) {
	switch name {
	case "", "v1":
		return LayoutV1, nil
	case "v2":
		return LayoutV2, nil
	default:
		return Layout{}, fmt.Errorf("unknown protocol layout %q", name)
	}
}
