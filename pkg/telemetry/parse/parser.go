// Package parse turns a raw AMS2 capture buffer into decoded frames.
// The capture is a concatenation of length prefixed UDP payloads; only
// the car physics (type 0) and timing (type 3) packets are decoded,
// everything else is dropped.
package parse

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/frame"
)

const (
	packetTypeTelemetry = 0
	packetTypeTiming    = 3
)

type (
	Parser struct {
		layout Layout
		l      *log.Logger
	}
	Option func(*Parser)
)

func WithLayout(layout Layout) Option {
	return func(p *Parser) { p.layout = layout }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.l = l }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		layout: LayoutV1,
		l:      log.Default().Named("telemetry.parse"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse frames the buffer and decodes every recognized packet. Unknown
// or malformed packets are skipped; decoding never fails as a whole.
func (p *Parser) Parse(buf []byte) []frame.Frame {
	frames := make([]frame.Frame, 0)
	for payload := range Packets(buf) {
		if f := p.DecodePacket(payload); f != nil {
			frames = append(frames, f)
		}
	}
	return frames
}

// DecodePacket classifies a single payload by its type tag and decodes
// it. Returns nil for packets that are unknown, too short or malformed.
func (p *Parser) DecodePacket(payload []byte) frame.Frame {
	if len(payload) < p.layout.HeaderLen {
		return nil
	}
	switch payload[p.layout.TypeTagOffset] {
	case packetTypeTelemetry:
		if t := p.decodeTelemetry(payload); t != nil {
			return t
		}
	case packetTypeTiming:
		if t := p.decodeTiming(payload); t != nil {
			return t
		}
	}
	return nil
}

//nolint:funlen // sequential field extraction
func (p *Parser) decodeTelemetry(payload []byte) *frame.Telemetry {
	if len(payload) < p.layout.TelemetryMinLen {
		return nil
	}
	c := &cursor{buf: payload, off: p.layout.HeaderLen}

	c.skip(1) // viewed participant
	c.skip(5) // raw input bytes, car flags
	c.skip(10) // oil/water/fuel temps and pressures

	fuelCapacity := float64(c.u8())
	brake := float64(c.u8()) / 255.0
	throttle := float64(c.u8()) / 255.0
	c.skip(1) // clutch

	fuelLevelPct := c.f32()
	speed := c.f32()
	rpm := float64(c.u16())
	maxRPM := int(c.u16())
	steering := float64(c.i8()) / 127.0
	gear := int(c.u8() & 0x0F)

	c.skip(1) // boost
	c.skip(1) // crash state
	c.skip(4) // odometer

	// yaw is the first component of the orientation vector
	yaw := c.f32()
	c.skip(8)
	c.skip(6 * 12) // velocity, acceleration and extents vectors

	// tyre, brake and suspension blocks
	c.skip(4 + 4 + 16 + 16 + 4 + 16 + 4 + 4 + 4 + 8)
	c.skip(8 * 8)
	c.skip(16 + 16 + 16 + 16 + 8 + 8)
	c.skip(4 + 4 + 2 + 1 + 1 + 1 + 4 + 1 + 160 + 4)

	posX := c.f32()
	posY := c.f32()
	posZ := c.f32()
	c.skip(1) // brake bias

	tickCount := c.u32()

	if c.err != nil {
		p.l.Warn("skipping malformed telemetry packet",
			log.Int("size", len(payload)), log.ErrorField(c.err))
		return nil
	}

	return &frame.Telemetry{
		Throttle:     throttle,
		Brake:        brake,
		Steering:     steering,
		Speed:        speed,
		RPM:          rpm,
		MaxRPM:       maxRPM,
		Gear:         gear,
		FuelCapacity: fuelCapacity,
		FuelLevelPct: fuelLevelPct,
		FuelLiters:   round2(fuelLevelPct * fuelCapacity),
		Yaw:          yaw,
		PosX:         posX,
		PosY:         posY,
		PosZ:         posZ,
		TickCount:    tickCount,
	}
}

func (p *Parser) decodeTiming(payload []byte) *frame.Timing {
	if len(payload) < p.layout.TimingMinLen {
		return nil
	}
	c := &cursor{buf: payload, off: p.layout.HeaderLen}

	numParticipants := int(c.i8())
	timestamp := c.u32()
	c.skip(4)         // event time remaining
	c.skip(4 + 4 + 4) // splits

	participantStart := c.off
	// first participant is the local player
	c.skip(6) // world position
	c.skip(6) // orientation

	lapDistance := float64(c.u16())
	c.skip(1 + 1 + 1 + 1 + 2 + 1) // race position .. race state

	currentLap := int(c.u8())
	currentTime := c.f32()

	var tickCount uint32
	if p.layout.TimingTickCount {
		if numParticipants < 0 {
			c.fail(fmt.Errorf("negative participant count %d", numParticipants))
		} else {
			c.off = participantStart + numParticipants*p.layout.TimingParticipantStride
			tickCount = c.u32()
		}
	}

	if c.err != nil {
		p.l.Warn("skipping malformed timing packet",
			log.Int("size", len(payload)), log.ErrorField(c.err))
		return nil
	}

	return &frame.Timing{
		CurrentLap:  currentLap,
		CurrentTime: currentTime,
		LapDistance: lapDistance,
		Timestamp:   timestamp,
		TickCount:   tickCount,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// cursor reads little endian fields at increasing offsets and records
// the first out of bounds access instead of panicking.
type cursor struct {
	buf []byte
	off int
	err error
}

func (c *cursor) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.off < 0 || c.off+n > len(c.buf) {
		c.fail(fmt.Errorf("read of %d bytes at offset %d exceeds packet size %d",
			n, c.off, len(c.buf)))
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) skip(n int) { c.off += n }

func (c *cursor) u8() uint8 {
	if b := c.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *cursor) i8() int8 { return int8(c.u8()) }

func (c *cursor) u16() uint16 {
	if b := c.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if b := c.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (c *cursor) f32() float64 {
	return float64(math.Float32frombits(c.u32()))
}
