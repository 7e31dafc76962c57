package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/frame"
)

func tel(tick uint32) *frame.Telemetry {
	return &frame.Telemetry{TickCount: tick, Speed: float64(tick)}
}

func tim(lap int, distance, currentTime float64) *frame.Timing {
	return &frame.Timing{CurrentLap: lap, LapDistance: distance, CurrentTime: currentTime}
}

func TestMergeSortsTelemetryByTick(t *testing.T) {
	frames := []frame.Frame{tel(30), tel(10), tel(20)}
	merged := Merge(frames)
	require.Len(t, merged, 3)
	ticks := make([]uint32, 0)
	for _, f := range merged {
		ticks = append(ticks, f.(*frame.Telemetry).TickCount)
	}
	assert.Equal(t, []uint32{10, 20, 30}, ticks)
}

func TestMergeKeepsTimingArrivalPositions(t *testing.T) {
	t1 := tim(1, 0, 0)
	t2 := tim(1, 50, 5)
	frames := []frame.Frame{t1, tel(20), tel(10), t2, tel(30)}
	merged := Merge(frames)
	require.Len(t, merged, 5)
	// t1 before any telemetry, t2 after two telemetry frames
	assert.Same(t, t1, merged[0])
	assert.Equal(t, uint32(10), merged[1].(*frame.Telemetry).TickCount)
	assert.Equal(t, uint32(20), merged[2].(*frame.Telemetry).TickCount)
	assert.Same(t, t2, merged[3])
	assert.Equal(t, uint32(30), merged[4].(*frame.Telemetry).TickCount)
}

func TestBuildSegmentsLaps(t *testing.T) {
	frames := []frame.Frame{
		// warm up, before the first lap increment
		tel(1),
		tim(0, 900, 55),
		// lap 1
		tim(1, 0, 0.1),
		tel(2), tel(3),
		tim(1, 100, 5),
		// lap 2
		tim(2, 0, 0.1),
		tel(4),
		tim(2, 120, 6),
	}
	laps := Build(frames)
	require.Len(t, laps, 2)

	assert.Equal(t, 1, laps[0].Number)
	assert.Len(t, laps[0].Telemetry(), 2)
	assert.Len(t, laps[0].Timings(), 2)

	assert.Equal(t, 2, laps[1].Number)
	assert.Len(t, laps[1].Telemetry(), 1)
	assert.Len(t, laps[1].Timings(), 2)
}

func TestBuildDropsFramesBeforeFirstLap(t *testing.T) {
	frames := []frame.Frame{tel(1), tel(2), tim(0, 10, 1)}
	assert.Empty(t, Build(frames))
}

func TestPruneCarryOver(t *testing.T) {
	lap := Lap{Number: 2, Frames: []frame.Frame{
		tim(2, -5, 90), // residue of the previous lap
		tel(10),
		tim(2, 0, 0.1),
		tel(11),
		tim(2, 30, 2),
	}}
	pruneCarryOver(&lap)

	timings := lap.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, 0.0, timings[0].LapDistance)
	// one leading telemetry frame is pruned symmetrically
	telemetry := lap.Telemetry()
	require.Len(t, telemetry, 1)
	assert.Equal(t, uint32(11), telemetry[0].TickCount)
}

func TestDedupTimings(t *testing.T) {
	first := tim(1, 100, 5)
	lap := Lap{Number: 1, Frames: []frame.Frame{
		first,
		tel(1),
		tim(1, 100, 5.2), // same (lap, distance), later arrival
		tim(1, 110, 5.5),
	}}
	dedupTimings(&lap)

	timings := lap.Timings()
	require.Len(t, timings, 2)
	assert.Same(t, first, timings[0])
	assert.Equal(t, 110.0, timings[1].LapDistance)
}
