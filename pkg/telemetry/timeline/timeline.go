// Package timeline orders decoded frames into per lap sequences.
//
// Telemetry frames carry the only reliable clock (tick count), timing
// frames carry the lap progress used to detect lap boundaries. The
// merger sorts telemetry by tick count and keeps every timing frame at
// its arrival position relative to the telemetry stream; the segmenter
// then cuts the merged sequence at lap increments.
package timeline

import (
	"sort"

	"github.com/samber/lo"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/frame"
)

// Lap is the ordered mixed frame sequence belonging to one lap.
type Lap struct {
	Number int
	Frames []frame.Frame
}

// Telemetry returns the lap's telemetry frames in sequence order.
func (l *Lap) Telemetry() []*frame.Telemetry {
	return lo.FilterMap(l.Frames, func(f frame.Frame, _ int) (*frame.Telemetry, bool) {
		t, ok := f.(*frame.Telemetry)
		return t, ok
	})
}

// Timings returns the lap's timing frames in sequence order.
func (l *Lap) Timings() []*frame.Timing {
	return lo.FilterMap(l.Frames, func(f frame.Frame, _ int) (*frame.Timing, bool) {
		t, ok := f.(*frame.Timing)
		return t, ok
	})
}

// Build merges the decoded frames of one capture and segments them into
// laps. Frames preceding the first lap increment are dropped.
func Build(frames []frame.Frame) []Lap {
	return segment(Merge(frames))
}

// Merge sorts telemetry frames by tick count and re-interleaves the
// timing frames at their arrival positions: a timing frame that was
// decoded after k telemetry packets follows the k-th telemetry frame in
// the sorted sequence.
func Merge(frames []frame.Frame) []frame.Frame {
	telemetry := make([]*frame.Telemetry, 0, len(frames))
	type anchored struct {
		timing *frame.Timing
		after  int // number of telemetry frames seen before arrival
	}
	timings := make([]anchored, 0)

	for _, f := range frames {
		switch t := f.(type) {
		case *frame.Telemetry:
			telemetry = append(telemetry, t)
		case *frame.Timing:
			timings = append(timings, anchored{timing: t, after: len(telemetry)})
		}
	}

	sort.SliceStable(telemetry, func(i, j int) bool {
		return telemetry[i].TickCount < telemetry[j].TickCount
	})

	merged := make([]frame.Frame, 0, len(frames))
	next := 0
	for i := 0; i <= len(telemetry); i++ {
		for next < len(timings) && timings[next].after == i {
			merged = append(merged, timings[next].timing)
			next++
		}
		if i < len(telemetry) {
			merged = append(merged, telemetry[i])
		}
	}
	return merged
}

// segment cuts the merged sequence whenever a timing frame reports a
// lap number above the highest seen so far. The boundary timing frame
// belongs to the new lap.
func segment(merged []frame.Frame) []Lap {
	laps := make([]Lap, 0)
	maxLap := 0
	var current *Lap

	for _, f := range merged {
		if t, ok := f.(*frame.Timing); ok && t.CurrentLap > maxLap {
			maxLap = t.CurrentLap
			laps = append(laps, Lap{Number: t.CurrentLap})
			current = &laps[len(laps)-1]
		}
		if current != nil {
			current.Frames = append(current.Frames, f)
		}
	}

	for i := range laps {
		pruneCarryOver(&laps[i])
		dedupTimings(&laps[i])
	}
	return laps
}

// pruneCarryOver drops leading timing frames whose lap distance is
// still negative (residue of the previous lap) together with the same
// number of leading telemetry frames, keeping both counts aligned.
func pruneCarryOver(lap *Lap) {
	invalid := 0
	for _, t := range lap.Timings() {
		if t.LapDistance < 0 {
			invalid++
		} else {
			break
		}
	}
	if invalid == 0 {
		return
	}

	kept := make([]frame.Frame, 0, len(lap.Frames))
	dropTiming, dropTelemetry := invalid, invalid
	for _, f := range lap.Frames {
		switch f.(type) {
		case *frame.Timing:
			if dropTiming > 0 {
				dropTiming--
				continue
			}
		case *frame.Telemetry:
			if dropTelemetry > 0 {
				dropTelemetry--
				continue
			}
		}
		kept = append(kept, f)
	}
	lap.Frames = kept
}

// dedupTimings removes timing frames repeating an already seen
// (lap, distance) pair, keeping the first occurrence.
func dedupTimings(lap *Lap) {
	type key struct {
		lap      int
		distance float64
	}
	seen := make(map[key]bool)
	kept := lap.Frames[:0]
	for _, f := range lap.Frames {
		if t, ok := f.(*frame.Timing); ok {
			k := key{lap: t.CurrentLap, distance: t.LapDistance}
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		kept = append(kept, f)
	}
	lap.Frames = kept
}
