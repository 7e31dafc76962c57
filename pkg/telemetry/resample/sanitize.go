package resample

import "math"

// Sanitize repairs non finite values in place and returns the slice.
// NaN and infinities are first zeroed; if anything else survives, the
// zeroed positions are then forward filled from the previous value and
// the leading run back filled from the first valid one. A series that
// is entirely non finite stays all zero.
func Sanitize(values []float64) []float64 {
	bad := make([]bool, len(values))
	anyGood := false
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = 0
			bad[i] = true
		} else {
			anyGood = true
		}
	}
	if !anyGood {
		return values
	}
	for i := 1; i < len(values); i++ {
		if bad[i] {
			values[i] = values[i-1]
			bad[i] = false
		}
	}
	for i := len(values) - 2; i >= 0; i-- {
		if bad[i] {
			values[i] = values[i+1]
			bad[i] = false
		}
	}
	return values
}
