package playback

import (
	"math"

	"f1replaybot/pkg/telemetry"
)

// Index maps a progress fraction onto a trace of n samples:
// floor(progress*n) clamped to n-1. It returns -1 when n is zero.
//
// Every trace is remapped independently, so traces of different length are
// not time aligned. That is accepted for a continuous multi car replay.
func Index(progress float64, n int) int {
	if n <= 0 {
		return -1
	}
	i := int(math.Floor(clampProgress(progress) * float64(n)))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// SampleAt resolves the sample of the trace at progress. ok is false when the
// trace has no samples and nothing must be drawn for that driver.
func SampleAt(trace telemetry.DriverTrace, progress float64) (telemetry.Sample, int, bool) {
	i := Index(progress, len(trace.Samples))
	if i < 0 {
		return telemetry.Sample{}, -1, false
	}
	return trace.Samples[i], i, true
}

func clampProgress(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p >= 1:
		return math.Nextafter(1, 0)
	}
	return p
}
