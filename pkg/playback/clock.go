package playback

import (
	"math"
	"time"
)

// DefaultLoop is roughly one lap, the duration of a full replay cycle.
const DefaultLoop = 90 * time.Second

// Clock is a free running looping time source. It starts on the first tick
// it is given and has no relation to the session's real elapsed time.
type Clock struct {
	Loop  time.Duration
	start time.Time
}

func NewClock(loop time.Duration) *Clock {
	return &Clock{Loop: loop}
}

func (c *Clock) Started() bool {
	return !c.start.IsZero()
}

func (c *Clock) Start() time.Time {
	return c.start
}

// Tick returns the progress for now, starting the clock if needed.
func (c *Clock) Tick(now time.Time) float64 {
	if !c.Started() {
		c.start = now
	}
	return c.Progress(now)
}

// Progress returns ((now - start) mod loop) / loop, always in [0, 1).
func (c *Clock) Progress(now time.Time) float64 {
	return Progress(c.start, now, c.Loop)
}

func Progress(start, now time.Time, loop time.Duration) float64 {
	if loop <= 0 {
		return 0
	}
	elapsed := now.Sub(start) % loop
	if elapsed < 0 {
		elapsed += loop
	}
	p := float64(elapsed) / float64(loop)
	if p >= 1 || math.IsNaN(p) {
		return 0
	}
	return p
}
