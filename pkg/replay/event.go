package replay

import (
	"fmt"

	"f1replaybot/pkg/telemetry"
)

// TopicEvents is the pubsub topic replay state changes are published on.
const TopicEvents = "replay.events"

type State int

const (
	Idle State = iota
	Loading
	Ready
	Animating
	TornDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Animating:
		return "animating"
	case TornDown:
		return "torn-down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is emitted on every state transition of a controller.
type Event struct {
	Key   telemetry.LookupKey
	State State
	Err   error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Key, e.State, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Key, e.State)
}
