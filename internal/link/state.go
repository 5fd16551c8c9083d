package link

import "fmt"

// State is the link state observed by the Gate.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed // link lost, reconnection pending
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Event is a link event reported by a Provider.
type Event int

const (
	LinkStarted  Event = iota + 1 // interface is up, association may begin
	LinkAcquired                  // link usable: associated and addressed
	LinkLost                      // link unusable, or an association attempt failed
)

func (e Event) String() string {
	switch e {
	case LinkStarted:
		return "link_started"
	case LinkAcquired:
		return "link_acquired"
	case LinkLost:
		return "link_lost"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}
