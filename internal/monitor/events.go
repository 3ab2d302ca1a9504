package monitor

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// EventKind tags an outbound monitor event.
type EventKind int

const (
	EventStatusChanged EventKind = iota
	EventError
	EventMatchEnded
)

func (k EventKind) String() string {
	switch k {
	case EventError:
		return "error"
	case EventMatchEnded:
		return "match_ended"
	default:
		return "status_changed"
	}
}

// Event is a human-readable notification published by the monitor.
// Consumers (tray, logging) subscribe to the event channel; the monitor
// never blocks on them.
type Event struct {
	ID      string
	Kind    EventKind
	Message string
	At      time.Time
}

func newEvent(kind EventKind, message string) Event {
	return Event{
		ID:      gonanoid.Must(),
		Kind:    kind,
		Message: message,
		At:      time.Now(),
	}
}
