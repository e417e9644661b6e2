package app

import (
	"fmt"
	"time"

	"procwatch/internal/watchdog"
)

// Event is a watchdog event ready for display.
type Event struct {
	At      time.Time
	Kind    string
	EntryID uint64
	Pattern string
	PID     int
	Name    string
	Err     string
}

func eventFromWatchdog(ev watchdog.Event) Event {
	out := Event{
		At:      ev.At,
		Kind:    ev.Kind.String(),
		EntryID: uint64(ev.Entry),
		Pattern: ev.Pattern,
		PID:     ev.Process.PID,
		Name:    ev.Process.Name,
	}
	if ev.Err != nil {
		out.Err = ev.Err.Error()
	}
	return out
}

// Failed reports whether the event describes an error.
func (e Event) Failed() bool {
	return e.Err != ""
}

func (e Event) String() string {
	switch e.Kind {
	case watchdog.EventBound.String():
		return fmt.Sprintf("Process %s [%d] automatically added to %q", e.Name, e.PID, e.Pattern)
	case watchdog.EventExited.String():
		return fmt.Sprintf("Process %s [%d] closed by third party", e.Name, e.PID)
	case watchdog.EventKilled.String():
		return fmt.Sprintf("Process %s [%d] killed", e.Name, e.PID)
	case watchdog.EventKillFailed.String():
		return fmt.Sprintf("Can't kill process %s [%d]: %s", e.Name, e.PID, e.Err)
	case watchdog.EventSnapshotFailed.String():
		return fmt.Sprintf("Can't read process table for %q: %s", e.Pattern, e.Err)
	default:
		return fmt.Sprintf("%s: %q", e.Kind, e.Pattern)
	}
}
