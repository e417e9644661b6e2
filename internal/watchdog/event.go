package watchdog

import (
	"time"

	"procwatch/internal/proctable"
)

// EventKind classifies what happened during a cycle.
type EventKind int

const (
	EventBound EventKind = iota + 1
	EventExited
	EventKilled
	EventKillFailed
	EventSnapshotFailed
)

func (k EventKind) String() string {
	switch k {
	case EventBound:
		return "bound"
	case EventExited:
		return "exited"
	case EventKilled:
		return "killed"
	case EventKillFailed:
		return "kill_failed"
	case EventSnapshotFailed:
		return "snapshot_failed"
	default:
		return "unknown"
	}
}

// Event is reported to the entry's observer. Err is set only for the failure kinds.
type Event struct {
	Kind    EventKind
	Entry   EntryID
	Pattern string
	Process proctable.Handle
	Err     error
	At      time.Time
}
