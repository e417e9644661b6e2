package proctable

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermission is returned by Terminate when the caller lacks rights to kill the target.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound is returned when the process no longer exists.
	ErrNotFound = errors.New("process not found")
)

// Handle identifies one OS process instance. PID alone is not enough because
// PIDs get reused, so StartTime is part of the identity.
type Handle struct {
	PID       int       `json:"pid"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Cmdline   string    `json:"cmdline,omitempty"`
}

// Age returns how long the process has been running at the given instant.
func (h Handle) Age(now time.Time) time.Duration {
	if h.StartTime.IsZero() {
		return 0
	}
	return now.Sub(h.StartTime)
}

// Same reports whether both handles describe the same process instance.
func (h Handle) Same(other Handle) bool {
	return h.PID == other.PID && h.StartTime.Equal(other.StartTime)
}

// Table is the live process table.
type Table interface {
	// Enumerate returns a fresh snapshot. Handles may refer to processes that
	// exited right after the snapshot was taken.
	Enumerate(ctx context.Context) ([]Handle, error)
	// Terminate kills the process. It fails with ErrPermission or ErrNotFound.
	Terminate(ctx context.Context, h Handle) error
	// Subscribe registers onExit to be called once when h exits. Delivery is
	// best effort. The returned func cancels the subscription.
	Subscribe(h Handle, onExit func()) (cancel func())
}

// Find returns the handle with the given pid from a snapshot.
func Find(snapshot []Handle, pid int) (Handle, bool) {
	for _, h := range snapshot {
		if h.PID == pid {
			return h, true
		}
	}
	return Handle{}, false
}
