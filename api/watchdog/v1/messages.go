// Package watchdogv1 is the control-socket API. Messages are plain Go structs
// carried as google.protobuf.Struct, so the service needs no generated code.
package watchdogv1

import "time"

type PingRequest struct{}

type PingResponse struct {
	Version   string    `json:"version"`
	PID       int       `json:"pid"`
	Entries   int       `json:"entries"`
	StartedAt time.Time `json:"started_at"`
}

type Process struct {
	PID       int       `json:"pid"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Cmdline   string    `json:"cmdline,omitempty"`
	WatchedBy uint64    `json:"watched_by,omitempty"`
}

type Entry struct {
	ID                 uint64   `json:"id"`
	Pattern            string   `json:"pattern"`
	Frequency          float64  `json:"frequency"`
	MaxLifetimeSeconds float64  `json:"max_lifetime_seconds"`
	IntervalSeconds    float64  `json:"interval_seconds"`
	Process            *Process `json:"process,omitempty"`
	AgeSeconds         float64  `json:"age_seconds,omitempty"`
	Running            bool     `json:"running"`
}

type Selector struct {
	ID      uint64 `json:"id,omitempty"`
	PID     int    `json:"pid,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

type ListRequest struct{}

type ListResponse struct {
	Entries []Entry `json:"entries"`
}

type AddRequest struct {
	Target             string  `json:"target"`
	Frequency          float64 `json:"frequency,omitempty"`
	MaxLifetimeSeconds float64 `json:"max_lifetime_seconds,omitempty"`
	Force              bool    `json:"force,omitempty"`
}

type AddResponse struct {
	Added   bool      `json:"added"`
	Entry   *Entry    `json:"entry,omitempty"`
	Matches []Process `json:"matches,omitempty"`
	Message string    `json:"message,omitempty"`
}

type SelectRequest struct {
	Selector Selector `json:"selector"`
}

type ConfigureRequest struct {
	Selector           Selector `json:"selector"`
	Frequency          *float64 `json:"frequency,omitempty"`
	MaxLifetimeSeconds *float64 `json:"max_lifetime_seconds,omitempty"`
}

// EntryResponse answers Select, Configure and Remove.
type EntryResponse struct {
	Entry Entry `json:"entry"`
}

type ProcessesRequest struct {
	Pattern string `json:"pattern,omitempty"`
}

type ProcessesResponse struct {
	Processes []Process `json:"processes"`
}

type EventsRequest struct{}

// Event is one watchdog event streamed by Events.
type Event struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	EntryID uint64    `json:"entry_id,omitempty"`
	Pattern string    `json:"pattern"`
	PID     int       `json:"pid,omitempty"`
	Name    string    `json:"name,omitempty"`
	Err     string    `json:"error,omitempty"`
}
