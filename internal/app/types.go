package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"procwatch/internal/proctable"
	"procwatch/internal/watchdog"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyWatched  = errors.New("already watched")
	ErrNoEntry         = errors.New("no such watch entry")
	ErrAmbiguous       = errors.New("selector matches more than one entry")
	ErrProcessNotFound = errors.New("process not found")
)

// Controller is what the TUI and CLI drive. App implements it in process;
// remote.Client implements it over the control socket.
type Controller interface {
	Add(ctx context.Context, params AddParams) (AddResult, error)
	List(ctx context.Context) ([]Entry, error)
	Select(ctx context.Context, sel Selector) (Entry, error)
	Configure(ctx context.Context, params ConfigureParams) (Entry, error)
	Remove(ctx context.Context, sel Selector) (Entry, error)
	Processes(ctx context.Context, pattern string) ([]Process, error)
}

// Process is one row of the live process table.
type Process struct {
	PID       int
	Name      string
	StartTime time.Time
	Cmdline   string
	// WatchedBy is the entry bound to this process, zero if none.
	WatchedBy uint64
}

func processFromHandle(h proctable.Handle) Process {
	return Process{PID: h.PID, Name: h.Name, StartTime: h.StartTime, Cmdline: h.Cmdline}
}

// Entry mirrors one registered watch entry.
type Entry struct {
	ID          uint64
	Pattern     string
	Frequency   float64
	MaxLifetime float64
	Interval    time.Duration
	Process     *Process
	Age         time.Duration
	Running     bool
}

func entryFromInfo(info watchdog.EntryInfo) Entry {
	out := Entry{
		ID:          uint64(info.ID),
		Pattern:     info.Pattern,
		Frequency:   info.Frequency,
		MaxLifetime: info.MaxLifetime,
		Interval:    info.Interval,
		Age:         info.Age,
		Running:     info.Running,
	}
	if info.Process != nil {
		p := processFromHandle(*info.Process)
		p.WatchedBy = out.ID
		out.Process = &p
	}
	return out
}

// Remaining is how long the bound process may still run. It is negative once
// the process is overdue.
func (e Entry) Remaining() time.Duration {
	return time.Duration(e.MaxLifetime*float64(time.Second)) - e.Age
}

// AddParams describes a new watch target. Target is a PID or a regular
// expression over process names.
type AddParams struct {
	Target      string
	Frequency   float64
	MaxLifetime float64
	// Force registers a pattern even when it matches zero or several processes.
	Force bool
}

// AddResult reports what Add did. Added is false when the pattern was not
// unique and Force was not set; Matches then lists the candidates.
type AddResult struct {
	Added   bool
	Entry   Entry
	Matches []Process
	Message string
}

// Selector picks one entry by registry id, bound pid or pattern.
type Selector struct {
	ID      uint64
	PID     int
	Pattern string
}

func (s Selector) String() string {
	switch {
	case s.ID > 0:
		return fmt.Sprintf("#%d", s.ID)
	case s.PID > 0:
		return fmt.Sprintf("pid %d", s.PID)
	default:
		return fmt.Sprintf("%q", s.Pattern)
	}
}

func (s Selector) empty() bool {
	return s.ID == 0 && s.PID <= 0 && strings.TrimSpace(s.Pattern) == ""
}

// ParseSelector reads "#3" or "id:3" as an entry id, a bare number as a pid
// and anything else as a pattern.
func ParseSelector(text string) (Selector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Selector{}, fmt.Errorf("%w: empty selector", ErrInvalidInput)
	}
	for _, prefix := range []string{"#", "id:"} {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			id, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 64)
			if err != nil || id == 0 {
				return Selector{}, fmt.Errorf("%w: bad entry id %q", ErrInvalidInput, rest)
			}
			return Selector{ID: id}, nil
		}
	}
	if pid, ok := parsePID(text); ok {
		return Selector{PID: pid}, nil
	}
	if _, err := regexp.Compile(text); err != nil {
		return Selector{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return Selector{Pattern: text}, nil
}

// ConfigureParams changes an entry. Nil fields are left alone.
type ConfigureParams struct {
	Selector    Selector
	Frequency   *float64
	MaxLifetime *float64
}

func parsePID(s string) (int, bool) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// FormatLifetime renders seconds as d.hh:mm:ss, dropping the day part when zero.
func FormatLifetime(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	total := int64(d / time.Second)
	days := total / 86400
	h := (total % 86400) / 3600
	m := (total % 3600) / 60
	s := total % 60
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if days > 0 {
		out = fmt.Sprintf("%d.%s", days, out)
	}
	if neg {
		out = "-" + out
	}
	return out
}
