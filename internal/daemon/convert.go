package daemon

import (
	"time"

	watchdogv1 "procwatch/api/watchdog/v1"
	"procwatch/internal/app"
)

func seconds(d time.Duration) float64 { return d.Seconds() }

func duration(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func ProcessToAPI(p app.Process) watchdogv1.Process {
	return watchdogv1.Process{
		PID:       p.PID,
		Name:      p.Name,
		StartTime: p.StartTime,
		Cmdline:   p.Cmdline,
		WatchedBy: p.WatchedBy,
	}
}

func ProcessFromAPI(p watchdogv1.Process) app.Process {
	return app.Process{
		PID:       p.PID,
		Name:      p.Name,
		StartTime: p.StartTime,
		Cmdline:   p.Cmdline,
		WatchedBy: p.WatchedBy,
	}
}

func ProcessesToAPI(ps []app.Process) []watchdogv1.Process {
	out := make([]watchdogv1.Process, 0, len(ps))
	for _, p := range ps {
		out = append(out, ProcessToAPI(p))
	}
	return out
}

func ProcessesFromAPI(ps []watchdogv1.Process) []app.Process {
	out := make([]app.Process, 0, len(ps))
	for _, p := range ps {
		out = append(out, ProcessFromAPI(p))
	}
	return out
}

func EntryToAPI(e app.Entry) watchdogv1.Entry {
	out := watchdogv1.Entry{
		ID:                 e.ID,
		Pattern:            e.Pattern,
		Frequency:          e.Frequency,
		MaxLifetimeSeconds: e.MaxLifetime,
		IntervalSeconds:    seconds(e.Interval),
		AgeSeconds:         seconds(e.Age),
		Running:            e.Running,
	}
	if e.Process != nil {
		p := ProcessToAPI(*e.Process)
		out.Process = &p
	}
	return out
}

func EntryFromAPI(e watchdogv1.Entry) app.Entry {
	out := app.Entry{
		ID:          e.ID,
		Pattern:     e.Pattern,
		Frequency:   e.Frequency,
		MaxLifetime: e.MaxLifetimeSeconds,
		Interval:    duration(e.IntervalSeconds),
		Age:         duration(e.AgeSeconds),
		Running:     e.Running,
	}
	if e.Process != nil {
		p := ProcessFromAPI(*e.Process)
		out.Process = &p
	}
	return out
}

func SelectorToAPI(s app.Selector) watchdogv1.Selector {
	return watchdogv1.Selector{ID: s.ID, PID: s.PID, Pattern: s.Pattern}
}

func SelectorFromAPI(s watchdogv1.Selector) app.Selector {
	return app.Selector{ID: s.ID, PID: s.PID, Pattern: s.Pattern}
}

func EventToAPI(ev app.Event) watchdogv1.Event {
	return watchdogv1.Event{
		At:      ev.At,
		Kind:    ev.Kind,
		EntryID: ev.EntryID,
		Pattern: ev.Pattern,
		PID:     ev.PID,
		Name:    ev.Name,
		Err:     ev.Err,
	}
}

func EventFromAPI(ev watchdogv1.Event) app.Event {
	return app.Event{
		At:      ev.At,
		Kind:    ev.Kind,
		EntryID: ev.EntryID,
		Pattern: ev.Pattern,
		PID:     ev.PID,
		Name:    ev.Name,
		Err:     ev.Err,
	}
}
