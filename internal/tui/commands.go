package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"procwatch/internal/app"
)

const callTimeout = 4 * time.Second

type entriesLoadedMsg struct {
	entries []app.Entry
}

type entryLoadedMsg struct {
	entry app.Entry
}

type addedMsg struct {
	result app.AddResult
}

type configuredMsg struct {
	entry app.Entry
}

type removedMsg struct {
	entry app.Entry
}

type processesLoadedMsg struct {
	pattern   string
	processes []app.Process
}

type eventMsg struct {
	event app.Event
}

type eventsClosedMsg struct{}

type tickMsg time.Time

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func call[T any](fn func(context.Context) (T, error), wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		v, err := fn(ctx)
		if err != nil {
			return errMsg{err}
		}
		return wrap(v)
	}
}

func loadEntriesCmd(ctrl app.Controller) tea.Cmd {
	return call(ctrl.List, func(es []app.Entry) tea.Msg { return entriesLoadedMsg{entries: es} })
}

func loadEntryCmd(ctrl app.Controller, id uint64) tea.Cmd {
	return call(func(ctx context.Context) (app.Entry, error) {
		return ctrl.Select(ctx, app.Selector{ID: id})
	}, func(e app.Entry) tea.Msg { return entryLoadedMsg{entry: e} })
}

func addCmd(ctrl app.Controller, params app.AddParams) tea.Cmd {
	return call(func(ctx context.Context) (app.AddResult, error) {
		return ctrl.Add(ctx, params)
	}, func(r app.AddResult) tea.Msg { return addedMsg{result: r} })
}

func configureCmd(ctrl app.Controller, params app.ConfigureParams) tea.Cmd {
	return call(func(ctx context.Context) (app.Entry, error) {
		return ctrl.Configure(ctx, params)
	}, func(e app.Entry) tea.Msg { return configuredMsg{entry: e} })
}

func removeCmd(ctrl app.Controller, id uint64) tea.Cmd {
	return call(func(ctx context.Context) (app.Entry, error) {
		return ctrl.Remove(ctx, app.Selector{ID: id})
	}, func(e app.Entry) tea.Msg { return removedMsg{entry: e} })
}

func loadProcessesCmd(ctrl app.Controller, pattern string) tea.Cmd {
	return call(func(ctx context.Context) ([]app.Process, error) {
		return ctrl.Processes(ctx, pattern)
	}, func(ps []app.Process) tea.Msg { return processesLoadedMsg{pattern: pattern, processes: ps} })
}

func waitForEventCmd(events <-chan app.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func tickCmd(every time.Duration) tea.Cmd {
	if every <= 0 {
		return nil
	}
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}
