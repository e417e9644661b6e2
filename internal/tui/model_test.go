package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"procwatch/internal/app"
	"procwatch/internal/proctable/proctabletest"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (*Model, *app.App, *proctabletest.Table) {
	t.Helper()
	table := proctabletest.New()
	a, err := app.New(app.Options{
		Table:              table,
		DefaultFrequency:   0.01,
		DefaultMaxLifetime: 600,
		Clock:              func() time.Time { return t0.Add(time.Minute) },
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return New(Options{Controller: a}), a, table
}

// run executes cmd and feeds the resulting messages back into the model
// until no command is left.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			run(m, c)
		}
	default:
		_, next := m.Update(msg)
		run(m, next)
	}
}

func send(m *Model, msg tea.Msg) {
	_, cmd := m.Update(msg)
	run(m, cmd)
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func lastMessage(t *testing.T, m *Model) message {
	t.Helper()
	if len(m.messages) == 0 {
		t.Fatalf("expected a message")
	}
	return m.messages[len(m.messages)-1]
}

func TestAddBindsSingleMatch(t *testing.T) {
	m, a, table := newTestModel(t)
	table.Add(10, "nginx", t0)

	send(m, keys("a"))
	if m.state != stateAdd {
		t.Fatalf("expected add state, got %v", m.state)
	}
	send(m, keys("nginx"))
	send(m, key(tea.KeyEnter))

	if m.state != stateMain {
		t.Fatalf("expected main state after add, got %v", m.state)
	}
	if msg := lastMessage(t, m); msg.failed || !strings.Contains(msg.text, "Watching nginx [10]") {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(m.entries) != 1 || m.entries[0].Process == nil || m.entries[0].Process.PID != 10 {
		t.Fatalf("unexpected entries %+v", m.entries)
	}
	if a.Registry().Len() != 1 {
		t.Fatalf("expected one registered entry, got %d", a.Registry().Len())
	}
	if v := m.inputs[fieldTarget].Value(); v != "" {
		t.Fatalf("add form not reset, target=%q", v)
	}
	if view := m.View(); !strings.Contains(view, "#1 nginx") {
		t.Fatalf("entry missing from view:\n%s", view)
	}
}

func TestAddAmbiguousNeedsForce(t *testing.T) {
	m, a, table := newTestModel(t)
	table.Add(10, "redis-server", t0)
	table.Add(11, "redis-sentinel", t0)

	send(m, keys("a"))
	send(m, keys("redis"))
	send(m, key(tea.KeyEnter))

	if m.state != stateAdd {
		t.Fatalf("ambiguous add should stay in the form, got %v", m.state)
	}
	if msg := lastMessage(t, m); !msg.failed || !strings.Contains(msg.text, "2 processes match") {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(m.processes) != 2 {
		t.Fatalf("expected candidate list, got %+v", m.processes)
	}
	if !strings.Contains(m.View(), "redis-sentinel") {
		t.Fatalf("candidates missing from view")
	}

	send(m, key(tea.KeyCtrlF))
	if !m.force {
		t.Fatalf("ctrl+f should enable force")
	}
	send(m, key(tea.KeyEnter))
	if m.state != stateMain || a.Registry().Len() != 1 {
		t.Fatalf("forced add failed: state=%v entries=%d", m.state, a.Registry().Len())
	}
	if m.entries[0].Process != nil {
		t.Fatalf("forced ambiguous entry should be unbound")
	}
}

func TestAddValidatesNumbers(t *testing.T) {
	m, a, table := newTestModel(t)
	table.Add(10, "nginx", t0)

	send(m, keys("a"))
	send(m, keys("nginx"))
	send(m, key(tea.KeyTab))
	send(m, keys("often"))
	send(m, key(tea.KeyEnter))

	if msg := lastMessage(t, m); !msg.failed || msg.text != `frequency must be a number, got "often"` {
		t.Fatalf("unexpected message %+v", msg)
	}
	if a.Registry().Len() != 0 {
		t.Fatalf("nothing should be registered")
	}

	m.inputs[fieldFrequency].SetValue("2")
	send(m, key(tea.KeyTab))
	send(m, keys("90"))
	send(m, key(tea.KeyEnter))
	if len(m.entries) != 1 {
		t.Fatalf("expected entry, got %+v", m.entries)
	}
	if e := m.entries[0]; e.Frequency != 2 || e.MaxLifetime != 90 || e.Interval != 30*time.Second {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestAddFormKeysDoNotQuit(t *testing.T) {
	m, _, _ := newTestModel(t)

	send(m, keys("a"))
	_, cmd := m.Update(keys("q"))
	if cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Fatalf("q in the add form must not quit")
		}
	}
	if v := m.inputs[fieldTarget].Value(); v != "q" {
		t.Fatalf("expected q typed into target, got %q", v)
	}

	send(m, key(tea.KeyEsc))
	if m.state != stateMain || m.inputs[fieldTarget].Value() != "" {
		t.Fatalf("esc should return to main with a clean form")
	}
	_, cmd = m.Update(keys("q"))
	if cmd == nil {
		t.Fatalf("q in main should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestProcessListing(t *testing.T) {
	m, _, table := newTestModel(t)
	table.Add(10, "nginx", t0)
	table.Add(11, "redis", t0)

	send(m, keys("a"))
	send(m, key(tea.KeyCtrlL))
	if len(m.processes) != 2 || lastMessage(t, m).text != "2 processes running" {
		t.Fatalf("unexpected listing %+v", m.processes)
	}

	send(m, keys("NG"))
	send(m, key(tea.KeyCtrlL))
	if len(m.processes) != 1 || m.processes[0].Name != "nginx" {
		t.Fatalf("filter should be case-insensitive, got %+v", m.processes)
	}
}

func TestEntryViewEditAndDelete(t *testing.T) {
	m, a, table := newTestModel(t)
	table.Add(10, "nginx", t0)
	if _, err := a.Add(context.Background(), app.AddParams{Target: "nginx"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	run(m, loadEntriesCmd(a))

	send(m, key(tea.KeyEnter))
	if m.state != stateEntry || !m.hasCurrent || m.current.ID != 1 {
		t.Fatalf("expected entry view for #1, got state=%v current=%+v", m.state, m.current)
	}
	view := m.View()
	for _, want := range []string{"nginx [10]", "00:01:00", "00:09:00"} {
		if !strings.Contains(view, want) {
			t.Fatalf("entry view missing %q:\n%s", want, view)
		}
	}

	send(m, keys("f"))
	if m.edit != editFrequency || m.prompt.Value() != "0.01" {
		t.Fatalf("expected frequency prompt prefilled, got edit=%v value=%q", m.edit, m.prompt.Value())
	}
	m.prompt.SetValue("6")
	send(m, key(tea.KeyEnter))
	if m.edit != editNone || m.current.Frequency != 6 || m.current.Interval != 10*time.Second {
		t.Fatalf("frequency not applied: %+v", m.current)
	}

	send(m, keys("t"))
	m.prompt.SetValue("0")
	send(m, key(tea.KeyEnter))
	if msg := lastMessage(t, m); !msg.failed || msg.text != "max lifetime must be greater than 0" {
		t.Fatalf("unexpected message %+v", msg)
	}
	m.prompt.SetValue("30")
	send(m, key(tea.KeyEnter))
	if m.current.MaxLifetime != 30 {
		t.Fatalf("lifetime not applied: %+v", m.current)
	}

	send(m, keys("d"))
	if m.state != stateMain || a.Registry().Len() != 0 || len(m.entries) != 0 {
		t.Fatalf("delete failed: state=%v entries=%d", m.state, a.Registry().Len())
	}
	if kills := table.Kills(); len(kills) != 0 {
		t.Fatalf("removing an entry must not kill its process, got %+v", kills)
	}
}

func TestMissingEntryReturnsToMain(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.state = stateEntry
	m.hasCurrent = true
	m.current = app.Entry{ID: 9}

	send(m, errMsg{fmt.Errorf("%w: #9", app.ErrNoEntry)})
	if m.state != stateMain || m.hasCurrent {
		t.Fatalf("expected main state, got %v", m.state)
	}
	if msg := lastMessage(t, m); !msg.failed {
		t.Fatalf("error should be flagged")
	}
}

func TestEventsFeedMessagePanel(t *testing.T) {
	m, _, _ := newTestModel(t)
	events := make(chan app.Event, 1)
	m.events = events
	events <- app.Event{Kind: "killed", Name: "nginx", PID: 10}

	msg := waitForEventCmd(events)()
	ev, ok := msg.(eventMsg)
	if !ok {
		t.Fatalf("expected eventMsg, got %T", msg)
	}
	m.events = nil
	send(m, ev)
	if got := lastMessage(t, m); got.failed || got.text != "Process nginx [10] killed" {
		t.Fatalf("unexpected message %+v", got)
	}

	close(events)
	if _, ok := waitForEventCmd(events)().(eventsClosedMsg); !ok {
		t.Fatalf("closed channel should report eventsClosedMsg")
	}
}

func TestMessagePanelIsBounded(t *testing.T) {
	m, _, _ := newTestModel(t)
	for i := 0; i < maxMessages+3; i++ {
		m.notify(fmt.Sprintf("msg %d", i), false)
	}
	if len(m.messages) != maxMessages {
		t.Fatalf("expected %d messages, got %d", maxMessages, len(m.messages))
	}
	if m.messages[0].text != "msg 3" {
		t.Fatalf("oldest messages should be dropped, first is %q", m.messages[0].text)
	}
}
