// Package tui is the interactive shell: a list of watch entries, a form for
// adding targets and a detail view for changing or removing one entry.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"procwatch/internal/app"
)

type state int

const (
	stateMain state = iota
	stateAdd
	stateEntry
)

const (
	fieldTarget = iota
	fieldFrequency
	fieldLifetime
	fieldCount
)

type editField int

const (
	editNone editField = iota
	editFrequency
	editLifetime
)

const maxMessages = 6

// Options configures the TUI.
type Options struct {
	Controller app.Controller
	// Events, when set, feeds watchdog events into the message panel.
	Events <-chan app.Event
	// Refresh reloads the entry list periodically. Zero disables it.
	Refresh time.Duration
	Title   string
}

type message struct {
	at     time.Time
	text   string
	failed bool
}

// Model represents the Bubble Tea state.
type Model struct {
	ctrl    app.Controller
	events  <-chan app.Event
	refresh time.Duration
	title   string

	state   state
	list    list.Model
	entries []app.Entry

	current    app.Entry
	hasCurrent bool
	edit       editField
	prompt     textinput.Model

	inputs    []textinput.Model
	focus     int
	force     bool
	processes []app.Process

	messages    []message
	lastUpdated time.Time

	width  int
	height int
}

// New constructs a TUI model with default styles.
func New(opts Options) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 80, 14)
	lst.Title = "Watch entries"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	title := opts.Title
	if title == "" {
		title = "procwatch"
	}

	m := &Model{
		ctrl:    opts.Controller,
		events:  opts.Events,
		refresh: opts.Refresh,
		title:   title,
		list:    lst,
		prompt:  newInput("", 16),
	}
	m.inputs = make([]textinput.Model, fieldCount)
	m.inputs[fieldTarget] = newInput("pid or name regex", 128)
	m.inputs[fieldFrequency] = newInput("default", 16)
	m.inputs[fieldLifetime] = newInput("default", 16)
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Run spins up the Bubble Tea program on the alternate screen.
func Run(opts Options) error {
	prog := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(loadEntriesCmd(m.ctrl), waitForEventCmd(m.events), tickCmd(m.refresh))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := msg.Height - 12; h > 4 {
			m.list.SetSize(msg.Width, h)
		}
		return m, nil

	case entriesLoadedMsg:
		m.setEntries(msg.entries)
		return m, nil

	case entryLoadedMsg:
		if m.state == stateEntry {
			m.current = msg.entry
			m.hasCurrent = true
		}
		return m, nil

	case addedMsg:
		if !msg.result.Added {
			m.processes = msg.result.Matches
			m.notify(msg.result.Message, true)
			return m, nil
		}
		m.notify(msg.result.Message, false)
		m.resetAdd()
		m.state = stateMain
		return m, loadEntriesCmd(m.ctrl)

	case configuredMsg:
		m.current = msg.entry
		m.notify(fmt.Sprintf("Entry #%d: %g checks/min, max lifetime %s",
			msg.entry.ID, msg.entry.Frequency, formatSeconds(msg.entry.MaxLifetime)), false)
		return m, loadEntriesCmd(m.ctrl)

	case removedMsg:
		m.notify(fmt.Sprintf("Entry #%d (%s) removed", msg.entry.ID, msg.entry.Pattern), false)
		m.leaveEntry()
		return m, loadEntriesCmd(m.ctrl)

	case processesLoadedMsg:
		m.processes = msg.processes
		if msg.pattern == "" {
			m.notify(fmt.Sprintf("%d processes running", len(msg.processes)), false)
		} else {
			m.notify(fmt.Sprintf("%d processes match %q", len(msg.processes), msg.pattern), false)
		}
		return m, nil

	case eventMsg:
		m.notify(msg.event.String(), msg.event.Failed())
		return m, tea.Batch(waitForEventCmd(m.events), m.reloadCmd())

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.reloadCmd(), tickCmd(m.refresh))

	case errMsg:
		m.notify(msg.err.Error(), true)
		if m.state == stateEntry && errors.Is(msg.err, app.ErrNoEntry) {
			m.leaveEntry()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.state {
		case stateAdd:
			return m.updateAdd(msg)
		case stateEntry:
			return m.updateEntry(msg)
		default:
			return m.updateMain(msg)
		}
	}
	return m, m.forward(msg)
}

func (m *Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "a":
		m.state = stateAdd
		m.processes = nil
		return m, m.focusField(fieldTarget)
	case "r":
		return m, loadEntriesCmd(m.ctrl)
	case "enter":
		e, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		m.state = stateEntry
		m.current = e
		m.hasCurrent = true
		m.edit = editNone
		return m, loadEntryCmd(m.ctrl, e.ID)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.resetAdd()
		m.state = stateMain
		return m, nil
	case tea.KeyCtrlF:
		m.force = !m.force
		return m, nil
	case tea.KeyCtrlL:
		return m, loadProcessesCmd(m.ctrl, strings.TrimSpace(m.inputs[fieldTarget].Value()))
	case tea.KeyTab, tea.KeyDown:
		return m, m.focusField((m.focus + 1) % fieldCount)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
	case tea.KeyEnter:
		params, err := m.addParams()
		if err != nil {
			m.notify(err.Error(), true)
			return m, nil
		}
		return m, addCmd(m.ctrl, params)
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.edit != editNone {
		switch msg.Type {
		case tea.KeyEsc:
			m.stopEdit()
			return m, nil
		case tea.KeyEnter:
			return m, m.submitEdit()
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.leaveEntry()
		return m, loadEntriesCmd(m.ctrl)
	case "f":
		return m, m.startEdit(editFrequency, strconv.FormatFloat(m.current.Frequency, 'g', -1, 64))
	case "t":
		return m, m.startEdit(editLifetime, strconv.FormatFloat(m.current.MaxLifetime, 'g', -1, 64))
	case "d":
		return m, removeCmd(m.ctrl, m.current.ID)
	case "r":
		return m, loadEntryCmd(m.ctrl, m.current.ID)
	}
	return m, nil
}

func (m *Model) startEdit(field editField, value string) tea.Cmd {
	m.edit = field
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

func (m *Model) stopEdit() {
	m.edit = editNone
	m.prompt.Blur()
	m.prompt.Reset()
}

func (m *Model) submitEdit() tea.Cmd {
	field := m.edit
	name := "frequency"
	if field == editLifetime {
		name = "max lifetime"
	}
	v, err := parsePositive(name, m.prompt.Value())
	if err != nil {
		m.notify(err.Error(), true)
		return nil
	}
	m.stopEdit()
	params := app.ConfigureParams{Selector: app.Selector{ID: m.current.ID}}
	if field == editFrequency {
		params.Frequency = &v
	} else {
		params.MaxLifetime = &v
	}
	return configureCmd(m.ctrl, params)
}

func (m *Model) addParams() (app.AddParams, error) {
	params := app.AddParams{
		Target: strings.TrimSpace(m.inputs[fieldTarget].Value()),
		Force:  m.force,
	}
	if params.Target == "" {
		return params, errors.New("target must not be empty")
	}
	var err error
	if s := strings.TrimSpace(m.inputs[fieldFrequency].Value()); s != "" {
		if params.Frequency, err = parsePositive("frequency", s); err != nil {
			return params, err
		}
	}
	if s := strings.TrimSpace(m.inputs[fieldLifetime].Value()); s != "" {
		if params.MaxLifetime, err = parsePositive("max lifetime", s); err != nil {
			return params, err
		}
	}
	return params, nil
}

func parsePositive(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return v, nil
}

func (m *Model) focusField(i int) tea.Cmd {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *Model) resetAdd() {
	for i := range m.inputs {
		m.inputs[i].Reset()
		m.inputs[i].Blur()
	}
	m.focus = fieldTarget
	m.force = false
	m.processes = nil
}

func (m *Model) leaveEntry() {
	m.stopEdit()
	m.state = stateMain
	m.hasCurrent = false
	m.current = app.Entry{}
}

func (m *Model) reloadCmd() tea.Cmd {
	if m.state == stateEntry && m.hasCurrent {
		return tea.Batch(loadEntriesCmd(m.ctrl), loadEntryCmd(m.ctrl, m.current.ID))
	}
	return loadEntriesCmd(m.ctrl)
}

func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.state {
	case stateAdd:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	case stateEntry:
		if m.edit != editNone {
			m.prompt, cmd = m.prompt.Update(msg)
		}
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return cmd
}

func (m *Model) setEntries(entries []app.Entry) {
	m.entries = entries
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryItem{Entry: e})
	}
	m.list.SetItems(items)
	m.lastUpdated = time.Now()
}

func (m *Model) selectedEntry() (app.Entry, bool) {
	item, ok := m.list.SelectedItem().(entryItem)
	if !ok {
		return app.Entry{}, false
	}
	return item.Entry, true
}

func (m *Model) notify(text string, failed bool) {
	m.messages = append(m.messages, message{at: time.Now(), text: text, failed: failed})
	if n := len(m.messages); n > maxMessages {
		m.messages = append([]message(nil), m.messages[n-maxMessages:]...)
	}
}
