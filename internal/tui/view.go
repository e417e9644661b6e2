package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"procwatch/internal/app"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color("240"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteByte('\n')

	switch m.state {
	case stateAdd:
		b.WriteString(m.viewAdd())
	case stateEntry:
		b.WriteString(m.viewEntry())
	default:
		b.WriteString(m.viewMain())
	}
	b.WriteByte('\n')

	if len(m.messages) > 0 {
		lines := make([]string, 0, len(m.messages))
		for _, msg := range m.messages {
			style := okStyle
			if msg.failed {
				style = errStyle
			}
			lines = append(lines, fmt.Sprintf("%s %s", helpStyle.Render(msg.at.Format(time.TimeOnly)), style.Render(msg.text)))
		}
		b.WriteString(panelStyle.Render(strings.Join(lines, "\n")))
		b.WriteByte('\n')
	}

	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) viewMain() string {
	if len(m.entries) == 0 {
		return "No watch entries. Press a to add one.\n"
	}
	return m.list.View()
}

func (m *Model) viewAdd() string {
	var b strings.Builder
	b.WriteString("Add watch target\n\n")
	labels := [fieldCount]string{"Target", "Checks/min", "Lifetime (s)"}
	for i, label := range labels {
		marker := "  "
		if i == m.focus {
			marker = activeStyle.Render("> ")
		}
		b.WriteString(marker + labelStyle.Render(label) + m.inputs[i].View() + "\n")
	}
	force := "[ ] force"
	if m.force {
		force = warnStyle.Render("[x] force")
	}
	b.WriteString("\n" + force + "\n")

	if len(m.processes) > 0 {
		b.WriteString("\n")
		b.WriteString(renderProcesses(m.processes, 10))
	}
	return b.String()
}

func renderProcesses(ps []app.Process, limit int) string {
	var b strings.Builder
	for i, p := range ps {
		if i == limit {
			fmt.Fprintf(&b, "… %d more\n", len(ps)-limit)
			break
		}
		watched := ""
		if p.WatchedBy > 0 {
			watched = warnStyle.Render(fmt.Sprintf(" (watched by #%d)", p.WatchedBy))
		}
		fmt.Fprintf(&b, "%7d  %s%s\n", p.PID, p.Name, watched)
	}
	return b.String()
}

func (m *Model) viewEntry() string {
	if !m.hasCurrent {
		return "Loading entry…\n"
	}
	e := m.current
	rows := [][2]string{
		{"Entry", fmt.Sprintf("#%d", e.ID)},
		{"Pattern", e.Pattern},
	}
	if e.Process != nil {
		rows = append(rows,
			[2]string{"Process", fmt.Sprintf("%s [%d]", e.Process.Name, e.Process.PID)},
			[2]string{"Running for", app.FormatLifetime(e.Age)},
			[2]string{"Time left", app.FormatLifetime(e.Remaining())},
		)
	} else {
		rows = append(rows, [2]string{"Process", warnStyle.Render("searching for a single match")})
	}
	rows = append(rows,
		[2]string{"Frequency", fmt.Sprintf("%g checks/min (every %s)", e.Frequency, e.Interval.Round(time.Millisecond))},
		[2]string{"Max lifetime", formatSeconds(e.MaxLifetime)},
	)
	if !e.Running {
		rows = append(rows, [2]string{"Loop", errStyle.Render("stopped")})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+r[1])
	}
	out := boxStyle.Render(strings.Join(lines, "\n")) + "\n"

	switch m.edit {
	case editFrequency:
		out += "New frequency (checks/min): " + m.prompt.View() + "\n"
	case editLifetime:
		out += "New max lifetime (seconds): " + m.prompt.View() + "\n"
	}
	return out
}

func (m *Model) help() string {
	switch {
	case m.state == stateAdd:
		return "enter add • tab next field • ctrl+f force • ctrl+l list processes • esc back"
	case m.state == stateEntry && m.edit != editNone:
		return "enter apply • esc cancel"
	case m.state == stateEntry:
		return "f frequency • t lifetime • d delete • r refresh • esc back"
	}
	help := "a add • enter open • r refresh • q quit"
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last update %s", m.lastUpdated.Format(time.Kitchen))
	}
	return help
}

// entryItem adapts app.Entry to the bubbles list item interface.
type entryItem struct {
	app.Entry
}

func (e entryItem) Title() string {
	return fmt.Sprintf("#%d %s", e.ID, e.Pattern)
}

func (e entryItem) Description() string {
	if e.Process == nil {
		return fmt.Sprintf("searching • every %s", e.Interval.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s [%d] • up %s of %s • every %s",
		e.Process.Name, e.Process.PID, app.FormatLifetime(e.Age), formatSeconds(e.MaxLifetime), e.Interval.Round(time.Millisecond))
}

func (e entryItem) FilterValue() string {
	if e.Process != nil {
		return e.Pattern + " " + e.Process.Name
	}
	return e.Pattern
}

func formatSeconds(s float64) string {
	return app.FormatLifetime(time.Duration(s * float64(time.Second)))
}
