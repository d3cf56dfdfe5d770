package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	topStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxEntries bounds the visible transcript.
const maxEntries = 8

type padModel struct {
	session *session
	input   textinput.Model
	entries []entry
	busy    bool
}

type entry struct {
	cmd string
	out string
	err error
}

type evalDoneMsg struct {
	cmd string
	out string
	err error
}

func newPadModel(s *session) *padModel {
	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()
	return &padModel{session: s, input: ti}
}

func (m *padModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *padModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			return m, m.evalCmd(line)
		}

	case evalDoneMsg:
		m.busy = false
		m.entries = append(m.entries, entry{cmd: msg.cmd, out: msg.out, err: msg.err})
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evalCmd runs one command off the update loop so slow statements do not
// freeze the prompt.
func (m *padModel) evalCmd(line string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.eval(line)
		return evalDoneMsg{cmd: line, out: out, err: err}
	}
}

func (m *padModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("stackpad"))
	if m.session.hasDB {
		b.WriteString(" ")
		b.WriteString(helpStyle.Render("db:" + m.session.cfg.Database.DSN))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewStack())
	b.WriteString("\n")

	for _, e := range m.entries {
		b.WriteString("> " + e.cmd + "\n")
		switch {
		case e.err != nil:
			b.WriteString(errorStyle.Render(e.err.Error()))
			b.WriteString("\n")
		case e.out != "":
			b.WriteString(resultStyle.Render(e.out))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if m.busy {
		b.WriteString(helpStyle.Render("working..."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • esc quit • help for commands"))

	return b.String()
}

// viewStack renders the slot window top-down, marking the top slot.
func (m *padModel) viewStack() string {
	lines := m.session.stackLines()
	if len(lines) == 0 {
		return helpStyle.Render("stack: empty") + "\n"
	}

	var b strings.Builder
	top := lines[len(lines)-1].index
	for i := len(lines) - 1; i >= 0; i-- {
		ln := lines[i]
		idx := fmt.Sprintf("%3d", ln.index)
		if ln.index == top {
			idx = topStyle.Render(idx)
		} else {
			idx = helpStyle.Render(idx)
		}
		b.WriteString(idx)
		b.WriteString("  ")
		b.WriteString(kindStyle.Render(fmt.Sprintf("%-9s", ln.kind)))
		b.WriteString(" ")
		b.WriteString(valueStyle.Render(ln.value))
		b.WriteString("\n")
	}
	return b.String()
}

func runInteractive(cfg *Config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	p := tea.NewProgram(newPadModel(s), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
