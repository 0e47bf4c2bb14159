// Package progress renders analysis progress as an interactive terminal bar.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

type (
	advanceMsg struct{}
	finishMsg  struct{}

	barModel struct {
		total    int
		current  int
		finished bool
	}
)

var (
	filledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func newBarModel(total int) *barModel {
	return &barModel{total: total}
}

func (m *barModel) Init() tea.Cmd {
	return nil
}

func (m *barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case advanceMsg:
		if m.current < m.total {
			m.current++
		}
	case finishMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.finished = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *barModel) View() string {
	filled := 0
	if m.total > 0 {
		filled = m.current * barWidth / m.total
	}
	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", barWidth-filled)))
	fmt.Fprintf(&b, " %d/%d files", m.current, m.total)
	if m.finished {
		b.WriteString("\n")
	}
	return b.String()
}

// Bar drives a bubbletea program that shows how many modules are analysed.
// It implements application.ProgressReporter.
type Bar struct {
	program *tea.Program
	exited  chan struct{}
	once    sync.Once
}

// Start launches the bar on out for a run over total modules.
func Start(total int, out io.Writer) *Bar {
	program := tea.NewProgram(newBarModel(total), tea.WithOutput(out), tea.WithInput(nil))
	b := &Bar{program: program, exited: make(chan struct{})}
	go func() {
		defer close(b.exited)
		_, _ = program.Run()
	}()
	return b
}

// Advance moves the bar by one module.
func (b *Bar) Advance() {
	b.program.Send(advanceMsg{})
}

// Done stops the program and waits for the final frame. Safe to call twice.
func (b *Bar) Done() {
	b.once.Do(func() {
		b.program.Send(finishMsg{})
		<-b.exited
	})
}
