// Package tui is the optional live dashboard. It only reads runner snapshots;
// quitting asks the runner to stop and then shows the final summary.
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"brokerbench/internal/runner"
	"brokerbench/internal/tui/live"
	"brokerbench/internal/tui/result"
	"brokerbench/internal/tui/styles"
)

// StatsMsg wraps a snapshot received from the runner.
type StatsMsg runner.StatsSnapshot

// DoneMsg is sent once Runner.Run has returned.
type DoneMsg struct {
	Result runner.Result
	Err    error
}

type Model struct {
	Runner  *runner.Runner
	Updates runner.StatsUpdateChan

	Live   live.Model
	Result result.Model

	Done     bool
	Stopping bool
	Quitting bool

	Width  int
	Height int
}

func NewModel(r *runner.Runner) Model {
	return Model{
		Runner:  r,
		Updates: r.Updates,
		Live:    live.NewModel(r.Config().Duration),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Live.Init(),
		waitForUpdate(m.Updates),
	)
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return StatsMsg(<-sub)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Result, _ = m.Result.Update(msg)
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Done {
				m.Quitting = true
				return m, tea.Quit
			}
			if !m.Stopping {
				m.Stopping = true
				m.Runner.Stop(runner.ErrUserQuit)
			}
		}
		return m, nil

	case StatsMsg:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(runner.StatsSnapshot(msg))
		return m, tea.Batch(cmd, waitForUpdate(m.Updates))

	case DoneMsg:
		m.Done = true
		m.Result = result.NewModel(msg.Result, msg.Err)
		m.Result.Width, m.Result.Height = m.Width, m.Height
		// An operator signal ends the program, not just the run.
		if errors.Is(msg.Result.Cause, runner.ErrInterrupted) {
			m.Quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// Progress bar animation frames and anything else go to the live view.
	var cmd tea.Cmd
	m.Live, cmd = m.Live.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	s := strings.Builder{}
	cfg := m.Runner.Config()

	s.WriteString(styles.Title.Render("brokerbench"))
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"%s | topic %s | %d producers | %d consumers | %d byte payloads | run %s",
		cfg.Broker, cfg.Topic, cfg.Producers, cfg.Consumers, cfg.MessageSize, m.Runner.RunID(),
	)))
	s.WriteString("\n\n")

	if m.Done {
		s.WriteString(m.Result.View())
		return s.String()
	}

	s.WriteString(m.Live.View())
	s.WriteString("\n")
	if m.Stopping {
		s.WriteString(styles.Warn.Render("Stopping, waiting for in-flight calls..."))
	} else {
		s.WriteString(styles.RenderKey("q", "stop"))
	}
	return s.String()
}
