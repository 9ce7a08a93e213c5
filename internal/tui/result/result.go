package result

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"brokerbench/internal/runner"
	"brokerbench/internal/stats"
	"brokerbench/internal/tui/styles"
)

// Model is the summary shown once the run has stopped.
type Model struct {
	Result runner.Result
	Err    error

	Width  int
	Height int
}

func NewModel(res runner.Result, err error) Model {
	return Model{Result: res, Err: err}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	final := m.Result.Final

	title := styles.Title.Render("Benchmark Complete")
	if errors.Is(m.Err, runner.ErrBreakerTripped) {
		title = styles.Title.Foreground(styles.ColorError).Render("Circuit Breaker Tripped")
	}
	s.WriteString(title)
	s.WriteString("\n\n")

	if m.Err != nil && !errors.Is(m.Err, runner.ErrBreakerTripped) {
		s.WriteString(styles.Error.Render("Error: " + m.Err.Error()))
		s.WriteString("\n\n")
	}

	s.WriteString(styles.Active.Render("Overview"))
	s.WriteString("\n")
	overview := fmt.Sprintf(
		"Stopped by:     %v\nElapsed:        %s\nProduced:       %d (%.1f msg/s)\nConsumed:       %d (%.1f msg/s)\nErrors:         %d (%.2f%%)\nFinal target:   %d msg/s",
		m.Result.Cause,
		final.Elapsed.Round(time.Millisecond),
		final.Produced, final.Rates.ProducedPerSec,
		final.Consumed, final.Rates.ConsumedPerSec,
		final.Errors, final.Counters().ErrorRate(),
		final.Throughput,
	)
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Latency"))
	s.WriteString("\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(latencyTable("Send", final.SendLatency)),
		styles.Box.Render(latencyTable("End-to-end", final.EndToEnd)),
	))

	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))

	return s.String()
}

func latencyTable(name string, l stats.Latencies) string {
	if l.Count == 0 {
		return fmt.Sprintf("%s\n  no samples", name)
	}
	return fmt.Sprintf(
		"%s (%d samples)\n  P50: %.2f ms\n  P90: %.2f ms\n  P99: %.2f ms\n  Max: %.2f ms",
		name, l.Count, l.P50Ms, l.P90Ms, l.P99Ms, l.MaxMs,
	)
}
