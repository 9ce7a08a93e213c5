package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"brokerbench/internal/runner"
	"brokerbench/internal/tui/components"
	"brokerbench/internal/tui/styles"
)

// Model shows the running benchmark, one reporter snapshot at a time.
type Model struct {
	Stats    runner.StatsSnapshot
	Progress progress.Model
	Duration time.Duration

	ProducedLine components.Sparkline
	ConsumedLine components.Sparkline
	LatencyLine  components.Sparkline

	Width  int
	Height int
}

// NewModel creates the view. A zero duration means the run is open ended and
// no progress bar is drawn.
func NewModel(duration time.Duration) Model {
	return Model{
		Progress:     progress.New(progress.WithDefaultGradient()),
		Duration:     duration,
		ProducedLine: components.NewSparkline(40, "Produced", "msg/s", styles.Active),
		ConsumedLine: components.NewSparkline(40, "Consumed", "msg/s", styles.Value),
		LatencyLine:  components.NewSparkline(40, "Send P90", "ms", styles.Warn),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.StatsSnapshot:
		// Stopped snapshots carry whole-run averages, not a window.
		if msg.State != runner.StateStopped {
			m.ProducedLine.Add(msg.Rates.ProducedPerSec)
			m.ConsumedLine.Add(msg.Rates.ConsumedPerSec)
			m.LatencyLine.Add(msg.SendLatency.P90Ms)
		}
		m.Stats = msg

		if m.Duration <= 0 {
			return m, nil
		}
		pct := float64(msg.Elapsed) / float64(m.Duration)
		if pct > 1.0 {
			pct = 1.0
		}
		return m, m.Progress.SetPercent(pct)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		third := (msg.Width / 3) - 6
		if third < 10 {
			third = 10
		}
		m.ProducedLine.Width = third
		m.ConsumedLine.Width = third
		m.LatencyLine.Width = third
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	st := m.Stats

	errRate := st.Counters().ErrorRate()

	col1 := fmt.Sprintf("PRODUCED: %d\nCONSUMED: %d", st.Produced, st.Consumed)
	col2 := fmt.Sprintf("ERRORS: %d\nRATE:   %.2f%%", st.Errors, errRate)
	col3 := fmt.Sprintf("TARGET:   %d msg/s\nINFLIGHT: %d", st.Throughput, st.Inflight)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(styles.ErrorRate(errRate).Render(col2)),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.ProducedLine.View()),
		styles.Box.Render(m.ConsumedLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	latencies := fmt.Sprintf(
		"Send  P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %.2f ms\n"+
			"E2E   P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %.2f ms",
		st.SendLatency.P50Ms, st.SendLatency.P90Ms, st.SendLatency.P99Ms, st.SendLatency.MaxMs,
		st.EndToEnd.P50Ms, st.EndToEnd.P90Ms, st.EndToEnd.P99Ms, st.EndToEnd.MaxMs,
	)
	box := styles.Box
	if m.Width > 4 {
		box = box.Width(m.Width - 4)
	}
	s.WriteString(box.Render(latencies))
	s.WriteString("\n\n")

	if m.Duration > 0 {
		s.WriteString(m.Progress.View())
		s.WriteString("\n")
	}
	s.WriteString(styles.Subtle.Render(fmt.Sprintf("%s | elapsed %s", st.State, st.Elapsed.Round(time.Second))))

	return s.String()
}
