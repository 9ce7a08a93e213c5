package tui

import (
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerbench/internal/config"
	"brokerbench/internal/dummy"
	"brokerbench/internal/runner"
	"brokerbench/internal/stats"
)

func newTestRunner(t *testing.T) *runner.Runner {
	t.Helper()
	profile, err := dummy.LookupProfile("fast")
	require.NoError(t, err)

	cfg := config.Config{
		Broker:      config.BrokerMemory,
		Topic:       "bench",
		Producers:   2,
		Consumers:   1,
		MessageSize: 64,
		Throughput:  10,
		Duration:    time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return runner.NewRunner(cfg, dummy.New(profile, cfg.Topic, 0), logger, nil)
}

func TestModel_StatsUpdateLiveView(t *testing.T) {
	m := NewModel(newTestRunner(t))

	next, cmd := m.Update(StatsMsg{
		State:      runner.StateRunning,
		Elapsed:    30 * time.Second,
		Produced:   1234,
		Consumed:   1200,
		Throughput: 10,
		Rates:      stats.Rates{ProducedPerSec: 20},
	})
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.Equal(t, uint64(1234), m.Live.Stats.Produced)
	assert.Equal(t, 20.0, m.Live.ProducedLine.Last())
	assert.Contains(t, m.View(), "PRODUCED: 1234")
}

func TestModel_QuitStopsRunnerThenExits(t *testing.T) {
	r := newTestRunner(t)
	m := NewModel(r)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.True(t, m.Stopping)
	assert.ErrorIs(t, r.Cause(), runner.ErrUserQuit)
	assert.Contains(t, m.View(), "Stopping")

	next, _ = m.Update(DoneMsg{Result: runner.Result{Cause: runner.ErrUserQuit}})
	m = next.(Model)
	assert.True(t, m.Done)
	assert.Contains(t, m.View(), "Benchmark Complete")

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.Quitting)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_BreakerTripShowsSummary(t *testing.T) {
	m := NewModel(newTestRunner(t))

	next, cmd := m.Update(DoneMsg{
		Result: runner.Result{Cause: runner.ErrBreakerTripped},
		Err:    runner.ErrBreakerTripped,
	})
	m = next.(Model)

	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Circuit Breaker Tripped")
}

func TestModel_InterruptQuits(t *testing.T) {
	m := NewModel(newTestRunner(t))

	_, cmd := m.Update(DoneMsg{Result: runner.Result{Cause: runner.ErrInterrupted}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
