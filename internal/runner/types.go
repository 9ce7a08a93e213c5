package runner

import (
	"time"

	"brokerbench/internal/stats"
)

// State is the orchestrator lifecycle.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StatsSnapshot is sent over the update channel. Everything is a value so the
// receiver can keep it.
type StatsSnapshot struct {
	State   State
	Elapsed time.Duration

	Produced uint64
	Consumed uint64
	Errors   uint64
	Inflight int64

	// Rates since the previous report; zero outside reporter snapshots.
	Rates      stats.Rates
	Throughput uint64

	SendLatency stats.Latencies
	EndToEnd    stats.Latencies
}

func (s StatsSnapshot) Counters() stats.Counters {
	return stats.Counters{
		Produced: s.Produced,
		Consumed: s.Consumed,
		Errors:   s.Errors,
	}
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

// Result describes a finished run.
type Result struct {
	Final StatsSnapshot
	// Cause is why the run stopped: ErrInterrupted, ErrDurationElapsed,
	// ErrUserQuit or ErrBreakerTripped.
	Cause error
	// Tasks is how many tasks were spawned and joined.
	Tasks int
}
