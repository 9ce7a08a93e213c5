// Package runner drives a benchmark run: producer and consumer workers, the
// rate controller, the error circuit breaker and the metrics reporter, all
// stopped through one shared shutdown signal.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"brokerbench/internal/broker"
	"brokerbench/internal/config"
	"brokerbench/internal/payload"
	"brokerbench/internal/stats"
)

var ErrAlreadyStarted = errors.New("runner already started")

type Runner struct {
	cfg     config.Config
	factory broker.Factory
	logger  *slog.Logger
	runID   string

	metrics    *stats.Metrics
	throughput *Throughput
	shutdown   *Shutdown
	inflight   Inflight

	state   atomic.Int32
	started atomic.Bool
	start   atomic.Pointer[time.Time]

	mu    sync.Mutex
	group errgroup.Group
	tasks int

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg config.Config, factory broker.Factory, logger *slog.Logger, updates StatsUpdateChan) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}
	if logger == nil {
		logger = slog.Default()
	}

	runID := uuid.NewString()
	return &Runner{
		cfg:        cfg,
		factory:    factory,
		logger:     logger.With("run_id", runID),
		runID:      runID,
		metrics:    stats.NewMetrics(),
		throughput: NewThroughput(cfg.Throughput),
		shutdown:   NewShutdown(),
		Updates:    updates,
	}
}

func (r *Runner) Config() config.Config   { return r.cfg }
func (r *Runner) RunID() string           { return r.runID }
func (r *Runner) Metrics() *stats.Metrics { return r.metrics }
func (r *Runner) Throughput() *Throughput { return r.throughput }
func (r *Runner) State() State            { return State(r.state.Load()) }
func (r *Runner) Done() <-chan struct{}   { return r.shutdown.Done() }
func (r *Runner) Cause() error            { return r.shutdown.Cause() }
func (r *Runner) GetInflight() int64      { return r.inflight.Count() }

func (r *Runner) setState(s State) { r.state.Store(int32(s)) }

func (r *Runner) elapsed() time.Duration {
	start := r.start.Load()
	if start == nil {
		return 0
	}
	return time.Since(*start)
}

// Stop triggers shutdown with cause. Safe to call from any goroutine, any
// number of times; only the first call counts and reports true.
func (r *Runner) Stop(cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.shutdown.Trigger(cause) {
		return false
	}
	if r.State() == StateRunning {
		r.setState(StateDraining)
	}
	return true
}

// spawn starts fn in the task group unless shutdown already began.
func (r *Runner) spawn(name string, fn func() error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != StateRunning {
		r.logger.Debug("refusing to spawn task while not running", "task", name)
		return false
	}
	r.tasks++
	r.group.Go(func() error {
		err := fn()
		if err != nil {
			r.logger.Error("task failed", "task", name, "error", err)
			r.Stop(err)
		}
		return err
	})
	return true
}

// Snapshot copies the current counters and percentiles.
func (r *Runner) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		State:       r.State(),
		Elapsed:     r.elapsed(),
		Produced:    r.metrics.Produced(),
		Consumed:    r.metrics.Consumed(),
		Errors:      r.metrics.Errors(),
		Inflight:    r.inflight.Count(),
		Throughput:  r.throughput.Get(),
		SendLatency: r.metrics.SendLatency.Latencies(),
		EndToEnd:    r.metrics.EndToEnd.Latencies(),
	}
}

func (r *Runner) sendUpdate(s StatsSnapshot) {
	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

type clients struct {
	producers []broker.Producer
	consumers []broker.Consumer
}

func (c clients) close() {
	for _, p := range c.producers {
		p.Close()
	}
	for _, cons := range c.consumers {
		cons.Close()
	}
}

// connect creates one client per worker. On failure every client created so
// far is closed.
func (r *Runner) connect() (clients, error) {
	var c clients
	for i := 0; i < r.cfg.Producers; i++ {
		p, err := r.factory.NewProducer(i)
		if err != nil {
			c.close()
			return clients{}, fmt.Errorf("failed to create producer %d: %w", i, err)
		}
		c.producers = append(c.producers, p)
	}
	for i := 0; i < r.cfg.Consumers; i++ {
		cons, err := r.factory.NewConsumer(i)
		if err != nil {
			c.close()
			return clients{}, fmt.Errorf("failed to create consumer %d: %w", i, err)
		}
		c.consumers = append(c.consumers, cons)
	}
	return c, nil
}

// Run executes the benchmark until ctx is cancelled, the configured duration
// elapses, Stop is called or the circuit breaker trips. Interruptions and an
// elapsed duration are a clean finish; a breaker trip returns
// ErrBreakerTripped alongside the result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if !r.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyStarted
	}
	now := time.Now()
	r.start.Store(&now)

	if err := r.cfg.Validate(); err != nil {
		r.setState(StateStopped)
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := r.connect()
	if err != nil {
		r.setState(StateStopped)
		return Result{}, err
	}

	r.mu.Lock()
	if r.shutdown.Triggered() {
		r.setState(StateDraining)
	} else {
		r.setState(StateRunning)
	}
	r.mu.Unlock()

	r.logger.Info("benchmark started",
		"broker", r.cfg.Broker,
		"topic", r.cfg.Topic,
		"producers", r.cfg.Producers,
		"consumers", r.cfg.Consumers,
		"msg_size", r.cfg.MessageSize,
		"throughput", r.throughput.Get(),
		"auto_increase", r.cfg.AutoIncrease,
	)

	r.spawnWorkers(c)

	watched := make(chan struct{})
	go func() {
		defer close(watched)
		r.watch(ctx)
	}()

	<-r.shutdown.Done()
	cause := r.shutdown.Cause()
	r.logger.Info("shutting down", "cause", cause, "inflight", r.inflight.Count())

	groupErr := r.group.Wait()
	r.inflight.Wait()
	<-watched

	c.close()
	r.setState(StateStopped)

	final := r.Snapshot()
	final.Rates = final.Counters().PerSecond(final.Elapsed)
	r.sendUpdate(final)
	r.logSummary(final, cause)

	res := Result{Final: final, Cause: cause, Tasks: r.tasks}
	switch {
	case errors.Is(cause, ErrBreakerTripped):
		return res, ErrBreakerTripped
	case groupErr != nil:
		return res, groupErr
	}
	return res, nil
}

func (r *Runner) spawnWorkers(c clients) {
	for i, client := range c.producers {
		p := &producer{
			id:          i,
			client:      client,
			topic:       r.cfg.Topic,
			builder:     payload.NewBuilder(i, r.runID, r.cfg.MessageSize),
			sendTimeout: r.cfg.SendTimeout,
			throughput:  r.throughput,
			metrics:     r.metrics,
			shutdown:    r.shutdown,
			inflight:    &r.inflight,
			logger:      r.logger.With(slog.Int("producer_id", i)),
		}
		r.spawn(fmt.Sprintf("producer-%d", i), p.run)
	}

	for i, client := range c.consumers {
		cons := &consumer{
			id:          i,
			client:      client,
			pollTimeout: r.cfg.PollTimeout,
			metrics:     r.metrics,
			shutdown:    r.shutdown,
			inflight:    &r.inflight,
			logger:      r.logger.With(slog.Int("consumer_id", i)),
		}
		r.spawn(fmt.Sprintf("consumer-%d", i), cons.run)
	}

	rc := &rateController{
		enabled:    r.cfg.AutoIncrease,
		interval:   r.cfg.IncreaseInterval,
		factor:     r.cfg.IncreaseFactor,
		throughput: r.throughput,
		shutdown:   r.shutdown,
		logger:     r.logger.With("task", "rate-controller"),
	}
	r.spawn("rate-controller", rc.run)

	cb := &circuitBreaker{
		threshold: r.cfg.ErrorThreshold,
		mode:      r.cfg.BreakerMode,
		interval:  r.cfg.BreakerInterval,
		metrics:   r.metrics,
		shutdown:  r.shutdown,
		trip:      r.Stop,
		logger:    r.logger.With("task", "circuit-breaker"),
	}
	r.spawn("circuit-breaker", cb.run)

	rep := &reporter{
		interval: r.cfg.ReportInterval,
		snapshot: r.Snapshot,
		publish:  r.sendUpdate,
		shutdown: r.shutdown,
		logger:   r.logger.With("task", "reporter"),
	}
	r.spawn("reporter", rep.run)
}

// watch turns operator interrupts and the run duration into Stop calls.
func (r *Runner) watch(ctx context.Context) {
	var deadline <-chan time.Time
	if r.cfg.Duration > 0 {
		t := time.NewTimer(r.cfg.Duration)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case <-ctx.Done():
		r.Stop(ErrInterrupted)
	case <-deadline:
		r.Stop(ErrDurationElapsed)
	case <-r.shutdown.Done():
	}
}

func (r *Runner) logSummary(s StatsSnapshot, cause error) {
	level := slog.LevelInfo
	if errors.Is(cause, ErrBreakerTripped) {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, "benchmark finished",
		slog.String("cause", fmt.Sprint(cause)),
		slog.Duration("elapsed", s.Elapsed.Round(time.Millisecond)),
		slog.Uint64("produced", s.Produced),
		slog.Uint64("consumed", s.Consumed),
		slog.Uint64("errors", s.Errors),
		slog.Float64("avg_produced_per_sec", round(s.Rates.ProducedPerSec)),
		slog.Float64("avg_consumed_per_sec", round(s.Rates.ConsumedPerSec)),
		slog.Uint64("final_target_throughput", s.Throughput),
		slog.Group("send_latency_ms", latencyAttrs(s.SendLatency)...),
		slog.Group("e2e_latency_ms", latencyAttrs(s.EndToEnd)...),
	)
}

func latencyAttrs(l stats.Latencies) []any {
	return []any{
		slog.Float64("p50", l.P50Ms),
		slog.Float64("p90", l.P90Ms),
		slog.Float64("p99", l.P99Ms),
		slog.Float64("max", l.MaxMs),
	}
}
