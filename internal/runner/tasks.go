package runner

import (
	"log/slog"
	"time"

	"brokerbench/internal/config"
	"brokerbench/internal/stats"
)

type rateController struct {
	enabled    bool
	interval   time.Duration
	factor     uint64
	throughput *Throughput
	shutdown   *Shutdown
	logger     *slog.Logger
}

func (rc *rateController) run() error {
	if !rc.enabled {
		<-rc.shutdown.Done()
		return nil
	}

	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for Tick(rc.shutdown, ticker.C) == Completed {
		tp := rc.throughput.Increase(rc.factor)
		rc.logger.Info("increased target throughput", "throughput", tp)
	}
	return nil
}

type circuitBreaker struct {
	threshold uint64
	mode      config.BreakerMode
	interval  time.Duration
	metrics   *stats.Metrics
	shutdown  *Shutdown
	trip      func(error) bool
	logger    *slog.Logger

	lastErrors uint64
}

func (cb *circuitBreaker) run() error {
	if cb.threshold == 0 {
		<-cb.shutdown.Done()
		return nil
	}

	ticker := time.NewTicker(cb.interval)
	defer ticker.Stop()

	for Tick(cb.shutdown, ticker.C) == Completed {
		observed, tripped := cb.check()
		if !tripped {
			continue
		}
		if cb.trip(ErrBreakerTripped) {
			cb.logger.Error("error threshold exceeded, stopping benchmark",
				"errors", observed,
				"threshold", cb.threshold,
				"mode", cb.mode,
				"interval", cb.interval,
			)
		}
		return nil
	}
	return nil
}

// check reports the error count compared against the threshold: the delta
// since the previous check in windowed mode, the total in cumulative mode.
func (cb *circuitBreaker) check() (uint64, bool) {
	total := cb.metrics.Errors()
	observed := total
	if cb.mode == config.BreakerWindowed {
		observed = stats.Counters{Errors: total}.Sub(stats.Counters{Errors: cb.lastErrors}).Errors
		cb.lastErrors = total
	}
	return observed, observed > cb.threshold
}

type reporter struct {
	interval time.Duration
	snapshot func() StatsSnapshot
	publish  func(StatsSnapshot)
	shutdown *Shutdown
	logger   *slog.Logger

	prev     stats.Counters
	prevTime time.Time
}

func (r *reporter) run() error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.prevTime = time.Now()
	for Tick(r.shutdown, ticker.C) == Completed {
		r.report(time.Now())
	}
	return nil
}

func (r *reporter) report(now time.Time) StatsSnapshot {
	snap := r.snapshot()
	cur := snap.Counters()
	rates := cur.Sub(r.prev).PerSecond(now.Sub(r.prevTime))
	r.prev, r.prevTime = cur, now

	snap.Rates = rates
	r.publish(snap)

	r.logger.Info("stats",
		slog.Float64("produced_per_sec", round(rates.ProducedPerSec)),
		slog.Float64("consumed_per_sec", round(rates.ConsumedPerSec)),
		slog.Float64("errors_per_sec", round(rates.ErrorsPerSec)),
		slog.Uint64("produced", snap.Produced),
		slog.Uint64("consumed", snap.Consumed),
		slog.Uint64("errors", snap.Errors),
		slog.Uint64("target_throughput", snap.Throughput),
	)
	return snap
}

func round(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
