package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"brokerbench/internal/broker"
	"brokerbench/internal/payload"
	"brokerbench/internal/stats"
)

type producer struct {
	id          int
	client      broker.Producer
	topic       string
	builder     *payload.Builder
	sendTimeout time.Duration

	throughput *Throughput
	metrics    *stats.Metrics
	shutdown   *Shutdown
	inflight   *Inflight
	logger     *slog.Logger
}

func (p *producer) run() error {
	p.logger.Debug("producer started")
	for {
		outcome, err := p.step()
		if err != nil {
			return fmt.Errorf("producer %d: %w", p.id, err)
		}
		if outcome == Cancelled {
			p.logger.Debug("producer stopped")
			return nil
		}
	}
}

// step sends one message and then paces. The time spent sending is taken off
// the pause so slow sends do not push the rate below target.
func (p *producer) step() (Outcome, error) {
	delay, err := Delay(p.throughput.Get())
	if err != nil {
		return Cancelled, err
	}

	start := time.Now()
	value, err := p.builder.Build(start)
	if err != nil {
		return Cancelled, err
	}

	outcome, _, err := Await(p.shutdown, p.inflight, func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
		defer cancel()
		return struct{}{}, p.client.Send(ctx, p.topic, p.builder.Key(), value)
	})
	if outcome == Cancelled {
		return Cancelled, nil
	}

	elapsed := time.Since(start)
	if err != nil {
		p.metrics.IncErrors()
		p.logger.Warn("send failed", "error", err)
	} else {
		p.metrics.IncProduced()
		p.metrics.SendLatency.Record(elapsed)
	}

	return Sleep(p.shutdown, delay-elapsed), nil
}
