package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"brokerbench/internal/runner"
)

// Source is what the instruments observe; *runner.Runner satisfies it.
type Source interface {
	Snapshot() runner.StatsSnapshot
}

// RegisterMetrics exposes the run counters and gauges on meter. Values are
// read at collection time, so workers never touch OpenTelemetry directly.
func RegisterMetrics(meter metric.Meter, src Source) (metric.Registration, error) {
	produced, err := meter.Int64ObservableCounter("brokerbench.messages.produced",
		metric.WithDescription("Messages acknowledged by the broker"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create produced counter: %w", err)
	}
	consumed, err := meter.Int64ObservableCounter("brokerbench.messages.consumed",
		metric.WithDescription("Messages received and validated"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumed counter: %w", err)
	}
	failures, err := meter.Int64ObservableCounter("brokerbench.errors",
		metric.WithDescription("Failed sends, receives and invalid payloads"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	throughput, err := meter.Int64ObservableGauge("brokerbench.target_throughput",
		metric.WithDescription("Target messages per second per producer"),
		metric.WithUnit("{message}/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create throughput gauge: %w", err)
	}
	inflight, err := meter.Int64ObservableGauge("brokerbench.inflight",
		metric.WithDescription("Broker calls currently in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inflight gauge: %w", err)
	}
	sendP99, err := meter.Float64ObservableGauge("brokerbench.send_latency.p99",
		metric.WithDescription("99th percentile send latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency gauge: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Snapshot()
		o.ObserveInt64(produced, int64(s.Produced))
		o.ObserveInt64(consumed, int64(s.Consumed))
		o.ObserveInt64(failures, int64(s.Errors))
		o.ObserveInt64(throughput, int64(s.Throughput))
		o.ObserveInt64(inflight, s.Inflight)
		o.ObserveFloat64(sendP99, s.SendLatency.P99Ms)
		return nil
	}, produced, consumed, failures, throughput, inflight, sendP99)
}
