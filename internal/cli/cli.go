// Package cli runs a benchmark without the dashboard: a header before the
// run, structured logs while it runs, a summary table afterwards.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"brokerbench/internal/config"
	"brokerbench/internal/runner"
	"brokerbench/internal/stats"
)

const rule = "======================================================================"

func Start(ctx context.Context, w io.Writer, r *runner.Runner) (runner.Result, error) {
	printHeader(w, r.Config(), r.RunID())

	res, err := r.Run(ctx)
	if res.Final.State == runner.StateStopped {
		PrintSummary(w, res)
	}
	return res, err
}

func printHeader(w io.Writer, cfg config.Config, runID string) {
	duration := "until interrupted"
	if cfg.Duration > 0 {
		duration = cfg.Duration.String()
	}
	increase := "off"
	if cfg.AutoIncrease {
		increase = fmt.Sprintf("x%d every %s", cfg.IncreaseFactor, cfg.IncreaseInterval)
	}
	breaker := "off"
	if cfg.ErrorThreshold > 0 {
		breaker = fmt.Sprintf("> %d errors per %s (%s)", cfg.ErrorThreshold, cfg.BreakerInterval, cfg.BreakerMode)
	}
	target := cfg.Broker
	if cfg.Broker == config.BrokerKafka {
		target = strings.Join(cfg.Brokers, ",")
	} else {
		target += " (" + cfg.DummyProfile + ")"
	}

	fmt.Fprintf(w, "\nSTARTING BROKERBENCH\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Run ID     : %s\n", runID)
	fmt.Fprintf(w, "Brokers    : %s\n", target)
	fmt.Fprintf(w, "Topic      : %s\n", cfg.Topic)
	fmt.Fprintf(w, "Workers    : %d producers / %d consumers\n", cfg.Producers, cfg.Consumers)
	fmt.Fprintf(w, "Payload    : %d bytes\n", cfg.MessageSize)
	fmt.Fprintf(w, "Throughput : %d msg/s per producer (increase: %s)\n", cfg.Throughput, increase)
	fmt.Fprintf(w, "Breaker    : %s\n", breaker)
	fmt.Fprintf(w, "Duration   : %s\n", duration)
	fmt.Fprintf(w, "%s\n\n", rule)
}

func PrintSummary(w io.Writer, res runner.Result) {
	f := res.Final

	fmt.Fprintf(w, "\nBENCHMARK RESULTS\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Stopped by     : %v\n", res.Cause)
	fmt.Fprintf(w, "Total Duration : %s\n", f.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Produced       : %d (%.2f msg/s)\n", f.Produced, f.Rates.ProducedPerSec)
	fmt.Fprintf(w, "Consumed       : %d (%.2f msg/s)\n", f.Consumed, f.Rates.ConsumedPerSec)
	fmt.Fprintf(w, "Errors         : %d (%.2f%%)\n", f.Errors, f.Counters().ErrorRate())
	fmt.Fprintf(w, "Final Target   : %d msg/s\n", f.Throughput)
	printLatency(w, "SEND LATENCY (ms)", f.SendLatency)
	printLatency(w, "END-TO-END LATENCY (ms)", f.EndToEnd)
	fmt.Fprintf(w, "%s\n", rule)
}

func printLatency(w io.Writer, title string, l stats.Latencies) {
	fmt.Fprintf(w, "\n%s [%d samples]\n", title, l.Count)
	if l.Count == 0 {
		return
	}
	fmt.Fprintf(w, "   P50 : %.2f\n", l.P50Ms)
	fmt.Fprintf(w, "   P90 : %.2f\n", l.P90Ms)
	fmt.Fprintf(w, "   P99 : %.2f\n", l.P99Ms)
	fmt.Fprintf(w, "   Max : %.2f\n", l.MaxMs)
}
