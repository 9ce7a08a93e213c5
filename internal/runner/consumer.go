package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"brokerbench/internal/broker"
	"brokerbench/internal/payload"
	"brokerbench/internal/stats"
)

// receiveBackoff keeps a consumer whose broker fails instantly from spinning.
const receiveBackoff = 10 * time.Millisecond

type consumer struct {
	id          int
	client      broker.Consumer
	pollTimeout time.Duration

	metrics  *stats.Metrics
	shutdown *Shutdown
	inflight *Inflight
	logger   *slog.Logger
}

func (c *consumer) run() error {
	c.logger.Debug("consumer started")
	for c.step() == Completed {
	}
	c.logger.Debug("consumer stopped")
	return nil
}

func (c *consumer) step() Outcome {
	outcome, msg, err := Await(c.shutdown, c.inflight, func() (broker.Message, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.pollTimeout)
		defer cancel()
		return c.client.Receive(ctx)
	})
	if outcome == Cancelled {
		return Cancelled
	}

	switch {
	case errors.Is(err, broker.ErrNoMessage):
		return Completed
	case err != nil:
		c.metrics.IncErrors()
		c.logger.Warn("receive failed", "error", err)
		return Sleep(c.shutdown, receiveBackoff)
	}

	// Tombstones carry no payload.
	if len(msg.Payload) == 0 {
		return Completed
	}

	decoded, err := payload.Decode(msg.Payload)
	if err != nil {
		c.metrics.IncErrors()
		c.logger.Warn("invalid payload",
			"error", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return Completed
	}

	c.metrics.IncConsumed()
	if decoded.IsEnvelope {
		c.metrics.EndToEnd.Record(time.Since(decoded.Envelope.Timestamp))
	}
	return Completed
}
