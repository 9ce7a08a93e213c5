// Package broker defines the client surface the benchmark drives. Wire
// protocol, connection management and serialization live in the
// implementations (kafka, dummy).
package broker

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoMessage means a receive poll ended without any message available.
	// It is idle time, not a failure.
	ErrNoMessage = errors.New("broker: no message available")

	// ErrClosed is returned by clients used after Close.
	ErrClosed = errors.New("broker: client closed")
)

// Message is one received record.
type Message struct {
	Topic     string
	Key       []byte
	Payload   []byte
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Producer sends records. The ctx deadline bounds the whole send, including
// waiting for the broker acknowledgement.
type Producer interface {
	Send(ctx context.Context, topic string, key, payload []byte) error
	Close()
}

// Consumer receives records one at a time. Receive returns ErrNoMessage when
// ctx expires before a record is available.
type Consumer interface {
	Receive(ctx context.Context) (Message, error)
	Close()
}

// Factory creates one client per worker.
type Factory interface {
	NewProducer(id int) (Producer, error)
	NewConsumer(id int) (Consumer, error)
}
