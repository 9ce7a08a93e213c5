// Package dummy is an in-process broker for dry runs and tests. Profiles
// mimic backends of different quality: fast, slow, spiky or failing.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"brokerbench/internal/broker"
)

var (
	ErrRejected      = errors.New("dummy: send rejected")
	ErrReceiveFailed = errors.New("dummy: receive failed")
)

// Profile shapes latency and failures of the dummy broker.
type Profile struct {
	Name        string
	Description string

	MinLatency time.Duration
	MaxLatency time.Duration

	// SpikeRate of operations take SpikeLatency instead.
	SpikeRate    float64
	SpikeLatency time.Duration

	SendFailureRate    float64
	ReceiveFailureRate float64
}

var profiles = map[string]Profile{
	"fast": {
		Name:        "fast",
		Description: "acks instantly, never fails",
	},
	"medium": {
		Name:        "medium",
		Description: "1-5ms per operation",
		MinLatency:  time.Millisecond,
		MaxLatency:  5 * time.Millisecond,
	},
	"slow": {
		Name:        "slow",
		Description: "100-300ms per operation, good for testing timeouts",
		MinLatency:  100 * time.Millisecond,
		MaxLatency:  300 * time.Millisecond,
	},
	"spike": {
		Name:         "spike",
		Description:  "usually 1ms, 5% of operations take 2s",
		MinLatency:   time.Millisecond,
		MaxLatency:   time.Millisecond,
		SpikeRate:    0.05,
		SpikeLatency: 2 * time.Second,
	},
	"error": {
		Name:               "error",
		Description:        "20% of sends and 5% of receives fail",
		SendFailureRate:    0.2,
		ReceiveFailureRate: 0.05,
	},
	"down": {
		Name:               "down",
		Description:        "every operation fails, trips the circuit breaker",
		SendFailureRate:    1,
		ReceiveFailureRate: 1,
	},
}

// LookupProfile returns the named profile.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown dummy profile %q", name)
	}
	return p, nil
}

// Profiles lists all profiles sorted by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Broker keeps one buffered queue per topic. Every consumer competes for the
// same queue, like a single consumer group.
type Broker struct {
	profile Profile

	mu     sync.Mutex
	topics map[string]chan broker.Message
	rnd    *rand.Rand
	offset int64

	consumeTopic string
	bufferSize   int
}

// New creates a broker whose consumers read consumeTopic. bufferSize bounds
// each topic queue; sends block (up to their deadline) while it is full.
func New(p Profile, consumeTopic string, bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Broker{
		profile:      p,
		consumeTopic: consumeTopic,
		topics:       make(map[string]chan broker.Message),
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		bufferSize:   bufferSize,
	}
}

func (b *Broker) queue(topic string) chan broker.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.topics[topic]
	if !ok {
		q = make(chan broker.Message, b.bufferSize)
		b.topics[topic] = q
	}
	return q
}

// roll returns the simulated latency and whether the operation fails.
func (b *Broker) roll(failureRate float64) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.profile
	latency := p.MinLatency
	if p.MaxLatency > p.MinLatency {
		latency += time.Duration(b.rnd.Int63n(int64(p.MaxLatency - p.MinLatency)))
	}
	if p.SpikeRate > 0 && b.rnd.Float64() < p.SpikeRate {
		latency = p.SpikeLatency
	}
	return latency, failureRate > 0 && b.rnd.Float64() < failureRate
}

func (b *Broker) nextOffset() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offset++
	return b.offset
}

// Depth reports how many messages wait in topic.
func (b *Broker) Depth(topic string) int {
	return len(b.queue(topic))
}

func (b *Broker) NewProducer(int) (broker.Producer, error) {
	return &producer{b: b}, nil
}

func (b *Broker) NewConsumer(int) (broker.Consumer, error) {
	return &consumer{b: b, topic: b.consumeTopic}, nil
}

var _ broker.Factory = (*Broker)(nil)

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type producer struct {
	b      *Broker
	mu     sync.Mutex
	closed bool
}

func (p *producer) Send(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return broker.ErrClosed
	}

	latency, fail := p.b.roll(p.b.profile.SendFailureRate)
	if err := wait(ctx, latency); err != nil {
		return err
	}
	if fail {
		return ErrRejected
	}

	msg := broker.Message{
		Topic:     topic,
		Key:       append([]byte(nil), key...),
		Payload:   append([]byte(nil), value...),
		Offset:    p.b.nextOffset(),
		Timestamp: time.Now(),
	}
	select {
	case p.b.queue(topic) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *producer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

type consumer struct {
	b      *Broker
	topic  string
	mu     sync.Mutex
	closed bool
}

func (c *consumer) Receive(ctx context.Context) (broker.Message, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return broker.Message{}, broker.ErrClosed
	}

	latency, fail := c.b.roll(c.b.profile.ReceiveFailureRate)
	if err := wait(ctx, latency); err != nil {
		return broker.Message{}, broker.ErrNoMessage
	}
	if fail {
		return broker.Message{}, ErrReceiveFailed
	}

	select {
	case msg := <-c.b.queue(c.topic):
		return msg, nil
	case <-ctx.Done():
		return broker.Message{}, broker.ErrNoMessage
	}
}

func (c *consumer) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
