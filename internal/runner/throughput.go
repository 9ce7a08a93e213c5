package runner

import (
	"errors"
	"sync"
	"time"
)

// MaxThroughput caps the per-producer target at one message per microsecond,
// the resolution of the pacing delay.
const MaxThroughput uint64 = 1_000_000

var ErrZeroThroughput = errors.New("throughput must be at least 1 msg/s")

// Throughput is the target rate shared by all producers. The rate controller
// is its only writer.
type Throughput struct {
	mu    sync.RWMutex
	value uint64
}

func NewThroughput(initial uint64) *Throughput {
	return &Throughput{value: clamp(initial)}
}

func (t *Throughput) Get() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Increase multiplies the target by factor and returns the new value.
func (t *Throughput) Increase(factor uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if factor != 0 && t.value > MaxThroughput/factor {
		t.value = MaxThroughput
	} else {
		t.value = clamp(t.value * factor)
	}
	return t.value
}

func clamp(v uint64) uint64 {
	switch {
	case v < 1:
		return 1
	case v > MaxThroughput:
		return MaxThroughput
	default:
		return v
	}
}

// Delay is the pause between two sends of one producer at throughput msg/s.
func Delay(throughput uint64) (time.Duration, error) {
	if throughput == 0 {
		return 0, ErrZeroThroughput
	}
	return time.Duration(1_000_000/throughput) * time.Microsecond, nil
}
