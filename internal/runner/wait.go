package runner

import (
	"sync"
	"sync/atomic"
	"time"
)

// Outcome tells which source ended a wait.
type Outcome int

const (
	Completed Outcome = iota
	Cancelled
)

func (o Outcome) String() string {
	if o == Cancelled {
		return "cancelled"
	}
	return "completed"
}

// Inflight tracks broker calls that may outlive the task that started them.
type Inflight struct {
	wg sync.WaitGroup
	n  atomic.Int64
}

func (f *Inflight) add() {
	f.n.Add(1)
	f.wg.Add(1)
}

func (f *Inflight) done() {
	f.n.Add(-1)
	f.wg.Done()
}

// Count is the number of calls still running.
func (f *Inflight) Count() int64 { return f.n.Load() }

// Wait blocks until every tracked call has returned.
func (f *Inflight) Wait() { f.wg.Wait() }

// Sleep waits for d or the shutdown signal, whichever comes first.
func Sleep(sd *Shutdown, d time.Duration) Outcome {
	if d <= 0 {
		if sd.Triggered() {
			return Cancelled
		}
		return Completed
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-sd.Done():
		return Cancelled
	case <-t.C:
		return Completed
	}
}

// Tick waits for the next tick on c or the shutdown signal.
func Tick(sd *Shutdown, c <-chan time.Time) Outcome {
	select {
	case <-sd.Done():
		return Cancelled
	case <-c:
		return Completed
	}
}

// Await runs op and waits for it or the shutdown signal. A cancelled op keeps
// running in the background until it returns on its own deadline; it stays
// tracked in inflight until then. op is not started once shutdown fired.
func Await[T any](sd *Shutdown, inflight *Inflight, op func() (T, error)) (Outcome, T, error) {
	var zero T
	if sd.Triggered() {
		return Cancelled, zero, nil
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	inflight.add()
	go func() {
		defer inflight.done()
		v, err := op()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return Completed, r.value, r.err
	case <-sd.Done():
		return Cancelled, zero, nil
	}
}
