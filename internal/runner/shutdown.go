package runner

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInterrupted     = errors.New("interrupted")
	ErrDurationElapsed = errors.New("run duration elapsed")
	ErrUserQuit        = errors.New("quit by user")
	ErrBreakerTripped  = errors.New("circuit breaker tripped")
)

// Shutdown is the one-way stop signal observed by every task.
type Shutdown struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	once   sync.Once
}

func NewShutdown() *Shutdown {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Shutdown{ctx: ctx, cancel: cancel}
}

// Trigger fires the signal. Only the first call has an effect; it alone
// returns true.
func (s *Shutdown) Trigger(cause error) bool {
	first := false
	s.once.Do(func() {
		s.cancel(cause)
		first = true
	})
	return first
}

func (s *Shutdown) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Shutdown) Triggered() bool {
	return s.ctx.Err() != nil
}

// Cause reports the error passed to the first Trigger, or nil.
func (s *Shutdown) Cause() error {
	if !s.Triggered() {
		return nil
	}
	return context.Cause(s.ctx)
}
