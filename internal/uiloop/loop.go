// Package uiloop provides the single-threaded event loop that owns all surface
// and pool state, plus the clocks used to schedule work back onto it.
package uiloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("uiloop: stopped")

// Executor runs work on the UI thread.
type Executor interface {
	Post(fn func())
}

// Loop is a cooperative event loop. Post may be called from any goroutine; the
// posted functions run one at a time, in order, on the goroutine running Run.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

var _ Executor = (*Loop)(nil)

// New builds a loop with the given queue capacity.
func New(buffer int, logger *slog.Logger) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		queue:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post enqueues fn. Work posted after the loop stopped is dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("uiloop do: %w", ctx.Err())
	}
}

// Run processes posted work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil && l.logger != nil {
			l.logger.Error("ui task panicked", "panic", r)
		}
	}()
	fn()
}

// Inline runs posted work immediately on the caller's goroutine. Tests use it
// together with FakeClock to drive state machines deterministically.
type Inline struct{}

// Post runs fn synchronously.
func (Inline) Post(fn func()) {
	if fn != nil {
		fn()
	}
}

// Goroutine runs each posted function on its own goroutine. Pools use it for
// off-thread planning work that later posts results back to the Loop.
type Goroutine struct{}

// Post starts fn in a new goroutine.
func (Goroutine) Post(fn func()) {
	if fn != nil {
		go fn()
	}
}
