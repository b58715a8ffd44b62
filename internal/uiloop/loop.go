// Package uiloop runs functions one at a time on a single goroutine, the way
// a desktop toolkit requires all window mutations to happen on its UI thread.
package uiloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("ui loop stopped")

// PanicError is returned by Do when its function panicked. The loop keeps
// running.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("ui loop task panicked: %v", e.Value)
}

type task struct {
	fn       func()
	done     chan struct{}
	panicked *PanicError
}

// Loop is a single-consumer task queue.
type Loop struct {
	tasks   chan *task
	stopped chan struct{}
	once    sync.Once
}

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		tasks:   make(chan *task),
		stopped: make(chan struct{}),
	}
}

// Run drains tasks until ctx is cancelled. It must be called exactly once,
// from the goroutine that owns the UI state.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-l.tasks:
			t.run()
		}
	}
}

func (t *task) run() {
	defer close(t.done)
	defer func() {
		if v := recover(); v != nil {
			t.panicked = &PanicError{Value: v}
		}
	}()
	t.fn()
}

// Do runs fn on the loop and waits for it to return. If ctx ends while fn is
// queued, fn is not run. Once fn has started, Do waits for it regardless of
// ctx. A panic in fn is returned as a *PanicError.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	t := &task{fn: fn, done: make(chan struct{})}
	select {
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case l.tasks <- t:
	}
	<-t.done
	if t.panicked != nil {
		return t.panicked
	}
	return nil
}

// Stopped is closed after Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
