// Package eventloop runs editor work one turn at a time on a single
// goroutine. Work deferred during a turn runs after the turn finishes, in
// priority order, which makes the ordering between competing reactions to
// the same input explicit.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ErrStopped is returned by Post once Run has returned.
var ErrStopped = errors.New("event loop stopped")

// Priority orders deferred tasks; lower values run first.
type Priority int

const (
	PriorityHigh   Priority = -10
	PriorityNormal Priority = 0
	PriorityLow    Priority = 10
)

type deferred struct {
	priority Priority
	fn       func()
}

// Loop serializes turns. A turn is one posted function plus every task it
// (transitively) defers.
type Loop struct {
	inbox chan func()
	done  chan struct{}

	mu      sync.Mutex
	pending []deferred
}

// New creates a loop whose inbox buffers up to size posted turns.
func New(size int) *Loop {
	return &Loop{
		inbox: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues fn as a turn. It blocks while the inbox is full and returns
// ctx.Err() or ErrStopped if the turn cannot be queued.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.inbox <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Run executes posted turns until ctx is cancelled. It must be called from
// exactly one goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case fn := <-l.inbox:
			l.RunTurn(fn)
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// RunTurn executes fn and then drains deferred tasks. Tasks deferred by a
// deferred task run in the same drain, after the ones already queued at
// the same or higher priority. Single-goroutine owners such as the wasm
// bridge call RunTurn directly instead of Run.
func (l *Loop) RunTurn(fn func()) {
	l.safeCall(fn)

	for {
		task, ok := l.popDeferred()
		if !ok {
			break
		}
		l.safeCall(task.fn)
	}
}

// Defer schedules fn to run after the current turn. Outside a turn the
// task waits for the next one.
func (l *Loop) Defer(p Priority, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, deferred{priority: p, fn: fn})
	sort.SliceStable(l.pending, func(i, j int) bool {
		return l.pending[i].priority < l.pending[j].priority
	})
}

// Pending returns the number of deferred tasks not yet run.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Loop) popDeferred() (deferred, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return deferred{}, false
	}
	task := l.pending[0]
	l.pending = l.pending[1:]
	return task, true
}

func (l *Loop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event loop task panicked", "panic", r)
		}
	}()
	fn()
}
