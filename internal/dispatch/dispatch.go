// Package dispatch provides the interaction-thread executors that router
// instances use to deliver their callbacks.
//
// A Dispatcher runs work items one at a time in submission order. Immediate
// runs work inline on the calling goroutine; Loop queues work for a single
// goroutine started with Run.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// ErrStopped is returned by Do when the loop no longer accepts work.
var ErrStopped = errors.New("dispatch loop stopped")

// Dispatcher executes work on the interaction thread.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) {
	f(fn)
}

// Immediate runs every work item inline. It is meant for single-threaded
// hosts and tests.
type Immediate struct{}

// Dispatch runs fn on the calling goroutine.
func (Immediate) Dispatch(fn func()) {
	if fn != nil {
		fn()
	}
}

// Stats contains loop counters.
type Stats struct {
	Dispatched int64
	Executed   int64
	Dropped    int64
	Panics     int64
	Pending    int
}

// Loop is a serial executor backed by an unbounded FIFO queue.
// Dispatch is safe from any goroutine; work runs on the goroutine that
// called Run.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool

	running *atomic.Bool

	dispatched *atomic.Int64
	executed   *atomic.Int64
	dropped    *atomic.Int64
	panics     *atomic.Int64

	logger zerolog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the loop logger.
func WithLogger(logger zerolog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger.With().Str("component", "dispatch").Logger()
	}
}

// WithCapacity preallocates the queue.
func WithCapacity(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.queue = make([]func(), 0, n)
		}
	}
}

// NewLoop creates a stopped-until-Run loop. Work dispatched before Run is
// queued and executed once Run starts.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		running:    atomic.NewBool(false),
		dispatched: atomic.NewInt64(0),
		executed:   atomic.NewInt64(0),
		dropped:    atomic.NewInt64(0),
		panics:     atomic.NewInt64(0),
		logger:     zerolog.Nop(),
	}
	l.cond = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dispatch queues fn. After the loop stops fn is dropped.
func (l *Loop) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	if !l.enqueue(fn) {
		l.dropped.Inc()
		l.logger.Warn().
			Str("operation", "dispatch").
			Msg("loop stopped, dropping work item")
	}
}

func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return false
	}
	l.queue = append(l.queue, fn)
	l.dispatched.Inc()
	l.cond.Signal()
	return true
}

// Do runs fn on the loop and waits for it to finish. Calling Do from a work
// item running on the same loop blocks until ctx is done.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.enqueue(func() {
		defer close(done)
		fn()
	}) {
		l.dropped.Inc()
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for dispatched work: %w", ctx.Err())
	}
}

// Run executes queued work until ctx is done or Stop is called. Work already
// queued when the loop stops is still executed. Run returns ctx.Err() when
// the context ends the loop and nil after Stop.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("dispatch loop already running")
	}
	defer l.running.Store(false)

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-stopWatch:
		}
	}()

	l.logger.Debug().Str("operation", "run").Msg("dispatch loop started")

	for {
		fn, ok := l.next()
		if !ok {
			break
		}
		l.execute(fn)
	}

	l.logger.Debug().
		Str("operation", "run").
		Int64("executed", l.executed.Load()).
		Int64("dropped", l.dropped.Load()).
		Msg("dispatch loop stopped")

	return ctx.Err()
}

// next blocks until work is available. It returns false once the loop is
// stopped and the queue is drained.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.queue) == 0 && !l.stopped {
		l.cond.Wait()
	}
	if len(l.queue) == 0 {
		return nil, false
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Inc()
			l.logger.Error().
				Str("operation", "execute").
				Interface("panic", r).
				Msg("dispatched work panicked")
		}
	}()
	fn()
	l.executed.Inc()
}

// Stop stops accepting work. Run drains the queue and returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	l.cond.Broadcast()
}

// Stopped reports whether the loop has stopped accepting work.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	pending := len(l.queue)
	l.mu.Unlock()

	return Stats{
		Dispatched: l.dispatched.Load(),
		Executed:   l.executed.Load(),
		Dropped:    l.dropped.Load(),
		Panics:     l.panics.Load(),
		Pending:    pending,
	}
}
