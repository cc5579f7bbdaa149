// Package host provides a reference transition collaborator: an in-memory
// navigation stack standing in for a real view hierarchy.
package host

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/routekit/internal/route"
	"github.com/rshade/routekit/internal/router"
)

// ErrNotOnStack is reported when a remove transition targets a destination
// the stack does not hold.
var ErrNotOnStack = errors.New("destination is not on the stack")

// ErrNotComparable is reported for destinations that cannot be identified.
var ErrNotComparable = errors.New("destination type is not comparable")

// StackEntry is one destination shown by the stack.
type StackEntry struct {
	Destination any
	Kind        route.Kind
	Source      any
	Animated    bool
	Params      map[string]any
}

// FailFunc decides whether a transition should fail. Returning a non-nil
// error fails the transition with that cause.
type FailFunc func(op string, kind route.Kind, destination any) error

// Stack implements router.Transitioner over an in-memory navigation stack.
//
// Push, present, add-child, segue and custom transitions push the destination;
// removal takes it off the stack wherever it is.
//
// Thread Safety: All methods are safe for concurrent use.
type Stack struct {
	mu      sync.Mutex
	entries []StackEntry

	delay  time.Duration
	fail   FailFunc
	logger zerolog.Logger
}

// Option configures a Stack.
type Option func(*Stack)

// WithDelay completes every transition asynchronously after d.
func WithDelay(d time.Duration) Option {
	return func(s *Stack) {
		s.delay = d
	}
}

// WithFailure installs a failure injector.
func WithFailure(fn FailFunc) Option {
	return func(s *Stack) {
		s.fail = fn
	}
}

// WithLogger sets the stack logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Stack) {
		s.logger = logger.With().Str("component", "host").Logger()
	}
}

// NewStack creates an empty navigation stack.
func NewStack(opts ...Option) *Stack {
	s := &Stack{
		entries: make([]StackEntry, 0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ops passed to FailFunc.
const (
	OpPerform = "perform"
	OpRemove  = "remove"
)

// PerformTransition pushes destination.
func (s *Stack) PerformTransition(_ context.Context, destination any, path route.Path, done router.Completion) {
	s.complete(done, func() error {
		if s.fail != nil {
			if err := s.fail(OpPerform, path.Kind(), destination); err != nil {
				return err
			}
		}
		animated := path.Kind().Animates()
		if v, ok := path.Param("animated"); ok {
			if b, isBool := v.(bool); isBool {
				animated = b
			}
		}
		s.Push(StackEntry{
			Destination: destination,
			Kind:        path.Kind(),
			Source:      path.Source(),
			Animated:    animated,
			Params:      path.Params(),
		})
		s.logger.Debug().
			Str("operation", OpPerform).
			Str("kind", path.Kind().String()).
			Str("destination", fmt.Sprintf("%T", destination)).
			Int("depth", s.Len()).
			Msg("destination shown")
		return nil
	})
}

// PerformRemoveTransition removes destination from the stack.
func (s *Stack) PerformRemoveTransition(_ context.Context, destination any, path route.Path, done router.Completion) {
	s.complete(done, func() error {
		if s.fail != nil {
			if err := s.fail(OpRemove, path.Kind(), destination); err != nil {
				return err
			}
		}
		if err := s.Remove(destination); err != nil {
			return err
		}
		s.logger.Debug().
			Str("operation", OpRemove).
			Str("kind", path.Kind().String()).
			Str("destination", fmt.Sprintf("%T", destination)).
			Int("depth", s.Len()).
			Msg("destination removed")
		return nil
	})
}

func (s *Stack) complete(done router.Completion, fn func() error) {
	run := func() {
		if err := fn(); err != nil {
			done(false, err)
			return
		}
		done(true, nil)
	}
	if s.delay > 0 {
		time.AfterFunc(s.delay, run)
		return
	}
	run()
}

// Push adds an entry on top of the stack.
func (s *Stack) Push(entry StackEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Pop removes and returns the top entry, or nil when the stack is empty.
func (s *Stack) Pop() *StackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	entry := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return &entry
}

// Peek returns the top entry without removing it.
func (s *Stack) Peek() *StackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	entry := s.entries[len(s.entries)-1]
	return &entry
}

// Remove takes destination off the stack. Entries above it stay in place.
func (s *Stack) Remove(destination any) error {
	if destination == nil || !reflect.TypeOf(destination).Comparable() {
		return fmt.Errorf("%w: %T", ErrNotComparable, destination)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if sameDestination(s.entries[i].Destination, destination) {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %T", ErrNotOnStack, destination)
}

// Contains reports whether destination is on the stack.
func (s *Stack) Contains(destination any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if sameDestination(e.Destination, destination) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the stack, bottom first.
func (s *Stack) Entries() []StackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StackEntry(nil), s.entries...)
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IsEmpty reports whether the stack has no entries.
func (s *Stack) IsEmpty() bool {
	return s.Len() == 0
}

// Clear removes all entries.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

func sameDestination(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}
