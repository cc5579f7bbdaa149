package router

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/routekit/internal/dispatch"
	"github.com/rshade/routekit/internal/logging"
	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/route"
)

// Transitioner is the host collaborator that performs the actual
// transitions. Each method is called at most once per router instance and
// must eventually call done. done may be called from any goroutine.
type Transitioner interface {
	PerformTransition(ctx context.Context, destination any, path route.Path, done Completion)
	PerformRemoveTransition(ctx context.Context, destination any, path route.Path, done Completion)
}

// ErrorEvent describes one error reported by the engine.
type ErrorEvent struct {
	// RouterID is the instance ID, or 0 for errors raised before an
	// instance exists.
	RouterID uint64

	// Router is the descriptor name, empty when resolution failed.
	Router string

	// Capability is the capability the facade was bound to.
	Capability registry.Capability

	// Kind is the route kind of the failed operation.
	Kind route.Kind

	// Err is the reported error. Never nil.
	Err *route.Error
}

// ErrorObserver receives every error the engine reports, synchronous and
// asynchronous alike. Observers run on the goroutine that produced the error.
type ErrorObserver func(event ErrorEvent)

// Engine resolves capabilities to descriptors and owns the collaborators
// shared by every router instance: the registry, the dispatcher and the
// transitioner.
//
// Thread Safety: All methods are safe for concurrent use.
type Engine struct {
	// registry is the source of descriptors. Never mutated by the engine.
	registry *registry.Registry

	// dispatcher marshals collaborator completions onto the interaction
	// thread.
	dispatcher dispatch.Dispatcher

	// transitioner runs transitions for descriptors without their own.
	transitioner Transitioner

	logger zerolog.Logger

	// mu protects observers.
	mu        sync.RWMutex
	observers []ErrorObserver
}

// Option configures an Engine.
type Option func(*Engine)

// WithDispatcher sets the interaction-thread dispatcher.
// Defaults to dispatch.Immediate.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(e *Engine) {
		if d != nil {
			e.dispatcher = d
		}
	}
}

// WithTransitioner sets the host transition collaborator.
func WithTransitioner(t Transitioner) Option {
	return func(e *Engine) {
		e.transitioner = t
	}
}

// WithLogger sets the engine logger. When unset, the logger from the
// context of each call is used.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithErrorObserver adds an observer notified of every engine error.
func WithErrorObserver(obs ErrorObserver) Option {
	return func(e *Engine) {
		if obs != nil {
			e.observers = append(e.observers, obs)
		}
	}
}

// NewEngine creates an Engine over reg.
//
// Example:
//
//	eng := router.NewEngine(reg,
//	    router.WithDispatcher(loop),
//	    router.WithTransitioner(stack),
//	)
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:   reg,
		dispatcher: dispatch.Immediate{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine resolves against.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Observe adds an error observer after construction.
func (e *Engine) Observe(obs ErrorObserver) {
	if obs == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// Resolve returns the default descriptor for c.
func (e *Engine) Resolve(c registry.Capability) (*Descriptor, error) {
	if e.registry == nil {
		return nil, route.Errorf(route.ActionResolve, route.CodeNotFound, "no registry configured")
	}
	f, err := e.registry.Resolve(c)
	if err != nil {
		return nil, err
	}
	d, ok := f.(*Descriptor)
	if !ok {
		return nil, route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration,
			"factory %s for %s is not a router descriptor", f.FactoryName(), c)
	}
	return d, nil
}

// ResolveAll returns every descriptor bound to c in priority order.
func (e *Engine) ResolveAll(c registry.Capability) ([]*Descriptor, error) {
	if e.registry == nil {
		return nil, route.Errorf(route.ActionResolve, route.CodeNotFound, "no registry configured")
	}
	entries, err := e.registry.ResolveAll(c)
	if err != nil {
		return nil, err
	}
	out := make([]*Descriptor, 0, len(entries))
	for _, entry := range entries {
		if d, ok := entry.Factory.(*Descriptor); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// log returns the engine logger, or the context logger when the engine has
// none of its own.
func (e *Engine) log(ctx context.Context) *zerolog.Logger {
	var l zerolog.Logger
	if e.logger.GetLevel() != zerolog.Disabled {
		l = e.logger.With().Str("component", "router").Logger()
	} else {
		l = logging.FromContext(ctx).With().Str("component", "router").Logger()
	}
	return &l
}

// report logs err and fans it out to the observers.
func (e *Engine) report(ctx context.Context, event ErrorEvent) {
	log := e.log(ctx)
	evt := log.Warn()
	if event.Err.Code == route.CodeTransitionFailed || event.Err.Code == route.CodeConstructionFailed {
		evt = log.Error()
	}
	evt.
		Uint64("router_id", event.RouterID).
		Str("router", event.Router).
		Str("capability", event.Capability.String()).
		Str("kind", event.Kind.String()).
		Str("action", event.Err.Action.String()).
		Str("code", event.Err.Code.String()).
		Err(event.Err).
		Msg("routing error")

	e.mu.RLock()
	observers := append([]ErrorObserver(nil), e.observers...)
	e.mu.RUnlock()
	for _, obs := range observers {
		obs(event)
	}
}
