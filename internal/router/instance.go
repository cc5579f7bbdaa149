package router

import (
	"context"
	"reflect"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"

	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/route"
)

// instanceIDs assigns router instance IDs in creation order.
//
//nolint:gochecknoglobals // IDs must be unique and monotonic across engines.
var instanceIDs = atomic.NewUint64(0)

// Router is one perform/remove invocation. It is created by a Type facade
// and never reused.
//
// Callbacks run in the order prepare, transition, success or error, then
// completion. Every callback fires at most once.
type Router[D any, C route.Configurer] struct {
	id         uint64
	traceID    ulid.ULID
	engine     *Engine
	desc       *Descriptor
	capability registry.Capability
	path       route.Path
	config     C
	base       *route.PerformConfig

	// ctx is the context of the perform call, reused for removal.
	ctx context.Context

	mu           sync.Mutex
	state        State
	destination  D
	hasDest      bool
	err          error
	removeConfig *route.RemoveConfig

	// callbackDepth counts callbacks currently running for this instance,
	// on any goroutine.
	callbackDepth *atomic.Int32

	performDone *atomic.Bool
	removeDone  *atomic.Bool
}

func newInstance[D any, C route.Configurer](
	ctx context.Context,
	eng *Engine,
	desc *Descriptor,
	c registry.Capability,
	path route.Path,
	cfg C,
	removeCfg *route.RemoveConfig,
) *Router[D, C] {
	return &Router[D, C]{
		id:            instanceIDs.Inc(),
		traceID:       ulid.Make(),
		engine:        eng,
		desc:          desc,
		capability:    c,
		path:          path,
		config:        cfg,
		base:          cfg.Base(),
		ctx:           context.WithoutCancel(ctx),
		state:         StateUnrouted,
		removeConfig:  removeCfg,
		callbackDepth: atomic.NewInt32(0),
		performDone:   atomic.NewBool(false),
		removeDone:    atomic.NewBool(false),
	}
}

// ID returns the process-wide instance ID.
func (r *Router[D, C]) ID() uint64 {
	return r.id
}

// TraceID returns the instance trace ID used in logs.
func (r *Router[D, C]) TraceID() ulid.ULID {
	return r.traceID
}

// Name returns the descriptor name.
func (r *Router[D, C]) Name() string {
	return r.desc.name
}

// Capability returns the capability the instance was resolved from.
func (r *Router[D, C]) Capability() registry.Capability {
	return r.capability
}

// Path returns the route path of the perform call.
func (r *Router[D, C]) Path() route.Path {
	return r.path
}

// Config returns the configuration built for the perform call.
func (r *Router[D, C]) Config() C {
	return r.config
}

// State returns the current state.
func (r *Router[D, C]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Destination returns the destination and whether the instance still holds
// a reference to it.
func (r *Router[D, C]) Destination() (D, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destination, r.hasDest
}

// Err returns the error that moved the instance into an error state.
func (r *Router[D, C]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// CanRemove reports whether Remove would currently be accepted. It is false
// while any callback of the instance is running.
func (r *Router[D, C]) CanRemove() bool {
	if r.callbackDepth.Load() > 0 || !r.path.Kind().Removable() {
		return false
	}
	return r.State() == StateRouted
}

// moveLocked moves to next. Must be called with r.mu held.
func (r *Router[D, C]) moveLocked(next State) error {
	if !CanTransition(r.state, next) {
		return route.Errorf(route.ActionPerformRoute, route.CodeInvalidState,
			"router %s (%d): illegal transition %s -> %s", r.desc.name, r.id, r.state, next)
	}
	r.state = next
	return nil
}

func (r *Router[D, C]) move(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moveLocked(next)
}

// inCallback runs fn with the re-entrancy guard raised.
func (r *Router[D, C]) inCallback(fn func()) {
	r.callbackDepth.Inc()
	defer r.callbackDepth.Dec()
	fn()
}

// start drives the instance from unrouted into routing, or into a terminal
// state when construction or preparation fails. When given is non-nil the
// build step is skipped.
func (r *Router[D, C]) start(given *D) {
	log := r.engine.log(r.ctx)
	_ = r.move(StatePreparing)

	log.Debug().
		Uint64("router_id", r.id).
		Str("trace_id", r.traceID.String()).
		Str("router", r.desc.name).
		Str("kind", r.path.Kind().String()).
		Str("state", StatePreparing.String()).
		Msg("router instance created")

	var dest D
	if given != nil {
		dest = *given
	} else {
		built, err := r.build()
		if err != nil {
			r.failPerform(route.ActionInit, err)
			return
		}
		dest = built
	}

	r.mu.Lock()
	r.destination = dest
	r.hasDest = true
	r.mu.Unlock()

	if err := r.prepare(dest); err != nil {
		r.failPerform(route.ActionInit, err)
		return
	}

	if !r.path.Kind().Transitions() {
		r.mu.Lock()
		_ = r.moveLocked(StateRouted)
		r.mu.Unlock()
		r.notifyRouted(dest)
		return
	}

	transition := r.performTransition()
	if transition == nil {
		r.failPerform(route.ActionPerformRoute, route.Errorf(route.ActionPerformRoute, route.CodeTransitionFailed,
			"router %s: no transition collaborator for kind %s", r.desc.name, r.path.Kind()))
		return
	}

	_ = r.move(StateRouting)
	transition(r.ctx, dest, r.path, r.completion(r.performDone, r.finishPerform))
}

// build constructs the destination and checks it against D.
func (r *Router[D, C]) build() (D, error) {
	var zero D
	if r.desc.build == nil {
		return zero, route.Errorf(route.ActionInit, route.CodeConstructionFailed,
			"router %s cannot build destinations", r.desc.name)
	}

	built, err := r.desc.build(r.ctx, r.config)
	if err != nil {
		return zero, route.NewError(route.ActionInit, route.CodeConstructionFailed,
			"router "+r.desc.name+" failed to build destination", err)
	}
	if isNil(built) {
		return zero, route.Errorf(route.ActionInit, route.CodeConstructionFailed,
			"router %s built a nil destination", r.desc.name)
	}
	dest, ok := built.(D)
	if !ok {
		return zero, route.Errorf(route.ActionInit, route.CodeConstructionFailed,
			"router %s built %T, which does not satisfy %s", r.desc.name, built, reflect.TypeFor[D]())
	}
	return dest, nil
}

// prepare runs the caller hooks, then the descriptor hook.
func (r *Router[D, C]) prepare(dest D) error {
	var err error
	r.inCallback(func() {
		err = r.base.RunPrepare(dest)
	})
	if err != nil {
		return route.NewError(route.ActionInit, route.CodePrepareFailed, "prepare destination failed", err)
	}

	if r.desc.prepareForRoute != nil {
		if err := r.desc.prepareForRoute(r.ctx, dest, r.config); err != nil {
			return route.NewError(route.ActionInit, route.CodePrepareFailed,
				"router "+r.desc.name+" failed to prepare destination", err)
		}
	}
	return nil
}

func (r *Router[D, C]) performTransition() func(context.Context, any, route.Path, Completion) {
	if r.desc.transition != nil {
		return r.desc.transition
	}
	if t := r.engine.transitioner; t != nil {
		return t.PerformTransition
	}
	return nil
}

func (r *Router[D, C]) removeTransition() func(context.Context, any, route.Path, Completion) {
	if r.desc.removeTransition != nil {
		return r.desc.removeTransition
	}
	if t := r.engine.transitioner; t != nil {
		return t.PerformRemoveTransition
	}
	return nil
}

// completion wraps finish so that only the first call counts and the result
// is delivered on the engine dispatcher.
func (r *Router[D, C]) completion(done *atomic.Bool, finish func(ok bool, err error)) Completion {
	return func(ok bool, err error) {
		if !done.CompareAndSwap(false, true) {
			r.engine.log(r.ctx).Warn().
				Uint64("router_id", r.id).
				Str("router", r.desc.name).
				Bool("ok", ok).
				Msg("transition completion called more than once, ignoring")
			return
		}
		r.engine.dispatcher.Dispatch(func() {
			finish(ok, err)
		})
	}
}

func (r *Router[D, C]) finishPerform(ok bool, cause error) {
	if !ok {
		r.failPerform(route.ActionPerformRoute, route.NewError(route.ActionPerformRoute,
			route.CodeTransitionFailed, "router "+r.desc.name+" transition failed", cause))
		return
	}

	r.mu.Lock()
	if err := r.moveLocked(StateRouted); err != nil {
		r.mu.Unlock()
		return
	}
	dest := r.destination
	r.mu.Unlock()

	r.notifyRouted(dest)
}

func (r *Router[D, C]) notifyRouted(dest D) {
	r.engine.log(r.ctx).Debug().
		Uint64("router_id", r.id).
		Str("trace_id", r.traceID.String()).
		Str("router", r.desc.name).
		Str("state", StateRouted.String()).
		Msg("route performed")

	r.inCallback(func() {
		r.base.NotifySuccess(dest, route.ActionPerformRoute)
	})
}

// failPerform moves to performError, drops the destination and notifies.
func (r *Router[D, C]) failPerform(action route.Action, cause error) {
	rerr, ok := route.AsError(cause)
	if !ok {
		rerr = route.NewError(action, route.CodeTransitionFailed, "perform failed", cause)
	}

	r.mu.Lock()
	if err := r.moveLocked(StatePerformError); err != nil {
		r.mu.Unlock()
		return
	}
	var zero D
	r.destination = zero
	r.hasDest = false
	r.err = rerr
	r.mu.Unlock()

	r.engine.report(r.ctx, r.event(rerr))
	r.inCallback(func() {
		r.base.NotifyFailure(rerr.Action, rerr)
	})
}

// Remove tears the destination down. It fails synchronously with
// InvalidState unless the instance is routed, its kind is removable, and no
// callback of the instance is running. The callback guard is per instance,
// not per goroutine: a Remove from another goroutine that races one of the
// instance's callbacks is rejected too and may be retried once CanRemove
// reports true. The builder mutates a copy of the remove configuration given
// at perform time.
func (r *Router[D, C]) Remove(ctx context.Context, builder func(cfg *route.RemoveConfig)) error {
	if ctx == nil {
		ctx = r.ctx
	}
	if r.callbackDepth.Load() > 0 {
		return r.rejectRemove("remove called from a callback of the same router")
	}
	if !r.path.Kind().Removable() {
		return r.rejectRemove("route kind " + r.path.Kind().String() + " cannot be removed")
	}

	r.mu.Lock()
	if r.state != StateRouted {
		state := r.state
		r.mu.Unlock()
		return r.rejectRemove("cannot remove in state " + state.String())
	}
	_ = r.moveLocked(StateRemoving)
	dest := r.destination
	rc := r.removeConfig.Clone()
	r.mu.Unlock()

	if builder != nil {
		builder(rc)
	}
	r.mu.Lock()
	r.removeConfig = rc
	r.mu.Unlock()

	r.engine.log(r.ctx).Debug().
		Uint64("router_id", r.id).
		Str("trace_id", r.traceID.String()).
		Str("router", r.desc.name).
		Str("state", StateRemoving.String()).
		Msg("removing route")

	if err := r.prepareRemove(ctx, dest, rc); err != nil {
		r.failRemove(rc, err)
		return nil
	}

	transition := r.removeTransition()
	if transition == nil {
		r.failRemove(rc, route.Errorf(route.ActionRemoveRoute, route.CodeTransitionFailed,
			"router %s: no remove collaborator", r.desc.name))
		return nil
	}

	transition(ctx, dest, r.path, r.completion(r.removeDone, func(ok bool, cause error) {
		r.finishRemove(rc, ok, cause)
	}))
	return nil
}

func (r *Router[D, C]) rejectRemove(msg string) error {
	err := route.NewError(route.ActionRemoveRoute, route.CodeInvalidState,
		"router "+r.desc.name+": "+msg, nil)
	r.engine.report(r.ctx, r.event(err))
	return err
}

func (r *Router[D, C]) prepareRemove(ctx context.Context, dest D, rc *route.RemoveConfig) error {
	if rc.PrepareForRemove != nil {
		var err error
		r.inCallback(func() {
			err = rc.PrepareForRemove(dest)
		})
		if err != nil {
			return route.NewError(route.ActionRemoveRoute, route.CodePrepareFailed, "prepare for remove failed", err)
		}
	}
	if r.desc.prepareForRemove != nil {
		if err := r.desc.prepareForRemove(ctx, dest, rc); err != nil {
			return route.NewError(route.ActionRemoveRoute, route.CodePrepareFailed,
				"router "+r.desc.name+" failed to prepare for remove", err)
		}
	}
	return nil
}

func (r *Router[D, C]) finishRemove(rc *route.RemoveConfig, ok bool, cause error) {
	if !ok {
		r.failRemove(rc, route.NewError(route.ActionRemoveRoute, route.CodeTransitionFailed,
			"router "+r.desc.name+" remove transition failed", cause))
		return
	}

	r.mu.Lock()
	if err := r.moveLocked(StateRemoved); err != nil {
		r.mu.Unlock()
		return
	}
	var zero D
	r.destination = zero
	r.hasDest = false
	r.mu.Unlock()

	r.engine.log(r.ctx).Debug().
		Uint64("router_id", r.id).
		Str("trace_id", r.traceID.String()).
		Str("router", r.desc.name).
		Str("state", StateRemoved.String()).
		Msg("route removed")

	r.inCallback(rc.NotifySuccess)
}

// failRemove moves to removeError. The destination stays referenced since
// the host still displays it.
func (r *Router[D, C]) failRemove(rc *route.RemoveConfig, cause error) {
	rerr, ok := route.AsError(cause)
	if !ok {
		rerr = route.NewError(route.ActionRemoveRoute, route.CodeTransitionFailed, "remove failed", cause)
	}

	r.mu.Lock()
	if err := r.moveLocked(StateRemoveError); err != nil {
		r.mu.Unlock()
		return
	}
	r.err = rerr
	r.mu.Unlock()

	r.engine.report(r.ctx, r.event(rerr))
	r.inCallback(func() {
		rc.NotifyFailure(route.ActionRemoveRoute, rerr)
	})
}

func (r *Router[D, C]) event(err *route.Error) ErrorEvent {
	return ErrorEvent{
		RouterID:   r.id,
		Router:     r.desc.name,
		Capability: r.capability,
		Kind:       r.path.Kind(),
		Err:        err,
	}
}

// isNil reports whether v is nil or a nil pointer, map, slice, func or
// channel boxed in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
