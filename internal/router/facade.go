package router

import (
	"context"
	"reflect"

	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/route"
)

// Builder mutates a freshly created configuration before the route starts.
// hooks attaches callbacks typed against the call site's destination.
type Builder[D any, C route.Configurer] func(cfg C, hooks route.Hooks[D])

// PerformOption configures a single perform call.
type PerformOption func(*performOptions)

type performOptions struct {
	remove *route.RemoveConfig
}

// Removing supplies the remove configuration at perform time. A builder
// passed to Remove later mutates a copy of it.
func Removing(builder func(cfg *route.RemoveConfig)) PerformOption {
	return func(o *performOptions) {
		if builder != nil {
			builder(o.remove)
		}
	}
}

// Type is a call-site handle bound to a destination type D and a
// configuration type C. It resolves its capability on every call and never
// exposes the concrete router.
type Type[D any, C route.Configurer] struct {
	engine     *Engine
	capability registry.Capability
}

// To binds a facade to capability c.
//
// Example:
//
//	login := router.To[LoginView, *LoginConfig](eng, registry.Protocol[LoginView]())
//	r, err := login.PerformPath(ctx, route.Push(nav), func(cfg *LoginConfig, h route.Hooks[LoginView]) {
//	    cfg.Username = "ada"
//	    h.Success(func(v LoginView) { v.Focus() })
//	})
func To[D any, C route.Configurer](eng *Engine, c registry.Capability) Type[D, C] {
	return Type[D, C]{engine: eng, capability: c}
}

// Capability returns the capability the facade is bound to.
func (t Type[D, C]) Capability() registry.Capability {
	return t.capability
}

// SupportRouteType reports whether the resolved router declares kind. It
// returns false when the capability does not resolve.
func (t Type[D, C]) SupportRouteType(kind route.Kind) bool {
	desc, err := t.engine.Resolve(t.capability)
	if err != nil {
		return false
	}
	return desc.Supports(kind)
}

// Available reports whether the capability resolves to a router.
func (t Type[D, C]) Available() bool {
	_, err := t.engine.Resolve(t.capability)
	return err == nil
}

// PerformPath builds a destination and routes to it along path.
//
// A nil router is returned, together with the reason, when the path is
// invalid, the capability does not resolve, or the resolved router does not
// fit D, C or the path kind. In every other case the returned instance
// reports construction and transition failures through the configuration
// callbacks.
func (t Type[D, C]) PerformPath(
	ctx context.Context,
	path route.Path,
	builder Builder[D, C],
	opts ...PerformOption,
) (*Router[D, C], error) {
	return t.perform(ctx, nil, path, builder, opts)
}

// PerformOnDestination routes an existing destination along path. The
// concrete type of dest must be registered to the same router the facade
// resolves to; otherwise nil and a NotFound error are returned.
func (t Type[D, C]) PerformOnDestination(
	ctx context.Context,
	dest D,
	path route.Path,
	builder Builder[D, C],
	opts ...PerformOption,
) (*Router[D, C], error) {
	return t.perform(ctx, &dest, path, builder, opts)
}

// PrepareDestination runs only the preparation phase on dest. The returned
// instance ends in routed without any transition.
func (t Type[D, C]) PrepareDestination(
	ctx context.Context,
	dest D,
	builder Builder[D, C],
	opts ...PerformOption,
) (*Router[D, C], error) {
	return t.perform(ctx, &dest, route.MakeDestination(), builder, opts)
}

// MakeDestination builds and prepares a destination without routing to it.
// Because no transition runs, the result is available synchronously.
func (t Type[D, C]) MakeDestination(ctx context.Context, builder Builder[D, C]) (D, error) {
	var zero D
	r, err := t.PerformPath(ctx, route.MakeDestination(), builder)
	if err != nil {
		return zero, err
	}
	if err := r.Err(); err != nil {
		return zero, err
	}
	dest, ok := r.Destination()
	if !ok {
		return zero, route.Errorf(route.ActionInit, route.CodeConstructionFailed,
			"router %s produced no destination", r.Name())
	}
	return dest, nil
}

// Perform routes along an implicit custom path with no source.
//
// Deprecated: use PerformPath with route.Custom().
func (t Type[D, C]) Perform(ctx context.Context, builder Builder[D, C]) (*Router[D, C], error) {
	return t.PerformPath(ctx, route.Custom(), builder)
}

// PerformOn routes dest along an implicit custom path with no source.
//
// Deprecated: use PerformOnDestination with route.Custom().
func (t Type[D, C]) PerformOn(ctx context.Context, dest D, builder Builder[D, C]) (*Router[D, C], error) {
	return t.PerformOnDestination(ctx, dest, route.Custom(), builder)
}

func (t Type[D, C]) perform(
	ctx context.Context,
	given *D,
	path route.Path,
	builder Builder[D, C],
	opts []PerformOption,
) (*Router[D, C], error) {
	if ctx == nil {
		ctx = context.Background()
	}

	desc, err := t.check(ctx, given, path)
	if err != nil {
		t.reject(ctx, desc, path, err)
		return nil, err
	}

	cfg, ok := desc.newConfig().(C)
	if !ok {
		err := route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s configuration %s is not %s", desc.name, desc.cfgType, reflect.TypeFor[C]())
		t.reject(ctx, desc, path, err)
		return nil, err
	}
	if isNil(cfg) || cfg.Base() == nil {
		err := route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s returned a nil configuration", desc.name)
		t.reject(ctx, desc, path, err)
		return nil, err
	}
	cfg.Base().Animated = path.Kind().Animates()
	if builder != nil {
		builder(cfg, route.NewHooks[D](cfg))
	}

	po := performOptions{remove: &route.RemoveConfig{Animated: cfg.Base().Animated}}
	for _, opt := range opts {
		opt(&po)
	}

	r := newInstance[D, C](ctx, t.engine, desc, t.capability, path, cfg, po.remove)
	r.start(given)
	return r, nil
}

// check runs every synchronous precondition of a perform call, before any
// configuration or instance exists.
func (t Type[D, C]) check(ctx context.Context, given *D, path route.Path) (*Descriptor, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	desc, err := t.engine.Resolve(t.capability)
	if err != nil {
		return nil, err
	}

	if !desc.Supports(path.Kind()) {
		return desc, route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s does not support route kind %s", desc.name, path.Kind())
	}

	if given != nil {
		if err := t.checkDestination(desc, *given); err != nil {
			return desc, err
		}
	} else if dt := reflect.TypeFor[D](); !desc.provides(dt) {
		return desc, route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s builds %s, which does not satisfy %s", desc.name, desc.destType, dt)
	}

	if ct := reflect.TypeFor[C](); !desc.accepts(ct) {
		return desc, route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s configuration %s is not %s", desc.name, desc.cfgType, ct)
	}

	t.engine.log(ctx).Debug().
		Str("operation", "resolve").
		Str("capability", t.capability.String()).
		Str("router", desc.name).
		Str("kind", path.Kind().String()).
		Msg("capability resolved")

	return desc, nil
}

// checkDestination requires the class of dest to resolve to desc.
func (t Type[D, C]) checkDestination(desc *Descriptor, dest D) error {
	class := registry.ClassOf(dest)
	if class.IsZero() {
		return route.Errorf(route.ActionInit, route.CodeInvalidConfiguration, "destination is nil")
	}

	reg := t.engine.Registry()
	if reg == nil || !reg.Provides(class, desc) {
		return route.Errorf(route.ActionResolve, route.CodeNotFound,
			"destination class %s is not registered to router %s", class.Name, desc.name)
	}
	return nil
}

func (t Type[D, C]) reject(ctx context.Context, desc *Descriptor, path route.Path, err error) {
	rerr, ok := route.AsError(err)
	if !ok {
		return
	}
	event := ErrorEvent{
		Capability: t.capability,
		Kind:       path.Kind(),
		Err:        rerr,
	}
	if desc != nil {
		event.Router = desc.name
	}
	t.engine.report(ctx, event)
}
