package router

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rshade/routekit/internal/route"
)

// Completion is handed to a transition collaborator. Only the first call has
// any effect.
type Completion func(ok bool, err error)

// TransitionFunc runs a perform or remove transition for one destination.
type TransitionFunc[D any] func(ctx context.Context, destination D, path route.Path, done Completion)

// Spec describes a router as data: the functions a destination type plugs
// into the shared lifecycle.
//
// D is the concrete destination type the router builds. C is its
// configuration type, normally a pointer to a struct embedding
// route.PerformConfig.
type Spec[D any, C route.Configurer] struct {
	// Name identifies the router in logs and manifests. Required.
	Name string

	// Kinds lists the supported route kinds. Empty means all kinds.
	Kinds []route.Kind

	// NewConfig returns a fresh default configuration. Required.
	NewConfig func() C

	// Build constructs the destination. Routers without Build only serve
	// PerformOnDestination and PrepareDestination.
	Build func(ctx context.Context, cfg C) (D, error)

	// PrepareForRoute runs after the caller's preparation hooks.
	PrepareForRoute func(ctx context.Context, destination D, cfg C) error

	// Transition overrides the engine transitioner for perform.
	Transition TransitionFunc[D]

	// PrepareForRemove runs after RemoveConfig.PrepareForRemove.
	PrepareForRemove func(ctx context.Context, destination D, cfg *route.RemoveConfig) error

	// RemoveTransition overrides the engine transitioner for remove.
	RemoveTransition TransitionFunc[D]
}

// Descriptor is a type-erased router factory stored in the registry.
type Descriptor struct {
	name     string
	kinds    map[route.Kind]struct{}
	destType reflect.Type
	cfgType  reflect.Type

	newConfig        func() route.Configurer
	build            func(ctx context.Context, cfg route.Configurer) (any, error)
	prepareForRoute  func(ctx context.Context, destination any, cfg route.Configurer) error
	transition       func(ctx context.Context, destination any, path route.Path, done Completion)
	prepareForRemove func(ctx context.Context, destination any, cfg *route.RemoveConfig) error
	removeTransition func(ctx context.Context, destination any, path route.Path, done Completion)
}

// ErrDestinationType is the cause attached when a destination does not have
// the type a router expects.
var ErrDestinationType = errors.New("destination has unexpected type")

// NewDescriptor validates spec and erases its types.
func NewDescriptor[D any, C route.Configurer](spec Spec[D, C]) (*Descriptor, error) {
	if spec.Name == "" {
		return nil, route.Errorf(route.ActionInit, route.CodeInvalidConfiguration, "router name is required")
	}
	if spec.NewConfig == nil {
		return nil, route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s: NewConfig is required", spec.Name)
	}

	d := &Descriptor{
		name:     spec.Name,
		destType: reflect.TypeFor[D](),
		cfgType:  reflect.TypeFor[C](),
		newConfig: func() route.Configurer {
			return spec.NewConfig()
		},
	}

	if len(spec.Kinds) > 0 {
		d.kinds = make(map[route.Kind]struct{}, len(spec.Kinds))
		for _, k := range spec.Kinds {
			if !k.Valid() {
				return nil, route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
					"router %s: unsupported kind %s", spec.Name, k)
			}
			d.kinds[k] = struct{}{}
		}
	}

	if spec.Build != nil {
		d.build = func(ctx context.Context, cfg route.Configurer) (any, error) {
			c, ok := cfg.(C)
			if !ok {
				return nil, fmt.Errorf("router %s: config %T is not %s", spec.Name, cfg, d.cfgType)
			}
			return spec.Build(ctx, c)
		}
	}
	if spec.PrepareForRoute != nil {
		d.prepareForRoute = func(ctx context.Context, destination any, cfg route.Configurer) error {
			dest, ok := destination.(D)
			if !ok {
				return fmt.Errorf("router %s: %w: %T", spec.Name, ErrDestinationType, destination)
			}
			c, ok := cfg.(C)
			if !ok {
				return fmt.Errorf("router %s: config %T is not %s", spec.Name, cfg, d.cfgType)
			}
			return spec.PrepareForRoute(ctx, dest, c)
		}
	}
	if spec.Transition != nil {
		d.transition = eraseTransition(spec.Name, spec.Transition)
	}
	if spec.PrepareForRemove != nil {
		d.prepareForRemove = func(ctx context.Context, destination any, cfg *route.RemoveConfig) error {
			dest, ok := destination.(D)
			if !ok {
				return fmt.Errorf("router %s: %w: %T", spec.Name, ErrDestinationType, destination)
			}
			return spec.PrepareForRemove(ctx, dest, cfg)
		}
	}
	if spec.RemoveTransition != nil {
		d.removeTransition = eraseTransition(spec.Name, spec.RemoveTransition)
	}

	return d, nil
}

// MustDescriptor is NewDescriptor but panics on error.
func MustDescriptor[D any, C route.Configurer](spec Spec[D, C]) *Descriptor {
	d, err := NewDescriptor(spec)
	if err != nil {
		panic(err)
	}
	return d
}

func eraseTransition[D any](name string, fn TransitionFunc[D]) func(context.Context, any, route.Path, Completion) {
	return func(ctx context.Context, destination any, path route.Path, done Completion) {
		dest, ok := destination.(D)
		if !ok {
			done(false, fmt.Errorf("router %s: %w: %T", name, ErrDestinationType, destination))
			return
		}
		fn(ctx, dest, path, done)
	}
}

// FactoryName returns the router name.
func (d *Descriptor) FactoryName() string {
	return d.name
}

// Name returns the router name.
func (d *Descriptor) Name() string {
	return d.name
}

// Supports reports whether the router declares kind. It has no side effects.
func (d *Descriptor) Supports(kind route.Kind) bool {
	if !kind.Valid() {
		return false
	}
	if d.kinds == nil {
		return true
	}
	_, ok := d.kinds[kind]
	return ok
}

// CanBuild reports whether the router constructs its own destinations.
func (d *Descriptor) CanBuild() bool {
	return d.build != nil
}

// DestinationType returns the concrete destination type.
func (d *Descriptor) DestinationType() reflect.Type {
	return d.destType
}

// ConfigType returns the configuration type.
func (d *Descriptor) ConfigType() reflect.Type {
	return d.cfgType
}

// provides reports whether destinations built by d can satisfy t. Routers
// declared over an interface type are checked per destination instead.
func (d *Descriptor) provides(t reflect.Type) bool {
	return d.destType.Kind() == reflect.Interface || d.destType.AssignableTo(t)
}

// accepts reports whether configurations created by d can satisfy t.
func (d *Descriptor) accepts(t reflect.Type) bool {
	return d.cfgType.Kind() == reflect.Interface || d.cfgType.AssignableTo(t)
}
