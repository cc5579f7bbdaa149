package router

import (
	"reflect"

	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/route"
)

// Register binds desc exclusively to every capability in caps. When any
// capability is rejected none of them is bound.
func Register(reg *registry.Registry, desc *Descriptor, caps ...registry.Capability) error {
	return reg.RegisterAll(caps, desc, registry.Exclusive)
}

// RegisterShared binds desc as one of possibly many routers for each of caps,
// with the same all-or-nothing rule as Register.
func RegisterShared(reg *registry.Registry, desc *Descriptor, priority int, caps ...registry.Capability) error {
	return reg.RegisterAll(caps, desc, registry.Shared, registry.WithPriority(priority))
}

// RegisterProtocol binds desc exclusively to the protocol capability of P
// after checking that desc's destinations implement P.
func RegisterProtocol[P any](reg *registry.Registry, desc *Descriptor) error {
	want := reflect.TypeFor[P]()
	if !desc.provides(want) {
		return route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s destination %s does not conform to %s", desc.name, desc.destType, want)
	}
	return reg.Register(registry.Protocol[P](), desc, registry.Exclusive)
}

// RegisterClass binds desc exclusively to the class capability of T.
// PerformOnDestination and PrepareDestination accept destinations of class T
// only when it is registered this way.
func RegisterClass[T any](reg *registry.Registry, desc *Descriptor) error {
	want := reflect.TypeFor[T]()
	if !want.AssignableTo(desc.destType) {
		return route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"class %s is not a destination of router %s (%s)", want, desc.name, desc.destType)
	}
	return reg.Register(registry.Class[T](), desc, registry.Exclusive)
}

// RegisterModule binds desc exclusively to the module capability of M after
// checking that desc's configurations satisfy M.
func RegisterModule[M any](reg *registry.Registry, desc *Descriptor) error {
	want := reflect.TypeFor[M]()
	cfg := desc.newConfig()
	if cfg == nil || !reflect.TypeOf(cfg).AssignableTo(want) {
		return route.Errorf(route.ActionInit, route.CodeInvalidConfiguration,
			"router %s configuration %s does not conform to module %s", desc.name, desc.cfgType, want)
	}
	return reg.Register(registry.Module[M](), desc, registry.Exclusive)
}
