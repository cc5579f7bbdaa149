package registry

import (
	"fmt"
	"reflect"
	"strings"
)

// CapabilityKind distinguishes what a capability tag names.
type CapabilityKind int

const (
	// KindProtocol names an interface the destination satisfies.
	KindProtocol CapabilityKind = iota + 1

	// KindClass names the concrete destination type.
	KindClass

	// KindModule names a configuration type the router accepts.
	KindModule
)

// String returns the prefix used in the textual form of a capability.
func (k CapabilityKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindClass:
		return "class"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// Capability is an interned, comparable registry key.
// Two capabilities are equal when kind and name are equal.
type Capability struct {
	Kind CapabilityKind
	Name string
}

// Protocol returns the protocol capability for T. T is usually an interface
// type the destination implements.
func Protocol[T any]() Capability {
	return Capability{Kind: KindProtocol, Name: typeName(reflect.TypeFor[T]())}
}

// Class returns the class capability for the concrete type T.
func Class[T any]() Capability {
	return Capability{Kind: KindClass, Name: typeName(reflect.TypeFor[T]())}
}

// Module returns the module capability for the configuration type C.
func Module[C any]() Capability {
	return Capability{Kind: KindModule, Name: typeName(reflect.TypeFor[C]())}
}

// ClassOf returns the class capability for the dynamic type of v.
// It returns the zero Capability when v is nil.
func ClassOf(v any) Capability {
	if v == nil {
		return Capability{}
	}
	return Capability{Kind: KindClass, Name: typeName(reflect.TypeOf(v))}
}

// Named builds a capability from a kind and a raw name. It is used for
// capabilities declared in configuration.
func Named(kind CapabilityKind, name string) Capability {
	return Capability{Kind: kind, Name: name}
}

// ParseCapability parses the "kind:name" form produced by String.
func ParseCapability(s string) (Capability, error) {
	prefix, name, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" {
		return Capability{}, fmt.Errorf("capability %q: expected <kind>:<name>", s)
	}

	var kind CapabilityKind
	switch strings.ToLower(prefix) {
	case "protocol":
		kind = KindProtocol
	case "class":
		kind = KindClass
	case "module":
		kind = KindModule
	default:
		return Capability{}, fmt.Errorf("capability %q: unknown kind %q (must be protocol, class or module)", s, prefix)
	}
	return Capability{Kind: kind, Name: name}, nil
}

// IsZero reports whether c is the zero Capability.
func (c Capability) IsZero() bool {
	return c.Kind == 0 && c.Name == ""
}

// String returns "kind:name".
func (c Capability) String() string {
	return c.Kind.String() + ":" + c.Name
}

// typeName returns a package-qualified name so same-named types from
// different packages never collide.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		return "*" + typeName(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
