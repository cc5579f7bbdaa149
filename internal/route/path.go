package route

import (
	"maps"
)

// ParamSegueIdentifier is the param key carrying the segue identifier for
// KindPerformSegue paths.
const ParamSegueIdentifier = "segue_identifier"

// Path describes the intent of a routing operation: what kind of transition,
// from which source, with which extra parameters.
//
// A Path is immutable once built. Use NewPath or one of the kind helpers.
type Path struct {
	kind   Kind
	source any
	params map[string]any
}

// PathOption sets optional Path fields at construction time.
type PathOption func(*Path)

// WithParam attaches an extra parameter to the path.
func WithParam(key string, value any) PathOption {
	return func(p *Path) {
		if p.params == nil {
			p.params = make(map[string]any)
		}
		p.params[key] = value
	}
}

// WithParams attaches all entries of params to the path. The map is copied.
func WithParams(params map[string]any) PathOption {
	return func(p *Path) {
		if len(params) == 0 {
			return
		}
		if p.params == nil {
			p.params = make(map[string]any, len(params))
		}
		maps.Copy(p.params, params)
	}
}

// NewPath builds a path. It does not validate; the facade calls Validate
// before doing any work.
func NewPath(kind Kind, source any, opts ...PathOption) Path {
	p := Path{kind: kind, source: source}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Push builds a push path from source.
func Push(source any, opts ...PathOption) Path {
	return NewPath(KindPush, source, opts...)
}

// Present builds a modal presentation path from source.
func Present(source any, opts ...PathOption) Path {
	return NewPath(KindPresent, source, opts...)
}

// AddChild builds a child-embedding path from source.
func AddChild(source any, opts ...PathOption) Path {
	return NewPath(KindAddChild, source, opts...)
}

// Segue builds a segue-like path from source with the given identifier.
func Segue(source any, identifier string, opts ...PathOption) Path {
	opts = append([]PathOption{WithParam(ParamSegueIdentifier, identifier)}, opts...)
	return NewPath(KindPerformSegue, source, opts...)
}

// Custom builds a custom path with no source.
func Custom(opts ...PathOption) Path {
	return NewPath(KindCustom, nil, opts...)
}

// MakeDestination builds a path that only produces a prepared destination.
func MakeDestination(opts ...PathOption) Path {
	return NewPath(KindMakeDestination, nil, opts...)
}

// Kind returns the route kind.
func (p Path) Kind() Kind {
	return p.kind
}

// Source returns the source reference, or nil.
func (p Path) Source() any {
	return p.source
}

// Param returns a single extra parameter.
func (p Path) Param(key string) (any, bool) {
	v, ok := p.params[key]
	return v, ok
}

// Params returns a copy of the extra parameters.
func (p Path) Params() map[string]any {
	if len(p.params) == 0 {
		return map[string]any{}
	}
	return maps.Clone(p.params)
}

// Validate checks the structural rules of the path.
func (p Path) Validate() error {
	if !p.kind.Valid() {
		return Errorf(ActionInit, CodeInvalidConfiguration, "unknown route kind %d", int(p.kind))
	}
	if p.kind.RequiresSource() && p.source == nil {
		return Errorf(ActionInit, CodeInvalidConfiguration, "route kind %s requires a source", p.kind)
	}
	if p.kind == KindPerformSegue {
		id, _ := p.params[ParamSegueIdentifier].(string)
		if id == "" {
			return Errorf(ActionInit, CodeInvalidConfiguration, "route kind %s requires a segue identifier", p.kind)
		}
	}
	return nil
}
