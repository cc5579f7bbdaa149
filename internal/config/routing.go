package config

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/rshade/routekit/internal/registry"
)

// Manifest declares which routers provide which capabilities, and the
// adapters between capabilities.
//
// Example:
//
//	routes:
//	  - capability: protocol:example.com/app.LoginView
//	    router: login
//	    version: "^1.2"
//	  - capability: protocol:example.com/app.Banner
//	    router: promo-banner
//	    exclusive: false
//	    priority: 10
//	adapters:
//	  - from: protocol:example.com/app.SignInView
//	    to: protocol:example.com/app.LoginView
type Manifest struct {
	// Routes binds catalog routers to capabilities. Order matters for
	// tie-breaking shared bindings of equal priority.
	Routes []RouteBinding `yaml:"routes" toml:"routes" json:"routes"`

	// Adapters maps one capability onto another for fallback resolution.
	Adapters []AdapterBinding `yaml:"adapters,omitempty" toml:"adapters,omitempty" json:"adapters,omitempty"`
}

// RouteBinding registers a single router under a capability.
type RouteBinding struct {
	// Capability is the "kind:name" key, e.g. "protocol:example.com/app.LoginView".
	// Required.
	Capability string `yaml:"capability" toml:"capability" json:"capability"`

	// Router is the catalog name of the router. Required.
	Router string `yaml:"router" toml:"router" json:"router"`

	// Version is a semver constraint. Empty selects the latest version.
	Version string `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty"`

	// Exclusive claims the capability for this router alone.
	// Default is true if not specified.
	Exclusive *bool `yaml:"exclusive,omitempty" toml:"exclusive,omitempty" json:"exclusive,omitempty"`

	// Priority orders shared bindings. Higher values resolve first.
	Priority int `yaml:"priority,omitempty" toml:"priority,omitempty" json:"priority,omitempty"`
}

// IsExclusive returns whether the binding is exclusive.
// Returns true if Exclusive is nil (default behavior).
func (b RouteBinding) IsExclusive() bool {
	if b.Exclusive == nil {
		return true
	}
	return *b.Exclusive
}

// AdapterBinding declares an adapter from one capability to another.
type AdapterBinding struct {
	From string `yaml:"from" toml:"from" json:"from"`
	To   string `yaml:"to"   toml:"to"   json:"to"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if err := decodeFile(path, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// ParseManifest decodes and validates a YAML manifest held in memory.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := strictYAML(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate performs structural validation of the manifest. It checks
// capability syntax, router names, priorities and version constraints, and
// rejects conflicts the registry would refuse at registration time.
func (m *Manifest) Validate() error {
	if m == nil {
		return nil
	}

	bound := make(map[registry.Capability]int)
	exclusive := make(map[registry.Capability]bool)
	for i, route := range m.Routes {
		if route.Router == "" {
			return fmt.Errorf("route at index %d: router is required", i)
		}
		c, err := registry.ParseCapability(route.Capability)
		if err != nil {
			return fmt.Errorf("route %q: %w", route.Router, err)
		}
		if route.Priority < 0 {
			return fmt.Errorf("route %q: priority must be non-negative, got %d", route.Router, route.Priority)
		}
		if route.Version != "" {
			if _, err = semver.NewConstraint(route.Version); err != nil {
				return fmt.Errorf("route %q: invalid version constraint %q: %w", route.Router, route.Version, err)
			}
		}

		if exclusive[c] {
			return fmt.Errorf("route %q: capability %s is already bound exclusively", route.Router, c)
		}
		if route.IsExclusive() && bound[c] > 0 {
			return fmt.Errorf("route %q: capability %s already has shared bindings", route.Router, c)
		}
		bound[c]++
		if route.IsExclusive() {
			exclusive[c] = true
		}
	}

	from := make(map[registry.Capability]bool)
	for i, adapter := range m.Adapters {
		src, err := registry.ParseCapability(adapter.From)
		if err != nil {
			return fmt.Errorf("adapter at index %d: from: %w", i, err)
		}
		dst, err := registry.ParseCapability(adapter.To)
		if err != nil {
			return fmt.Errorf("adapter at index %d: to: %w", i, err)
		}
		if src == dst {
			return fmt.Errorf("adapter at index %d: %s adapts to itself", i, src)
		}
		if from[src] {
			return fmt.Errorf("adapter at index %d: %s already has an adapter", i, src)
		}
		from[src] = true
	}

	return nil
}
