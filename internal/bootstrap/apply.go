package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rshade/routekit/internal/config"
	"github.com/rshade/routekit/internal/logging"
	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/router"
)

// Options controls Apply.
type Options struct {
	// Strict fails on routers the catalog cannot supply. Otherwise those
	// bindings are skipped and reported as warnings.
	Strict bool

	// Seal closes the registry after a successful apply.
	Seal bool
}

// Binding is one route registered by Apply.
type Binding struct {
	Capability registry.Capability
	Router     string
	Version    string
	Exclusive  bool
	Priority   int
}

// Report describes what Apply registered.
type Report struct {
	Bindings []Binding
	Adapters []config.AdapterBinding
	Warnings []string
	Sealed   bool
}

// Apply registers every route and adapter of m into reg, taking routers
// from cat. The manifest is validated first. Registration errors are
// returned with the offending binding; bindings applied before the error
// remain registered.
func Apply(ctx context.Context, reg *registry.Registry, cat *Catalog, m *config.Manifest, opts Options) (*Report, error) {
	if reg == nil || cat == nil {
		return nil, errors.New("bootstrap: registry and catalog are required")
	}
	log := logging.FromContext(ctx).With().Str("component", "bootstrap").Logger()
	report := &Report{}

	if m == nil {
		m = &config.Manifest{}
	}
	if err := m.Validate(); err != nil {
		return report, fmt.Errorf("bootstrap: %w", err)
	}

	for i, binding := range m.Routes {
		// Validate has already parsed every capability.
		c, _ := registry.ParseCapability(binding.Capability)

		entry, err := cat.Lookup(binding.Router, binding.Version)
		if err != nil {
			if opts.Strict {
				return report, fmt.Errorf("bootstrap: route at index %d: %w", i, err)
			}
			warning := fmt.Sprintf("route %s -> %s skipped: %v", c, binding.Router, err)
			report.Warnings = append(report.Warnings, warning)
			log.Warn().Str("operation", "apply").Str("capability", c.String()).Err(err).Msg("route skipped")
			continue
		}

		if binding.IsExclusive() {
			err = router.Register(reg, entry.Descriptor, c)
		} else {
			err = router.RegisterShared(reg, entry.Descriptor, binding.Priority, c)
		}
		if err != nil {
			return report, fmt.Errorf("bootstrap: route %s -> %s@%s: %w", c, binding.Router, entry.Version, err)
		}

		report.Bindings = append(report.Bindings, Binding{
			Capability: c,
			Router:     entry.Name,
			Version:    entry.Version.String(),
			Exclusive:  binding.IsExclusive(),
			Priority:   binding.Priority,
		})
		logBinding(&log, c, entry, binding)
	}

	for _, adapter := range m.Adapters {
		from, _ := registry.ParseCapability(adapter.From)
		to, _ := registry.ParseCapability(adapter.To)
		if err := reg.RegisterAdapter(from, to); err != nil {
			return report, fmt.Errorf("bootstrap: adapter %s -> %s: %w", from, to, err)
		}
		report.Adapters = append(report.Adapters, adapter)
	}

	if opts.Seal {
		reg.Seal()
		report.Sealed = true
	}

	log.Info().
		Str("operation", "apply").
		Int("routes", len(report.Bindings)).
		Int("adapters", len(report.Adapters)).
		Int("warnings", len(report.Warnings)).
		Bool("sealed", report.Sealed).
		Msg("manifest applied")

	return report, nil
}

func logBinding(log *zerolog.Logger, c registry.Capability, entry CatalogEntry, binding config.RouteBinding) {
	log.Debug().
		Str("operation", "apply").
		Str("capability", c.String()).
		Str("router", entry.Name).
		Str("version", entry.Version.String()).
		Bool("exclusive", binding.IsExclusive()).
		Int("priority", binding.Priority).
		Msg("route bound")
}

// FromConfig builds a registry for cfg. When cfg names a manifest it is
// loaded and applied using the registry settings of cfg.
func FromConfig(ctx context.Context, cfg *config.Config, cat *Catalog) (*registry.Registry, *Report, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	reg := registry.New(registry.WithLogger(*logging.FromContext(ctx)))

	manifest := &config.Manifest{}
	if cfg.Manifest != "" {
		loaded, err := config.LoadManifest(cfg.Manifest)
		if err != nil {
			return nil, nil, err
		}
		manifest = loaded
	}

	report, err := Apply(ctx, reg, cat, manifest, Options{
		Strict: cfg.Registry.Strict,
		Seal:   cfg.Registry.Seal,
	})
	if err != nil {
		return nil, report, err
	}
	return reg, report, nil
}
