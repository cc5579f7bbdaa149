package cli

import (
	"context"
	"fmt"

	"github.com/rshade/routekit/internal/bootstrap"
	"github.com/rshade/routekit/internal/config"
	"github.com/rshade/routekit/internal/demo"
	"github.com/rshade/routekit/internal/registry"
)

// buildRegistry applies the manifest selected by manifestPath, the config,
// or the built-in demo manifest, in that order, against the demo catalog.
func buildRegistry(
	ctx context.Context,
	cfg *config.Config,
	manifestPath string,
) (*registry.Registry, *bootstrap.Report, error) {
	effective := *cfg
	if manifestPath != "" {
		effective.Manifest = manifestPath
	}
	cat := demo.Catalog()

	if effective.Manifest != "" {
		reg, report, err := bootstrap.FromConfig(ctx, &effective, cat)
		if err != nil {
			return nil, report, fmt.Errorf("loading manifest: %w", err)
		}
		return reg, report, nil
	}

	m, err := demo.Manifest()
	if err != nil {
		return nil, nil, fmt.Errorf("loading built-in manifest: %w", err)
	}
	reg := registry.New(registry.WithLogger(logger))
	report, err := bootstrap.Apply(ctx, reg, cat, m, bootstrap.Options{
		Strict: effective.Registry.Strict,
		Seal:   effective.Registry.Seal,
	})
	if err != nil {
		return nil, report, fmt.Errorf("applying built-in manifest: %w", err)
	}
	return reg, report, nil
}

// manifestSource describes where buildRegistry took the manifest from.
func manifestSource(cfg *config.Config, manifestPath string) string {
	switch {
	case manifestPath != "":
		return manifestPath
	case cfg.Manifest != "":
		return cfg.Manifest
	default:
		return "built-in demo manifest"
	}
}
