// Package config loads routekit settings and route manifests from YAML or
// TOML files, with environment overrides applied on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Environment variables that override file settings.
const (
	EnvLogLevel  = "ROUTEKIT_LOG_LEVEL"
	EnvLogFormat = "ROUTEKIT_LOG_FORMAT"
	EnvManifest  = "ROUTEKIT_MANIFEST"
	EnvSeal      = "ROUTEKIT_SEAL"
)

// Dispatch modes.
const (
	DispatchImmediate = "immediate"
	DispatchLoop      = "loop"
)

// Config is the top-level routekit configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"  toml:"logging"`
	Registry RegistryConfig `yaml:"registry" toml:"registry"`
	Dispatch DispatchConfig `yaml:"dispatch" toml:"dispatch"`

	// Manifest is the path of the route manifest. Relative paths are
	// resolved against the directory of the config file.
	Manifest string `yaml:"manifest,omitempty" toml:"manifest,omitempty"`
}

// RegistryConfig controls how a manifest is applied to the registry.
type RegistryConfig struct {
	// Strict fails bootstrap when a manifest names a router the catalog does
	// not know. When false the binding is skipped with a warning.
	Strict bool `yaml:"strict" toml:"strict"`

	// Seal closes registration once the manifest has been applied.
	Seal bool `yaml:"seal" toml:"seal"`
}

// DispatchConfig selects how transition completions reach callbacks.
type DispatchConfig struct {
	// Mode is "immediate" (run on the completing goroutine) or "loop"
	// (marshal through a single interaction loop).
	Mode string `yaml:"mode" toml:"mode"`

	// QueueHint is the initial capacity of the loop queue.
	QueueHint int `yaml:"queue_hint,omitempty" toml:"queue_hint,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"          toml:"level"`
	Format string `yaml:"format"         toml:"format"`
	File   string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Registry: RegistryConfig{
			Strict: true,
			Seal:   true,
		},
		Dispatch: DispatchConfig{
			Mode: DispatchImmediate,
		},
	}
}

// Load reads the config file at path on top of Default, applies environment
// overrides and validates the result. An empty path yields the defaults with
// overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.resolveManifest(filepath.Dir(path))
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadLayered loads base and then shallow-merges each overlay on top of it.
// Sections present in an overlay replace the whole section from base.
func LoadLayered(base string, overlays ...string) (*Config, error) {
	cfg := Default()
	if base != "" {
		if err := decodeFile(base, cfg); err != nil {
			return nil, err
		}
		cfg.resolveManifest(filepath.Dir(base))
	}

	for _, overlay := range overlays {
		manifest := cfg.Manifest
		if err := ShallowMerge(cfg, overlay); err != nil {
			return nil, err
		}
		if cfg.Manifest != manifest {
			cfg.resolveManifest(filepath.Dir(overlay))
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) resolveManifest(dir string) {
	if c.Manifest != "" && !filepath.IsAbs(c.Manifest) {
		c.Manifest = filepath.Join(dir, c.Manifest)
	}
}

// ApplyEnv applies ROUTEKIT_* environment overrides.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvManifest); v != "" {
		c.Manifest = v
	}
	if v := os.Getenv(EnvSeal); v != "" {
		seal, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeal, err)
		}
		c.Registry.Seal = seal
	}
	return nil
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging: invalid level %q: %w", c.Logging.Level, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("logging: invalid format %q (must be console or json)", c.Logging.Format)
	}
	switch c.Dispatch.Mode {
	case "", DispatchImmediate, DispatchLoop:
	default:
		return fmt.Errorf("dispatch: invalid mode %q (must be %q or %q)",
			c.Dispatch.Mode, DispatchImmediate, DispatchLoop)
	}
	if c.Dispatch.QueueHint < 0 {
		return fmt.Errorf("dispatch: queue_hint must be non-negative, got %d", c.Dispatch.QueueHint)
	}
	return nil
}

// UsesLoop reports whether completions should be marshalled through a loop.
func (c *Config) UsesLoop() bool {
	return c.Dispatch.Mode == DispatchLoop
}
