package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Top-level config key names used for shallow merge.
const (
	keyLogging  = "logging"
	keyRegistry = "registry"
	keyDispatch = "dispatch"
	keyManifest = "manifest"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// decodeFile decodes the file at path into v, choosing the codec by
// extension. Unknown keys are rejected.
func decodeFile(path string, v any) error {
	return decode(path, v, true)
}

// decode is decodeFile with the unknown-key check optional. A generic map
// target takes every key, so BurntSushi reports nested table keys as
// undecoded; callers decoding into maps check keys themselves.
func decode(path string, v any, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err = dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing YAML from %s: %w", path, err)
		}
	case ".toml":
		md, decErr := toml.Decode(string(data), v)
		if decErr != nil {
			return fmt.Errorf("parsing TOML from %s: %w", path, decErr)
		}
		if undecoded := md.Undecoded(); strict && len(undecoded) > 0 {
			return fmt.Errorf("parsing TOML from %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return fmt.Errorf("%w: %s (%q)", ErrUnsupportedFormat, path, ext)
	}
	return nil
}

// ShallowMerge loads an overlay file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay are left unchanged.
func ShallowMerge(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMerge")
	}

	// Keys are checked per section by unmarshalSection.
	var overlay map[string]any
	if err := decode(overlayPath, &overlay, false); err != nil {
		return err
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		// Re-marshal the single section so we can unmarshal it onto the
		// strongly-typed target field.
		sectionBytes, err := yaml.Marshal(overlay[key])
		if err != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, err)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q from %s: %w", key, overlayPath, err)
		}
	}

	return nil
}

// unmarshalSection unmarshals raw YAML bytes into the correct field of target
// based on the given key name. Each section is unmarshalled into a fresh
// zero-value so the overlay replaces the section completely.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyLogging:
		var v LoggingConfig
		if err := strictYAML(data, &v); err != nil {
			return err
		}
		target.Logging = v
	case keyRegistry:
		var v RegistryConfig
		if err := strictYAML(data, &v); err != nil {
			return err
		}
		target.Registry = v
	case keyDispatch:
		var v DispatchConfig
		if err := strictYAML(data, &v); err != nil {
			return err
		}
		target.Dispatch = v
	case keyManifest:
		var v string
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Manifest = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func strictYAML(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
