package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/routekit/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Registry.Strict)
	assert.True(t, cfg.Registry.Seal)
	assert.Equal(t, DispatchImmediate, cfg.Dispatch.Mode)
	assert.False(t, cfg.UsesLoop())
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routekit.yaml", `
logging:
  level: debug
  format: json
registry:
  strict: false
  seal: true
dispatch:
  mode: loop
  queue_hint: 32
manifest: routes.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Registry.Strict)
	assert.True(t, cfg.UsesLoop())
	assert.Equal(t, 32, cfg.Dispatch.QueueHint)
	assert.Equal(t, filepath.Join(dir, "routes.yaml"), cfg.Manifest)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routekit.toml", `
manifest = "/etc/routekit/routes.toml"

[logging]
level = "warn"

[dispatch]
mode = "immediate"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format, "unset keys keep defaults")
	assert.Equal(t, "/etc/routekit/routes.toml", cfg.Manifest)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown yaml key", "a.yaml", "logging:\n  colour: red\n", "colour"},
		{"unknown toml key", "b.toml", "[logging]\ncolour = \"red\"\n", "unknown key"},
		{"bad level", "c.yaml", "logging:\n  level: loud\n", "invalid level"},
		{"bad format", "d.yml", "logging:\n  format: xml\n", "invalid format"},
		{"bad mode", "e.yaml", "dispatch:\n  mode: threads\n", "invalid mode"},
		{"negative hint", "f.yaml", "dispatch:\n  queue_hint: -1\n", "non-negative"},
		{"unsupported", "g.json", "{}", "unsupported config format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "empty.yaml", "# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvManifest, "/tmp/routes.yaml")
	t.Setenv(EnvSeal, "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/routes.yaml", cfg.Manifest)
	assert.False(t, cfg.Registry.Seal)
}

func TestApplyEnv_InvalidSeal(t *testing.T) {
	t.Setenv(EnvSeal, "maybe")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSeal)
}

func TestLoadLayered(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", `
logging:
  level: debug
  format: json
registry:
  strict: true
  seal: true
manifest: base-routes.yaml
`)
	overlayDir := filepath.Join(dir, "local")
	require.NoError(t, os.Mkdir(overlayDir, 0o700))
	overlay := writeFile(t, overlayDir, "overlay.toml", `
manifest = "local-routes.yaml"

[logging]
level = "trace"
`)

	cfg, err := LoadLayered(base, overlay)
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.Format, "overlay sections replace the whole section")
	assert.True(t, cfg.Registry.Strict, "sections absent from the overlay are untouched")
	assert.Equal(t, filepath.Join(overlayDir, "local-routes.yaml"), cfg.Manifest)
}

func TestShallowMerge_TOMLOverlay(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "section replaces section",
			overlay: "[dispatch]\nmode = \"loop\"\nqueue_hint = 8\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DispatchLoop, cfg.Dispatch.Mode)
				assert.Equal(t, 8, cfg.Dispatch.QueueHint)
				assert.Equal(t, Default().Logging, cfg.Logging)
			},
		},
		{
			name:    "several sections",
			overlay: "[logging]\nlevel = \"warn\"\n\n[registry]\nstrict = false\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.False(t, cfg.Registry.Strict)
				assert.False(t, cfg.Registry.Seal, "registry section was replaced as a whole")
			},
		},
		{
			name:    "unknown key inside a section",
			overlay: "[logging]\ncolour = \"red\"\n",
			wantErr: "colour",
		},
		{
			name:    "unknown section",
			overlay: "[plugins]\nenabled = true\n",
			wantErr: "unknown config key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := ShallowMerge(cfg, writeFile(t, t.TempDir(), "overlay.toml", tt.overlay))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestShallowMerge_UnknownSection(t *testing.T) {
	cfg := Default()
	err := ShallowMerge(cfg, writeFile(t, t.TempDir(), "x.yaml", "plugins: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestShallowMerge_NilTarget(t *testing.T) {
	assert.Error(t, ShallowMerge(nil, "whatever.yaml"))
}

func TestToLoggingConfig(t *testing.T) {
	tests := []struct {
		name string
		in   LoggingConfig
		want logging.Config
	}{
		{
			name: "stderr by default",
			in:   LoggingConfig{Level: "info", Format: "console"},
			want: logging.Config{Level: "info", Format: "console", Output: logging.OutputStderr},
		},
		{
			name: "file output with caller at debug",
			in:   LoggingConfig{Level: "debug", Format: "json", File: "/var/log/routekit.log"},
			want: logging.Config{
				Level:  "debug",
				Format: "json",
				Output: logging.OutputFile,
				File:   "/var/log/routekit.log",
				Caller: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.ToLoggingConfig())
		})
	}
}
