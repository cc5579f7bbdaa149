package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestRouteBinding_IsExclusive(t *testing.T) {
	assert.True(t, RouteBinding{}.IsExclusive())
	assert.True(t, RouteBinding{Exclusive: boolPtr(true)}.IsExclusive())
	assert.False(t, RouteBinding{Exclusive: boolPtr(false)}.IsExclusive())
}

func TestManifest_Validate(t *testing.T) {
	const (
		login  = "protocol:example.com/app.LoginView"
		banner = "protocol:example.com/app.Banner"
	)

	tests := []struct {
		name     string
		manifest *Manifest
		wantErr  string
	}{
		{name: "nil manifest", manifest: nil},
		{name: "empty manifest", manifest: &Manifest{}},
		{
			name: "valid",
			manifest: &Manifest{
				Routes: []RouteBinding{
					{Capability: login, Router: "login", Version: "^1.2"},
					{Capability: banner, Router: "promo", Exclusive: boolPtr(false), Priority: 10},
					{Capability: banner, Router: "fallback", Exclusive: boolPtr(false)},
				},
				Adapters: []AdapterBinding{{From: "protocol:example.com/app.SignIn", To: login}},
			},
		},
		{
			name:     "missing router",
			manifest: &Manifest{Routes: []RouteBinding{{Capability: login}}},
			wantErr:  "route at index 0: router is required",
		},
		{
			name:     "bad capability",
			manifest: &Manifest{Routes: []RouteBinding{{Capability: "LoginView", Router: "login"}}},
			wantErr:  "expected <kind>:<name>",
		},
		{
			name:     "unknown capability kind",
			manifest: &Manifest{Routes: []RouteBinding{{Capability: "widget:X", Router: "login"}}},
			wantErr:  "unknown kind",
		},
		{
			name:     "negative priority",
			manifest: &Manifest{Routes: []RouteBinding{{Capability: login, Router: "login", Priority: -1}}},
			wantErr:  "priority must be non-negative",
		},
		{
			name:     "bad version constraint",
			manifest: &Manifest{Routes: []RouteBinding{{Capability: login, Router: "login", Version: "one"}}},
			wantErr:  "invalid version constraint",
		},
		{
			name: "duplicate exclusive",
			manifest: &Manifest{Routes: []RouteBinding{
				{Capability: login, Router: "login"},
				{Capability: login, Router: "login-v2"},
			}},
			wantErr: "already bound exclusively",
		},
		{
			name: "exclusive after shared",
			manifest: &Manifest{Routes: []RouteBinding{
				{Capability: banner, Router: "promo", Exclusive: boolPtr(false)},
				{Capability: banner, Router: "only"},
			}},
			wantErr: "already has shared bindings",
		},
		{
			name:     "self adapter",
			manifest: &Manifest{Adapters: []AdapterBinding{{From: login, To: login}}},
			wantErr:  "adapts to itself",
		},
		{
			name: "duplicate adapter",
			manifest: &Manifest{Adapters: []AdapterBinding{
				{From: banner, To: login},
				{From: banner, To: "class:*app.Screen"},
			}},
			wantErr: "already has an adapter",
		},
		{
			name:     "bad adapter target",
			manifest: &Manifest{Adapters: []AdapterBinding{{From: banner, To: ""}}},
			wantErr:  "adapter at index 0: to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "routes.yaml", `
routes:
  - capability: protocol:example.com/app.LoginView
    router: login
    version: ">= 1.0.0"
  - capability: module:*example.com/app.LoginConfig
    router: login
adapters:
  - from: protocol:example.com/app.SignIn
    to: protocol:example.com/app.LoginView
`)
	m, err := LoadManifest(yamlPath)
	require.NoError(t, err)
	require.Len(t, m.Routes, 2)
	assert.Equal(t, ">= 1.0.0", m.Routes[0].Version)
	assert.True(t, m.Routes[1].IsExclusive())
	require.Len(t, m.Adapters, 1)

	tomlPath := writeFile(t, dir, "routes.toml", `
[[routes]]
capability = "protocol:example.com/app.Banner"
router = "promo"
exclusive = false
priority = 5
`)
	m, err = LoadManifest(tomlPath)
	require.NoError(t, err)
	require.Len(t, m.Routes, 1)
	assert.False(t, m.Routes[0].IsExclusive())
	assert.Equal(t, 5, m.Routes[0].Priority)

	_, err = LoadManifest(writeFile(t, dir, "bad.yaml", "routes:\n  - router: login\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")
}
