// Package demo holds a small set of screens and routers used by the routekit
// CLI to exercise a registry end to end.
package demo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/rshade/routekit/internal/bootstrap"
	"github.com/rshade/routekit/internal/config"
	"github.com/rshade/routekit/internal/route"
	"github.com/rshade/routekit/internal/router"
)

//go:embed manifest.yaml
var manifestYAML []byte

// Screen is anything the demo stack can show.
type Screen interface {
	Title() string
}

// LoginView is the protocol call sites route to for sign-in.
type LoginView interface {
	Screen
	Username() string
}

// SignInView is a legacy protocol adapted onto LoginView by the manifest.
type SignInView interface {
	LoginView
}

// Notice is a shared protocol; several routers may provide notices.
type Notice interface {
	Screen
	Text() string
}

// Home is the root screen routes start from.
type Home struct{}

// Title implements Screen.
func (*Home) Title() string { return "Home" }

// LoginScreen is the sign-in destination.
type LoginScreen struct {
	user     string
	remember bool
}

// Title implements Screen.
func (s *LoginScreen) Title() string { return "Sign in" }

// Username returns the prefilled user name.
func (s *LoginScreen) Username() string { return s.user }

// Remember reports whether the screen keeps the user signed in.
func (s *LoginScreen) Remember() bool { return s.remember }

// LoginConfig configures the login router.
type LoginConfig struct {
	route.PerformConfig
	Username string
	Remember bool
}

// SettingsScreen shows one settings section.
type SettingsScreen struct {
	section string
}

// Title implements Screen.
func (s *SettingsScreen) Title() string {
	if s.section == "" {
		return "Settings"
	}
	return "Settings: " + s.section
}

// SettingsConfig configures the settings router.
type SettingsConfig struct {
	route.PerformConfig
	Section string
}

// Toast is a transient notice.
type Toast struct {
	text  string
	promo bool
}

// Title implements Screen.
func (t *Toast) Title() string {
	if t.promo {
		return "Promotion"
	}
	return "Notice"
}

// Text implements Notice.
func (t *Toast) Text() string { return t.text }

// ToastConfig configures the toast routers.
type ToastConfig struct {
	route.PerformConfig
	Text string
}

// ErrEmptyNotice is returned when a notice has no text.
var ErrEmptyNotice = errors.New("notice text is empty")

// Login returns the login router. defaultUser prefills the username.
func Login(defaultUser string) *router.Descriptor {
	return router.MustDescriptor(router.Spec[*LoginScreen, *LoginConfig]{
		Name: "login",
		NewConfig: func() *LoginConfig {
			return &LoginConfig{Username: defaultUser}
		},
		Build: func(_ context.Context, cfg *LoginConfig) (*LoginScreen, error) {
			return &LoginScreen{user: cfg.Username, remember: cfg.Remember}, nil
		},
	})
}

// Settings returns the settings router. Settings screens cannot be
// presented modally.
func Settings() *router.Descriptor {
	return router.MustDescriptor(router.Spec[*SettingsScreen, *SettingsConfig]{
		Name: "settings",
		Kinds: []route.Kind{
			route.KindPush, route.KindAddChild, route.KindMakeDestination, route.KindCustom,
		},
		NewConfig: func() *SettingsConfig { return &SettingsConfig{} },
		Build: func(_ context.Context, cfg *SettingsConfig) (*SettingsScreen, error) {
			return &SettingsScreen{section: cfg.Section}, nil
		},
	})
}

// Toasts returns a notice router. Promo toasts are tagged for display.
func Toasts(name string, promo bool) *router.Descriptor {
	return router.MustDescriptor(router.Spec[*Toast, *ToastConfig]{
		Name:      name,
		NewConfig: func() *ToastConfig { return &ToastConfig{} },
		Build: func(_ context.Context, cfg *ToastConfig) (*Toast, error) {
			if cfg.Text == "" {
				return nil, ErrEmptyNotice
			}
			return &Toast{text: cfg.Text, promo: promo}, nil
		},
		PrepareForRoute: func(_ context.Context, t *Toast, _ *ToastConfig) error {
			if len(t.text) > 140 {
				return fmt.Errorf("notice text is %d characters, limit is 140", len(t.text))
			}
			return nil
		},
	})
}

// Catalog returns the catalog of every demo router version.
func Catalog() *bootstrap.Catalog {
	cat := bootstrap.NewCatalog()
	cat.MustAdd("login", "1.0.0", Login(""))
	cat.MustAdd("login", "1.1.0", Login("guest"))
	cat.MustAdd("settings", "2.3.1", Settings())
	cat.MustAdd("toast", "1.2.0", Toasts("toast", false))
	cat.MustAdd("toast-promo", "0.9.0-beta.2", Toasts("toast-promo", true))
	return cat
}

// Manifest returns the built-in manifest binding the demo catalog.
func Manifest() (*config.Manifest, error) {
	return config.ParseManifest(manifestYAML)
}
