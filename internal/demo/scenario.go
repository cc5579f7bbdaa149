package demo

import (
	"context"
	"errors"
	"fmt"

	"github.com/rshade/routekit/internal/dispatch"
	"github.com/rshade/routekit/internal/host"
	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/route"
	"github.com/rshade/routekit/internal/router"
)

// Step is the outcome of one scenario action.
type Step struct {
	Name       string
	Capability registry.Capability
	Kind       route.Kind
	State      router.State
	OK         bool
	Err        error
	Depth      int
}

// Scenario drives a fixed sequence of perform and remove calls against an
// engine whose transitioner is Stack.
type Scenario struct {
	Engine *router.Engine
	Stack  *host.Stack

	// Loop, when set, is the interaction loop every call is issued on.
	// It must be running.
	Loop *dispatch.Loop
}

// Run executes the scenario and returns one Step per action. It stops early
// only when ctx ends.
func (s *Scenario) Run(ctx context.Context) ([]Step, error) {
	if s.Engine == nil || s.Stack == nil {
		return nil, errors.New("scenario needs an engine and a stack")
	}
	home := &Home{}
	var steps []Step
	record := func(step Step) error {
		steps = append(steps, step)
		return ctx.Err()
	}

	login, step := perform(ctx, s, "sign in",
		router.To[LoginView, *LoginConfig](s.Engine, registry.Protocol[LoginView]()),
		route.Push(home),
		func(cfg *LoginConfig, _ route.Hooks[LoginView]) {
			cfg.Username = "ada"
			cfg.Remember = true
		})
	if err := record(step); err != nil {
		return steps, err
	}

	settingsType := router.To[*SettingsScreen, *SettingsConfig](s.Engine, registry.Class[*SettingsScreen]())
	settings, step := perform(ctx, s, "open settings", settingsType, route.Push(home),
		func(cfg *SettingsConfig, _ route.Hooks[*SettingsScreen]) {
			cfg.Section = "privacy"
		})
	if err := record(step); err != nil {
		return steps, err
	}

	_, step = perform(ctx, s, "present settings", settingsType, route.Present(home), nil)
	if err := record(step); err != nil {
		return steps, err
	}

	notice, step := perform(ctx, s, "show notice",
		router.To[Notice, *ToastConfig](s.Engine, registry.Protocol[Notice]()),
		route.AddChild(home),
		func(cfg *ToastConfig, _ route.Hooks[Notice]) {
			cfg.Text = "Settings saved"
		})
	if err := record(step); err != nil {
		return steps, err
	}

	_, step = perform(ctx, s, "prepare legacy sign in",
		router.To[SignInView, *LoginConfig](s.Engine, registry.Protocol[SignInView]()),
		route.MakeDestination(), nil)
	if err := record(step); err != nil {
		return steps, err
	}

	_, step = perform(ctx, s, "route to unregistered screen",
		router.To[Screen, *route.PerformConfig](s.Engine, registry.Protocol[Screen]()),
		route.Push(home), nil)
	if err := record(step); err != nil {
		return steps, err
	}

	for _, rm := range []func() Step{
		func() Step { return remove(ctx, s, "close settings", settings) },
		func() Step { return remove(ctx, s, "dismiss notice", notice) },
		func() Step { return remove(ctx, s, "sign out", login) },
	} {
		if err := record(rm()); err != nil {
			return steps, err
		}
	}
	return steps, nil
}

func (s *Scenario) do(ctx context.Context, fn func()) error {
	if s.Loop == nil {
		fn()
		return nil
	}
	return s.Loop.Do(ctx, fn)
}

type outcome struct {
	ok  bool
	err error
}

func perform[D any, C route.Configurer](
	ctx context.Context,
	s *Scenario,
	name string,
	t router.Type[D, C],
	path route.Path,
	builder router.Builder[D, C],
) (*router.Router[D, C], Step) {
	step := Step{Name: name, Capability: t.Capability(), Kind: path.Kind()}
	done := make(chan outcome, 1)

	var (
		r   *router.Router[D, C]
		err error
	)
	runErr := s.do(ctx, func() {
		r, err = t.PerformPath(ctx, path, func(cfg C, hooks route.Hooks[D]) {
			if builder != nil {
				builder(cfg, hooks)
			}
			base := cfg.Base()
			prev := base.CompletionHandler
			base.CompletionHandler = func(ok bool, destination any, action route.Action, cause error) {
				if prev != nil {
					prev(ok, destination, action, cause)
				}
				done <- outcome{ok: ok, err: cause}
			}
		})
	})
	if runErr != nil {
		step.Err = runErr
		return nil, step
	}
	if err != nil {
		step.Err = err
		step.Depth = s.Stack.Len()
		return nil, step
	}

	step.OK, step.Err = wait(ctx, done)
	step.State = r.State()
	step.Depth = s.Stack.Len()
	return r, step
}

func remove[D any, C route.Configurer](ctx context.Context, s *Scenario, name string, r *router.Router[D, C]) Step {
	if r == nil {
		return Step{Name: name, Err: fmt.Errorf("%s: nothing to remove", name), Depth: s.Stack.Len()}
	}
	step := Step{Name: name, Capability: r.Capability(), Kind: r.Path().Kind()}
	done := make(chan outcome, 1)

	var err error
	runErr := s.do(ctx, func() {
		err = r.Remove(ctx, func(rc *route.RemoveConfig) {
			rc.CompletionHandler = func(ok bool, _ route.Action, cause error) {
				done <- outcome{ok: ok, err: cause}
			}
		})
	})
	switch {
	case runErr != nil:
		step.Err = runErr
	case err != nil:
		step.Err = err
	default:
		step.OK, step.Err = wait(ctx, done)
	}
	step.State = r.State()
	step.Depth = s.Stack.Len()
	return step
}

func wait(ctx context.Context, done <-chan outcome) (bool, error) {
	select {
	case res := <-done:
		return res.ok, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
