package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/routekit/internal/route"
)

type fakeFactory struct{ name string }

func (f *fakeFactory) FactoryName() string { return f.name }

// Capability markers used only as registry keys.
type (
	loginService   interface{ Login() }
	legacyLogin    interface{ LegacyLogin() }
	oldestLogin    interface{ OldestLogin() }
	editorService  interface{ Edit() }
	loginModule    struct{}
	settingsScreen struct{}
)

func TestCapability_StringAndParse(t *testing.T) {
	caps := []Capability{
		Protocol[loginService](),
		Class[*settingsScreen](),
		Module[loginModule](),
	}
	for _, c := range caps {
		t.Run(c.String(), func(t *testing.T) {
			parsed, err := ParseCapability(c.String())
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
		})
	}

	assert.Equal(t,
		"class:*github.com/rshade/routekit/internal/registry.settingsScreen",
		Class[*settingsScreen]().String())
	assert.Equal(t, Class[*settingsScreen](), ClassOf(&settingsScreen{}))
	assert.True(t, ClassOf(nil).IsZero())
	assert.NotEqual(t, Protocol[loginService](), Protocol[legacyLogin]())
}

func TestParseCapability_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing name", "protocol:"},
		{"missing separator", "protocol"},
		{"unknown kind", "service:Login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCapability(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestRegister_Exclusive(t *testing.T) {
	reg := New()
	key := Protocol[loginService]()
	first := &fakeFactory{name: "login"}
	second := &fakeFactory{name: "login-v2"}

	require.NoError(t, reg.Register(key, first, Exclusive))
	// Same factory again is a no-op.
	require.NoError(t, reg.Register(key, first, Exclusive))

	err := reg.Register(key, second, Exclusive)
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrDuplicateExclusiveRegistration)

	err = reg.Register(key, second, Shared)
	assert.ErrorIs(t, err, route.ErrDuplicateExclusiveRegistration)

	got, err := reg.Resolve(key)
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Len(t, reg.Entries(), 1)
}

func TestRegister_SharedThenExclusive(t *testing.T) {
	reg := New()
	key := Protocol[editorService]()

	require.NoError(t, reg.Register(key, &fakeFactory{name: "a"}, Shared))
	err := reg.Register(key, &fakeFactory{name: "b"}, Exclusive)
	assert.ErrorIs(t, err, route.ErrDuplicateExclusiveRegistration)
}

func TestRegister_SameFactoryDifferentExclusivity(t *testing.T) {
	reg := New()
	key := Protocol[editorService]()
	f := &fakeFactory{name: "a"}

	require.NoError(t, reg.Register(key, f, Shared))
	err := reg.Register(key, f, Exclusive)
	assert.ErrorIs(t, err, route.ErrDuplicateExclusiveRegistration)
}

func TestRegister_InvalidInput(t *testing.T) {
	reg := New()

	err := reg.Register(Capability{}, &fakeFactory{name: "x"}, Exclusive)
	assert.ErrorIs(t, err, route.ErrInvalidConfiguration)

	err = reg.Register(Protocol[loginService](), nil, Exclusive)
	assert.ErrorIs(t, err, route.ErrInvalidConfiguration)
}

func TestMustRegister_Panics(t *testing.T) {
	reg := New()
	key := Protocol[loginService]()
	reg.MustRegister(key, &fakeFactory{name: "a"}, Exclusive)

	assert.Panics(t, func() {
		reg.MustRegister(key, &fakeFactory{name: "b"}, Exclusive)
	})
}

func TestResolveAll_SharedPriorityOrder(t *testing.T) {
	reg := New()
	key := Protocol[editorService]()

	low := &fakeFactory{name: "low"}
	highA := &fakeFactory{name: "high-a"}
	highB := &fakeFactory{name: "high-b"}

	require.NoError(t, reg.Register(key, low, Shared, WithPriority(1)))
	require.NoError(t, reg.Register(key, highA, Shared, WithPriority(10)))
	require.NoError(t, reg.Register(key, highB, Shared, WithPriority(10)))

	entries, err := reg.ResolveAll(key)
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Factory.FactoryName()
	}
	if diff := cmp.Diff([]string{"high-a", "high-b", "low"}, names); diff != "" {
		t.Errorf("ResolveAll order mismatch (-want +got):\n%s", diff)
	}

	def, err := reg.Resolve(key)
	require.NoError(t, err)
	assert.Same(t, highA, def)
	assert.True(t, reg.Provides(key, low))
	assert.False(t, reg.Provides(key, &fakeFactory{name: "low"}))
}

func TestResolve_NotFound(t *testing.T) {
	reg := New()

	got, err := reg.Resolve(Protocol[loginService]())
	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrNotFound)

	re, ok := route.AsError(err)
	require.True(t, ok)
	assert.Equal(t, route.ActionResolve, re.Action)
}

func TestResolve_AdapterChain(t *testing.T) {
	reg := New()
	target := &fakeFactory{name: "login"}

	a := Protocol[oldestLogin]()
	b := Protocol[legacyLogin]()
	c := Module[loginModule]()
	x := Protocol[loginService]()

	require.NoError(t, reg.RegisterAdapter(a, b))
	require.NoError(t, reg.RegisterAdapter(b, c))
	require.NoError(t, reg.RegisterAdapter(c, x))

	// Registered after the adapters; resolution is evaluated lazily.
	require.NoError(t, reg.Register(x, target, Exclusive))

	for i := 0; i < 3; i++ {
		got, err := reg.Resolve(a)
		require.NoError(t, err)
		assert.Same(t, target, got)
	}

	hops, err := reg.Trace(a)
	require.NoError(t, err)
	if diff := cmp.Diff([]Capability{a, b, c, x}, hops); diff != "" {
		t.Errorf("Trace mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_AdapterCycle(t *testing.T) {
	reg := New()
	a := Protocol[legacyLogin]()
	b := Protocol[oldestLogin]()

	require.NoError(t, reg.RegisterAdapter(a, b))
	require.NoError(t, reg.RegisterAdapter(b, a))

	_, err := reg.Resolve(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrAdapterCycleDetected)
	assert.Contains(t, err.Error(), "->")

	re, ok := route.AsError(err)
	require.True(t, ok)
	assert.Equal(t, route.ActionResolve, re.Action)
}

func TestResolve_AdapterDeadEnd(t *testing.T) {
	reg := New()
	a := Protocol[legacyLogin]()
	b := Protocol[oldestLogin]()
	require.NoError(t, reg.RegisterAdapter(a, b))

	_, err := reg.Resolve(a)
	assert.ErrorIs(t, err, route.ErrNotFound)
	assert.Contains(t, err.Error(), "adapter chain")
}

func TestRegisterAdapter_Conflicts(t *testing.T) {
	reg := New()
	direct := Protocol[loginService]()
	a := Protocol[legacyLogin]()
	b := Protocol[oldestLogin]()

	require.NoError(t, reg.Register(direct, &fakeFactory{name: "login"}, Exclusive))

	tests := []struct {
		name     string
		from, to Capability
	}{
		{"self adapter", a, a},
		{"direct registration", direct, a},
		{"zero adaptee", a, Capability{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.RegisterAdapter(tt.from, tt.to)
			assert.ErrorIs(t, err, route.ErrInvalidConfiguration)
		})
	}

	require.NoError(t, reg.RegisterAdapter(a, direct))
	require.NoError(t, reg.RegisterAdapter(a, direct))
	assert.ErrorIs(t, reg.RegisterAdapter(a, b), route.ErrInvalidConfiguration)

	err := reg.Register(a, &fakeFactory{name: "legacy"}, Exclusive)
	assert.ErrorIs(t, err, route.ErrInvalidConfiguration)

	assert.Equal(t, map[Capability]Capability{a: direct}, reg.Adapters())
}

func TestSeal(t *testing.T) {
	reg := New()
	key := Protocol[loginService]()
	f := &fakeFactory{name: "login"}
	require.NoError(t, reg.Register(key, f, Exclusive))

	reg.Seal()
	reg.Seal()
	assert.True(t, reg.Sealed())

	err := reg.Register(Protocol[editorService](), f, Shared)
	assert.ErrorIs(t, err, route.ErrInvalidState)
	err = reg.RegisterAdapter(Protocol[legacyLogin](), key)
	assert.ErrorIs(t, err, route.ErrInvalidState)

	got, err := reg.Resolve(key)
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = reg.Resolve(Protocol[editorService]())
	assert.ErrorIs(t, err, route.ErrNotFound)
}

func TestResolve_ConcurrentAfterSeal(t *testing.T) {
	reg := New()
	target := &fakeFactory{name: "login"}
	require.NoError(t, reg.RegisterAdapter(Protocol[legacyLogin](), Protocol[loginService]()))
	require.NoError(t, reg.Register(Protocol[loginService](), target, Exclusive))
	reg.Seal()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := reg.Resolve(Protocol[legacyLogin]())
			if err == nil && got != target {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestConcurrentRegisterAndResolve(t *testing.T) {
	reg := New()
	key := Protocol[editorService]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = reg.Register(key, &fakeFactory{name: "editor"}, Shared, WithPriority(i))
		}(i)
		go func() {
			defer wg.Done()
			entries, err := reg.ResolveAll(key)
			if err == nil {
				assert.NotEmpty(t, entries)
			}
		}()
	}
	wg.Wait()

	entries, err := reg.ResolveAll(key)
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func TestRegisterAll(t *testing.T) {
	reg := New()
	login := &fakeFactory{name: "login"}
	taken := &fakeFactory{name: "editor"}
	require.NoError(t, reg.Register(Protocol[editorService](), taken, Exclusive))

	t.Run("rejected capability binds nothing", func(t *testing.T) {
		err := reg.RegisterAll([]Capability{Protocol[loginService](), Protocol[editorService]()}, login, Exclusive)
		require.ErrorIs(t, err, route.ErrDuplicateExclusiveRegistration)

		_, err = reg.Resolve(Protocol[loginService]())
		require.ErrorIs(t, err, route.ErrNotFound)
		got, err := reg.Resolve(Protocol[editorService]())
		require.NoError(t, err)
		assert.Same(t, taken, got)
	})

	t.Run("repeated capability binds once", func(t *testing.T) {
		caps := []Capability{Protocol[loginService](), Class[*settingsScreen](), Protocol[loginService]()}
		require.NoError(t, reg.RegisterAll(caps, login, Exclusive))

		entries, err := reg.ResolveAll(Protocol[loginService]())
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.True(t, reg.Provides(Class[*settingsScreen](), login))
	})

	t.Run("nil factory", func(t *testing.T) {
		err := reg.RegisterAll([]Capability{Protocol[oldestLogin]()}, nil, Exclusive)
		assert.ErrorIs(t, err, route.ErrInvalidConfiguration)
	})
}

func TestSeal_ConcurrentRegistration(t *testing.T) {
	const workers = 32

	for round := 0; round < 20; round++ {
		reg := New()
		start := make(chan struct{})
		results := make([]error, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				c := Named(KindProtocol, fmt.Sprintf("example.com/app.Screen%d", i))
				if i%2 == 0 {
					results[i] = reg.Register(c, &fakeFactory{name: c.Name}, Exclusive)
					return
				}
				results[i] = reg.RegisterAdapter(c, Protocol[loginService]())
			}(i)
		}

		close(start)
		reg.Seal()
		entries, adapters := len(reg.Entries()), len(reg.Adapters())
		wg.Wait()

		assert.Equal(t, entries, len(reg.Entries()), "no binding may land after Seal returns")
		assert.Equal(t, adapters, len(reg.Adapters()), "no adapter may land after Seal returns")

		accepted := 0
		for _, err := range results {
			if err == nil {
				accepted++
				continue
			}
			assert.ErrorIs(t, err, route.ErrInvalidState)
		}
		assert.Equal(t, entries+adapters, accepted)
	}
}

func TestEntries_Snapshot(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(Protocol[loginService](), &fakeFactory{name: "login"}, Exclusive))
	require.NoError(t, reg.Register(Class[*settingsScreen](), &fakeFactory{name: "settings"}, Exclusive))

	entries := reg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, KindClass, entries[0].Capability.Kind)
	assert.Equal(t, KindProtocol, entries[1].Capability.Kind)

	entries[0].Priority = 99
	assert.Zero(t, reg.Entries()[0].Priority)
}
