package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/rshade/routekit/internal/route"
)

// Registry maps capabilities to router factories.
//
// A Registry is built once during startup, then sealed. After Seal it is
// read-only and resolution results are memoized.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	// entries holds direct bindings, kept sorted by priority.
	entries map[Capability][]Entry

	// adapters maps an adapter capability to its adaptee.
	adapters map[Capability]Capability

	// mu protects entries, adapters and seq, and orders Seal against
	// registration.
	mu  sync.RWMutex
	seq uint64

	sealed *atomic.Bool

	// cache holds resolutions computed after Seal.
	cache   map[Capability]resolution
	cacheMu sync.RWMutex
	group   singleflight.Group

	logger zerolog.Logger
}

// resolution is the outcome of one adapter walk.
type resolution struct {
	hops    []Capability
	entries []Entry
	err     error
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "registry").Logger()
	}
}

// New creates an empty, unsealed Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[Capability][]Entry),
		adapters: make(map[Capability]Capability),
		cache:    make(map[Capability]resolution),
		sealed:   atomic.NewBool(false),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds factory to capability.
//
// Registering the same factory twice with the same exclusivity is a no-op.
// Binding a second factory to an exclusive capability, or mixing exclusive
// and shared bindings on one capability, fails with
// DuplicateExclusiveRegistration and leaves the registry unchanged.
func (r *Registry) Register(c Capability, factory Factory, exclusivity Exclusivity, opts ...RegisterOption) error {
	return r.RegisterAll([]Capability{c}, factory, exclusivity, opts...)
}

// RegisterAll binds factory to every capability in caps. Either every
// binding is made or, on the first failing capability, none is.
func (r *Registry) RegisterAll(caps []Capability, factory Factory, exclusivity Exclusivity, opts ...RegisterOption) error {
	if factory == nil {
		return route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration, "factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return route.Errorf(route.ActionResolve, route.CodeInvalidState,
			"registry is sealed, cannot register router %s", factory.FactoryName())
	}

	pending := make([]Capability, 0, len(caps))
	seen := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		add, err := r.checkLocked(c, factory, exclusivity)
		if err != nil {
			return err
		}
		if _, dup := seen[c]; add && !dup {
			seen[c] = struct{}{}
			pending = append(pending, c)
		}
	}

	for _, c := range pending {
		r.insertLocked(c, factory, exclusivity, opts)
	}
	return nil
}

// checkLocked reports whether binding factory to c would add an entry.
// It returns false with a nil error for an idempotent re-registration.
func (r *Registry) checkLocked(c Capability, factory Factory, exclusivity Exclusivity) (bool, error) {
	if c.IsZero() {
		return false, route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration, "capability is required")
	}
	if adaptee, ok := r.adapters[c]; ok {
		return false, route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration,
			"%s is already an adapter for %s", c, adaptee)
	}

	existing := r.entries[c]
	for _, e := range existing {
		if sameFactory(e.Factory, factory) {
			if e.Exclusivity == exclusivity {
				return false, nil
			}
			return false, route.Errorf(route.ActionResolve, route.CodeDuplicateExclusiveRegistration,
				"%s already registered with %s as %s", c, factory.FactoryName(), e.Exclusivity)
		}
	}
	if len(existing) > 0 && (exclusivity == Exclusive || existing[0].Exclusivity == Exclusive) {
		return false, route.Errorf(route.ActionResolve, route.CodeDuplicateExclusiveRegistration,
			"%s is already bound to router %s, cannot bind %s",
			c, existing[0].Factory.FactoryName(), factory.FactoryName())
	}
	return true, nil
}

func (r *Registry) insertLocked(c Capability, factory Factory, exclusivity Exclusivity, opts []RegisterOption) {
	r.seq++
	entry := Entry{
		Capability:  c,
		Factory:     factory,
		Exclusivity: exclusivity,
		Seq:         r.seq,
	}
	for _, opt := range opts {
		opt(&entry)
	}

	updated := append(append([]Entry(nil), r.entries[c]...), entry)
	sortEntries(updated)
	r.entries[c] = updated

	r.logger.Debug().
		Str("operation", "register").
		Str("capability", c.String()).
		Str("router", factory.FactoryName()).
		Str("exclusivity", exclusivity.String()).
		Int("priority", entry.Priority).
		Msg("router registered")
}

// MustRegister is Register but panics on error. Use it in startup code where
// a bad registration is a build defect.
func (r *Registry) MustRegister(c Capability, factory Factory, exclusivity Exclusivity, opts ...RegisterOption) {
	if err := r.Register(c, factory, exclusivity, opts...); err != nil {
		panic(err)
	}
}

// RegisterAdapter makes from resolve through to when from has no direct
// binding. Chains are allowed; cycles are reported at resolution time.
func (r *Registry) RegisterAdapter(from, to Capability) error {
	if from.IsZero() || to.IsZero() {
		return route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration, "adapter and adaptee are required")
	}
	if from == to {
		return route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration, "%s cannot adapt to itself", from)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return route.Errorf(route.ActionResolve, route.CodeInvalidState,
			"registry is sealed, cannot register adapter %s", from)
	}

	if existing := r.entries[from]; len(existing) > 0 {
		return route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration,
			"adapter %s is already registered with router %s", from, existing[0].Factory.FactoryName())
	}
	if adaptee, ok := r.adapters[from]; ok {
		if adaptee == to {
			return nil
		}
		return route.Errorf(route.ActionResolve, route.CodeInvalidConfiguration,
			"adapter %s already adapts to %s, cannot adapt to %s", from, adaptee, to)
	}
	r.adapters[from] = to

	r.logger.Debug().
		Str("operation", "register_adapter").
		Str("adapter", from.String()).
		Str("adaptee", to.String()).
		Msg("adapter registered")

	return nil
}

// Seal closes registration. Later Register and RegisterAdapter calls fail
// with InvalidState. Sealing twice is harmless.
func (r *Registry) Seal() {
	r.mu.Lock()
	if r.sealed.Swap(true) {
		r.mu.Unlock()
		return
	}
	count := len(r.entries)
	adapters := len(r.adapters)
	r.mu.Unlock()

	r.logger.Debug().
		Str("operation", "seal").
		Int("capabilities", count).
		Int("adapters", adapters).
		Msg("registry sealed")
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Resolve returns the default factory for c: the single exclusive factory,
// or the highest-priority shared factory. Adapter chains are followed when
// c has no direct binding.
func (r *Registry) Resolve(c Capability) (Factory, error) {
	res := r.resolve(c)
	if res.err != nil {
		return nil, res.err
	}
	return res.entries[0].Factory, nil
}

// ResolveAll returns every entry bound to c (after adapter fallback), in
// priority order.
func (r *Registry) ResolveAll(c Capability) ([]Entry, error) {
	res := r.resolve(c)
	if res.err != nil {
		return nil, res.err
	}
	return append([]Entry(nil), res.entries...), nil
}

// Trace returns the capabilities visited while resolving c, starting with c
// itself and ending with the one that has a direct binding.
func (r *Registry) Trace(c Capability) ([]Capability, error) {
	res := r.resolve(c)
	return append([]Capability(nil), res.hops...), res.err
}

// Provides reports whether factory is among the factories c resolves to.
func (r *Registry) Provides(c Capability, factory Factory) bool {
	res := r.resolve(c)
	if res.err != nil {
		return false
	}
	for _, e := range res.entries {
		if sameFactory(e.Factory, factory) {
			return true
		}
	}
	return false
}

// Entries returns a snapshot of all direct bindings ordered by capability,
// then priority.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Capability, 0, len(r.entries))
	for c := range r.entries {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	var out []Entry
	for _, c := range keys {
		out = append(out, r.entries[c]...)
	}
	return out
}

// Adapters returns a copy of the adapter-to-adaptee map.
func (r *Registry) Adapters() map[Capability]Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Capability]Capability, len(r.adapters))
	for k, v := range r.adapters {
		out[k] = v
	}
	return out
}

func (r *Registry) resolve(c Capability) resolution {
	if !r.sealed.Load() {
		return r.walk(c)
	}

	r.cacheMu.RLock()
	res, ok := r.cache[c]
	r.cacheMu.RUnlock()
	if ok {
		return res
	}

	v, _, _ := r.group.Do(c.String(), func() (any, error) {
		res := r.walk(c)
		r.cacheMu.Lock()
		r.cache[c] = res
		r.cacheMu.Unlock()
		return res, nil
	})
	return v.(resolution)
}

// walk follows the adapter chain from c until a capability with a direct
// binding is found, the chain ends, or a capability repeats.
func (r *Registry) walk(c Capability) resolution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[Capability]struct{})
	hops := []Capability{c}
	current := c

	for {
		if entries := r.entries[current]; len(entries) > 0 {
			return resolution{hops: hops, entries: entries}
		}
		visited[current] = struct{}{}

		next, ok := r.adapters[current]
		if !ok {
			msg := "no router registered for " + c.String()
			if len(hops) > 1 {
				msg += " (adapter chain " + chainString(hops) + ")"
			}
			return resolution{
				hops: hops,
				err:  route.NewError(route.ActionResolve, route.CodeNotFound, msg, nil),
			}
		}

		if _, seen := visited[next]; seen {
			chain := chainString(append(hops, next))
			r.logger.Warn().
				Str("operation", "resolve").
				Str("capability", c.String()).
				Str("chain", chain).
				Msg("adapter cycle detected")
			return resolution{
				hops: hops,
				err: route.Errorf(route.ActionResolve, route.CodeAdapterCycleDetected,
					"dead cycle in adapter chain %s", chain),
			}
		}

		hops = append(hops, next)
		current = next
	}
}

func chainString(hops []Capability) string {
	parts := make([]string, len(hops))
	for i, h := range hops {
		parts[i] = h.String()
	}
	return strings.Join(parts, " -> ")
}
