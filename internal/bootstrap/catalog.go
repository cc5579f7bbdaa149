// Package bootstrap wires routers into a registry from a declarative
// manifest. Routers are made available through a versioned Catalog; the
// manifest picks a router and version constraint per capability.
package bootstrap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/rshade/routekit/internal/router"
)

var (
	// ErrUnknownRouter is returned when no router with the name is in the catalog.
	ErrUnknownRouter = errors.New("router not in catalog")

	// ErrNoMatchingVersion is returned when no version satisfies a constraint.
	ErrNoMatchingVersion = errors.New("no router version satisfies constraint")
)

// CatalogEntry is one version of a named router.
type CatalogEntry struct {
	Name       string
	Version    *semver.Version
	Descriptor *router.Descriptor
}

// Catalog is a versioned set of router descriptors, keyed by name.
//
// Thread Safety: All methods are safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string][]CatalogEntry
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string][]CatalogEntry)}
}

// Add makes desc available as version of name. Versions of one name are kept
// newest first.
func (c *Catalog) Add(name, version string, desc *router.Descriptor) error {
	if name == "" {
		return errors.New("catalog: router name is required")
	}
	if desc == nil {
		return fmt.Errorf("catalog: router %s: descriptor is nil", name)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("catalog: router %s version %s has invalid semver format: %w", name, version, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	versions := c.entries[name]
	for _, existing := range versions {
		if existing.Version.Equal(v) {
			return fmt.Errorf("catalog: router %s version %s is already registered", name, v)
		}
	}
	versions = append(versions, CatalogEntry{Name: name, Version: v, Descriptor: desc})
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Version.GreaterThan(versions[j].Version)
	})
	c.entries[name] = versions
	return nil
}

// MustAdd is Add that panics on error. It is meant for static catalogs.
func (c *Catalog) MustAdd(name, version string, desc *router.Descriptor) {
	if err := c.Add(name, version, desc); err != nil {
		panic(err)
	}
}

// Lookup returns the newest version of name that satisfies constraint.
// An empty constraint selects the newest stable version, or the newest
// pre-release when no stable version exists.
func (c *Catalog) Lookup(name, constraint string) (CatalogEntry, error) {
	c.mu.RLock()
	versions := c.entries[name]
	c.mu.RUnlock()

	if len(versions) == 0 {
		return CatalogEntry{}, fmt.Errorf("%w: %s", ErrUnknownRouter, name)
	}

	if constraint == "" {
		for _, entry := range versions {
			if entry.Version.Prerelease() == "" {
				return entry, nil
			}
		}
		return versions[0], nil
	}

	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("router %s: invalid version constraint %q: %w", name, constraint, err)
	}
	for _, entry := range versions {
		if cons.Check(entry.Version) {
			return entry, nil
		}
	}
	return CatalogEntry{}, fmt.Errorf("%w: %s %s (have %s)", ErrNoMatchingVersion, name, constraint, versions[0].Version)
}

// Latest returns the newest version of every router, sorted by name.
func (c *Catalog) Latest() []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]CatalogEntry, 0, len(c.entries))
	for _, versions := range c.entries {
		result = append(result, versions[0])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Versions returns every version of name, newest first.
func (c *Catalog) Versions(name string) []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]CatalogEntry(nil), c.entries[name]...)
}

// Len returns the number of distinct router names.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
