package registry

import (
	"reflect"
	"sort"
)

// Factory produces router instances for the capabilities it is registered
// under. The registry only needs a stable name for diagnostics; the router
// package type-asserts resolved factories back to its descriptor type.
type Factory interface {
	FactoryName() string
}

// Exclusivity is the binding rule of a capability.
type Exclusivity int

const (
	// Exclusive capabilities resolve to exactly one factory.
	Exclusive Exclusivity = iota

	// Shared capabilities may resolve to many factories.
	Shared
)

// String returns "exclusive" or "shared".
func (e Exclusivity) String() string {
	if e == Shared {
		return "shared"
	}
	return "exclusive"
}

// Entry is one capability-to-factory binding.
type Entry struct {
	// Capability is the lookup key.
	Capability Capability

	// Factory is the bound router factory. Never nil.
	Factory Factory

	// Exclusivity is the rule the entry was registered with.
	Exclusivity Exclusivity

	// Priority orders shared entries. Higher values come first.
	Priority int

	// Seq is the registration sequence number and breaks priority ties.
	Seq uint64
}

// RegisterOption configures a single registration.
type RegisterOption func(*Entry)

// WithPriority sets the priority of a shared entry.
func WithPriority(priority int) RegisterOption {
	return func(e *Entry) {
		e.Priority = priority
	}
}

// sortEntries orders entries by priority (highest first).
// Stable by registration order for equal priorities.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Seq < entries[j].Seq
	})
}

// sameFactory compares factories by identity. Non-comparable factory types
// are never considered equal.
func sameFactory(a, b Factory) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
