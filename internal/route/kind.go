package route

import (
	"fmt"
	"strings"
)

// Kind is the semantic route type of a Path.
type Kind int

const (
	// KindPush pushes the destination onto the source's navigation stack.
	KindPush Kind = iota

	// KindPresent presents the destination modally over the source.
	KindPresent

	// KindAddChild embeds the destination as a child of the source.
	KindAddChild

	// KindCustom delegates the transition entirely to the router.
	KindCustom

	// KindMakeDestination only builds and prepares the destination.
	// No transition happens, so the route can never be removed.
	KindMakeDestination

	// KindPerformSegue runs a named segue-like transition from the source.
	KindPerformSegue
)

// kindNames are the stable names used in config files and logs.
//
//nolint:gochecknoglobals // Read-only lookup table.
var kindNames = map[Kind]string{
	KindPush:            "push",
	KindPresent:         "present",
	KindAddChild:        "add_child",
	KindCustom:          "custom",
	KindMakeDestination: "make_destination",
	KindPerformSegue:    "perform_segue",
}

// AllKinds returns every Kind in declaration order.
func AllKinds() []Kind {
	return []Kind{
		KindPush,
		KindPresent,
		KindAddChild,
		KindCustom,
		KindMakeDestination,
		KindPerformSegue,
	}
}

// String returns the stable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// RequiresSource reports whether a path of this kind must carry a source.
func (k Kind) RequiresSource() bool {
	switch k {
	case KindPush, KindPresent, KindAddChild, KindPerformSegue:
		return true
	default:
		return false
	}
}

// Animates reports whether the transition for this kind is animated by default.
func (k Kind) Animates() bool {
	switch k {
	case KindPush, KindPresent, KindPerformSegue:
		return true
	default:
		return false
	}
}

// Removable reports whether a route of this kind can later be removed.
func (k Kind) Removable() bool {
	return k != KindMakeDestination && k.Valid()
}

// Transitions reports whether this kind hands the destination to a
// transition collaborator.
func (k Kind) Transitions() bool {
	return k != KindMakeDestination
}

// ParseKind parses a kind name as produced by String.
// Dashes and case are ignored so "add-child" and "AddChild" both work.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for k, name := range kindNames {
		if name == normalized || strings.ReplaceAll(name, "_", "") == normalized {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown route kind %q", s)
}
