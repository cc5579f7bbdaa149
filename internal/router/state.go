package router

import "fmt"

// State is the lifecycle state of a router instance.
type State int

const (
	// StateUnrouted is the state before construction completes.
	StateUnrouted State = iota

	// StatePreparing means the destination is being built and prepared.
	StatePreparing

	// StateRouting means the transition collaborator is running.
	StateRouting

	// StateRouted means the destination is live.
	StateRouted

	// StatePerformError is terminal: perform failed.
	StatePerformError

	// StateRemoving means the remove collaborator is running.
	StateRemoving

	// StateRemoved is terminal: the destination was torn down.
	StateRemoved

	// StateRemoveError is terminal: removal failed, the destination is still live.
	StateRemoveError
)

//nolint:gochecknoglobals // Static lookup table for state names.
var stateNames = map[State]string{
	StateUnrouted:     "unrouted",
	StatePreparing:    "preparing",
	StateRouting:      "routing",
	StateRouted:       "routed",
	StatePerformError: "perform_error",
	StateRemoving:     "removing",
	StateRemoved:      "removed",
	StateRemoveError:  "remove_error",
}

// validTransitions maps each state to the states it may move to.
// States absent from the map are terminal.
//
//nolint:gochecknoglobals // Static transition table.
var validTransitions = map[State][]State{
	StateUnrouted:  {StatePreparing},
	StatePreparing: {StateRouting, StateRouted, StatePerformError},
	StateRouting:   {StateRouted, StatePerformError},
	StateRouted:    {StateRemoving},
	StateRemoving:  {StateRemoved, StateRemoveError},
}

// String returns the snake_case name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	_, ok := validTransitions[s]
	return !ok
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllStates returns every state in lifecycle order.
func AllStates() []State {
	return []State{
		StateUnrouted,
		StatePreparing,
		StateRouting,
		StateRouted,
		StatePerformError,
		StateRemoving,
		StateRemoved,
		StateRemoveError,
	}
}
