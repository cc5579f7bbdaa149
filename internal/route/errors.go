package route

import (
	"errors"
	"fmt"
)

// Action identifies which operation produced an error.
type Action int

const (
	// ActionInit covers destination construction and preparation.
	ActionInit Action = iota

	// ActionPerformRoute covers the perform transition.
	ActionPerformRoute

	// ActionRemoveRoute covers preparation for removal and the remove transition.
	ActionRemoveRoute

	// ActionResolve covers registry lookups and registration.
	ActionResolve
)

// String returns the action name used in logs.
func (a Action) String() string {
	switch a {
	case ActionInit:
		return "init"
	case ActionPerformRoute:
		return "performRoute"
	case ActionRemoveRoute:
		return "removeRoute"
	case ActionResolve:
		return "resolve"
	default:
		return "unknown"
	}
}

// Code is the cause of a routing error.
type Code int

const (
	// CodeNotFound means no router is registered for the capability.
	CodeNotFound Code = iota + 1

	// CodeDuplicateExclusiveRegistration means an exclusive capability was
	// bound to a second factory.
	CodeDuplicateExclusiveRegistration

	// CodeAdapterCycleDetected means the adapter chain revisited a capability.
	CodeAdapterCycleDetected

	// CodeInvalidState means the router instance is in a state that does not
	// permit the operation.
	CodeInvalidState

	// CodeInvalidConfiguration means the path or configuration is
	// structurally invalid.
	CodeInvalidConfiguration

	// CodeConstructionFailed means the destination could not be built.
	CodeConstructionFailed

	// CodeTransitionFailed means the transition collaborator reported failure.
	CodeTransitionFailed

	// CodePrepareFailed means a preparation hook signalled failure.
	CodePrepareFailed
)

// String returns the code name used in logs.
func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "NotFound"
	case CodeDuplicateExclusiveRegistration:
		return "DuplicateExclusiveRegistration"
	case CodeAdapterCycleDetected:
		return "AdapterCycleDetected"
	case CodeInvalidState:
		return "InvalidState"
	case CodeInvalidConfiguration:
		return "InvalidConfiguration"
	case CodeConstructionFailed:
		return "ConstructionFailed"
	case CodeTransitionFailed:
		return "TransitionFailed"
	case CodePrepareFailed:
		return "PrepareFailed"
	default:
		return "Unknown"
	}
}

// Error is the structured error produced by the registry and routers.
type Error struct {
	Action  Action
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return fmt.Sprintf("%s (action %s)", msg, e.Action)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so the sentinels below work with errors.Is
// regardless of action or message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks. Only Code is compared.
var (
	ErrNotFound                       = &Error{Code: CodeNotFound}
	ErrDuplicateExclusiveRegistration = &Error{Code: CodeDuplicateExclusiveRegistration}
	ErrAdapterCycleDetected           = &Error{Code: CodeAdapterCycleDetected}
	ErrInvalidState                   = &Error{Code: CodeInvalidState}
	ErrInvalidConfiguration           = &Error{Code: CodeInvalidConfiguration}
	ErrConstructionFailed             = &Error{Code: CodeConstructionFailed}
	ErrTransitionFailed               = &Error{Code: CodeTransitionFailed}
	ErrPrepareFailed                  = &Error{Code: CodePrepareFailed}
)

// NewError builds an *Error.
func NewError(action Action, code Code, message string, cause error) *Error {
	return &Error{
		Action:  action,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Errorf builds an *Error with a formatted message and no cause.
func Errorf(action Action, code Code, format string, args ...any) *Error {
	return &Error{
		Action:  action,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, or 0 when err is not a routing error.
func CodeOf(err error) Code {
	if re, ok := AsError(err); ok {
		return re.Code
	}
	return 0
}
