package cli

import "fmt"

// ExitCodeInvalidManifest is returned by validate when the manifest is rejected.
const ExitCodeInvalidManifest = 2

// ExitError carries a process exit code alongside the failure.
type ExitError struct {
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%v (exit code %d)", e.Err, e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
