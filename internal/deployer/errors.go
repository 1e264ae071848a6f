// File: internal/deployer/errors.go
// Brief: Terminal error kinds surfaced by the orchestrator.

package deployer

import (
	"fmt"
	"time"
)

// RemoteRejection is a stack-apply refusal. The remote diagnostic is carried
// verbatim; the submitted graph was not retried because the cause is almost
// always a template defect, not a transient fault.
type RemoteRejection struct {
	Stack   string
	Code    string
	Message string
}

func (e *RemoteRejection) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stack %s rejected: %s: %s", e.Stack, e.Code, e.Message)
	}
	return fmt.Sprintf("stack %s rejected: %s", e.Stack, e.Message)
}

// RolloutTimeout means the service never reached steady state in time. The
// new task definition stays active; only the wait is abandoned.
type RolloutTimeout struct {
	Service string
	Elapsed time.Duration
}

func (e *RolloutTimeout) Error() string {
	return fmt.Sprintf("service %s did not reach steady state within %s", e.Service, e.Elapsed)
}

// RegistryError wraps an image registry failure.
type RegistryError struct {
	Op  string
	Ref string
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }
