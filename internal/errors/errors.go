package errors

import (
	"errors"
	"fmt"
)

// ShimError is the base interface for all adapter errors.
type ShimError interface {
	error
	IsShimError() bool
}

// Compile-time verification that all error types implement ShimError.
var (
	_ ShimError = (*AttachError)(nil)
	_ ShimError = (*TargetNotFoundError)(nil)
	_ ShimError = (*CommandForwardingError)(nil)
	_ ShimError = (*MalformedCommandError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrTransportClosed indicates the adapter has started closing and no
	// longer dispatches commands. Adapters are single-use, create a new one.
	ErrTransportClosed = errors.New("transport closed: adapters are single-use, create a new one with New()")

	// ErrNilFacade indicates no host debugging facade was supplied.
	ErrNilFacade = errors.New("host debugging facade is nil")
)

// AttachError indicates the host refused to attach the debugger, either
// because the debugging permission was denied or the requested protocol
// version is not supported.
type AttachError struct {
	TabID   string
	Version string
	Err     error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attach debugger to tab %s (protocol %s): %v", e.TabID, e.Version, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}

// IsShimError implements ShimError.
func (e *AttachError) IsShimError() bool { return true }

// TargetNotFoundError indicates that no attached target matching the tab
// was found in the host's target list after a successful attach.
type TargetNotFoundError struct {
	TabID string
	// Err is set when the target list itself could not be fetched.
	Err error
}

func (e *TargetNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no attached target for tab %s: %v", e.TabID, e.Err)
	}

	return fmt.Sprintf("no attached target for tab %s", e.TabID)
}

func (e *TargetNotFoundError) Unwrap() error {
	return e.Err
}

// IsShimError implements ShimError.
func (e *TargetNotFoundError) IsShimError() bool { return true }

// CommandForwardingError indicates the host rejected a forwarded CDP command.
// It never reaches the CDP client as an error value: the adapter translates it
// into the error field of the response envelope.
type CommandForwardingError struct {
	ID     int64
	Method string
	Err    error
}

func (e *CommandForwardingError) Error() string {
	return fmt.Sprintf("forward command %s (id %d): %v", e.Method, e.ID, e.Err)
}

func (e *CommandForwardingError) Unwrap() error {
	return e.Err
}

// IsShimError implements ShimError.
func (e *CommandForwardingError) IsShimError() bool { return true }

// Message returns the host's failure message, or "" if it carried none.
func (e *CommandForwardingError) Message() string {
	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}

// MalformedCommandError indicates the serialized command handed to Send
// could not be decoded or does not have the shape of a command envelope.
// This preserves the original raw data that failed to parse.
type MalformedCommandError struct {
	RawData string
	Err     error
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed command: %v", e.Err)
}

func (e *MalformedCommandError) Unwrap() error {
	return e.Err
}

// IsShimError implements ShimError.
func (e *MalformedCommandError) IsShimError() bool { return true }
