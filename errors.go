package cdpshim

import "github.com/wagiedev/cdpshim/internal/errors"

// Re-export error types from internal package

// AttachError indicates the host refused to attach the debugger.
type AttachError = errors.AttachError

// TargetNotFoundError indicates no attached target matched the tab.
type TargetNotFoundError = errors.TargetNotFoundError

// CommandForwardingError indicates the host rejected a forwarded command.
type CommandForwardingError = errors.CommandForwardingError

// MalformedCommandError indicates Send received invalid input.
type MalformedCommandError = errors.MalformedCommandError

// ShimError is the base interface for all adapter errors.
type ShimError = errors.ShimError

// Re-export sentinel errors from internal package.
var (
	// ErrTransportClosed indicates the adapter is closing or closed.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrNilFacade indicates New was called without a host facade.
	ErrNilFacade = errors.ErrNilFacade
)
