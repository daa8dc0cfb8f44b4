package cdpshim

import (
	"context"

	"github.com/wagiedev/cdpshim/internal/evalpolicy"
	"github.com/wagiedev/cdpshim/internal/host"
	"github.com/wagiedev/cdpshim/internal/pacing"
	"github.com/wagiedev/cdpshim/internal/transport"
)

// Re-export adapter and host types for the public API.
type (
	// Transport is the adapter bound to one attached tab.
	Transport = transport.Transport

	// Listener observes an adapter's outbound messages and close notification.
	Listener = transport.Listener

	// ListenerFuncs adapts plain functions to Listener.
	ListenerFuncs = transport.ListenerFuncs

	// Facade is the host debugging API the adapter consumes.
	Facade = host.Facade

	// TabID identifies a host tab.
	TabID = host.TabID

	// Debuggee scopes a facade call or notification to one tab.
	Debuggee = host.Debuggee

	// TargetInfo is one entry of the host's target list.
	TargetInfo = host.TargetInfo

	// DetachReason explains why the host detached the debugger.
	DetachReason = host.DetachReason

	// Scheduler runs paced deliveries.
	Scheduler = pacing.Scheduler

	// ManualScheduler is a virtual-clock Scheduler for tests.
	ManualScheduler = pacing.Manual

	// FunctionFactory builds functions from source at runtime.
	FunctionFactory = evalpolicy.FunctionFactory

	// Function is a function built by a FunctionFactory.
	Function = evalpolicy.Function
)

// DefaultPacingDelay is the pacing delay used unless configured.
const DefaultPacingDelay = pacing.DefaultDelay

// Detach reasons reported by hosts.
const (
	DetachReasonTargetClosed   = host.DetachReasonTargetClosed
	DetachReasonCanceledByUser = host.DetachReasonCanceledByUser
)

// New attaches the debugger to the tab and returns an adapter bound to it.
//
// It fails with *AttachError when the host refuses to attach and with
// *TargetNotFoundError when no attached target matches the tab afterwards.
func New(ctx context.Context, facade Facade, tabID TabID, opts ...Option) (*Transport, error) {
	options := applyOptions(opts)

	if options.Logger == nil {
		options.Logger = NopLogger()
	}

	return transport.New(ctx, facade, tabID, options)
}

// NewManualScheduler returns a virtual-clock scheduler. Nothing it holds runs
// until Advance is called.
func NewManualScheduler() *ManualScheduler {
	return pacing.NewManual()
}

// GojaFunctionFactory returns the default function factory, backed by the
// goja JavaScript runtime.
func GojaFunctionFactory() FunctionFactory {
	return evalpolicy.Goja()
}

// NoopFunctionFactory returns the factory used when dynamic evaluation is
// unavailable. Its functions do nothing and return nil.
func NoopFunctionFactory() FunctionFactory {
	return evalpolicy.Noop()
}
