// Package host defines the Host Debugging Facade consumed by the adapter.
//
// The facade is the narrow, single-target debugging API supplied by the
// hosting environment (for example a browser extension's debugger API). It
// is implemented by embedding code, never by this module.
package host

import (
	"context"
	"encoding/json"
	"strconv"
)

// TabID identifies a debuggable tab in the host environment.
type TabID int

// String returns the decimal form of the tab id.
func (id TabID) String() string {
	return strconv.Itoa(int(id))
}

// Debuggee scopes a facade call or notification to one tab.
type Debuggee struct {
	TabID TabID `json:"tabId"`
}

// DetachReason explains why the host detached the debugger.
type DetachReason string

const (
	// DetachReasonTargetClosed means the tab was closed or navigated away.
	DetachReasonTargetClosed DetachReason = "target_closed"
	// DetachReasonCanceledByUser means the user dismissed the debugging session.
	DetachReasonCanceledByUser DetachReason = "canceled_by_user"
)

// TargetInfo is one entry of the host's target list.
type TargetInfo struct {
	// ID is the host-assigned target id.
	ID string `json:"id"`
	// TabID is set for tab targets.
	TabID TabID `json:"tabId,omitempty"`
	// Attached reports whether a debugger is currently attached.
	Attached bool `json:"attached"`
	// Type is the target type, e.g. "page".
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EventHandler receives debugging events for every attached tab.
type EventHandler func(source Debuggee, method string, params json.RawMessage)

// DetachHandler receives detach notifications for every attached tab.
type DetachHandler func(source Debuggee, reason DetachReason)

// Facade is the host debugging API.
//
// Each call resolves exactly once. The two subscription points are
// process-wide: handlers receive notifications for all tabs and must filter by
// source. Subscriptions return a function that removes the handler.
type Facade interface {
	// Attach attaches the debugger to the tab using the given protocol version.
	Attach(ctx context.Context, target Debuggee, version string) error

	// Detach detaches the debugger from the tab.
	Detach(ctx context.Context, target Debuggee) error

	// SendCommand sends a CDP command to the tab and returns its result.
	SendCommand(ctx context.Context, target Debuggee, method string, params json.RawMessage) (json.RawMessage, error)

	// GetTargets lists the debuggable targets known to the host.
	GetTargets(ctx context.Context) ([]TargetInfo, error)

	// OnEvent registers a handler for debugging events.
	OnEvent(handler EventHandler) (unsubscribe func())

	// OnDetach registers a handler for detach notifications.
	OnDetach(handler DetachHandler) (unsubscribe func())
}
