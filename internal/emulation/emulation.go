// Package emulation fakes the multi-target parts of the CDP Target domain on
// top of a single attached tab.
//
// The host debugging API only ever exposes one target, but CDP clients expect
// to discover targets, attach to them and receive a session. The Emulator
// answers those commands locally from the adapter's Target Descriptor and
// tracks the emulated lifecycle:
//
//	idle -> discovering -> attached -> closing -> closed
//
// The closing and closed states double as the adapter's lifecycle flag.
package emulation

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"

	"github.com/wagiedev/cdpshim/internal/host"
	"github.com/wagiedev/cdpshim/internal/message"
)

// State is the emulated Target-domain lifecycle state.
type State int

const (
	// StateIdle is the state right after attach.
	StateIdle State = iota
	// StateDiscovering follows Target.setDiscoverTargets.
	StateDiscovering
	// StateAttached follows Target.attachToTarget.
	StateAttached
	// StateClosing means teardown has started. No command is dispatched.
	StateClosing
	// StateClosed means the close notification has been queued.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateAttached:
		return "attached"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// emulated is the fixed set of methods answered locally.
var emulated = map[cdproto.MethodType]struct{}{
	target.CommandGetBrowserContexts: {},
	target.CommandSetDiscoverTargets: {},
	target.CommandAttachToTarget:     {},
	target.CommandActivateTarget:     {},
	target.CommandCloseTarget:        {},
}

// IsEmulated reports whether method is answered locally.
func IsEmulated(method string) bool {
	_, ok := emulated[cdproto.MethodType(method)]

	return ok
}

// Outcome is the local answer to an emulated command.
type Outcome struct {
	// Result is the response result.
	Result json.RawMessage
	// Events are queued before the response.
	Events []*message.Event
	// Close requests adapter teardown after the response.
	Close bool
}

// DetachedParams is the payload of the synthetic Target.detachedFromTarget.
type DetachedParams struct {
	SessionID target.SessionID `json:"sessionId"`
	TargetID  target.ID        `json:"targetId"`
}

// Emulator answers emulated Target-domain commands for one target.
type Emulator struct {
	info      *target.Info
	sessionID target.SessionID

	mu    sync.Mutex
	state State
}

// New creates an emulator for the given descriptor. The session id equals
// the target id.
func New(info *target.Info) *Emulator {
	return &Emulator{
		info:      info,
		sessionID: target.SessionID(info.TargetID),
		state:     StateIdle,
	}
}

// TargetInfo returns the Target Descriptor.
func (e *Emulator) TargetInfo() *target.Info {
	return e.info
}

// SessionID returns the Session Identifier.
func (e *Emulator) SessionID() target.SessionID {
	return e.sessionID
}

// State returns the current state.
func (e *Emulator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Closing reports whether teardown has started.
func (e *Emulator) Closing() bool {
	return e.State() >= StateClosing
}

// Handle answers an emulated command. It fails for methods outside the
// emulated set and once teardown has started.
func (e *Emulator) Handle(method string) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state >= StateClosing {
		return nil, fmt.Errorf("emulate %s: target is %s", method, e.state)
	}

	switch cdproto.MethodType(method) {
	case target.CommandGetBrowserContexts:
		return &Outcome{Result: json.RawMessage(`{"browserContextIds":[]}`)}, nil

	case target.CommandSetDiscoverTargets:
		evt, err := message.NewEvent(string(cdproto.EventTargetTargetCreated),
			&target.EventTargetCreated{TargetInfo: e.info}, "")
		if err != nil {
			return nil, err
		}

		if e.state == StateIdle {
			e.state = StateDiscovering
		}

		return &Outcome{Result: message.NullResult, Events: []*message.Event{evt}}, nil

	case target.CommandAttachToTarget:
		evt, err := message.NewEvent(string(cdproto.EventTargetAttachedToTarget), &target.EventAttachedToTarget{
			SessionID:          e.sessionID,
			TargetInfo:         e.info,
			WaitingForDebugger: false,
		}, "")
		if err != nil {
			return nil, err
		}

		result, err := json.Marshal(&target.AttachToTargetReturns{SessionID: e.sessionID})
		if err != nil {
			return nil, fmt.Errorf("marshal %s result: %w", method, err)
		}

		e.state = StateAttached

		return &Outcome{Result: result, Events: []*message.Event{evt}}, nil

	case target.CommandActivateTarget:
		return &Outcome{Result: message.NullResult}, nil

	case target.CommandCloseTarget:
		e.state = StateClosing

		return &Outcome{Result: json.RawMessage(`{"success":true}`), Close: true}, nil

	default:
		return nil, fmt.Errorf("emulate %s: method is not emulated", method)
	}
}

// BeginClose moves to closing. It returns false if teardown had already
// started, in which case the caller must not tear down again.
func (e *Emulator) BeginClose() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state >= StateClosing {
		return false
	}

	e.state = StateClosing

	return true
}

// Finish moves to closed and returns the synthetic Target.detachedFromTarget
// event that precedes the close notification. It returns nil if already
// closed.
func (e *Emulator) Finish() (*message.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return nil, nil
	}

	e.state = StateClosed

	return message.NewEvent(string(cdproto.EventTargetDetachedFromTarget), &DetachedParams{
		SessionID: e.sessionID,
		TargetID:  e.info.TargetID,
	}, "")
}

// Descriptor builds the Target Descriptor for an attached host target.
func Descriptor(t host.TargetInfo) *target.Info {
	return &target.Info{
		TargetID:        target.ID(t.ID),
		Type:            t.Type,
		Title:           t.Title,
		URL:             t.URL,
		Attached:        true,
		CanAccessOpener: false,
	}
}
