// Package hosttest provides a scriptable in-memory host.Facade for tests.
package hosttest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wagiedev/cdpshim/internal/host"
)

// Compile-time verification that Facade implements host.Facade.
var _ host.Facade = (*Facade)(nil)

// AttachCall records one Attach invocation.
type AttachCall struct {
	Target  host.Debuggee
	Version string
}

// CommandCall records one SendCommand invocation.
type CommandCall struct {
	Target host.Debuggee
	Method string
	Params json.RawMessage
}

// CommandFunc scripts the outcome of SendCommand.
type CommandFunc func(ctx context.Context, target host.Debuggee, method string, params json.RawMessage) (json.RawMessage, error)

// Facade records calls and lets tests emit host notifications.
type Facade struct {
	mu sync.Mutex

	attachErr  error
	detachErr  error
	targets    []host.TargetInfo
	targetsErr error
	command    CommandFunc

	attaches []AttachCall
	detaches []host.Debuggee
	commands []CommandCall

	nextID         int
	eventHandlers  map[int]host.EventHandler
	detachHandlers map[int]host.DetachHandler
}

// New returns a facade that attaches successfully and lists the given targets.
func New(targets ...host.TargetInfo) *Facade {
	return &Facade{
		targets:        targets,
		eventHandlers:  make(map[int]host.EventHandler, 2),
		detachHandlers: make(map[int]host.DetachHandler, 2),
	}
}

// FailAttach makes Attach return err.
func (f *Facade) FailAttach(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attachErr = err
}

// FailDetach makes Detach return err.
func (f *Facade) FailDetach(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detachErr = err
}

// FailTargets makes GetTargets return err.
func (f *Facade) FailTargets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.targetsErr = err
}

// HandleCommands scripts SendCommand. Without a script every command
// resolves to an empty object.
func (f *Facade) HandleCommands(fn CommandFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.command = fn
}

// Attach implements host.Facade.
func (f *Facade) Attach(_ context.Context, target host.Debuggee, version string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attaches = append(f.attaches, AttachCall{Target: target, Version: version})

	return f.attachErr
}

// Detach implements host.Facade.
func (f *Facade) Detach(_ context.Context, target host.Debuggee) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detaches = append(f.detaches, target)

	return f.detachErr
}

// SendCommand implements host.Facade.
func (f *Facade) SendCommand(
	ctx context.Context,
	target host.Debuggee,
	method string,
	params json.RawMessage,
) (json.RawMessage, error) {
	f.mu.Lock()
	f.commands = append(f.commands, CommandCall{Target: target, Method: method, Params: params})
	fn := f.command
	f.mu.Unlock()

	if fn == nil {
		return json.RawMessage(`{}`), nil
	}

	return fn(ctx, target, method, params)
}

// GetTargets implements host.Facade.
func (f *Facade) GetTargets(_ context.Context) ([]host.TargetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.targetsErr != nil {
		return nil, f.targetsErr
	}

	out := make([]host.TargetInfo, len(f.targets))
	copy(out, f.targets)

	return out, nil
}

// OnEvent implements host.Facade.
func (f *Facade) OnEvent(handler host.EventHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.eventHandlers[id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		delete(f.eventHandlers, id)
	}
}

// OnDetach implements host.Facade.
func (f *Facade) OnDetach(handler host.DetachHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.detachHandlers[id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		delete(f.detachHandlers, id)
	}
}

// EmitEvent delivers a debugging event to every subscriber synchronously.
func (f *Facade) EmitEvent(source host.Debuggee, method string, params json.RawMessage) {
	f.mu.Lock()
	handlers := make([]host.EventHandler, 0, len(f.eventHandlers))

	for _, h := range f.eventHandlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(source, method, params)
	}
}

// EmitDetach delivers a detach notification to every subscriber synchronously.
func (f *Facade) EmitDetach(source host.Debuggee, reason host.DetachReason) {
	f.mu.Lock()
	handlers := make([]host.DetachHandler, 0, len(f.detachHandlers))

	for _, h := range f.detachHandlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(source, reason)
	}
}

// Attaches returns the recorded Attach calls.
func (f *Facade) Attaches() []AttachCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]AttachCall, len(f.attaches))
	copy(out, f.attaches)

	return out
}

// Detaches returns the recorded Detach calls.
func (f *Facade) Detaches() []host.Debuggee {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]host.Debuggee, len(f.detaches))
	copy(out, f.detaches)

	return out
}

// Commands returns the recorded SendCommand calls.
func (f *Facade) Commands() []CommandCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]CommandCall, len(f.commands))
	copy(out, f.commands)

	return out
}

// Subscribers returns the number of live event and detach subscriptions.
func (f *Facade) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.eventHandlers) + len(f.detachHandlers)
}
