package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/cdpshim/internal/config"
	"github.com/wagiedev/cdpshim/internal/emulation"
	"github.com/wagiedev/cdpshim/internal/errors"
	"github.com/wagiedev/cdpshim/internal/evalpolicy"
	"github.com/wagiedev/cdpshim/internal/host"
	"github.com/wagiedev/cdpshim/internal/message"
	"github.com/wagiedev/cdpshim/internal/pacing"
)

// Transport is a CDP message transport bound to one attached tab.
//
// Transport is safe for concurrent use. Forwarded commands run on their own
// goroutines, paced deliveries run on the scheduler and relayed events run on
// the facade's callback goroutine. Listener calls are serialized.
type Transport struct {
	log      *slog.Logger
	id       string
	facade   host.Facade
	debuggee host.Debuggee
	emu      *emulation.Emulator
	eval     evalpolicy.FunctionFactory

	scheduler     pacing.Scheduler
	ownsScheduler bool
	delay         atomic.Int64

	listeners listenerSet

	// deliverMu serializes listener calls and guards closed.
	deliverMu sync.Mutex
	closed    bool
	done      chan struct{}

	unsubscribeOnce sync.Once
	unsubscribe     []func()
}

// New attaches the debugger to the tab and returns an adapter bound to it.
//
// Attach failures return *errors.AttachError. If no attached target matches
// the tab, New detaches again (best effort) and returns
// *errors.TargetNotFoundError.
func New(ctx context.Context, facade host.Facade, tabID host.TabID, options *config.Options) (*Transport, error) {
	if facade == nil {
		return nil, errors.ErrNilFacade
	}

	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	id := ulid.Make().String()
	log = log.With("component", "transport", "adapter_id", id, "tab_id", tabID.String())

	debuggee := host.Debuggee{TabID: tabID}
	version := options.ResolveProtocolVersion()

	log.Debug("Attaching debugger", "version", version)

	if err := facade.Attach(ctx, debuggee, version); err != nil {
		log.Warn("Debugger attach refused", "error", err)

		return nil, &errors.AttachError{TabID: tabID.String(), Version: version, Err: err}
	}

	info, err := lookupTarget(ctx, log, facade, tabID)
	if err != nil {
		if detachErr := facade.Detach(ctx, debuggee); detachErr != nil {
			log.Warn("Detach after failed target lookup", "error", detachErr)
		}

		return nil, err
	}

	emu := emulation.New(emulation.Descriptor(info))
	log = log.With("session_id", string(emu.SessionID()))

	t := &Transport{
		log:       log,
		id:        id,
		facade:    facade,
		debuggee:  debuggee,
		emu:       emu,
		eval:      evalpolicy.Resolve(log, options.FunctionFactory, options.DisableDynamicEval),
		scheduler: options.Scheduler,
		done:      make(chan struct{}),
	}

	if t.scheduler == nil {
		t.scheduler = pacing.NewQueue(log)
		t.ownsScheduler = true
	}

	t.SetPacingDelay(options.ResolvePacingDelay())

	t.unsubscribe = []func(){
		facade.OnEvent(t.handleHostEvent),
		facade.OnDetach(t.handleHostDetach),
	}

	log.Info("Transport attached", "target_type", info.Type, "url", info.URL)

	return t, nil
}

// lookupTarget finds the attached host target for the tab.
func lookupTarget(ctx context.Context, log *slog.Logger, facade host.Facade, tabID host.TabID) (host.TargetInfo, error) {
	targets, err := facade.GetTargets(ctx)
	if err != nil {
		log.Warn("Failed to list host targets", "error", err)

		return host.TargetInfo{}, &errors.TargetNotFoundError{TabID: tabID.String(), Err: err}
	}

	var matches []host.TargetInfo

	for _, ti := range targets {
		if ti.TabID == tabID && ti.Attached {
			matches = append(matches, ti)
		}
	}

	switch len(matches) {
	case 0:
		log.Warn("No attached target for tab", "targets", len(targets))

		return host.TargetInfo{}, &errors.TargetNotFoundError{TabID: tabID.String()}
	case 1:
	default:
		log.Warn("Several attached targets for tab, using the first", "matches", len(matches))
	}

	return matches[0], nil
}

// ID returns the adapter's unique id.
func (t *Transport) ID() string {
	return t.id
}

// SessionID returns the Session Identifier.
func (t *Transport) SessionID() target.SessionID {
	return t.emu.SessionID()
}

// TargetInfo returns the Target Descriptor.
func (t *Transport) TargetInfo() *target.Info {
	return t.emu.TargetInfo()
}

// TabID returns the host tab the adapter is attached to.
func (t *Transport) TabID() host.TabID {
	return t.debuggee.TabID
}

// State returns the emulated Target-domain state.
func (t *Transport) State() emulation.State {
	return t.emu.State()
}

// FunctionFactory returns the evaluation policy resolved at construction.
func (t *Transport) FunctionFactory() evalpolicy.FunctionFactory {
	return t.eval
}

// PacingDelay returns the delay applied to messages queued from now on.
func (t *Transport) PacingDelay() time.Duration {
	return time.Duration(t.delay.Load())
}

// SetPacingDelay changes the pacing delay. Messages already queued keep
// their delay. Negative delays are treated as zero.
func (t *Transport) SetPacingDelay(d time.Duration) {
	t.delay.Store(int64(max(d, 0)))
}

// Done returns a channel that is closed once the close notification has
// been delivered.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Subscribe registers a listener and returns a function that removes it.
// Subscribing after the close notification invokes OnClose immediately.
func (t *Transport) Subscribe(l Listener) (unsubscribe func()) {
	id, ok := t.listeners.add(l)
	if !ok {
		l.OnClose()

		return func() {}
	}

	t.log.Debug("Listener subscribed", "listener_id", id)

	return func() {
		if t.listeners.remove(id) {
			t.log.Debug("Listener unsubscribed", "listener_id", id)
		}
	}
}

// Send dispatches a serialized command.
//
// It returns *errors.MalformedCommandError for invalid input and
// errors.ErrTransportClosed once closing has started. The response is always
// delivered asynchronously to listeners.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	cmd, err := message.ParseCommand(t.log, data)
	if err != nil {
		return err
	}

	if t.emu.Closing() {
		t.log.Debug("Rejecting command after close", "id", cmd.ID, "method", cmd.Method)

		return errors.ErrTransportClosed
	}

	if emulation.IsEmulated(cmd.Method) {
		return t.emulate(cmd)
	}

	t.forward(ctx, cmd)

	return nil
}

// emulate answers a Target-domain command locally.
func (t *Transport) emulate(cmd *message.Command) error {
	outcome, err := t.emu.Handle(cmd.Method)
	if err != nil {
		if t.emu.Closing() {
			return errors.ErrTransportClosed
		}

		return err
	}

	t.log.Debug("Emulated command", "id", cmd.ID, "method", cmd.Method, "events", len(outcome.Events))

	for _, evt := range outcome.Events {
		t.pace(evt)
	}

	t.pace(message.Success(cmd, outcome.Result))

	if outcome.Close {
		t.log.Info("Target close requested by client")
		t.scheduler.Schedule(t.PacingDelay(), func() {
			t.teardown(context.Background(), true)
		})
	}

	return nil
}

// forward sends a command to the host and paces its response.
func (t *Transport) forward(ctx context.Context, cmd *message.Command) {
	ctx = context.WithoutCancel(ctx)

	t.log.Debug("Forwarding command", "id", cmd.ID, "method", cmd.Method)

	go t.dispatch(ctx, cmd)
}

// dispatch calls the host for a forwarded command. Commands that lose a race
// with Close are dropped without a reply.
func (t *Transport) dispatch(ctx context.Context, cmd *message.Command) {
	if t.emu.Closing() {
		t.log.Debug("Dropping forwarded command after close", "id", cmd.ID, "method", cmd.Method)

		return
	}

	result, err := t.facade.SendCommand(ctx, t.debuggee, cmd.Method, cmd.Params)
	if err != nil {
		fwdErr := &errors.CommandForwardingError{ID: cmd.ID, Method: cmd.Method, Err: err}
		t.log.Debug("Host rejected command", "error", fwdErr)
		t.pace(message.Failure(cmd, fwdErr.Message()))

		return
	}

	t.pace(message.Success(cmd, result))
}

// Close detaches from the host and queues the close notification.
//
// Detach failures are logged and swallowed. Close is idempotent and does
// nothing if closing has already started, including via Target.closeTarget.
func (t *Transport) Close(ctx context.Context) error {
	if !t.emu.BeginClose() {
		t.log.Debug("Close called while already closing")

		return nil
	}

	t.log.Info("Closing transport")
	t.teardown(ctx, true)

	return nil
}

// handleHostEvent relays a host debugging event for the attached tab.
func (t *Transport) handleHostEvent(source host.Debuggee, method string, params json.RawMessage) {
	if source.TabID != t.debuggee.TabID {
		return
	}

	if t.emu.Closing() {
		t.log.Debug("Dropping host event after close", "method", method)

		return
	}

	data, err := message.Encode(&message.Event{
		Method:    method,
		Params:    params,
		SessionID: string(t.emu.SessionID()),
	})
	if err != nil {
		t.log.Error("Failed to encode host event", "method", method, "error", err)

		return
	}

	t.deliver(data)
}

// handleHostDetach treats a host detach of the attached tab as an external close.
func (t *Transport) handleHostDetach(source host.Debuggee, reason host.DetachReason) {
	if source.TabID != t.debuggee.TabID {
		return
	}

	if !t.emu.BeginClose() {
		return
	}

	t.log.Info("Host detached debugger", "reason", reason)
	t.teardown(context.Background(), false)
}

// teardown drops the facade subscriptions, optionally detaches, and queues
// the synthetic detach event followed by the close notification.
func (t *Transport) teardown(ctx context.Context, detach bool) {
	t.unsubscribeOnce.Do(func() {
		for _, unsubscribe := range t.unsubscribe {
			unsubscribe()
		}
	})

	if detach {
		if err := t.facade.Detach(ctx, t.debuggee); err != nil {
			t.log.Warn("Detach failed, ignoring", "error", err)
		}
	}

	t.scheduler.Schedule(t.PacingDelay(), t.finish)
}

// finish delivers the detach event and the close notification.
func (t *Transport) finish() {
	evt, err := t.emu.Finish()
	if err != nil {
		t.log.Error("Failed to build detach event", "error", err)
	}

	var detached []byte
	if evt != nil {
		detached, err = message.Encode(evt)
		if err != nil {
			t.log.Error("Failed to encode detach event", "error", err)
		}
	}

	t.deliverMu.Lock()

	if t.closed {
		t.deliverMu.Unlock()

		return
	}

	if detached != nil {
		t.deliverLocked(detached)
	}

	t.closed = true
	listeners := t.listeners.drain()

	for _, l := range listeners {
		l.OnClose()
	}

	close(t.done)
	t.deliverMu.Unlock()

	t.log.Info("Transport closed", "listeners", len(listeners))

	if t.ownsScheduler {
		t.scheduler.Stop()
	}
}

// pace encodes msg and schedules its delivery after the pacing delay.
func (t *Transport) pace(msg message.Message) {
	data, err := message.Encode(msg)
	if err != nil {
		t.log.Error("Failed to encode outbound message", "error", err)

		return
	}

	t.scheduler.Schedule(t.PacingDelay(), func() {
		t.deliver(data)
	})
}

// deliver hands data to every listener unless the close notification has
// already been delivered.
func (t *Transport) deliver(data []byte) {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	if t.closed {
		t.log.Debug("Dropping message after close")

		return
	}

	t.deliverLocked(data)
}

// deliverLocked hands data to every listener. deliverMu must be held.
func (t *Transport) deliverLocked(data []byte) {
	for _, l := range t.listeners.snapshot() {
		l.OnMessage(data)
	}
}
