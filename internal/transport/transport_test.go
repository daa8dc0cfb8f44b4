package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/cdpshim/internal/config"
	"github.com/wagiedev/cdpshim/internal/emulation"
	sdkerrors "github.com/wagiedev/cdpshim/internal/errors"
	"github.com/wagiedev/cdpshim/internal/evalpolicy"
	"github.com/wagiedev/cdpshim/internal/host"
	"github.com/wagiedev/cdpshim/internal/host/hosttest"
	"github.com/wagiedev/cdpshim/internal/message"
	"github.com/wagiedev/cdpshim/internal/pacing"
)

const (
	testDelay = 40 * time.Millisecond
	closeMark = "<close>"
)

var exampleTab = host.TargetInfo{
	ID:       "A1",
	TabID:    7,
	Attached: true,
	Type:     "page",
	Title:    "Example",
	URL:      "https://example.com/",
}

// recorder is a Listener that records everything it receives.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) OnMessage(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, string(data))
}

func (r *recorder) OnClose() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, closeMark)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.entries...)
}

func (r *recorder) closes() int {
	n := 0

	for _, e := range r.all() {
		if e == closeMark {
			n++
		}
	}

	return n
}

type harness struct {
	t      *testing.T
	facade *hosttest.Facade
	sched  *pacing.Manual
	tr     *Transport
	rec    *recorder
}

func newHarness(t *testing.T, facade *hosttest.Facade) *harness {
	t.Helper()

	sched := pacing.NewManual()
	delay := testDelay

	tr, err := New(context.Background(), facade, 7, &config.Options{
		PacingDelay: &delay,
		Scheduler:   sched,
	})
	require.NoError(t, err)

	rec := &recorder{}
	tr.Subscribe(rec)

	return &harness{t: t, facade: facade, sched: sched, tr: tr, rec: rec}
}

func (h *harness) send(data string) {
	h.t.Helper()

	require.NoError(h.t, h.tr.Send(context.Background(), []byte(data)))
}

// waitPending waits for n paced tasks, covering asynchronous forwarding.
func (h *harness) waitPending(n int) {
	h.t.Helper()

	require.Eventually(h.t, func() bool {
		return h.sched.Pending() == n
	}, time.Second, time.Millisecond)
}

func TestNew_ResolvesSessionFromTargetList(t *testing.T) {
	facade := hosttest.New(
		host.TargetInfo{ID: "B2", TabID: 8, Attached: true, Type: "page"},
		host.TargetInfo{ID: "Z9", TabID: 7, Attached: false, Type: "page"},
		exampleTab,
	)
	h := newHarness(t, facade)

	require.Equal(t, "A1", string(h.tr.SessionID()))
	require.Equal(t, "A1", string(h.tr.TargetInfo().TargetID))
	require.Equal(t, "https://example.com/", h.tr.TargetInfo().URL)
	require.True(t, h.tr.TargetInfo().Attached)
	require.False(t, h.tr.TargetInfo().CanAccessOpener)
	require.Equal(t, host.TabID(7), h.tr.TabID())
	require.NotEmpty(t, h.tr.ID())
	require.Equal(t, emulation.StateIdle, h.tr.State())

	require.Equal(t, []hosttest.AttachCall{{Target: host.Debuggee{TabID: 7}, Version: "1.3"}}, facade.Attaches())
	require.Equal(t, 2, facade.Subscribers())
}

func TestNew_ProtocolVersionOption(t *testing.T) {
	facade := hosttest.New(exampleTab)

	_, err := New(context.Background(), facade, 7, &config.Options{
		ProtocolVersion: "1.2",
		Scheduler:       pacing.NewManual(),
	})
	require.NoError(t, err)
	require.Equal(t, "1.2", facade.Attaches()[0].Version)
}

func TestNew_NilFacade(t *testing.T) {
	_, err := New(context.Background(), nil, 7, nil)
	require.ErrorIs(t, err, sdkerrors.ErrNilFacade)
}

func TestNew_AttachRefused(t *testing.T) {
	hostErr := errors.New("Another debugger is already attached")
	facade := hosttest.New(exampleTab)
	facade.FailAttach(hostErr)

	tr, err := New(context.Background(), facade, 7, nil)
	require.Nil(t, tr)
	require.ErrorIs(t, err, hostErr)

	attachErr, ok := errors.AsType[*sdkerrors.AttachError](err)
	require.True(t, ok)
	require.Equal(t, "7", attachErr.TabID)
	require.Equal(t, "1.3", attachErr.Version)

	require.Equal(t, 0, facade.Subscribers())
	require.Empty(t, facade.Detaches())
}

func TestNew_TargetNotFound(t *testing.T) {
	tests := []struct {
		name    string
		targets []host.TargetInfo
	}{
		{name: "empty list"},
		{name: "other tab", targets: []host.TargetInfo{{ID: "B2", TabID: 8, Attached: true}}},
		{name: "not attached", targets: []host.TargetInfo{{ID: "A1", TabID: 7, Attached: false}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := hosttest.New(tt.targets...)

			tr, err := New(context.Background(), facade, 7, nil)
			require.Nil(t, tr)

			notFound, ok := errors.AsType[*sdkerrors.TargetNotFoundError](err)
			require.True(t, ok)
			require.Equal(t, "7", notFound.TabID)

			require.Equal(t, []host.Debuggee{{TabID: 7}}, facade.Detaches())
			require.Equal(t, 0, facade.Subscribers())
		})
	}
}

func TestNew_TargetListFails(t *testing.T) {
	hostErr := errors.New("targets unavailable")
	facade := hosttest.New(exampleTab)
	facade.FailTargets(hostErr)
	facade.FailDetach(errors.New("not attached"))

	_, err := New(context.Background(), facade, 7, nil)
	require.ErrorIs(t, err, hostErr)

	_, ok := errors.AsType[*sdkerrors.TargetNotFoundError](err)
	require.True(t, ok)
	require.Len(t, facade.Detaches(), 1)
}

func TestNew_DuplicateTargetsUsesFirst(t *testing.T) {
	facade := hosttest.New(
		exampleTab,
		host.TargetInfo{ID: "A2", TabID: 7, Attached: true, Type: "page"},
	)
	h := newHarness(t, facade)

	require.Equal(t, "A1", string(h.tr.SessionID()))
}

func TestNew_FunctionFactory(t *testing.T) {
	facade := hosttest.New(exampleTab)

	tr, err := New(context.Background(), facade, 7, &config.Options{
		Scheduler:          pacing.NewManual(),
		DisableDynamicEval: true,
	})
	require.NoError(t, err)

	_, isNoop := tr.FunctionFactory().(evalpolicy.NoopFactory)
	require.True(t, isNoop)

	override := evalpolicy.Goja()

	tr, err = New(context.Background(), facade, 7, &config.Options{
		Scheduler:          pacing.NewManual(),
		FunctionFactory:    override,
		DisableDynamicEval: true,
	})
	require.NoError(t, err)
	require.Same(t, override, tr.FunctionFactory())
}

func TestSend_GetBrowserContexts(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":1,"method":"Target.getBrowserContexts","params":{}}`)

	require.Empty(t, h.rec.all(), "responses are paced")
	require.Equal(t, 0, h.sched.Advance(testDelay-time.Millisecond))
	require.Equal(t, 1, h.sched.Advance(time.Millisecond))

	got := h.rec.all()
	require.Len(t, got, 1)
	require.JSONEq(t,
		`{"id":1,"method":"Target.getBrowserContexts","params":{},"result":{"browserContextIds":[]}}`,
		got[0],
	)
	require.Empty(t, h.facade.Commands())
}

func TestSend_SetDiscoverTargets(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":1,"method":"Target.setDiscoverTargets","params":{"discover":true}}`)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 2)
	require.JSONEq(t,
		`{"method":"Target.targetCreated","params":{"targetInfo":{"targetId":"A1","type":"page","title":"Example","url":"https://example.com/","attached":true,"canAccessOpener":false}}}`,
		got[0],
	)
	require.JSONEq(t,
		`{"id":1,"method":"Target.setDiscoverTargets","params":{"discover":true},"result":null}`,
		got[1],
	)
	require.Equal(t, emulation.StateDiscovering, h.tr.State())
}

func TestSend_AttachToTarget(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":3,"method":"Target.attachToTarget","params":{"targetId":"A1","flatten":true}}`)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 2)

	var evt struct {
		Method string `json:"method"`
		Params struct {
			SessionID          string `json:"sessionId"`
			WaitingForDebugger *bool  `json:"waitingForDebugger"`
			TargetInfo         struct {
				TargetID string `json:"targetId"`
			} `json:"targetInfo"`
		} `json:"params"`
	}

	require.NoError(t, json.Unmarshal([]byte(got[0]), &evt))
	require.Equal(t, "Target.attachedToTarget", evt.Method)
	require.Equal(t, "A1", evt.Params.SessionID)
	require.Equal(t, "A1", evt.Params.TargetInfo.TargetID)
	require.NotNil(t, evt.Params.WaitingForDebugger)
	require.False(t, *evt.Params.WaitingForDebugger)

	require.JSONEq(t,
		`{"id":3,"method":"Target.attachToTarget","params":{"targetId":"A1","flatten":true},"result":{"sessionId":"A1"}}`,
		got[1],
	)
	require.Equal(t, emulation.StateAttached, h.tr.State())
}

func TestSend_ActivateTarget(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":4,"method":"Target.activateTarget","params":{"targetId":"A1"}}`)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 1)
	require.JSONEq(t, `{"id":4,"method":"Target.activateTarget","params":{"targetId":"A1"},"result":null}`, got[0])
}

func TestSend_ForwardSuccess(t *testing.T) {
	facade := hosttest.New(exampleTab)
	facade.HandleCommands(func(_ context.Context, _ host.Debuggee, method string, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"frameId":"F1"}`), nil
	})
	h := newHarness(t, facade)

	h.send(`{"id":2,"method":"Page.navigate","params":{"url":"https://example.com"}}`)
	h.waitPending(1)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 1)
	require.JSONEq(t,
		`{"id":2,"method":"Page.navigate","params":{"url":"https://example.com"},"result":{"frameId":"F1"}}`,
		got[0],
	)

	calls := facade.Commands()
	require.Len(t, calls, 1)
	require.Equal(t, host.Debuggee{TabID: 7}, calls[0].Target)
	require.Equal(t, "Page.navigate", calls[0].Method)
	require.JSONEq(t, `{"url":"https://example.com"}`, string(calls[0].Params))
}

func TestSend_ForwardFailure(t *testing.T) {
	tests := []struct {
		name    string
		hostErr error
		want    string
	}{
		{
			name:    "with message",
			hostErr: errors.New("No tab with given id"),
			want:    `{"id":2,"method":"Page.navigate","params":{"url":"https://example.com"},"error":{"message":"No tab with given id"}}`,
		},
		{
			name:    "without message",
			hostErr: errors.New(""),
			want:    `{"id":2,"method":"Page.navigate","params":{"url":"https://example.com"},"error":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := hosttest.New(exampleTab)
			facade.HandleCommands(func(context.Context, host.Debuggee, string, json.RawMessage) (json.RawMessage, error) {
				return nil, tt.hostErr
			})
			h := newHarness(t, facade)

			h.send(`{"id":2,"method":"Page.navigate","params":{"url":"https://example.com"}}`)
			h.waitPending(1)
			h.sched.Advance(testDelay)

			got := h.rec.all()
			require.Len(t, got, 1)
			require.JSONEq(t, tt.want, got[0])
		})
	}
}

func TestSend_ForwardEmptyResult(t *testing.T) {
	facade := hosttest.New(exampleTab)
	facade.HandleCommands(func(context.Context, host.Debuggee, string, json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})
	h := newHarness(t, facade)

	h.send(`{"id":5,"method":"Page.enable","sessionId":"A1"}`)
	h.waitPending(1)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 1)
	require.JSONEq(t, `{"id":5,"method":"Page.enable","sessionId":"A1","result":{}}`, got[0])
}

func TestSend_ForwardIgnoresCallerCancellation(t *testing.T) {
	facade := hosttest.New(exampleTab)
	facade.HandleCommands(func(ctx context.Context, _ host.Debuggee, _ string, _ json.RawMessage) (json.RawMessage, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return json.RawMessage(`{"ok":true}`), nil
	})
	h := newHarness(t, facade)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.tr.Send(ctx, []byte(`{"id":6,"method":"Runtime.enable"}`)))
	h.waitPending(1)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 1)
	require.JSONEq(t, `{"id":6,"method":"Runtime.enable","result":{"ok":true}}`, got[0])
}

func TestSend_ResponsesKeepOrderForEqualDelays(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	for _, cmd := range []string{
		`{"id":1,"method":"Target.getBrowserContexts"}`,
		`{"id":2,"method":"Target.activateTarget"}`,
		`{"id":3,"method":"Target.getBrowserContexts"}`,
	} {
		h.send(cmd)
	}

	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 3)

	for i, data := range got {
		var resp struct {
			ID int64 `json:"id"`
		}

		require.NoError(t, json.Unmarshal([]byte(data), &resp))
		require.Equal(t, int64(i+1), resp.ID)
	}
}

func TestSend_ResponseHasExactlyOneOfResultOrError(t *testing.T) {
	facade := hosttest.New(exampleTab)
	facade.HandleCommands(func(_ context.Context, _ host.Debuggee, method string, _ json.RawMessage) (json.RawMessage, error) {
		if method == "Page.reload" {
			return nil, errors.New("reload failed")
		}

		return nil, nil
	})
	h := newHarness(t, facade)

	h.send(`{"id":1,"method":"Page.enable"}`)
	h.send(`{"id":2,"method":"Page.reload"}`)
	h.send(`{"id":3,"method":"Target.activateTarget"}`)
	h.send(`{"id":4,"method":"Target.getBrowserContexts"}`)
	h.waitPending(4)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 4)

	for _, data := range got {
		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(data), &fields))

		_, hasResult := fields["result"]
		_, hasError := fields["error"]
		require.True(t, hasResult != hasError, data)
	}
}

func TestSend_Malformed(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	err := h.tr.Send(context.Background(), []byte(`{"method":"Page.enable"}`))

	_, ok := errors.AsType[*sdkerrors.MalformedCommandError](err)
	require.True(t, ok)
	require.Equal(t, 0, h.sched.Pending())
	require.Empty(t, h.facade.Commands())
}

func TestSetPacingDelay_AffectsLaterMessagesOnly(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":1,"method":"Target.getBrowserContexts"}`)
	h.tr.SetPacingDelay(100 * time.Millisecond)
	require.Equal(t, 100*time.Millisecond, h.tr.PacingDelay())
	h.send(`{"id":2,"method":"Target.getBrowserContexts"}`)

	require.Equal(t, 1, h.sched.Advance(testDelay))
	require.Equal(t, 0, h.sched.Advance(50*time.Millisecond))
	require.Equal(t, 1, h.sched.Advance(10*time.Millisecond))

	h.tr.SetPacingDelay(-time.Second)
	require.Equal(t, time.Duration(0), h.tr.PacingDelay())
}

func TestHostEvent_RelayedImmediately(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.facade.EmitEvent(host.Debuggee{TabID: 7}, "Page.loadEventFired", json.RawMessage(`{"timestamp":1.5}`))

	got := h.rec.all()
	require.Len(t, got, 1)
	require.JSONEq(t, `{"method":"Page.loadEventFired","params":{"timestamp":1.5},"sessionId":"A1"}`, got[0])
	require.Equal(t, 0, h.sched.Pending())
}

func TestHostEvent_OtherTabIgnored(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.facade.EmitEvent(host.Debuggee{TabID: 8}, "Page.loadEventFired", json.RawMessage(`{}`))
	h.facade.EmitDetach(host.Debuggee{TabID: 8}, host.DetachReasonTargetClosed)
	h.sched.Advance(time.Second)

	require.Empty(t, h.rec.all())
	require.Equal(t, emulation.StateIdle, h.tr.State())
}

func TestHostDetach_ExternalClose(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.facade.EmitDetach(host.Debuggee{TabID: 7}, host.DetachReasonCanceledByUser)
	h.facade.EmitDetach(host.Debuggee{TabID: 7}, host.DetachReasonCanceledByUser)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 2)
	require.JSONEq(t, `{"method":"Target.detachedFromTarget","params":{"sessionId":"A1","targetId":"A1"}}`, got[0])
	require.Equal(t, closeMark, got[1])

	require.Empty(t, h.facade.Detaches(), "host already detached")
	require.Equal(t, 0, h.facade.Subscribers())
	require.Equal(t, emulation.StateClosed, h.tr.State())

	require.ErrorIs(t, h.tr.Send(context.Background(), []byte(`{"id":9,"method":"Page.enable"}`)), sdkerrors.ErrTransportClosed)
	require.NoError(t, h.tr.Close(context.Background()))
	h.facade.EmitEvent(host.Debuggee{TabID: 7}, "Page.loadEventFired", json.RawMessage(`{}`))
	h.sched.Advance(time.Second)

	require.Len(t, h.rec.all(), 2, "nothing after the close notification")
	require.Empty(t, h.facade.Commands())

	select {
	case <-h.tr.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestClose_Idempotent(t *testing.T) {
	facade := hosttest.New(exampleTab)
	facade.FailDetach(errors.New("Debugger is not attached to the tab"))
	h := newHarness(t, facade)

	require.NoError(t, h.tr.Close(context.Background()))
	require.NoError(t, h.tr.Close(context.Background()))
	h.sched.Advance(testDelay)
	require.NoError(t, h.tr.Close(context.Background()))

	got := h.rec.all()
	require.Len(t, got, 2)
	require.Contains(t, got[0], "Target.detachedFromTarget")
	require.Equal(t, closeMark, got[1])
	require.Len(t, facade.Detaches(), 1)
	require.Equal(t, 0, facade.Subscribers())
}

func TestClose_RejectsSendImmediately(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	require.NoError(t, h.tr.Close(context.Background()))
	require.ErrorIs(t, h.tr.Send(context.Background(), []byte(`{"id":1,"method":"Page.enable"}`)), sdkerrors.ErrTransportClosed)
	require.Empty(t, h.facade.Commands())
}

func TestClose_DropsInFlightForward(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	require.NoError(t, h.tr.Close(context.Background()))

	// A command that passed the closed check in Send before Close began.
	h.tr.dispatch(context.Background(), &message.Command{ID: 1, Method: "Page.enable"})

	require.Empty(t, h.facade.Commands())
	require.Equal(t, 1, h.sched.Pending())

	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 2)
	require.Contains(t, got[0], "Target.detachedFromTarget")
	require.Equal(t, closeMark, got[1])
}

func TestCloseTarget_ThenClose_NoDoubleDetach(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":1,"method":"Target.attachToTarget","params":{"targetId":"A1"}}`)
	h.send(`{"id":2,"method":"Target.closeTarget","params":{"targetId":"A1"}}`)
	require.NoError(t, h.tr.Close(context.Background()))

	h.sched.Advance(testDelay)
	h.sched.Advance(testDelay)
	require.NoError(t, h.tr.Close(context.Background()))
	h.sched.Advance(time.Second)

	got := h.rec.all()
	require.Len(t, got, 5)
	require.Contains(t, got[0], "Target.attachedToTarget")
	require.JSONEq(t, `{"id":1,"method":"Target.attachToTarget","params":{"targetId":"A1"},"result":{"sessionId":"A1"}}`, got[1])
	require.JSONEq(t, `{"id":2,"method":"Target.closeTarget","params":{"targetId":"A1"},"result":{"success":true}}`, got[2])
	require.JSONEq(t, `{"method":"Target.detachedFromTarget","params":{"sessionId":"A1","targetId":"A1"}}`, got[3])
	require.Equal(t, closeMark, got[4])

	require.Len(t, h.facade.Detaches(), 1)
	require.Equal(t, 1, h.rec.closes())
}

func TestCloseTarget_ThenHostDetach(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.send(`{"id":1,"method":"Target.closeTarget"}`)
	h.facade.EmitDetach(host.Debuggee{TabID: 7}, host.DetachReasonTargetClosed)
	h.sched.Advance(testDelay)
	h.sched.Advance(testDelay)

	got := h.rec.all()
	require.Len(t, got, 3)
	require.Contains(t, got[1], "Target.detachedFromTarget")
	require.Equal(t, closeMark, got[2])
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	second := &recorder{}
	unsubscribe := h.tr.Subscribe(second)

	h.facade.EmitEvent(host.Debuggee{TabID: 7}, "Page.frameNavigated", json.RawMessage(`{}`))
	unsubscribe()
	unsubscribe()
	h.facade.EmitEvent(host.Debuggee{TabID: 7}, "Page.loadEventFired", json.RawMessage(`{}`))

	require.Len(t, second.all(), 1)
	require.Len(t, h.rec.all(), 2)

	require.NoError(t, h.tr.Close(context.Background()))
	h.sched.Advance(testDelay)

	require.Len(t, second.all(), 1, "unsubscribed listener gets no close notification")

	var closed bool

	h.tr.Subscribe(ListenerFuncs{Close: func() { closed = true }})
	require.True(t, closed, "late subscriber is told the adapter is closed")
}

func TestListenerMayCloseFromCallback(t *testing.T) {
	h := newHarness(t, hosttest.New(exampleTab))

	h.tr.Subscribe(ListenerFuncs{Message: func([]byte) {
		require.NoError(t, h.tr.Close(context.Background()))
	}})

	h.facade.EmitEvent(host.Debuggee{TabID: 7}, "Inspector.detached", json.RawMessage(`{}`))
	h.sched.Advance(testDelay)

	require.Equal(t, 1, h.rec.closes())
}

func TestWallClockScheduler(t *testing.T) {
	facade := hosttest.New(exampleTab)
	delay := 5 * time.Millisecond

	tr, err := New(context.Background(), facade, 7, &config.Options{PacingDelay: &delay})
	require.NoError(t, err)

	responses := make(chan string, 4)
	closed := make(chan struct{})

	tr.Subscribe(ListenerFuncs{
		Message: func(data []byte) { responses <- string(data) },
		Close:   func() { close(closed) },
	})

	require.NoError(t, tr.Send(context.Background(), []byte(`{"id":1,"method":"Page.enable"}`)))

	select {
	case got := <-responses:
		require.JSONEq(t, `{"id":1,"method":"Page.enable","result":{}}`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no response")
	}

	require.NoError(t, tr.Close(context.Background()))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("no close notification")
	}

	<-tr.Done()
}
