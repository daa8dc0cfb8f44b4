// Package cdpshim lets a Chrome DevTools Protocol client drive a browser tab
// through a host that only exposes a narrow, single-target debugging API.
//
// The host API is described by Facade: attach, detach, sendCommand,
// getTargets and two notification streams. The adapter returned by New
// speaks CDP on the other side. It fakes the multi-target parts of the Target
// domain, forwards every other command to the host, relays the host's
// debugging events tagged with a session id, and paces responses so bursts of
// commands do not overwhelm the host.
//
// # Basic Usage
//
//	t, err := cdpshim.New(ctx, facade, tabID,
//	    cdpshim.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close(ctx)
//
//	unsubscribe := t.Subscribe(cdpshim.ListenerFuncs{
//	    Message: func(data []byte) { fmt.Println(string(data)) },
//	    Close:   func() { fmt.Println("detached") },
//	})
//	defer unsubscribe()
//
//	err = t.Send(ctx, []byte(`{"id":1,"method":"Page.navigate","params":{"url":"https://example.com"}}`))
//
// Responses and synthetic Target events arrive after the pacing delay
// (40ms by default, see WithPacingDelay). Host events arrive immediately.
//
// # Scoped Lifecycle
//
// WithTransport creates an adapter, runs a callback and closes the adapter:
//
//	err := cdpshim.WithTransport(ctx, facade, tabID, func(t *cdpshim.Transport) error {
//	    return t.Send(ctx, cmd)
//	})
//
// # Other Front Ends
//
// NewChromedpTransport exposes an adapter as a chromedp.Transport,
// NewWebSocketHandler serves it to a remote CDP client over WebSocket, and
// NewMCPServer exposes it as Model Context Protocol tools.
//
// # Error Handling
//
//	t, err := cdpshim.New(ctx, facade, tabID)
//	if err != nil {
//	    if attachErr, ok := errors.AsType[*cdpshim.AttachError](err); ok {
//	        log.Fatalf("debugger refused for tab %s: %v", attachErr.TabID, attachErr.Err)
//	    }
//	    if _, ok := errors.AsType[*cdpshim.TargetNotFoundError](err); ok {
//	        log.Fatal("tab went away before it could be described")
//	    }
//	    log.Fatal(err)
//	}
//
// Send returns *MalformedCommandError for invalid input and ErrTransportClosed
// once closing has started. Host failures of forwarded commands never surface
// as errors: they arrive as the error member of the response envelope.
package cdpshim
