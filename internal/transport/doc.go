// Package transport implements the Transport Adapter: a CDP message
// transport on top of a single-target host debugging facade.
//
// The adapter accepts serialized CDP commands through Send. Commands of the
// Target domain that concern multiple targets are answered locally by an
// emulation state machine; every other command is forwarded to the facade.
// Responses and synthetic Target events are delivered to listeners through a
// paced scheduler, while debugging events relayed from the host are delivered
// immediately, tagged with the adapter's session id.
//
// Lifecycle:
//
//	t, err := transport.New(ctx, facade, tabID, opts)
//	unsubscribe := t.Subscribe(listener)
//	err = t.Send(ctx, data)
//	err = t.Close(ctx)
//
// Adapters are single-use: once closing has started, Send returns
// errors.ErrTransportClosed.
package transport
