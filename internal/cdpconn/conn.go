// Package cdpconn exposes an adapter as a chromedp.Transport, so code written
// against chromedp's message-level transport can drive a host-debugged tab.
package cdpconn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/chromedp"
	jsonv2 "github.com/go-json-experiment/json"

	"github.com/wagiedev/cdpshim/internal/transport"
)

// Adapter is the subset of the transport adapter used by Conn.
type Adapter interface {
	Send(ctx context.Context, data []byte) error
	Close(ctx context.Context) error
	Subscribe(l transport.Listener) (unsubscribe func())
}

// Compile-time verification that Conn implements chromedp.Transport.
var _ chromedp.Transport = (*Conn)(nil)

// Conn implements chromedp.Transport over an adapter.
//
// Outbound adapter messages are buffered without bound until Read consumes
// them. Once the adapter has closed and the buffer is drained, Read returns
// io.EOF.
type Conn struct {
	log     *slog.Logger
	adapter Adapter

	mu      sync.Mutex
	pending [][]byte
	closed  bool
	notify  chan struct{}

	unsubscribe func()
	closeOnce   sync.Once
}

// New subscribes to the adapter and returns a connection over it.
func New(log *slog.Logger, adapter Adapter) *Conn {
	c := &Conn{
		log:     log.With("component", "cdpconn"),
		adapter: adapter,
		notify:  make(chan struct{}, 1),
	}

	c.unsubscribe = adapter.Subscribe(transport.ListenerFuncs{
		Message: c.push,
		Close:   c.markClosed,
	})

	return c
}

func (c *Conn) push(data []byte) {
	c.mu.Lock()
	c.pending = append(c.pending, data)
	c.mu.Unlock()

	c.wake()
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.log.Debug("Adapter closed")
	c.wake()
}

func (c *Conn) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// next pops the oldest buffered message.
func (c *Conn) next() ([]byte, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) > 0 {
		data := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]

		return data, true, c.closed
	}

	return nil, false, c.closed
}

// Read implements chromedp.Transport. It blocks until a message is available,
// the adapter has closed (io.EOF), or ctx is done. Responses are returned
// without their echoed method.
func (c *Conn) Read(ctx context.Context, msg *cdproto.Message) error {
	for {
		data, ok, closed := c.next()
		if ok {
			*msg = cdproto.Message{}
			if err := jsonv2.Unmarshal(data, msg, chromedp.DefaultUnmarshalOptions); err != nil {
				return fmt.Errorf("decode message: %w", err)
			}

			// chromedp routes anything with a method as an event.
			if msg.ID != 0 {
				msg.Method = ""
			}

			return nil
		}

		if closed {
			return io.EOF
		}

		select {
		case <-c.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Write implements chromedp.Transport.
func (c *Conn) Write(ctx context.Context, msg *cdproto.Message) error {
	data, err := jsonv2.Marshal(msg, chromedp.DefaultMarshalOptions)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.log.Debug("Writing message", "id", msg.ID, "method", msg.Method)

	return c.adapter.Send(ctx, data)
}

// Close implements chromedp.Transport. It closes the adapter; buffered
// messages, including the teardown events, remain readable.
func (c *Conn) Close() error {
	var err error

	c.closeOnce.Do(func() {
		err = c.adapter.Close(context.Background())
	})

	return err
}

// Detach stops buffering adapter messages without closing the adapter.
func (c *Conn) Detach() {
	c.unsubscribe()
	c.markClosed()
}
