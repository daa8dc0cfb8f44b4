// Package wsbridge serves an adapter to a remote CDP client over WebSocket.
//
// Each text frame received from the client is one serialized command; each
// adapter message is sent back as one text frame. The bridge accepts one
// client at a time per adapter. When the adapter closes, the WebSocket is
// closed with a normal status; when the client goes away, the adapter is
// closed.
package wsbridge

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/cdpshim/internal/errors"
	"github.com/wagiedev/cdpshim/internal/transport"
)

// Adapter is the subset of the transport adapter used by the bridge.
type Adapter interface {
	Send(ctx context.Context, data []byte) error
	Close(ctx context.Context) error
	Subscribe(l transport.Listener) (unsubscribe func())
}

// Compile-time verification that Handler implements http.Handler.
var _ http.Handler = (*Handler)(nil)

// Handler upgrades requests to WebSocket connections bridged to an adapter.
type Handler struct {
	log     *slog.Logger
	adapter Adapter
	accept  *websocket.AcceptOptions

	mu     sync.Mutex
	active bool
}

// NewHandler creates a bridge for the adapter. accept may be nil.
func NewHandler(log *slog.Logger, adapter Adapter, accept *websocket.AcceptOptions) *Handler {
	return &Handler{
		log:     log.With("component", "wsbridge"),
		adapter: adapter,
		accept:  accept,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.claim() {
		h.log.Warn("Rejecting second client", "remote", r.RemoteAddr)
		http.Error(w, "adapter already has a client", http.StatusConflict)

		return
	}
	defer h.release()

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)

		return
	}

	h.log.Info("Client connected", "remote", r.RemoteAddr)

	h.serve(r.Context(), conn)
}

func (h *Handler) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active {
		return false
	}

	h.active = true

	return true
}

func (h *Handler) release() {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

// serve pumps frames in both directions until either side goes away.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn) {
	box := newOutbox()

	unsubscribe := h.adapter.Subscribe(transport.ListenerFuncs{
		Message: box.push,
		Close:   box.close,
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.readPump(gctx, conn)
	})

	g.Go(func() error {
		return h.writePump(gctx, conn, box)
	})

	err := g.Wait()

	if box.isClosed() {
		h.log.Info("Client bridge finished after adapter close")

		return
	}

	h.log.Info("Client disconnected, closing adapter", "reason", err)

	if closeErr := h.adapter.Close(context.Background()); closeErr != nil {
		h.log.Warn("Failed to close adapter", "error", closeErr)
	}

	_ = conn.CloseNow()
}

// readPump forwards client frames to the adapter.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageText {
			h.log.Debug("Ignoring binary frame", "size", len(data))

			continue
		}

		err = h.adapter.Send(ctx, data)

		switch {
		case err == nil:
		case stderrors.Is(err, errors.ErrTransportClosed):
			h.log.Debug("Dropping command sent while closing")
		default:
			if _, ok := stderrors.AsType[*errors.MalformedCommandError](err); ok {
				h.log.Warn("Dropping malformed command", "error", err)

				continue
			}

			return err
		}
	}
}

// writePump forwards adapter messages to the client and closes the socket
// normally once the adapter has closed.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, box *outbox) error {
	for {
		for _, data := range box.drain() {
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return err
			}
		}

		if box.isClosed() && box.empty() {
			return conn.Close(websocket.StatusNormalClosure, "target detached")
		}

		select {
		case <-box.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
