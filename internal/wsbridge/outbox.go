package wsbridge

import "sync"

// outbox buffers adapter messages for the write pump without blocking the
// adapter's delivery path.
type outbox struct {
	mu      sync.Mutex
	pending [][]byte
	closed  bool
	notify  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (b *outbox) push(data []byte) {
	b.mu.Lock()
	b.pending = append(b.pending, data)
	b.mu.Unlock()

	b.wake()
}

func (b *outbox) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wake()
}

func (b *outbox) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *outbox) drain() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.pending
	b.pending = nil

	return out
}

func (b *outbox) empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.pending) == 0
}

func (b *outbox) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}
