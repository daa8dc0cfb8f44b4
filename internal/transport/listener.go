package transport

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Listener observes an adapter's outbound traffic.
//
// OnMessage receives serialized Response and Event envelopes. OnClose is
// invoked exactly once, after which OnMessage is never invoked again.
// Calls to one adapter's listeners never overlap.
type Listener interface {
	OnMessage(data []byte)
	OnClose()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Message func(data []byte)
	Close   func()
}

// Compile-time verification that ListenerFuncs implements Listener.
var _ Listener = ListenerFuncs{}

// OnMessage implements Listener.
func (f ListenerFuncs) OnMessage(data []byte) {
	if f.Message != nil {
		f.Message(data)
	}
}

// OnClose implements Listener.
func (f ListenerFuncs) OnClose() {
	if f.Close != nil {
		f.Close()
	}
}

// registration is one subscribed listener.
type registration struct {
	id       string
	listener Listener
}

// listenerSet keeps listeners in subscription order.
type listenerSet struct {
	mu      sync.RWMutex
	entries []registration
	drained bool
}

// add registers l and returns its registration id. It returns false once the
// set has been drained.
func (s *listenerSet) add(l Listener) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drained {
		return "", false
	}

	id := ulid.Make().String()
	s.entries = append(s.entries, registration{id: id, listener: l})

	return id, true
}

// remove unregisters the listener with the given id.
func (s *listenerSet) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.entries {
		if r.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)

			return true
		}
	}

	return false
}

// snapshot returns the current listeners.
func (s *listenerSet) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listener, len(s.entries))
	for i, r := range s.entries {
		out[i] = r.listener
	}

	return out
}

// drain removes and returns every listener. Later adds are refused.
func (s *listenerSet) drain() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drained = true

	out := make([]Listener, len(s.entries))
	for i, r := range s.entries {
		out[i] = r.listener
	}

	s.entries = nil

	return out
}
