package client

import (
	"sync"

	"github.com/quorum-chat/quorum/internal/protocol"
)

// Disposer removes exactly the subscription that produced it. Calling it more
// than once is a no-op.
type Disposer func()

// Registry is the single fan-out point between the transport and the state
// stores. Every consumer subscribes through it; nothing registers with the
// transport directly.
type Registry struct {
	transport Transport
}

// NewRegistry creates a registry over the given transport
func NewRegistry(transport Transport) *Registry {
	return &Registry{transport: transport}
}

// Subscribe registers a handler for an event type and returns its disposer
func (r *Registry) Subscribe(ev protocol.EventType, h Handler) Disposer {
	id := r.transport.On(ev, h)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.transport.Off(ev, id)
		})
	}
}

// NewScope creates a subscription scope tied to one consumer's lifetime
func (r *Registry) NewScope() *Scope {
	return &Scope{registry: r}
}

// Scope collects every subscription made during a consumer's lifetime and
// disposes them all on Close. A subscription can never outlive its scope:
// Subscribe after Close is disposed immediately.
type Scope struct {
	registry  *Registry
	mu        sync.Mutex
	disposers []Disposer
	closed    bool
}

// Subscribe registers a handler whose lifetime is bound to the scope
func (s *Scope) Subscribe(ev protocol.EventType, h Handler) Disposer {
	d := s.registry.Subscribe(ev, h)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d()
		return d
	}
	s.disposers = append(s.disposers, d)
	s.mu.Unlock()
	return d
}

// Close disposes every subscription made through the scope
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for _, d := range disposers {
		d()
	}
}
