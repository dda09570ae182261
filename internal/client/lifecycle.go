package client

import (
	"log"
	"sync"

	"github.com/quorum-chat/quorum/internal/protocol"
)

// Status represents the connection lifecycle state
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusError
	StatusFailed
)

// String returns the canonical name of the status
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lifecycle owns the connection status state machine. Status changes only
// through the strict transition table below; a stale lifecycle event that
// does not match a valid outgoing edge of the current state is ignored.
//
//	disconnected -> connecting    (connect attempt)
//	connecting   -> connected     (connection:success)
//	connecting   -> error         (connection:error)
//	connected    -> reconnecting  (connection:lost)
//	reconnecting -> connected     (connection:success)
//	reconnecting -> failed        (connection:failed)
//	any          -> disconnected  (credentials cleared)
type Lifecycle struct {
	mu       sync.RWMutex
	status   Status
	epoch    int
	attempts int

	// onConnected fires exactly once per entry into the connected state,
	// carrying the new connection epoch. Used to trigger the initial
	// full-list refresh.
	onConnected func(epoch int)

	// onChange fires after every accepted transition
	onChange func(Status)
}

// NewLifecycle creates a lifecycle manager in the disconnected state
func NewLifecycle() *Lifecycle {
	return &Lifecycle{status: StatusDisconnected}
}

// SetOnConnected installs the connected-entry hook
func (l *Lifecycle) SetOnConnected(fn func(epoch int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConnected = fn
}

// SetOnChange installs the status-change hook
func (l *Lifecycle) SetOnChange(fn func(Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Status returns the current status
func (l *Lifecycle) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Epoch returns the current connection epoch. It increments on every entry
// into connected; responses carrying an older epoch are stale.
func (l *Lifecycle) Epoch() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

// Attempts returns the last observed reconnect attempt count
func (l *Lifecycle) Attempts() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.attempts
}

// BeginConnect transitions disconnected -> connecting
func (l *Lifecycle) BeginConnect() bool {
	return l.transition(StatusDisconnected, StatusConnecting)
}

// CredentialsCleared transitions any state -> disconnected. This is the only
// way out of the terminal failed state.
func (l *Lifecycle) CredentialsCleared() {
	l.mu.Lock()
	prev := l.status
	l.status = StatusDisconnected
	l.attempts = 0
	onChange := l.onChange
	l.mu.Unlock()

	if prev != StatusDisconnected && onChange != nil {
		onChange(StatusDisconnected)
	}
}

// HandleEvent applies one transport lifecycle event to the state machine
func (l *Lifecycle) HandleEvent(ev *protocol.Event) {
	switch ev.Type {
	case protocol.EventConnectionSuccess:
		// Valid from connecting (first connect) and reconnecting (recovery)
		if !l.transition(StatusConnecting, StatusConnected) &&
			!l.transition(StatusReconnecting, StatusConnected) {
			l.ignore(ev)
		}

	case protocol.EventConnectionError:
		if !l.transition(StatusConnecting, StatusError) {
			l.ignore(ev)
		}

	case protocol.EventConnectionLost:
		if !l.transition(StatusConnected, StatusReconnecting) {
			l.ignore(ev)
		}

	case protocol.EventConnectionReconnecting:
		// Not a transition: the transport owns backoff, this manager only
		// observes the attempt counter. A stale report outside the
		// reconnecting state must not perturb it.
		if l.Status() != StatusReconnecting {
			l.ignore(ev)
			return
		}
		var payload protocol.ConnectionReconnectingPayload
		if err := protocol.Decode(ev, &payload); err == nil {
			l.mu.Lock()
			l.attempts = payload.Attempt
			l.mu.Unlock()
		}

	case protocol.EventConnectionFailed:
		if !l.transition(StatusReconnecting, StatusFailed) {
			l.ignore(ev)
		}
	}
}

// transition moves from -> to if the machine is currently in from
func (l *Lifecycle) transition(from, to Status) bool {
	l.mu.Lock()
	if l.status != from {
		l.mu.Unlock()
		return false
	}
	l.status = to

	var onConnected func(int)
	epoch := 0
	if to == StatusConnected {
		l.epoch++
		l.attempts = 0
		epoch = l.epoch
		onConnected = l.onConnected
	}
	onChange := l.onChange
	l.mu.Unlock()

	if onChange != nil {
		onChange(to)
	}
	if onConnected != nil {
		onConnected(epoch)
	}
	return true
}

// ignore logs an out-of-order lifecycle event that matched no valid edge
func (l *Lifecycle) ignore(ev *protocol.Event) {
	log.Printf("Ignoring stale %s event in state %s", ev.Type, l.Status())
}
