package client

import (
	"sync"
	"testing"
	"time"

	"github.com/quorum-chat/quorum/internal/protocol"
)

// fakeTransport is an in-memory Transport for tests. Fire delivers an event
// to registered handlers synchronously, the way the real transport delivers
// from its read loop.
type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[protocol.EventType]map[HandlerID]Handler
	nextID    HandlerID
	connected bool
	attempts  int
	creds     Credentials
	emitted   []*protocol.Event
	connectFn func(Credentials) error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[protocol.EventType]map[HandlerID]Handler)}
}

func (f *fakeTransport) Connect(creds Credentials) error {
	f.mu.Lock()
	f.creds = creds
	fn := f.connectFn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(creds); err != nil {
			f.Fire(protocol.EventConnectionError, &protocol.ConnectionErrorPayload{Error: err.Error()})
			return err
		}
	}

	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.Fire(protocol.EventConnectionSuccess, nil)
	return nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeTransport) On(ev protocol.EventType, h Handler) HandlerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if f.handlers[ev] == nil {
		f.handlers[ev] = make(map[HandlerID]Handler)
	}
	f.handlers[ev][f.nextID] = h
	return f.nextID
}

func (f *fakeTransport) Off(ev protocol.EventType, id HandlerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers[ev], id)
}

func (f *fakeTransport) Emit(ev protocol.EventType, data interface{}) error {
	event, err := protocol.NewEvent(ev, data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// Fire builds an event and delivers it to every registered handler
func (f *fakeTransport) Fire(ev protocol.EventType, data interface{}) {
	event, err := protocol.NewEvent(ev, data)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	registered := make([]Handler, 0, len(f.handlers[ev]))
	ids := make([]HandlerID, 0, len(f.handlers[ev]))
	for id := range f.handlers[ev] {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	for _, id := range ids {
		registered = append(registered, f.handlers[ev][id])
	}
	f.mu.Unlock()

	for _, h := range registered {
		h(event)
	}
}

// handlerCount reports the live registrations for an event
func (f *fakeTransport) handlerCount(ev protocol.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[ev])
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestReconnectStrategy(t *testing.T) {
	rs := DefaultReconnectStrategy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // capped at MaxDelay
		{-1, 1 * time.Second}, // clamped
	}
	for _, tt := range tests {
		if got := rs.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	if !rs.ShouldRetry(5) {
		t.Error("ShouldRetry(5) = false, want true")
	}
	if rs.ShouldRetry(6) {
		t.Error("ShouldRetry(6) = true, want false")
	}
}
