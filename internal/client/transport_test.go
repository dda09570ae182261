package client

import (
	"sync"
	"testing"

	"github.com/quorum-chat/quorum/internal/protocol"
)

func TestCloseStopsReconnectLoop(t *testing.T) {
	tr := NewWebSocketTransport("ws://127.0.0.1:1")

	var mu sync.Mutex
	var fired []protocol.EventType
	record := func(ev *protocol.Event) {
		mu.Lock()
		fired = append(fired, ev.Type)
		mu.Unlock()
	}
	tr.On(protocol.EventConnectionReconnecting, record)
	tr.On(protocol.EventConnectionSuccess, record)
	tr.On(protocol.EventConnectionFailed, record)

	// Close lands mid-outage, before the loop's next retry
	tr.Close()
	tr.reconnectLoop()

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 0 {
		t.Errorf("closed transport emitted %v, want nothing", fired)
	}
	if tr.Connected() {
		t.Error("closed transport reports connected")
	}
}

func TestConnectResetsClosed(t *testing.T) {
	tr := NewWebSocketTransport("://bad address")
	tr.Close()

	// Connect after Close must attempt the dial again rather than staying
	// permanently dead; the malformed address makes it fail fast without
	// touching the network.
	err := tr.Connect(Credentials{Token: "tok"})
	if err == nil {
		t.Fatal("Connect to malformed address succeeded")
	}
	if tr.isClosed() {
		t.Error("Connect did not clear the closed flag")
	}
}
