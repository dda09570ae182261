package client

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quorum-chat/quorum/internal/protocol"
)

// Credentials are presented to the backend when opening the transport
type Credentials struct {
	Token string
}

// Handler receives one decoded event
type Handler func(*protocol.Event)

// HandlerID identifies a registered handler so it can be removed
type HandlerID int

// Transport is the persistent bidirectional connection to the backend.
// Implementations deliver all events from a single goroutine, synthesize the
// connection:* lifecycle events, and own the reconnect/backoff policy. The
// lifecycle manager only observes attempts.
type Transport interface {
	Connect(creds Credentials) error
	Close()
	On(t protocol.EventType, h Handler) HandlerID
	Off(t protocol.EventType, id HandlerID)
	Emit(t protocol.EventType, data interface{}) error
	Connected() bool
	Attempts() int
}

// WebSocketTransport implements Transport over a gorilla/websocket connection
type WebSocketTransport struct {
	serverAddr string
	strategy   *ReconnectStrategy

	conn      *websocket.Conn
	connected bool
	closed    bool
	attempts  int
	creds     Credentials

	handlers  map[protocol.EventType]map[HandlerID]Handler
	nextID    HandlerID
	handlerMu sync.Mutex

	send chan *protocol.Event
	done chan struct{}

	mu sync.RWMutex
}

// NewWebSocketTransport creates a transport for the given server address
func NewWebSocketTransport(serverAddr string) *WebSocketTransport {
	return &WebSocketTransport{
		serverAddr: serverAddr,
		strategy:   DefaultReconnectStrategy(),
		handlers:   make(map[protocol.EventType]map[HandlerID]Handler),
		send:       make(chan *protocol.Event, 256),
		done:       make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
// A connect failure is both returned and emitted as connection:error.
func (t *WebSocketTransport) Connect(creds Credentials) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	t.closed = false
	t.creds = creds
	t.mu.Unlock()

	if err := t.dial(); err != nil {
		t.emitLocal(protocol.EventConnectionError, &protocol.ConnectionErrorPayload{Error: err.Error()})
		return err
	}

	t.emitLocal(protocol.EventConnectionSuccess, nil)
	return nil
}

// dial opens the socket and starts read/write pumps
func (t *WebSocketTransport) dial() error {
	u, err := url.Parse(t.serverAddr)
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}
	if u.Scheme == "http" {
		u.Scheme = "ws"
	} else if u.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}

	header := http.Header{}
	t.mu.RLock()
	if t.creds.Token != "" {
		header.Set("Authorization", "Bearer "+t.creds.Token)
	}
	t.mu.RUnlock()

	conn, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		// Close raced the dial; do not resurrect the connection
		t.mu.Unlock()
		conn.Close()
		return fmt.Errorf("transport closed")
	}
	t.conn = conn
	t.connected = true
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.readPump()
	go t.writePump()
	return nil
}

// Close shuts the transport down without triggering reconnection. Closing
// during an outage also stops the running reconnect loop.
func (t *WebSocketTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if !t.connected {
		return
	}
	t.connected = false
	close(t.done)

	if t.conn != nil {
		t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.conn.Close()
		t.conn = nil
	}
}

// Connected returns the connection state
func (t *WebSocketTransport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Attempts returns the reconnect attempt counter for the current outage
func (t *WebSocketTransport) Attempts() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attempts
}

// On registers a handler for an event type and returns its id
func (t *WebSocketTransport) On(ev protocol.EventType, h Handler) HandlerID {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()

	t.nextID++
	id := t.nextID
	if t.handlers[ev] == nil {
		t.handlers[ev] = make(map[HandlerID]Handler)
	}
	t.handlers[ev][id] = h
	return id
}

// Off removes a previously registered handler
func (t *WebSocketTransport) Off(ev protocol.EventType, id HandlerID) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	delete(t.handlers[ev], id)
}

// Emit queues an outbound event
func (t *WebSocketTransport) Emit(ev protocol.EventType, data interface{}) error {
	t.mu.RLock()
	connected := t.connected
	t.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	event, err := protocol.NewEvent(ev, data)
	if err != nil {
		return err
	}

	select {
	case t.send <- event:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// dispatch invokes all handlers registered for the event, in registration
// order. Called only from the event-delivery goroutine.
func (t *WebSocketTransport) dispatch(ev *protocol.Event) {
	t.handlerMu.Lock()
	registered := t.handlers[ev.Type]
	ordered := make([]Handler, 0, len(registered))
	ids := make([]HandlerID, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	for _, id := range ids {
		ordered = append(ordered, registered[id])
	}
	t.handlerMu.Unlock()

	for _, h := range ordered {
		h(ev)
	}
}

// emitLocal synthesizes a lifecycle event and dispatches it to handlers
func (t *WebSocketTransport) emitLocal(ev protocol.EventType, data interface{}) {
	event, err := protocol.NewEvent(ev, data)
	if err != nil {
		log.Printf("Failed to build %s event: %v", ev, err)
		return
	}
	t.dispatch(event)
}

// readPump reads events from the WebSocket until the connection drops
func (t *WebSocketTransport) readPump() {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return
	}

	conn.SetReadLimit(512 * 1024) // 512KB
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.handleDrop(err)
			return
		}

		var event protocol.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Failed to parse event: %v", err)
			continue
		}

		t.dispatch(&event)
	}
}

// writePump writes queued events and keep-alive pings
func (t *WebSocketTransport) writePump() {
	t.mu.RLock()
	conn := t.conn
	done := t.done
	t.mu.RUnlock()
	if conn == nil {
		return
	}

	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer ticker.Stop()

	for {
		select {
		case event := <-t.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// handleDrop reacts to a broken read: emits connection:lost and runs the
// reconnect loop. Intentional Close does not reach this path.
func (t *WebSocketTransport) handleDrop(err error) {
	t.mu.Lock()
	if !t.connected {
		// Closed deliberately
		t.mu.Unlock()
		return
	}
	t.connected = false
	close(t.done)
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.mu.Unlock()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		log.Printf("WebSocket error: %v", err)
	}

	t.emitLocal(protocol.EventConnectionLost, &protocol.ConnectionLostPayload{Reason: err.Error()})
	t.reconnectLoop()
}

// reconnectLoop retries the dial with backoff until it succeeds, the retry
// budget is exhausted, or the transport is closed
func (t *WebSocketTransport) reconnectLoop() {
	for attempt := 1; t.strategy.ShouldRetry(attempt - 1); attempt++ {
		if t.isClosed() {
			return
		}

		t.mu.Lock()
		t.attempts = attempt
		t.mu.Unlock()

		t.emitLocal(protocol.EventConnectionReconnecting, &protocol.ConnectionReconnectingPayload{Attempt: attempt})
		time.Sleep(t.strategy.NextDelay(attempt - 1))

		if t.isClosed() {
			return
		}
		if err := t.dial(); err != nil {
			log.Printf("Reconnect attempt %d failed: %v", attempt, err)
			continue
		}

		t.mu.Lock()
		t.attempts = 0
		t.mu.Unlock()
		t.emitLocal(protocol.EventConnectionSuccess, nil)
		return
	}

	t.emitLocal(protocol.EventConnectionFailed, nil)
}

// isClosed reports whether Close has been called since the last Connect
func (t *WebSocketTransport) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
