package client

import (
	"testing"

	"github.com/quorum-chat/quorum/internal/protocol"
)

func TestRegistrySubscribeAndDispose(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)

	calls := 0
	dispose := r.Subscribe(protocol.EventMessageReceived, func(*protocol.Event) {
		calls++
	})

	ft.Fire(protocol.EventMessageReceived, nil)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	dispose()
	ft.Fire(protocol.EventMessageReceived, nil)
	if calls != 1 {
		t.Errorf("calls after dispose = %d, want 1", calls)
	}
}

func TestDisposerIsIdempotent(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)

	d1 := r.Subscribe(protocol.EventMessageReceived, func(*protocol.Event) {})
	d2 := r.Subscribe(protocol.EventMessageReceived, func(*protocol.Event) {})

	// Disposing d1 twice must not touch d2's registration
	d1()
	d1()

	if got := ft.handlerCount(protocol.EventMessageReceived); got != 1 {
		t.Errorf("handler count = %d, want 1", got)
	}
	d2()
	if got := ft.handlerCount(protocol.EventMessageReceived); got != 0 {
		t.Errorf("handler count after d2 = %d, want 0", got)
	}
}

func TestScopeCloseDisposesAll(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)
	scope := r.NewScope()

	scope.Subscribe(protocol.EventMessageReceived, func(*protocol.Event) {})
	scope.Subscribe(protocol.EventConversationsUpdated, func(*protocol.Event) {})
	scope.Subscribe(protocol.EventConversationsUpdated, func(*protocol.Event) {})

	scope.Close()

	if got := ft.handlerCount(protocol.EventMessageReceived); got != 0 {
		t.Errorf("message handlers = %d, want 0", got)
	}
	if got := ft.handlerCount(protocol.EventConversationsUpdated); got != 0 {
		t.Errorf("conversation handlers = %d, want 0", got)
	}

	// Close is idempotent
	scope.Close()
}

func TestScopeSubscribeAfterClose(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)
	scope := r.NewScope()
	scope.Close()

	scope.Subscribe(protocol.EventMessageReceived, func(*protocol.Event) {})

	if got := ft.handlerCount(protocol.EventMessageReceived); got != 0 {
		t.Errorf("handler count = %d, want 0 (subscription must not outlive its scope)", got)
	}
}

func TestDispatchInRegistrationOrder(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		r.Subscribe(protocol.EventMessageReceived, func(*protocol.Event) {
			order = append(order, i)
		})
	}

	ft.Fire(protocol.EventMessageReceived, nil)
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("dispatch order = %v, want [0 1 2]", order)
	}
}
