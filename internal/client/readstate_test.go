package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

func TestObserveActiveConversationIsRead(t *testing.T) {
	rt := NewReadTracker()
	convID := uuid.New()
	rt.Activate(convID)

	m := &models.Message{ConversationID: convID, Timestamp: time.Now().Add(time.Millisecond)}
	rt.Observe(m)
	if !m.Read {
		t.Error("message in active conversation not read")
	}
}

func TestObserveInactiveConversationIsUnread(t *testing.T) {
	rt := NewReadTracker()
	rt.Activate(uuid.New())

	m := &models.Message{ConversationID: uuid.New(), Timestamp: time.Now()}
	rt.Observe(m)
	if m.Read {
		t.Error("message in inactive conversation marked read")
	}
}

func TestSwitchingAwayFreezesReadState(t *testing.T) {
	rt := NewReadTracker()
	a, b := uuid.New(), uuid.New()

	rt.Activate(a)
	seen := &models.Message{ConversationID: a, Timestamp: time.Now().Add(time.Millisecond)}
	rt.Observe(seen)

	rt.Activate(b)

	// What was read while A was active stays read
	if !rt.IsRead(a, seen.Timestamp) {
		t.Error("previously observed message became unread after switch")
	}

	// A message delivered to A after the switch is not retroactively read
	late := &models.Message{ConversationID: a, Timestamp: time.Now().Add(time.Second)}
	rt.Observe(late)
	if late.Read {
		t.Error("message delivered after switch marked read")
	}
}

func TestReentryKeepsUnreportedDeliveriesUnread(t *testing.T) {
	rt := NewReadTracker()
	a, b := uuid.New(), uuid.New()

	// A message lands in A while B is active
	rt.Activate(b)
	delivered := &models.Message{ConversationID: a, Timestamp: time.Now()}
	rt.Observe(delivered)
	if delivered.Read {
		t.Fatal("message delivered while inactive marked read")
	}

	// Re-entering A and loading history must not flip it before the read
	// report completes
	rt.Activate(a)
	reloaded := &models.Message{ConversationID: a, Timestamp: delivered.Timestamp}
	rt.Observe(reloaded)
	if reloaded.Read {
		t.Error("pre-activation message read before the report completed")
	}
	if rt.IsRead(a, delivered.Timestamp) {
		t.Error("IsRead = true before the report completed")
	}

	// A message arriving after re-activation is read immediately
	fresh := &models.Message{ConversationID: a, Timestamp: time.Now().Add(10 * time.Millisecond)}
	rt.Observe(fresh)
	if !fresh.Read {
		t.Error("message arriving while active not read")
	}

	// The completed report covers the earlier delivery
	rt.MarkReported(a)
	again := &models.Message{ConversationID: a, Timestamp: delivered.Timestamp}
	rt.Observe(again)
	if !again.Read {
		t.Error("message still unread after the report completed")
	}
}

func TestMarkReportedAdvancesWatermark(t *testing.T) {
	rt := NewReadTracker()
	a, b := uuid.New(), uuid.New()

	rt.Activate(a)
	rt.Activate(b)

	pending := &models.Message{ConversationID: a, Timestamp: time.Now().Add(-time.Second)}
	rt.Observe(pending)
	if pending.Read {
		t.Fatal("message read before the report completed")
	}

	// Re-selecting A triggers a read report; only its completion advances
	// the watermark.
	rt.Activate(a)
	rt.Activate(b)
	rt.MarkReported(a)

	if !rt.IsRead(a, pending.Timestamp) {
		t.Error("message still unread after the report completed")
	}
}
