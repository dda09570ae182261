package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

func msg(conversationID uuid.UUID, content string, ts time.Time) *models.Message {
	return &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       uuid.New(),
		Content:        content,
		Timestamp:      ts,
	}
}

func newStream() (*MessageStream, *ConversationStore) {
	cs := newConversationStore()
	return NewMessageStream(cs, NewReadTracker()), cs
}

func TestLoadMessagesOrdersByTimestamp(t *testing.T) {
	ms, _ := newStream()
	convID := uuid.New()
	ms.SetActive(convID)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ms.LoadMessages(convID, []*models.Message{
		msg(convID, "third", base.Add(2*time.Minute)),
		msg(convID, "first", base),
		msg(convID, "second", base.Add(time.Minute)),
	})

	got := ms.Snapshot()
	want := []string{"first", "second", "third"}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, content := range want {
		if got[i].Content != content {
			t.Errorf("position %d = %q, want %q", i, got[i].Content, content)
		}
	}
}

func TestLoadMessagesDiscardsStaleResponse(t *testing.T) {
	ms, _ := newStream()
	a, b := uuid.New(), uuid.New()

	ms.SetActive(a)
	ms.SetActive(b)

	// A history fetched for the previous conversation arrives late
	ms.LoadMessages(a, []*models.Message{msg(a, "stale", time.Now())})

	if got := len(ms.Snapshot()); got != 0 {
		t.Errorf("stale history applied: %d messages", got)
	}
}

func TestSetActiveDropsPreviousList(t *testing.T) {
	ms, _ := newStream()
	a, b := uuid.New(), uuid.New()

	ms.SetActive(a)
	ms.LoadMessages(a, []*models.Message{msg(a, "from a", time.Now())})
	ms.SetActive(b)

	if got := len(ms.Snapshot()); got != 0 {
		t.Errorf("previous conversation leaked %d messages", got)
	}
}

func TestAppendPushedDeduplicatesByID(t *testing.T) {
	ms, _ := newStream()
	convID := uuid.New()
	ms.SetActive(convID)

	m := msg(convID, "once", time.Now())
	ms.AppendPushed(m)
	ms.AppendPushed(m)

	redelivery := *m
	ms.AppendPushed(&redelivery)

	if got := len(ms.Snapshot()); got != 1 {
		t.Errorf("len = %d, want 1 after re-delivery", got)
	}
}

func TestAppendPushedEqualTimestampsKeepArrivalOrder(t *testing.T) {
	ms, _ := newStream()
	convID := uuid.New()
	ms.SetActive(convID)

	ts := time.Now()
	ms.AppendPushed(msg(convID, "first", ts))
	ms.AppendPushed(msg(convID, "second", ts))

	got := ms.Snapshot()
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("arrival order broken: %q, %q", got[0].Content, got[1].Content)
	}
}

func TestAppendPushedInactiveConversation(t *testing.T) {
	ms, cs := newStream()
	active, other := uuid.New(), uuid.New()
	ms.SetActive(active)

	ms.AppendPushed(msg(other, "psst", time.Now()))

	// Never materialized in the active list
	if got := len(ms.Snapshot()); got != 0 {
		t.Errorf("inactive message materialized: %d", got)
	}

	// But the owning conversation's badge and preview moved
	c, ok := cs.Get(other)
	if !ok {
		t.Fatal("owning conversation not recorded")
	}
	if c.UnreadCount != 1 || c.LastMessage.Text != "psst" {
		t.Errorf("conversation effect = %+v", c)
	}
}

func TestAppendPushedActiveUpdatesPreviewNotUnread(t *testing.T) {
	ms, cs := newStream()
	convID := uuid.New()
	cs.ApplyFullList([]*models.Conversation{{ID: convID}})
	ms.SetActive(convID)

	ms.AppendPushed(msg(convID, "hello", time.Now()))

	c, _ := cs.Get(convID)
	if c.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0 for active conversation", c.UnreadCount)
	}
	if c.LastMessage.Text != "hello" {
		t.Errorf("preview = %q", c.LastMessage.Text)
	}
}

func TestSendOptimisticPlaceholder(t *testing.T) {
	ms, _ := newStream()
	convID := uuid.New()
	ms.SetActive(convID)

	var sentNonce string
	ms.SetSender(uuid.New(), func(id uuid.UUID, content, nonce string) (*models.Message, error) {
		sentNonce = nonce
		// Server has not pushed the echo yet
		return nil, nil
	})

	if err := ms.Send(convID, "outbound"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sentNonce == "" {
		t.Error("no nonce passed to the send collaborator")
	}

	got := ms.Snapshot()
	if len(got) != 1 || !got[0].Pending || got[0].Content != "outbound" {
		t.Fatalf("placeholder = %+v", got)
	}
	if !got[0].Read {
		t.Error("own message not marked read")
	}

	// Echo arrives as a push carrying the nonce; it replaces, not duplicates
	echo := msg(convID, "outbound", time.Now())
	echo.Nonce = sentNonce
	ms.AppendPushed(echo)

	got = ms.Snapshot()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 after echo", len(got))
	}
	if got[0].Pending {
		t.Error("echo left the message pending")
	}
	if got[0].ID != echo.ID {
		t.Error("placeholder id not replaced by the authoritative id")
	}
}

func TestSendSynchronousEchoReplacesPlaceholder(t *testing.T) {
	ms, _ := newStream()
	convID := uuid.New()
	ms.SetActive(convID)

	serverID := uuid.New()
	ms.SetSender(uuid.New(), func(id uuid.UUID, content, nonce string) (*models.Message, error) {
		return &models.Message{
			ID:             serverID,
			ConversationID: id,
			Content:        content,
			Timestamp:      time.Now(),
			Nonce:          nonce,
		}, nil
	})

	if err := ms.Send(convID, "ack me"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := ms.Snapshot()
	if len(got) != 1 || got[0].ID != serverID || got[0].Pending {
		t.Errorf("echo not applied: %+v", got)
	}
}

func TestSendFailureKeepsPendingPlaceholder(t *testing.T) {
	ms, _ := newStream()
	convID := uuid.New()
	ms.SetActive(convID)
	ms.SetSender(uuid.New(), func(uuid.UUID, string, string) (*models.Message, error) {
		return nil, fmt.Errorf("backend unavailable")
	})

	err := ms.Send(convID, "doomed")
	if err == nil {
		t.Fatal("Send returned nil, want error")
	}

	got := ms.Snapshot()
	if len(got) != 1 || !got[0].Pending {
		t.Errorf("placeholder after failure = %+v", got)
	}
}

func TestSendRequiresActiveConversation(t *testing.T) {
	ms, _ := newStream()
	ms.SetActive(uuid.New())
	ms.SetSender(uuid.New(), func(uuid.UUID, string, string) (*models.Message, error) {
		t.Fatal("send collaborator called for inactive conversation")
		return nil, nil
	})

	if err := ms.Send(uuid.New(), "misdirected"); err == nil {
		t.Error("Send to inactive conversation succeeded")
	}
}
