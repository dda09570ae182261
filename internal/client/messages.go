package client

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
	"github.com/quorum-chat/quorum/pkg/crypto"
)

// SendFunc delivers a message to the external send collaborator. The returned
// message, when non-nil, carries the authoritative server id.
type SendFunc func(conversationID uuid.UUID, content, nonce string) (*models.Message, error)

// MessageStream materializes the message list for the active conversation
// only. The list is always strictly timestamp-ordered and id-deduplicated;
// messages for other conversations are never materialized, only their
// preview/unread effect is forwarded to the conversation store.
type MessageStream struct {
	mu       sync.RWMutex
	activeID uuid.UUID
	messages []*models.Message
	byID     map[uuid.UUID]struct{}

	conversations *ConversationStore
	reads         *ReadTracker
	selfID        uuid.UUID
	send          SendFunc
}

// NewMessageStream creates a stream bound to the conversation store
func NewMessageStream(conversations *ConversationStore, reads *ReadTracker) *MessageStream {
	return &MessageStream{
		byID:          make(map[uuid.UUID]struct{}),
		conversations: conversations,
		reads:         reads,
	}
}

// SetSender installs the external send collaborator
func (ms *MessageStream) SetSender(selfID uuid.UUID, send SendFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.selfID = selfID
	ms.send = send
}

// SetSelf records the local user's id, stamped onto optimistic placeholders
func (ms *MessageStream) SetSelf(id uuid.UUID) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.selfID = id
}

// SelfID returns the local user's id, or uuid.Nil before identity loads
func (ms *MessageStream) SelfID() uuid.UUID {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.selfID
}

// ActiveID returns the conversation currently materialized, or uuid.Nil
func (ms *MessageStream) ActiveID() uuid.UUID {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.activeID
}

// SetActive switches the materialized conversation. The previous list is
// dropped so messages never leak across conversation boundaries.
func (ms *MessageStream) SetActive(conversationID uuid.UUID) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.activeID == conversationID {
		return
	}
	ms.activeID = conversationID
	ms.messages = nil
	ms.byID = make(map[uuid.UUID]struct{})
}

// LoadMessages replaces the materialized list with a fetched history. A
// response for a conversation that is no longer active is discarded (stale
// response guard).
func (ms *MessageStream) LoadMessages(conversationID uuid.UUID, messages []*models.Message) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if conversationID != ms.activeID {
		return
	}

	ms.messages = nil
	ms.byID = make(map[uuid.UUID]struct{})
	for _, m := range messages {
		if _, dup := ms.byID[m.ID]; dup {
			continue
		}
		dupMsg := *m
		ms.reads.Observe(&dupMsg)
		ms.insertLocked(&dupMsg)
	}
}

// AppendPushed merges one pushed message. Re-delivery of an id already held
// is a no-op; messages for non-active conversations only update the owning
// conversation's preview and unread count.
func (ms *MessageStream) AppendPushed(m *models.Message) {
	ms.mu.Lock()

	if m.ConversationID != ms.activeID {
		ms.mu.Unlock()
		ms.reads.Observe(m)
		ms.conversations.RecordIncoming(m.ConversationID, m.Content, m.Timestamp)
		return
	}

	if _, dup := ms.byID[m.ID]; dup {
		ms.mu.Unlock()
		return
	}

	incoming := *m
	ms.reads.Observe(&incoming)

	// A pushed message may be the server echo of a pending local send
	if replaced := ms.replaceEchoLocked(&incoming); !replaced {
		ms.insertLocked(&incoming)
	}
	ms.mu.Unlock()

	ms.conversations.RecordActive(m.ConversationID, m.Content, m.Timestamp)
}

// Send delivers a message through the external collaborator after appending
// an optimistic placeholder. A rejected send is reported to the caller; the
// placeholder stays pending and is not retried automatically.
func (ms *MessageStream) Send(conversationID uuid.UUID, content string) error {
	ms.mu.Lock()
	if ms.send == nil {
		ms.mu.Unlock()
		return fmt.Errorf("no send collaborator configured")
	}
	if conversationID != ms.activeID {
		ms.mu.Unlock()
		return fmt.Errorf("conversation %s is not active", conversationID)
	}

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		ms.mu.Unlock()
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	placeholder := models.NewLocalMessage(conversationID, ms.selfID, content, nonce)
	placeholder.Read = true
	ms.insertLocked(placeholder)
	send := ms.send
	ms.mu.Unlock()

	echo, err := send(conversationID, content, nonce)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	if echo != nil {
		ms.mu.Lock()
		ms.replaceEchoLocked(echo)
		ms.mu.Unlock()
	}

	ms.conversations.RecordActive(conversationID, content, placeholder.Timestamp)
	return nil
}

// RefreshReadState re-stamps the materialized list against the current
// watermark. Called after a read report completes, when messages that were
// delivered while the conversation was inactive become read. Pending local
// sends keep their read state.
func (ms *MessageStream) RefreshReadState() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, m := range ms.messages {
		if m.Pending {
			continue
		}
		ms.reads.Observe(m)
	}
}

// Snapshot returns a copy of the materialized message list
func (ms *MessageStream) Snapshot() []models.Message {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]models.Message, len(ms.messages))
	for i, m := range ms.messages {
		out[i] = *m
	}
	return out
}

// insertLocked places the message in timestamp order, ties broken by arrival
// order, and registers its id.
func (ms *MessageStream) insertLocked(m *models.Message) {
	pos := sort.Search(len(ms.messages), func(i int) bool {
		return ms.messages[i].Timestamp.After(m.Timestamp)
	})
	ms.messages = append(ms.messages, nil)
	copy(ms.messages[pos+1:], ms.messages[pos:])
	ms.messages[pos] = m
	ms.byID[m.ID] = struct{}{}
}

// replaceEchoLocked swaps a pending placeholder for its server echo. Returns
// true if a placeholder was replaced.
func (ms *MessageStream) replaceEchoLocked(echo *models.Message) bool {
	if _, dup := ms.byID[echo.ID]; dup {
		return true
	}
	for i, m := range ms.messages {
		if m.MatchesEcho(echo) {
			delete(ms.byID, m.ID)
			confirmed := *echo
			confirmed.Read = true
			ms.messages[i] = &confirmed
			ms.byID[confirmed.ID] = struct{}{}
			// Re-sort in case the authoritative timestamp moved
			sort.SliceStable(ms.messages, func(a, b int) bool {
				return ms.messages[a].Timestamp.Before(ms.messages[b].Timestamp)
			})
			return true
		}
	}
	return false
}
