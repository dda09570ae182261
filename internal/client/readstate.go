package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

// ReadTracker decides receiver-side read state. A message is read iff it was
// observed while its conversation was active, or its timestamp is covered by
// the conversation's watermark. Switching away freezes the watermark;
// messages delivered while inactive stay unread on re-entry until the backend
// read report completes and MarkReported advances it.
type ReadTracker struct {
	mu          sync.RWMutex
	activeID    uuid.UUID
	activatedAt time.Time
	watermark   map[uuid.UUID]time.Time
}

// NewReadTracker creates a tracker with no active conversation
func NewReadTracker() *ReadTracker {
	return &ReadTracker{watermark: make(map[uuid.UUID]time.Time)}
}

// Activate marks the conversation as active. Only messages arriving after
// this point count as read immediately; anything delivered while the
// conversation was inactive waits for MarkReported.
func (rt *ReadTracker) Activate(conversationID uuid.UUID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.activeID = conversationID
	rt.activatedAt = time.Now()
}

// Deactivate freezes the current conversation's read state
func (rt *ReadTracker) Deactivate() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.activeID = uuid.Nil
}

// MarkReported advances the watermark after a read report completed, so
// messages delivered while the conversation was inactive now count as read.
func (rt *ReadTracker) MarkReported(conversationID uuid.UUID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.watermark[conversationID] = time.Now()
}

// Observe stamps the message's read state. Messages arriving in the active
// conversation after activation are read and advance the live watermark;
// everything else defers to the frozen watermark.
func (rt *ReadTracker) Observe(m *models.Message) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.arrivedWhileActiveLocked(m.ConversationID, m.Timestamp) {
		m.Read = true
		if m.Timestamp.After(rt.watermark[m.ConversationID]) {
			rt.watermark[m.ConversationID] = m.Timestamp
		}
		return
	}
	m.Read = !m.Timestamp.After(rt.watermark[m.ConversationID])
}

// IsRead reports whether a message timestamp in the conversation counts as
// read under the current watermark.
func (rt *ReadTracker) IsRead(conversationID uuid.UUID, ts time.Time) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.arrivedWhileActiveLocked(conversationID, ts) {
		return true
	}
	return !ts.After(rt.watermark[conversationID])
}

func (rt *ReadTracker) arrivedWhileActiveLocked(conversationID uuid.UUID, ts time.Time) bool {
	return conversationID == rt.activeID && rt.activeID != uuid.Nil &&
		ts.After(rt.activatedAt)
}
