package client

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

// ReadReporter reports a conversation as read to the backend. Implementations
// are fire-and-forget: failures are swallowed and never roll back local state.
type ReadReporter func(conversationID uuid.UUID)

// ConversationStore holds the ordered working set of conversations. Full-list
// pushes replace the set wholesale; incremental pushes merge by id, inserting
// unknown ids as new conversations. Ordering is pinned first, then most
// recent last-message timestamp, ties broken by original insertion order.
type ConversationStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.Conversation
	seq     map[uuid.UUID]int // insertion order, for stable tie-breaks
	nextSeq int

	selection *Selection
	reporter  ReadReporter
}

// NewConversationStore creates an empty store bound to the shared selection
func NewConversationStore(selection *Selection) *ConversationStore {
	return &ConversationStore{
		byID:      make(map[uuid.UUID]*models.Conversation),
		seq:       make(map[uuid.UUID]int),
		selection: selection,
	}
}

// SetReadReporter installs the backend read-report hook
func (cs *ConversationStore) SetReadReporter(r ReadReporter) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.reporter = r
}

// ApplyFullList replaces the entire working set. Used after (re)connect or
// an explicit refresh; insertion order restarts from the pushed list order.
func (cs *ConversationStore) ApplyFullList(conversations []*models.Conversation) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.byID = make(map[uuid.UUID]*models.Conversation, len(conversations))
	cs.seq = make(map[uuid.UUID]int, len(conversations))
	cs.nextSeq = 0

	for _, c := range conversations {
		if _, exists := cs.byID[c.ID]; exists {
			continue // ids are unique within the store
		}
		dup := *c
		cs.byID[c.ID] = &dup
		cs.seq[c.ID] = cs.nextSeq
		cs.nextSeq++
	}
}

// ApplyPatch merges an incremental update by id. An unknown id is inserted
// as a conversation appearing for the first time.
func (cs *ConversationStore) ApplyPatch(p *models.ConversationPatch) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c, ok := cs.byID[p.ID]
	if !ok {
		c = &models.Conversation{ID: p.ID}
		cs.byID[p.ID] = c
		cs.seq[p.ID] = cs.nextSeq
		cs.nextSeq++
	}
	p.Apply(c)
}

// RecordIncoming applies the preview/unread effect of a pushed message for a
// conversation that is not currently materialized. Unknown conversations are
// inserted as skeletons; a later refresh fills in the participant.
func (cs *ConversationStore) RecordIncoming(conversationID uuid.UUID, preview string, ts time.Time) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c, ok := cs.byID[conversationID]
	if !ok {
		c = &models.Conversation{ID: conversationID}
		cs.byID[conversationID] = c
		cs.seq[conversationID] = cs.nextSeq
		cs.nextSeq++
	}
	c.Touch(preview, ts)
	if !c.Muted {
		c.UnreadCount++
	}
}

// RecordActive updates the last-message preview for the active conversation
// without touching its unread count.
func (cs *ConversationStore) RecordActive(conversationID uuid.UUID, preview string, ts time.Time) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if c, ok := cs.byID[conversationID]; ok {
		c.Touch(preview, ts)
	}
}

// Select makes the conversation the active selection. A positive unread
// count is zeroed immediately and reported to the backend asynchronously;
// the report outcome never rolls the local zero back.
func (cs *ConversationStore) Select(id uuid.UUID) {
	cs.mu.Lock()
	c, ok := cs.byID[id]
	if !ok {
		cs.mu.Unlock()
		return
	}
	cs.selection.SetConversation(id)

	var reporter ReadReporter
	if c.UnreadCount > 0 {
		c.UnreadCount = 0
		reporter = cs.reporter
	}
	cs.mu.Unlock()

	if reporter != nil {
		go reporter(id)
	}
}

// Pin marks the conversation as pinned
func (cs *ConversationStore) Pin(id uuid.UUID) { cs.setPinned(id, true) }

// Unpin clears the pinned flag
func (cs *ConversationStore) Unpin(id uuid.UUID) { cs.setPinned(id, false) }

func (cs *ConversationStore) setPinned(id uuid.UUID, pinned bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.byID[id]; ok {
		c.Pinned = pinned
	}
}

// SetMuted flips the local mute preference. Muting also drops any badge the
// conversation already accrued.
func (cs *ConversationStore) SetMuted(id uuid.UUID, muted bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.byID[id]; ok {
		c.Muted = muted
		if muted {
			c.UnreadCount = 0
		}
	}
}

// Archive excludes the conversation from the active list
func (cs *ConversationStore) Archive(id uuid.UUID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.byID[id]; ok {
		c.Archived = true
	}
}

// Remove deletes the conversation; if it was selected, the selection is
// cleared as well.
func (cs *ConversationStore) Remove(id uuid.UUID) {
	cs.mu.Lock()
	delete(cs.byID, id)
	delete(cs.seq, id)
	cs.mu.Unlock()

	if cs.selection.ConversationID() == id {
		cs.selection.ClearConversation()
	}
}

// Get returns a copy of one conversation
func (cs *ConversationStore) Get(id uuid.UUID) (models.Conversation, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if c, ok := cs.byID[id]; ok {
		return *c, true
	}
	return models.Conversation{}, false
}

// Snapshot returns the active (non-archived) conversations in display order
func (cs *ConversationStore) Snapshot() []models.Conversation {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.sortedLocked()
}

// Filter returns a pure projection of the current list: case-insensitive
// substring match against the participant display name and handle. Neither
// state nor order is altered.
func (cs *ConversationStore) Filter(query string) []models.Conversation {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if query == "" {
		return cs.sortedLocked()
	}

	q := strings.ToLower(query)
	matched := make([]models.Conversation, 0)
	for _, c := range cs.sortedLocked() {
		name := strings.ToLower(c.Participant.DisplayName)
		handle := strings.ToLower(c.Participant.Handle)
		if strings.Contains(name, q) || strings.Contains(handle, q) {
			matched = append(matched, c)
		}
	}
	return matched
}

// sortedLocked re-derives the display order: pinned descending, then
// last-message timestamp descending, ties by insertion order (stable sort).
func (cs *ConversationStore) sortedLocked() []models.Conversation {
	list := make([]models.Conversation, 0, len(cs.byID))
	for _, c := range cs.byID {
		if c.Archived {
			continue
		}
		list = append(list, *c)
	}

	// Start from insertion order so the stable sort breaks ties by it
	sort.Slice(list, func(i, j int) bool {
		return cs.seq[list[i].ID] < cs.seq[list[j].ID]
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Pinned != list[j].Pinned {
			return list[i].Pinned
		}
		return list[i].LastMessage.Timestamp.After(list[j].LastMessage.Timestamp)
	})
	return list
}
