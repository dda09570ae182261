package client

import (
	"sync"

	"github.com/google/uuid"
)

// Selection is the (server, channel, conversation) triple the user is
// currently viewing. uuid.Nil marks an empty slot. It is mutated only by
// explicit user action or by the auto-selection coordinator filling an empty
// slot; the last explicit user action always wins.
type Selection struct {
	mu             sync.RWMutex
	serverID       uuid.UUID
	channelID      uuid.UUID
	conversationID uuid.UUID
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{}
}

// ServerID returns the selected server, or uuid.Nil
func (s *Selection) ServerID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverID
}

// ChannelID returns the selected channel, or uuid.Nil
func (s *Selection) ChannelID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelID
}

// ConversationID returns the selected conversation, or uuid.Nil
func (s *Selection) ConversationID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// SetServer records an explicit server selection and clears the channel slot
func (s *Selection) SetServer(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serverID == id {
		return
	}
	s.serverID = id
	s.channelID = uuid.Nil
}

// SetChannel records an explicit channel selection
func (s *Selection) SetChannel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = id
}

// SetConversation records an explicit conversation selection
func (s *Selection) SetConversation(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = id
}

// ClearConversation empties the conversation slot
func (s *Selection) ClearConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = uuid.Nil
}

// FillServer sets the server slot only if it is currently empty. Returns
// true if the slot was filled.
func (s *Selection) FillServer(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serverID != uuid.Nil {
		return false
	}
	s.serverID = id
	return true
}

// FillChannel sets the channel slot only if it is currently empty. Returns
// true if the slot was filled.
func (s *Selection) FillChannel(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelID != uuid.Nil {
		return false
	}
	s.channelID = id
	return true
}
