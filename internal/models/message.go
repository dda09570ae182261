package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message within a conversation
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`

	// Nonce is a client-generated token carried by optimistic local sends.
	// The server echoes it back so the placeholder can be replaced by the
	// authoritative copy.
	Nonce string `json:"nonce,omitempty"`

	// Pending marks a local send that has not been acknowledged yet
	Pending bool `json:"-"`
}

// NewLocalMessage creates an optimistic placeholder for a locally-sent message
func NewLocalMessage(conversationID, senderID uuid.UUID, content, nonce string) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Timestamp:      time.Now(),
		Nonce:          nonce,
		Pending:        true,
	}
}

// MatchesEcho reports whether incoming is the server echo of this pending
// message. Nonce equality is authoritative; without a nonce the fallback is
// content equality plus timestamp proximity.
func (m *Message) MatchesEcho(incoming *Message) bool {
	if !m.Pending {
		return false
	}
	if m.Nonce != "" && m.Nonce == incoming.Nonce {
		return true
	}
	if m.Content != incoming.Content || m.SenderID != incoming.SenderID {
		return false
	}
	gap := incoming.Timestamp.Sub(m.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	return gap < 30*time.Second
}
