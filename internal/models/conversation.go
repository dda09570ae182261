package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceState represents the online status of a participant
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceIdle    PresenceState = "idle"
	PresenceBusy    PresenceState = "busy"
	PresenceOffline PresenceState = "offline"
)

// Participant represents the remote party of a conversation
type Participant struct {
	ID          uuid.UUID     `json:"id"`
	Handle      string        `json:"handle"`
	DisplayName string        `json:"display_name,omitempty"`
	Presence    PresenceState `json:"presence"`
}

// GetDisplayName returns the display name if set, otherwise the handle
func (p *Participant) GetDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Handle
}

// MessagePreview is the last-message summary shown in the conversation list
type MessagePreview struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation represents a direct-message thread or moderation queue thread
type Conversation struct {
	ID          uuid.UUID      `json:"id"`
	Participant Participant    `json:"participant"`
	LastMessage MessagePreview `json:"last_message"`
	UnreadCount int            `json:"unread_count"`
	Pinned      bool           `json:"pinned"`
	Archived    bool           `json:"archived"`

	// Muted is a local preference; muted conversations accept messages but
	// never accrue an unread badge.
	Muted bool `json:"-"`
}

// NewConversation creates a conversation with a generated ID
func NewConversation(participant Participant) *Conversation {
	return &Conversation{
		ID:          uuid.New(),
		Participant: participant,
	}
}

// Touch updates the last-message preview
func (c *Conversation) Touch(text string, ts time.Time) {
	c.LastMessage = MessagePreview{Text: text, Timestamp: ts}
}

// HasUnread returns true if the conversation carries an unread badge
func (c *Conversation) HasUnread() bool {
	return c.UnreadCount > 0
}

// ConversationPatch describes an incremental update to a single conversation.
// Nil fields are left untouched by the merge.
type ConversationPatch struct {
	ID          uuid.UUID       `json:"id"`
	Participant *Participant    `json:"participant,omitempty"`
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	UnreadCount *int            `json:"unread_count,omitempty"`
	Pinned      *bool           `json:"pinned,omitempty"`
	Archived    *bool           `json:"archived,omitempty"`
}

// Apply merges the patch into the conversation
func (p *ConversationPatch) Apply(c *Conversation) {
	if p.Participant != nil {
		c.Participant = *p.Participant
	}
	if p.LastMessage != nil {
		c.LastMessage = *p.LastMessage
	}
	if p.UnreadCount != nil {
		c.UnreadCount = *p.UnreadCount
	}
	if p.Pinned != nil {
		c.Pinned = *p.Pinned
	}
	if p.Archived != nil {
		c.Archived = *p.Archived
	}
}
