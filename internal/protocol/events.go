package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

// EventType names an event delivered over the transport. Lifecycle events
// are synthesized by the transport itself; domain events are pushed by the
// backend. Delivery is at-least-once and is NOT ordered per conversation.
type EventType string

const (
	// Lifecycle events
	EventConnectionSuccess      EventType = "connection:success"
	EventConnectionLost         EventType = "connection:lost"
	EventConnectionError        EventType = "connection:error"
	EventConnectionReconnecting EventType = "connection:reconnecting"
	EventConnectionFailed       EventType = "connection:failed"

	// Domain events
	EventConversationsUpdated EventType = "conversations:updated"
	EventMessagesUpdated      EventType = "messages:updated"
	EventMessageReceived      EventType = "message:received"
	EventQueueItemAssigned    EventType = "queue:item_assigned"
	EventModerationEvent      EventType = "moderation:event"
)

// Event is the wire envelope for all transport traffic
type Event struct {
	Type EventType       `json:"t"`
	Data json.RawMessage `json:"d,omitempty"`
}

// NewEvent creates an event with a marshaled payload
func NewEvent(t EventType, data interface{}) (*Event, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Event{Type: t, Data: raw}, nil
}

// Decode unmarshals the event payload into v
func Decode(ev *Event, v interface{}) error {
	if len(ev.Data) == 0 {
		return nil
	}
	return json.Unmarshal(ev.Data, v)
}

// --- Lifecycle payloads ---

// ConnectionLostPayload carries the reason the transport dropped
type ConnectionLostPayload struct {
	Reason string `json:"reason"`
}

// ConnectionErrorPayload carries a connect-time failure
type ConnectionErrorPayload struct {
	Error string `json:"error"`
}

// ConnectionReconnectingPayload reports one reconnect attempt
type ConnectionReconnectingPayload struct {
	Attempt int `json:"attempt"`
}

// --- Domain payloads ---

// ConversationsUpdatedPayload carries either a full-list push that replaces
// the entire conversation working set, or an incremental patch for a single
// conversation. Exactly one of the two fields is set.
type ConversationsUpdatedPayload struct {
	Conversations []*models.Conversation    `json:"conversations,omitempty"`
	Patch         *models.ConversationPatch `json:"patch,omitempty"`
}

// MessagesUpdatedPayload carries the message history for one conversation
type MessagesUpdatedPayload struct {
	ConversationID uuid.UUID         `json:"conversation_id"`
	Messages       []*models.Message `json:"messages"`
}

// MessageReceivedPayload carries one pushed message
type MessageReceivedPayload struct {
	Message *models.Message `json:"message"`
}

// QueueItemAssignedPayload announces a moderation queue assignment
type QueueItemAssignedPayload struct {
	Item *models.QueueItem `json:"item"`
}

// ModerationEventPayload carries a free-form moderation notice
type ModerationEventPayload struct {
	Kind     string    `json:"kind"`
	ServerID uuid.UUID `json:"server_id,omitempty"`
	ActorID  uuid.UUID `json:"actor_id,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}
