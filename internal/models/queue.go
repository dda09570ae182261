package models

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the lifecycle of a moderation queue item
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueClaimed  QueueStatus = "claimed"
	QueueResolved QueueStatus = "resolved"
)

// QueueItem represents one entry in the moderation queue
type QueueItem struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Reason         string      `json:"reason"`
	ReporterID     uuid.UUID   `json:"reporter_id,omitempty"`
	AssignedTo     uuid.UUID   `json:"assigned_to,omitempty"`
	Status         QueueStatus `json:"status"`
	AssignedAt     time.Time   `json:"assigned_at,omitempty"`
}

// IsOpen returns true while the item still needs moderator attention
func (q *QueueItem) IsOpen() bool {
	return q.Status != QueueResolved
}
