package models

import (
	"time"

	"github.com/google/uuid"
)

// Server represents a community the user belongs to
type Server struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IconHash  string    `json:"icon_hash,omitempty"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel represents a text channel within a server
type Channel struct {
	ID       uuid.UUID `json:"id"`
	ServerID uuid.UUID `json:"server_id"`
	Name     string    `json:"name"`
	Topic    string    `json:"topic,omitempty"`
	Position int       `json:"position"`
}
