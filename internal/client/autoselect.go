package client

import (
	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

// AutoSelector fills empty selection slots after the server/channel lists
// load. It never overrides a non-empty slot, so a concurrent explicit user
// selection always wins; the guard is the slot check itself, not timing.
type AutoSelector struct {
	selection *Selection
}

// NewAutoSelector creates a coordinator over the shared selection
func NewAutoSelector(selection *Selection) *AutoSelector {
	return &AutoSelector{selection: selection}
}

// Run applies the default-selection policy: first server in stable list
// order, then the channel named "general" (exact match) or the first channel
// of the selected server.
func (as *AutoSelector) Run(servers []*models.Server, channels []*models.Channel) {
	if len(servers) > 0 {
		as.selection.FillServer(servers[0].ID)
	}

	serverID := as.selection.ServerID()
	if serverID == uuid.Nil || as.selection.ChannelID() != uuid.Nil {
		return
	}

	var first uuid.UUID
	for _, ch := range channels {
		if ch.ServerID != serverID {
			continue
		}
		if ch.Name == "general" {
			as.selection.FillChannel(ch.ID)
			return
		}
		if first == uuid.Nil {
			first = ch.ID
		}
	}
	if first != uuid.Nil {
		as.selection.FillChannel(first)
	}
}
