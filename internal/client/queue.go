package client

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

// QueueUpdater patches a queue item's status on the backend
type QueueUpdater func(id uuid.UUID, status models.QueueStatus) (*models.QueueItem, error)

// QueueStore holds the moderation queue entries assigned to this client
type QueueStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.QueueItem
	updater QueueUpdater
}

// NewQueueStore creates an empty queue store
func NewQueueStore() *QueueStore {
	return &QueueStore{byID: make(map[uuid.UUID]*models.QueueItem)}
}

// SetUpdater installs the backend patch collaborator
func (qs *QueueStore) SetUpdater(u QueueUpdater) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.updater = u
}

// ApplyAssigned merges an assignment push by id
func (qs *QueueStore) ApplyAssigned(item *models.QueueItem) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	dup := *item
	qs.byID[item.ID] = &dup
}

// Resolve patches the item to resolved. Moderation actions are
// user-initiated, so failures propagate to the caller and local state only
// changes on success.
func (qs *QueueStore) Resolve(id uuid.UUID) error {
	qs.mu.RLock()
	updater := qs.updater
	_, ok := qs.byID[id]
	qs.mu.RUnlock()

	if !ok {
		return nil
	}

	updated, err := updater(id, models.QueueResolved)
	if err != nil {
		return err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()
	if updated != nil {
		dup := *updated
		qs.byID[id] = &dup
	} else if item, ok := qs.byID[id]; ok {
		item.Status = models.QueueResolved
	}
	return nil
}

// Open returns the open queue items in assignment order
func (qs *QueueStore) Open() []models.QueueItem {
	qs.mu.RLock()
	defer qs.mu.RUnlock()

	out := make([]models.QueueItem, 0, len(qs.byID))
	for _, item := range qs.byID {
		if item.IsOpen() {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AssignedAt.Before(out[j].AssignedAt)
	})
	return out
}
