package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Prefs are local-only UI preferences. They never round-trip to the backend;
// the backend's conversation payloads win on everything else.
type Prefs struct {
	Pinned []uuid.UUID `json:"pinned"`
	Muted  []uuid.UUID `json:"muted"`
}

// PrefsStore persists preferences as a JSON file. Saves go through a temp
// file and rename so a crash mid-write never truncates the previous state.
type PrefsStore struct {
	path string

	mu     sync.Mutex
	pinned map[uuid.UUID]bool
	muted  map[uuid.UUID]bool
}

// LoadPrefs opens the preference file, treating a missing file as empty
func LoadPrefs(path string) (*PrefsStore, error) {
	ps := &PrefsStore{
		path:   path,
		pinned: make(map[uuid.UUID]bool),
		muted:  make(map[uuid.UUID]bool),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	var prefs Prefs
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	for _, id := range prefs.Pinned {
		ps.pinned[id] = true
	}
	for _, id := range prefs.Muted {
		ps.muted[id] = true
	}
	return ps, nil
}

// Pinned reports whether the conversation is pinned locally
func (ps *PrefsStore) Pinned(id uuid.UUID) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.pinned[id]
}

// Muted reports whether the conversation is muted locally
func (ps *PrefsStore) Muted(id uuid.UUID) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.muted[id]
}

// PinnedIDs returns every pinned conversation id
func (ps *PrefsStore) PinnedIDs() []uuid.UUID {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return keys(ps.pinned)
}

// MutedIDs returns every muted conversation id
func (ps *PrefsStore) MutedIDs() []uuid.UUID {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return keys(ps.muted)
}

// SetPinned records the pin preference and persists
func (ps *PrefsStore) SetPinned(id uuid.UUID, pinned bool) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if pinned {
		ps.pinned[id] = true
	} else {
		delete(ps.pinned, id)
	}
	return ps.saveLocked()
}

// SetMuted records the mute preference and persists
func (ps *PrefsStore) SetMuted(id uuid.UUID, muted bool) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if muted {
		ps.muted[id] = true
	} else {
		delete(ps.muted, id)
	}
	return ps.saveLocked()
}

// saveLocked writes the preference file atomically
func (ps *PrefsStore) saveLocked() error {
	prefs := Prefs{Pinned: keys(ps.pinned), Muted: keys(ps.muted)}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	dir := filepath.Dir(ps.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp := ps.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, ps.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

func keys(m map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
