package story

import (
	"context"
	"sync"
)

// DefaultSlotKey is the storage slot that holds story progress.
const DefaultSlotKey = "cyberterm_story_progress"

// Storage is a keyed slot store. The SQLite store and MemoryStorage both
// implement it.
type Storage interface {
	// Load returns the slot contents. ok is false when the slot is absent.
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps slots in a map. Used by tests, the scenario harness and
// ephemeral play sessions.
//
// Thread-safety: safe for concurrent use.
type MemoryStorage struct {
	mu    sync.Mutex
	slots map[string][]byte

	// FailWrites makes Save and Delete return ErrStorageUnavailable.
	FailWrites bool
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{slots: make(map[string][]byte)}
}

// Load implements Storage.
func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrStorageUnavailable
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.slots[key] = buf
	return nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrStorageUnavailable
	}
	delete(m.slots, key)
	return nil
}

// Keys returns the slot names currently held.
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.slots))
	for k := range m.slots {
		keys = append(keys, k)
	}
	return keys
}
