package transcriptcache

import "sync"

// MemoryStore keeps entries for the life of the process only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}}
}

// Load returns a copy of the stored entries.
func (m *MemoryStore) Load() (map[string]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

// Save replaces the stored entries.
func (m *MemoryStore) Save(entries map[string]Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.entries = make(map[string]Entry, len(entries))
	for k, v := range entries {
		m.entries[k] = v
	}
	return nil
}

// Location describes the store.
func (m *MemoryStore) Location() string { return "memory" }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
