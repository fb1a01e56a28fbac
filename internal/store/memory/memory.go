package memory

import (
	"context"
	"sync"

	"github.com/vovakirdan/chatrooms/internal/store"
)

// MemoryStore keeps identities in process memory. Records do not survive a restart
// of the process but do survive re-creating sessions on top of the same store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// GetIdentity returns a copy of the record stored under key.
func (s *MemoryStore) GetIdentity(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), record...), nil
}

// PutIdentity stores a copy of record under key.
func (s *MemoryStore) PutIdentity(_ context.Context, key string, record []byte) error {
	s.mu.Lock()
	s.records[key] = append([]byte(nil), record...)
	s.mu.Unlock()
	return nil
}

// DeleteIdentity removes key.
func (s *MemoryStore) DeleteIdentity(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ store.IdentityStore = (*MemoryStore)(nil)
