package storage

import (
	"context"
	"sync"

	"github.com/ruteri/signet-registry/interfaces"
)

// MemoryStore keeps the registry state in process memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	state *registryState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newRegistryState()}
}

// OwnerOf returns the owner of key, or NoOwner.
func (m *MemoryStore) OwnerOf(ctx context.Context, key interfaces.Identifier) (interfaces.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ownerOf(key), nil
}

// NonceOf returns the current nonce of identity.
func (m *MemoryStore) NonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.nonceOf(identity), nil
}

// Commit applies all writes of cs under a single lock.
func (m *MemoryStore) Commit(ctx context.Context, cs *interfaces.ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.apply(cs)
	return nil
}

// Name returns the name of this store.
func (m *MemoryStore) Name() string {
	return "memory"
}

// LocationURI returns the URI of this store.
func (m *MemoryStore) LocationURI() string {
	return "memory://"
}
