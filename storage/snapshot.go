package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ruteri/signet-registry/interfaces"
)

// SnapshotStore serves reads from memory and mirrors every commit to a snapshot backend.
// A commit is visible only after the backend accepted the new snapshot, so a failed
// save leaves the store exactly as it was.
type SnapshotStore struct {
	mu      sync.RWMutex
	state   *registryState
	backend interfaces.SnapshotBackend
	log     *slog.Logger
}

// NewSnapshotStore loads the latest snapshot from backend. A backend without a snapshot
// starts with an empty registry.
func NewSnapshotStore(ctx context.Context, backend interfaces.SnapshotBackend, log *slog.Logger) (*SnapshotStore, error) {
	if log == nil {
		log = slog.Default()
	}

	state := newRegistryState()
	data, err := backend.Load(ctx)
	switch {
	case errors.Is(err, interfaces.ErrSnapshotNotFound):
		log.Info("No registry snapshot found, starting empty", slog.String("backend", backend.Name()))
	case err != nil:
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", backend.Name(), err)
	default:
		state, err = unmarshalRegistryState(data)
		if err != nil {
			return nil, err
		}
		log.Info("Loaded registry snapshot",
			slog.String("backend", backend.Name()),
			slog.Uint64("version", state.version),
			slog.Int("keys", len(state.keys)),
			slog.Int("nonces", len(state.nonces)))
	}

	return &SnapshotStore{
		state:   state,
		backend: backend,
		log:     log,
	}, nil
}

// OwnerOf returns the owner of key, or NoOwner.
func (s *SnapshotStore) OwnerOf(ctx context.Context, key interfaces.Identifier) (interfaces.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ownerOf(key), nil
}

// NonceOf returns the current nonce of identity.
func (s *SnapshotStore) NonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.nonceOf(identity), nil
}

// Commit stages cs on a copy of the state, persists the copy and swaps it in.
func (s *SnapshotStore) Commit(ctx context.Context, cs *interfaces.ChangeSet) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	next.apply(cs)

	data, err := next.marshal()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.backend.Save(ctx, data); err != nil {
		s.log.Error("Failed to persist registry snapshot",
			slog.String("backend", s.backend.Name()),
			"err", err)
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	s.state = next
	s.log.Debug("Persisted registry snapshot",
		slog.String("backend", s.backend.Name()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Name returns the name of this store.
func (s *SnapshotStore) Name() string {
	return "snapshot-" + s.backend.Name()
}

// LocationURI returns the URI of the underlying backend.
func (s *SnapshotStore) LocationURI() string {
	return s.backend.LocationURI()
}
