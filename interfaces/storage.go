package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrSnapshotNotFound is returned by a snapshot backend that has never been written to.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// EntryWrite sets key to owner. Writing NoOwner clears the entry.
type EntryWrite struct {
	Key   Identifier
	Owner Identity
}

// NonceWrite sets the counter of an identity to Value.
type NonceWrite struct {
	Identity Identity
	Value    uint64
}

// ChangeSet is the staged result of one registry operation.
// Entries are applied in order, so a later write to the same key wins.
// A store applies either the whole change set or nothing.
type ChangeSet struct {
	Entries []EntryWrite
	Nonces  []NonceWrite
}

// SetOwner stages a write of key to owner.
func (cs *ChangeSet) SetOwner(key Identifier, owner Identity) {
	cs.Entries = append(cs.Entries, EntryWrite{Key: key, Owner: owner})
}

// Clear stages the removal of key.
func (cs *ChangeSet) Clear(key Identifier) {
	cs.SetOwner(key, NoOwner)
}

// SetNonce stages a nonce update.
func (cs *ChangeSet) SetNonce(identity Identity, value uint64) {
	cs.Nonces = append(cs.Nonces, NonceWrite{Identity: identity, Value: value})
}

// Store persists the key and nonce mappings, the only state a registry has.
type Store interface {
	// OwnerOf returns the owner of key, or NoOwner for absent entries.
	OwnerOf(ctx context.Context, key Identifier) (Identity, error)

	// NonceOf returns the current counter of identity, 0 if never observed.
	NonceOf(ctx context.Context, identity Identity) (uint64, error)

	// Commit atomically applies the change set.
	Commit(ctx context.Context, cs *ChangeSet) error

	// Name returns a unique identifier for this store.
	Name() string

	// LocationURI returns the URI this store was created from.
	LocationURI() string
}

// SnapshotBackend holds a serialized copy of the registry state.
type SnapshotBackend interface {
	// Load returns the last saved snapshot or ErrSnapshotNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, data []byte) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns backend identifier.
	Name() string

	// LocationURI returns backend location.
	LocationURI() string
}
