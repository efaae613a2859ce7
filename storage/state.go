package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/signet-registry/interfaces"
)

// registryState is the full content of a registry: owners and nonces.
// Cleared entries and zero nonces are not kept. version counts the applied
// change sets and orders snapshots of the same registry.
type registryState struct {
	version uint64
	keys    map[interfaces.Identifier]interfaces.Identity
	nonces  map[interfaces.Identity]uint64
}

func newRegistryState() *registryState {
	return &registryState{
		keys:   make(map[interfaces.Identifier]interfaces.Identity),
		nonces: make(map[interfaces.Identity]uint64),
	}
}

func (s *registryState) ownerOf(key interfaces.Identifier) interfaces.Identity {
	return s.keys[key]
}

func (s *registryState) nonceOf(identity interfaces.Identity) uint64 {
	return s.nonces[identity]
}

func (s *registryState) apply(cs *interfaces.ChangeSet) {
	for _, w := range cs.Entries {
		if w.Owner.IsNoOwner() {
			delete(s.keys, w.Key)
		} else {
			s.keys[w.Key] = w.Owner
		}
	}
	for _, n := range cs.Nonces {
		if n.Value == 0 {
			delete(s.nonces, n.Identity)
		} else {
			s.nonces[n.Identity] = n.Value
		}
	}
	s.version++
}

func (s *registryState) clone() *registryState {
	res := &registryState{
		version: s.version,
		keys:    make(map[interfaces.Identifier]interfaces.Identity, len(s.keys)),
		nonces:  make(map[interfaces.Identity]uint64, len(s.nonces)),
	}
	for k, v := range s.keys {
		res.keys[k] = v
	}
	for k, v := range s.nonces {
		res.nonces[k] = v
	}
	return res
}

// stateSnapshot is the serialized form written to snapshot backends.
// Snapshots written before versioning decode as version 0.
type stateSnapshot struct {
	Version hexutil.Uint64                                `json:"version"`
	Keys    map[interfaces.Identifier]interfaces.Identity `json:"keys"`
	Nonces  map[interfaces.Identity]hexutil.Uint64        `json:"nonces"`
}

func (s *registryState) marshal() ([]byte, error) {
	snap := stateSnapshot{
		Version: hexutil.Uint64(s.version),
		Keys:    s.keys,
		Nonces:  make(map[interfaces.Identity]hexutil.Uint64, len(s.nonces)),
	}
	for k, v := range s.nonces {
		snap.Nonces[k] = hexutil.Uint64(v)
	}
	return json.MarshalIndent(snap, "", "  ")
}

func unmarshalRegistryState(data []byte) (*registryState, error) {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid registry snapshot: %w", err)
	}

	res := newRegistryState()
	res.version = uint64(snap.Version)
	for k, v := range snap.Keys {
		if !v.IsNoOwner() {
			res.keys[k] = v
		}
	}
	for k, v := range snap.Nonces {
		if v != 0 {
			res.nonces[k] = uint64(v)
		}
	}
	return res, nil
}

// snapshotVersion decodes only the version of a serialized snapshot.
func snapshotVersion(data []byte) (uint64, error) {
	var snap struct {
		Version hexutil.Uint64 `json:"version"`
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("invalid registry snapshot: %w", err)
	}
	return uint64(snap.Version), nil
}
