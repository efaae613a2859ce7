package registry

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/ruteri/signet-registry/storage"
)

// MockRegistryClient provides an in-memory implementation of the OnchainRegistry
// interface for testing purposes without requiring a blockchain connection.
// Contract semantics come from a Registry over a MemoryStore; the transactor set
// with SetTransactOpts plays the role of msg.sender. Every call is "mined" immediately
// and a failing call returns the error the contract would revert with.
type MockRegistryClient struct {
	mutex    sync.Mutex
	registry *Registry
	sender   interfaces.Identity
	txNonce  uint64
	canWrite bool
}

// NewMockRegistryClient creates a mock contract for the named registry instance.
// The client starts in a read-only state - call SetTransactOpts to enable transaction operations.
func NewMockRegistryClient(name string) (*MockRegistryClient, error) {
	var (
		reg *Registry
		err error
	)
	switch name {
	case SignetRegistryName:
		reg, err = NewSignetRegistry(storage.NewMemoryStore(), big.NewInt(DefaultChainID), nil)
	case ProxyWalletRegistryName:
		reg, err = NewProxyWalletRegistry(storage.NewMemoryStore(), nil)
	default:
		_, err = MethodsFor(name)
	}
	if err != nil {
		return nil, err
	}

	return &MockRegistryClient{registry: reg}, nil
}

// SetTransactOpts enables transaction operations on the mock client, sent from auth.From.
func (m *MockRegistryClient) SetTransactOpts(auth *bind.TransactOpts) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sender = interfaces.IdentityFromAddress(auth.From)
	m.canWrite = true
}

// Registry exposes the registry core behind the mock.
func (m *MockRegistryClient) Registry() *Registry {
	return m.registry
}

// OwnerOf returns the owner of key.
func (m *MockRegistryClient) OwnerOf(ctx context.Context, key interfaces.Identifier) (interfaces.Identity, error) {
	return m.registry.OwnerOf(ctx, key)
}

// NonceOf returns the nonce of identity.
func (m *MockRegistryClient) NonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	return m.registry.NonceOf(ctx, identity)
}

// Claim claims key for the sender.
func (m *MockRegistryClient) Claim(key interfaces.Identifier) (*types.Transaction, error) {
	return m.transact(func(sender interfaces.Identity) error {
		return m.registry.Claim(context.Background(), sender, key)
	})
}

// Revoke revokes key owned by the sender.
func (m *MockRegistryClient) Revoke(key interfaces.Identifier) (*types.Transaction, error) {
	return m.transact(func(sender interfaces.Identity) error {
		return m.registry.Revoke(context.Background(), sender, key)
	})
}

// Change moves the sender's ownership from oldKey to newKey.
func (m *MockRegistryClient) Change(oldKey, newKey interfaces.Identifier) (*types.Transaction, error) {
	return m.transact(func(sender interfaces.Identity) error {
		return m.registry.Change(context.Background(), sender, oldKey, newKey)
	})
}

// ClaimFromSignature relays a signed claim.
func (m *MockRegistryClient) ClaimFromSignature(key interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	return m.transact(func(interfaces.Identity) error {
		return m.registry.ClaimFromSignature(context.Background(), key, owner, nonce, cryptoutils.Signature{R: r, S: s, V: v})
	})
}

// RevokeFromSignature relays a signed revoke.
func (m *MockRegistryClient) RevokeFromSignature(key interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	return m.transact(func(interfaces.Identity) error {
		return m.registry.RevokeFromSignature(context.Background(), key, owner, nonce, cryptoutils.Signature{R: r, S: s, V: v})
	})
}

// ChangeFromSignature relays a signed change.
func (m *MockRegistryClient) ChangeFromSignature(oldKey, newKey interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	return m.transact(func(interfaces.Identity) error {
		return m.registry.ChangeFromSignature(context.Background(), oldKey, newKey, owner, nonce, cryptoutils.Signature{R: r, S: s, V: v})
	})
}

func (m *MockRegistryClient) transact(apply func(sender interfaces.Identity) error) (*types.Transaction, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.canWrite {
		return nil, ErrNoTransactOpts
	}
	if err := apply(m.sender); err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{Nonce: m.txNonce})
	m.txNonce++
	return tx, nil
}

var _ interfaces.OnchainRegistry = (*MockRegistryClient)(nil)
