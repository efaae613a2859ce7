package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the OnchainRegistry interface
type MockRegistry struct {
	mock.Mock
}

// OwnerOf mocks the OwnerOf method
func (m *MockRegistry) OwnerOf(ctx context.Context, key interfaces.Identifier) (interfaces.Identity, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(interfaces.Identity), args.Error(1)
}

// NonceOf mocks the NonceOf method
func (m *MockRegistry) NonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(uint64), args.Error(1)
}

// Claim mocks the Claim method
func (m *MockRegistry) Claim(key interfaces.Identifier) (*types.Transaction, error) {
	args := m.Called(key)
	return txArg(args, 0), args.Error(1)
}

// Revoke mocks the Revoke method
func (m *MockRegistry) Revoke(key interfaces.Identifier) (*types.Transaction, error) {
	args := m.Called(key)
	return txArg(args, 0), args.Error(1)
}

// Change mocks the Change method
func (m *MockRegistry) Change(oldKey, newKey interfaces.Identifier) (*types.Transaction, error) {
	args := m.Called(oldKey, newKey)
	return txArg(args, 0), args.Error(1)
}

// ClaimFromSignature mocks the ClaimFromSignature method
func (m *MockRegistry) ClaimFromSignature(key interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	args := m.Called(key, owner, nonce, v, r, s)
	return txArg(args, 0), args.Error(1)
}

// RevokeFromSignature mocks the RevokeFromSignature method
func (m *MockRegistry) RevokeFromSignature(key interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	args := m.Called(key, owner, nonce, v, r, s)
	return txArg(args, 0), args.Error(1)
}

// ChangeFromSignature mocks the ChangeFromSignature method
func (m *MockRegistry) ChangeFromSignature(oldKey, newKey interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	args := m.Called(oldKey, newKey, owner, nonce, v, r, s)
	return txArg(args, 0), args.Error(1)
}

func txArg(args mock.Arguments, index int) *types.Transaction {
	if args.Get(index) == nil {
		return nil
	}
	return args.Get(index).(*types.Transaction)
}

var _ interfaces.OnchainRegistry = (*MockRegistry)(nil)
