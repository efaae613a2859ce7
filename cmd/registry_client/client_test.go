package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/signet-registry/api"
	"github.com/ruteri/signet-registry/api/clients"
	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/ruteri/signet-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testKey1 = interfaces.Identifier{0xaa}
	testKey2 = interfaces.Identifier{0xbb}
)

func newTestClient(t *testing.T, name string) (*Client, *bytes.Buffer) {
	privKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	scheme, err := registry.SchemeFor(name, nil)
	require.NoError(t, err)

	out := new(bytes.Buffer)
	return &Client{
		Registry: name,
		Scheme:   scheme,
		Key:      privKey,
		Out:      out,
	}, out
}

func TestClient_ApplyThroughRelay(t *testing.T) {
	c, out := newTestClient(t, registry.ProxyWalletRegistryName)
	owner := cryptoutils.IdentityOf(c.Key)

	relay := new(clients.MockRelayProvider)
	relay.On("NonceOf", mock.Anything, registry.ProxyWalletRegistryName, owner).Return(uint64(2), nil)
	relay.On("Submit", mock.Anything, registry.ProxyWalletRegistryName, interfaces.OpChange, mock.MatchedBy(func(req *api.SignedActionRequest) bool {
		if req.Nonce != 2 || req.Owner != owner || req.OldKey == nil || *req.OldKey != testKey1 {
			return false
		}
		digest, err := c.Scheme.Digest(interfaces.Action{Kind: interfaces.OpChange, OldKey: testKey1, Key: testKey2, Nonce: 2})
		if err != nil {
			return false
		}
		signer, err := cryptoutils.Recover(digest, req.Signature)
		return err == nil && signer == owner
	})).Return(&api.ActionResponse{Key: testKey2, Owner: owner, Nonce: 3}, nil)
	c.Relay = relay

	require.NoError(t, c.Apply(context.Background(), interfaces.OpChange, testKey1, testKey2))
	relay.AssertExpectations(t)

	var resp api.ActionResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, uint64(3), resp.Nonce)
	assert.Equal(t, owner, resp.Owner)
}

func TestClient_RelayErrorsAreWrapped(t *testing.T) {
	c, _ := newTestClient(t, registry.SignetRegistryName)

	relay := new(clients.MockRelayProvider)
	relay.On("NonceOf", mock.Anything, mock.Anything, mock.Anything).Return(uint64(0), nil)
	relay.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, interfaces.ErrStaleNonce)
	c.Relay = relay

	err := c.Apply(context.Background(), interfaces.OpClaim, interfaces.Identifier{}, testKey1)
	assert.ErrorIs(t, err, interfaces.ErrStaleNonce)
	assert.Contains(t, err.Error(), "claim failed")
}

func TestClient_SignedOnchain(t *testing.T) {
	for _, name := range []string{registry.SignetRegistryName, registry.ProxyWalletRegistryName} {
		t.Run(name, func(t *testing.T) {
			c, out := newTestClient(t, name)
			owner := cryptoutils.IdentityOf(c.Key)

			chain, err := registry.NewMockRegistryClient(name)
			require.NoError(t, err)

			// A third party pays for the relayed transactions
			relayer, err := crypto.GenerateKey()
			require.NoError(t, err)
			chain.SetTransactOpts(&bind.TransactOpts{From: crypto.PubkeyToAddress(relayer.PublicKey)})
			c.Chain = chain

			ctx := context.Background()
			require.NoError(t, c.Apply(ctx, interfaces.OpClaim, interfaces.Identifier{}, testKey1))
			require.NoError(t, c.Apply(ctx, interfaces.OpChange, testKey1, testKey2))

			got, err := chain.OwnerOf(ctx, testKey2)
			require.NoError(t, err)
			assert.Equal(t, owner, got)

			nonce, err := chain.NonceOf(ctx, owner)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), nonce)

			lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
			require.Len(t, lines, 2)
			var result txResult
			require.NoError(t, json.Unmarshal(lines[1], &result))
			assert.NotEqual(t, common.Hash{}, result.TxHash)

			require.NoError(t, c.Apply(ctx, interfaces.OpRevoke, interfaces.Identifier{}, testKey2))
			got, err = chain.OwnerOf(ctx, testKey2)
			require.NoError(t, err)
			assert.Equal(t, interfaces.NoOwner, got)
		})
	}
}

func TestClient_DirectOnchain(t *testing.T) {
	c, _ := newTestClient(t, registry.SignetRegistryName)
	owner := cryptoutils.IdentityOf(c.Key)

	chain, err := registry.NewMockRegistryClient(registry.SignetRegistryName)
	require.NoError(t, err)
	chain.SetTransactOpts(&bind.TransactOpts{From: owner.Address()})
	c.Chain = chain
	c.Direct = true

	ctx := context.Background()
	require.NoError(t, c.Apply(ctx, interfaces.OpClaim, interfaces.Identifier{}, testKey1))

	got, err := chain.OwnerOf(ctx, testKey1)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	// The direct family does not consume nonces
	nonce, err := chain.NonceOf(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}

func TestClient_OnchainRevert(t *testing.T) {
	c, _ := newTestClient(t, registry.SignetRegistryName)

	chain := new(registry.MockRegistry)
	chain.On("NonceOf", mock.Anything, mock.Anything).Return(uint64(0), nil)
	chain.On("RevokeFromSignature", testKey1, cryptoutils.IdentityOf(c.Key), uint64(0), mock.Anything, mock.Anything, mock.Anything).
		Return(nil, interfaces.ErrUnauthorized)
	c.Chain = chain

	err := c.Apply(context.Background(), interfaces.OpRevoke, interfaces.Identifier{}, testKey1)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	chain.AssertExpectations(t)
}

func TestClient_Misconfiguration(t *testing.T) {
	c, _ := newTestClient(t, registry.SignetRegistryName)
	c.Relay = new(clients.MockRelayProvider)
	c.Direct = true

	err := c.Apply(context.Background(), interfaces.OpClaim, interfaces.Identifier{}, testKey1)
	assert.True(t, errors.Is(err, errDirectNeedsRPC))

	c.Key = nil
	err = c.Apply(context.Background(), interfaces.OpClaim, interfaces.Identifier{}, testKey1)
	assert.ErrorIs(t, err, errNoPrivateKey)

	err = c.Nonce(context.Background(), interfaces.NoOwner)
	assert.ErrorIs(t, err, errNoPrivateKey)
}

func TestClient_QueriesAndDigest(t *testing.T) {
	c, out := newTestClient(t, registry.SignetRegistryName)
	owner := cryptoutils.IdentityOf(c.Key)

	chain, err := registry.NewMockRegistryClient(registry.SignetRegistryName)
	require.NoError(t, err)
	chain.SetTransactOpts(&bind.TransactOpts{From: owner.Address()})
	c.Chain = chain

	ctx := context.Background()
	require.NoError(t, c.Apply(ctx, interfaces.OpClaim, interfaces.Identifier{}, testKey1))
	out.Reset()

	require.NoError(t, c.Owner(ctx, testKey1))
	var ownerResp api.OwnerResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &ownerResp))
	assert.Equal(t, owner, ownerResp.Owner)
	out.Reset()

	require.NoError(t, c.Nonce(ctx, interfaces.NoOwner))
	var nonceResp api.NonceResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &nonceResp))
	assert.Equal(t, owner, nonceResp.Identity)
	assert.Equal(t, uint64(1), nonceResp.Nonce)
	out.Reset()

	// The current nonce is bound unless one is given
	action := interfaces.Action{Kind: interfaces.OpRevoke, Key: testKey1}
	require.NoError(t, c.Digest(ctx, action, true))
	var digestResp api.DigestResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &digestResp))

	action.Nonce = 1
	expected, err := chain.Registry().Digest(action)
	require.NoError(t, err)
	assert.Equal(t, expected, digestResp.Digest)
	assert.Equal(t, cryptoutils.TypedDataSchemeName, digestResp.Scheme)
	out.Reset()

	action.Nonce = 0
	require.NoError(t, c.Digest(ctx, action, false))
	require.NoError(t, json.Unmarshal(out.Bytes(), &digestResp))
	assert.NotEqual(t, expected, digestResp.Digest)
}
