package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/signet-registry/api"
	"github.com/ruteri/signet-registry/httpserver"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/ruteri/signet-registry/registry"
	"github.com/ruteri/signet-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	key1 = interfaces.Identifier{0x01}
	key2 = interfaces.Identifier{0x02}
)

func setupRelay(t *testing.T) (*RelayClient, *registry.Registry, *registry.Registry) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signet, err := registry.NewSignetRegistry(storage.NewMemoryStore(), nil, logger)
	require.NoError(t, err)
	proxy, err := registry.NewProxyWalletRegistry(storage.NewMemoryStore(), logger)
	require.NoError(t, err)

	srv, err := httpserver.New(&api.HTTPServerConfig{
		Log:                      logger,
		GracefulShutdownDuration: time.Second,
	}, signet, proxy)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return NewRelayClient(ts.URL, 5*time.Second), signet, proxy
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestRelayClient_Lifecycle(t *testing.T) {
	client, signet, proxy := setupRelay(t)
	ctx := context.Background()

	for _, reg := range []*registry.Registry{signet, proxy} {
		t.Run(reg.Name(), func(t *testing.T) {
			privKey := mustKey(t)

			claim, err := SignAction(reg.Scheme(), interfaces.Action{Kind: interfaces.OpClaim, Key: key1}, privKey)
			require.NoError(t, err)

			resp, err := client.Submit(ctx, reg.Name(), interfaces.OpClaim, claim)
			require.NoError(t, err)
			assert.Equal(t, claim.Owner, resp.Owner)
			assert.Equal(t, uint64(1), resp.Nonce)

			owner, err := client.OwnerOf(ctx, reg.Name(), key1)
			require.NoError(t, err)
			assert.Equal(t, claim.Owner, owner)

			nonce, err := client.NonceOf(ctx, reg.Name(), claim.Owner)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), nonce)

			// Replays are stale
			_, err = client.Submit(ctx, reg.Name(), interfaces.OpClaim, claim)
			assert.ErrorIs(t, err, interfaces.ErrStaleNonce)

			change, err := SignAction(reg.Scheme(), interfaces.Action{Kind: interfaces.OpChange, OldKey: key1, Key: key2, Nonce: nonce}, privKey)
			require.NoError(t, err)
			require.NotNil(t, change.OldKey)

			resp, err = client.Submit(ctx, reg.Name(), interfaces.OpChange, change)
			require.NoError(t, err)
			assert.Equal(t, key2, resp.Key)
			assert.Equal(t, uint64(2), resp.Nonce)

			owner, err = client.OwnerOf(ctx, reg.Name(), key1)
			require.NoError(t, err)
			assert.Equal(t, interfaces.NoOwner, owner)
		})
	}
}

func TestRelayClient_Errors(t *testing.T) {
	client, signet, _ := setupRelay(t)
	ctx := context.Background()

	holder := mustKey(t)
	intruder := mustKey(t)

	claim, err := SignAction(signet.Scheme(), interfaces.Action{Kind: interfaces.OpClaim, Key: key1}, holder)
	require.NoError(t, err)
	_, err = client.Submit(ctx, registry.SignetRegistryName, interfaces.OpClaim, claim)
	require.NoError(t, err)

	// Signed by the intruder but asserting the holder
	forged, err := SignAction(signet.Scheme(), interfaces.Action{Kind: interfaces.OpRevoke, Key: key1}, intruder)
	require.NoError(t, err)
	forged.Owner = claim.Owner
	forged.Nonce = 1
	_, err = client.Submit(ctx, registry.SignetRegistryName, interfaces.OpRevoke, forged)
	assert.ErrorIs(t, err, interfaces.ErrInvalidSignature)

	revoke, err := SignAction(signet.Scheme(), interfaces.Action{Kind: interfaces.OpRevoke, Key: key1}, intruder)
	require.NoError(t, err)
	_, err = client.Submit(ctx, registry.SignetRegistryName, interfaces.OpRevoke, revoke)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = client.OwnerOf(ctx, "unknown", key1)
	assert.ErrorIs(t, err, api.ErrUnknownRegistry)

	_, err = client.Submit(ctx, registry.SignetRegistryName, interfaces.OpChange, claim)
	assert.ErrorIs(t, err, api.ErrMalformedRequest)

	owner, err := client.OwnerOf(ctx, registry.SignetRegistryName, key1)
	require.NoError(t, err)
	assert.Equal(t, claim.Owner, owner)
}

func TestRelayClient_DigestMatchesLocalScheme(t *testing.T) {
	client, signet, proxy := setupRelay(t)

	for _, reg := range []*registry.Registry{signet, proxy} {
		action := interfaces.Action{Kind: interfaces.OpRevoke, Key: key2, Nonce: 9}
		expected, err := reg.Scheme().Digest(action)
		require.NoError(t, err)

		resp, err := client.Digest(context.Background(), reg.Name(), &api.ActionRequest{
			Operation: "revoke",
			Key:       key2,
			Nonce:     9,
		})
		require.NoError(t, err)
		assert.Equal(t, expected, resp.Digest)
		assert.Equal(t, reg.Scheme().Name(), resp.Scheme)
	}
}

func TestRelayClient_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewRelayClient(ts.URL)
	_, err := client.NonceOf(context.Background(), registry.SignetRegistryName, interfaces.Identity{0x01})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.False(t, errors.Is(err, interfaces.ErrStaleNonce))
}

func TestRelayClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	client := NewRelayClient(ts.URL, time.Second)
	_, err := client.OwnerOf(context.Background(), registry.SignetRegistryName, key1)
	assert.Error(t, err)
}

func TestMockRelayProvider(t *testing.T) {
	m := new(MockRelayProvider)
	m.On("NonceOf", mock.Anything, registry.ProxyWalletRegistryName, interfaces.Identity{0x07}).Return(uint64(4), nil)
	m.On("Submit", mock.Anything, registry.ProxyWalletRegistryName, interfaces.OpRevoke, mock.Anything).Return(nil, interfaces.ErrUnauthorized)

	var provider api.RelayProvider = m
	nonce, err := provider.NonceOf(context.Background(), registry.ProxyWalletRegistryName, interfaces.Identity{0x07})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), nonce)

	_, err = provider.Submit(context.Background(), registry.ProxyWalletRegistryName, interfaces.OpRevoke, &api.SignedActionRequest{})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	m.AssertExpectations(t)
}
