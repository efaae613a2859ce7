package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ruteri/signet-registry/api"
	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// RelayClient implements api.RelayProvider over the relay HTTP API.
type RelayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRelayClient creates a client for the relay at baseURL (e.g. "http://localhost:8080").
// The request timeout defaults to 30 seconds.
func NewRelayClient(baseURL string, timeout ...time.Duration) *RelayClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &RelayClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// OwnerOf queries the owner of key in the named registry.
func (c *RelayClient) OwnerOf(ctx context.Context, registry string, key interfaces.Identifier) (interfaces.Identity, error) {
	var resp api.OwnerResponse
	if err := c.do(ctx, http.MethodGet, []string{registry, "owner", key.String()}, nil, &resp); err != nil {
		return interfaces.NoOwner, err
	}
	return resp.Owner, nil
}

// NonceOf queries the nonce the next signature of identity has to carry.
func (c *RelayClient) NonceOf(ctx context.Context, registry string, identity interfaces.Identity) (uint64, error) {
	var resp api.NonceResponse
	if err := c.do(ctx, http.MethodGet, []string{registry, "nonce", identity.String()}, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// Digest asks the relay which digest it expects to be signed for req.
// Signers should prefer computing the digest locally, see SignAction.
func (c *RelayClient) Digest(ctx context.Context, registry string, req *api.ActionRequest) (*api.DigestResponse, error) {
	var resp api.DigestResponse
	if err := c.do(ctx, http.MethodPost, []string{registry, "digest"}, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit relays a signed operation and returns the resulting state.
func (c *RelayClient) Submit(ctx context.Context, registry string, op interfaces.Operation, req *api.SignedActionRequest) (*api.ActionResponse, error) {
	var resp api.ActionResponse
	if err := c.do(ctx, http.MethodPost, []string{registry, op.String()}, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RelayClient) do(ctx context.Context, method string, path []string, body any, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, append([]string{api.RegistryPathPrefix}, path...)...)
	if err != nil {
		return fmt.Errorf("invalid relay address: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reqJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return api.ErrorForStatus(resp.StatusCode, errResp.Error)
		}
		return api.ErrorForStatus(resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// SignAction signs action under scheme with key and builds the relay request.
// The action's Owner is set to the identity of key.
func SignAction(scheme interfaces.DigestScheme, action interfaces.Action, key *ecdsa.PrivateKey) (*api.SignedActionRequest, error) {
	action.Owner = cryptoutils.IdentityOf(key)

	digest, err := scheme.Digest(action)
	if err != nil {
		return nil, err
	}

	sig, err := cryptoutils.SignDigest(digest, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}

	req := &api.SignedActionRequest{
		Key:       action.Key,
		Owner:     action.Owner,
		Nonce:     action.Nonce,
		Signature: sig,
	}
	if action.Kind == interfaces.OpChange {
		oldKey := action.OldKey
		req.OldKey = &oldKey
	}
	return req, nil
}

// MockRelayProvider implements api.RelayProvider for testing.
type MockRelayProvider struct {
	mock.Mock
}

func (m *MockRelayProvider) OwnerOf(ctx context.Context, registry string, key interfaces.Identifier) (interfaces.Identity, error) {
	args := m.Called(ctx, registry, key)
	return args.Get(0).(interfaces.Identity), args.Error(1)
}

func (m *MockRelayProvider) NonceOf(ctx context.Context, registry string, identity interfaces.Identity) (uint64, error) {
	args := m.Called(ctx, registry, identity)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockRelayProvider) Digest(ctx context.Context, registry string, req *api.ActionRequest) (*api.DigestResponse, error) {
	args := m.Called(ctx, registry, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.DigestResponse), args.Error(1)
}

func (m *MockRelayProvider) Submit(ctx context.Context, registry string, op interfaces.Operation, req *api.SignedActionRequest) (*api.ActionResponse, error) {
	args := m.Called(ctx, registry, op, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ActionResponse), args.Error(1)
}

var (
	_ api.RelayProvider = (*RelayClient)(nil)
	_ api.RelayProvider = (*MockRelayProvider)(nil)
)
