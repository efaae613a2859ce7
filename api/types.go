package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
)

// RegistryPathPrefix is the prefix of every registry route: /api/registry/{registry}/...
const RegistryPathPrefix = "/api/registry"

// ErrUnknownRegistry is returned for a registry name the relay does not host.
var ErrUnknownRegistry = errors.New("unknown registry")

// ErrMalformedRequest is returned for requests that cannot be decoded or validated.
var ErrMalformedRequest = errors.New("malformed request")

// RelayProvider is the relay API as seen by its clients.
type RelayProvider interface {
	// OwnerOf returns the owner of key in the named registry.
	OwnerOf(ctx context.Context, registry string, key interfaces.Identifier) (interfaces.Identity, error)

	// NonceOf returns the nonce the next signature of identity has to carry.
	NonceOf(ctx context.Context, registry string, identity interfaces.Identity) (uint64, error)

	// Digest asks the relay for the digest an owner has to sign.
	Digest(ctx context.Context, registry string, req *ActionRequest) (*DigestResponse, error)

	// Submit relays a signed operation.
	Submit(ctx context.Context, registry string, op interfaces.Operation, req *SignedActionRequest) (*ActionResponse, error)
}

// ActionRequest describes an operation to build a digest for.
type ActionRequest struct {
	// Operation is one of "claim", "revoke" or "change".
	Operation string `json:"operation"`

	// OldKey is required for "change" and must be absent otherwise.
	OldKey *interfaces.Identifier `json:"old_key,omitempty"`

	Key   interfaces.Identifier `json:"key"`
	Nonce uint64                `json:"nonce"`
}

// Action validates the request and converts it into an interfaces.Action.
func (r *ActionRequest) Action() (interfaces.Action, error) {
	op, err := interfaces.ParseOperation(r.Operation)
	if err != nil {
		return interfaces.Action{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return buildAction(op, r.OldKey, r.Key, interfaces.NoOwner, r.Nonce)
}

// SignedActionRequest is the body of claim, revoke and change requests.
// The operation itself is part of the route.
type SignedActionRequest struct {
	OldKey    *interfaces.Identifier `json:"old_key,omitempty"`
	Key       interfaces.Identifier  `json:"key"`
	Owner     interfaces.Identity    `json:"owner"`
	Nonce     uint64                 `json:"nonce"`
	Signature cryptoutils.Signature  `json:"signature"`
}

// Action validates the request against op and converts it into an interfaces.Action.
func (r *SignedActionRequest) Action(op interfaces.Operation) (interfaces.Action, error) {
	return buildAction(op, r.OldKey, r.Key, r.Owner, r.Nonce)
}

func buildAction(op interfaces.Operation, oldKey *interfaces.Identifier, key interfaces.Identifier, owner interfaces.Identity, nonce uint64) (interfaces.Action, error) {
	action := interfaces.Action{Kind: op, Key: key, Owner: owner, Nonce: nonce}
	switch op {
	case interfaces.OpChange:
		if oldKey == nil {
			return interfaces.Action{}, fmt.Errorf("%w: change requires old_key", ErrMalformedRequest)
		}
		action.OldKey = *oldKey
	case interfaces.OpClaim, interfaces.OpRevoke:
		if oldKey != nil {
			return interfaces.Action{}, fmt.Errorf("%w: old_key is only valid for change", ErrMalformedRequest)
		}
	default:
		return interfaces.Action{}, fmt.Errorf("%w: %w", ErrMalformedRequest, interfaces.ErrUnknownOperation)
	}
	return action, nil
}

// OwnerResponse is returned by GET /api/registry/{registry}/owner/{key}.
type OwnerResponse struct {
	Key   interfaces.Identifier `json:"key"`
	Owner interfaces.Identity   `json:"owner"`
}

// NonceResponse is returned by GET /api/registry/{registry}/nonce/{identity}.
type NonceResponse struct {
	Identity interfaces.Identity `json:"identity"`
	Nonce    uint64              `json:"nonce"`
}

// DigestResponse is returned by POST /api/registry/{registry}/digest.
type DigestResponse struct {
	Digest common.Hash `json:"digest"`
	Scheme string      `json:"scheme"`
}

// ActionResponse is the state after an accepted operation: the owner of the
// affected key (the new key for change) and the owner's next nonce.
type ActionResponse struct {
	Key   interfaces.Identifier `json:"key"`
	Owner interfaces.Identity   `json:"owner"`
	Nonce uint64                `json:"nonce"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusForError maps an error to the HTTP status the relay answers with.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownRegistry):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrStaleNonce):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorForStatus is the inverse of StatusForError, used by clients to restore
// the error taxonomy from a response.
func ErrorForStatus(status int, message string) error {
	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = ErrMalformedRequest
	case http.StatusNotFound:
		sentinel = ErrUnknownRegistry
	case http.StatusUnauthorized:
		sentinel = interfaces.ErrInvalidSignature
	case http.StatusForbidden:
		sentinel = interfaces.ErrUnauthorized
	case http.StatusConflict:
		sentinel = interfaces.ErrStaleNonce
	default:
		return fmt.Errorf("relay returned error %d: %s", status, message)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
