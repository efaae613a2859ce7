package interfaces

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Operation is the kind of mutation an action performs.
type Operation int

const (
	// OpClaim points a key at the acting identity.
	OpClaim Operation = iota
	// OpRevoke clears a key owned by the acting identity.
	OpRevoke
	// OpChange moves ownership from OldKey to Key.
	OpChange
)

// String returns the operation name used in logs, metrics and URLs.
func (op Operation) String() string {
	switch op {
	case OpClaim:
		return "claim"
	case OpRevoke:
		return "revoke"
	case OpChange:
		return "change"
	default:
		return "unknown"
	}
}

// ParseOperation is the inverse of Operation.String.
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "claim":
		return OpClaim, nil
	case "revoke":
		return OpRevoke, nil
	case "change":
		return OpChange, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// Action carries every field an operation's digest may bind.
// OldKey is only meaningful for OpChange. Owner is available to schemes that
// bind the asserted owner; neither built-in scheme does.
type Action struct {
	Kind   Operation
	OldKey Identifier
	Key    Identifier
	Owner  Identity
	Nonce  uint64
}

// DigestScheme deterministically encodes an Action into the 32-byte digest that gets signed.
type DigestScheme interface {
	// Name identifies the scheme, e.g. "eip712" or "personal-message".
	Name() string

	// Digest returns the hash to be signed for the action.
	Digest(action Action) (common.Hash, error)
}

// OnchainRegistry is a deployed registry contract (SignetRegistry or RTSProxyWallet).
// Write methods return the submitted transaction; state changes once it is mined.
type OnchainRegistry interface {
	OwnerOf(ctx context.Context, key Identifier) (Identity, error)
	NonceOf(ctx context.Context, identity Identity) (uint64, error)

	// Direct family, the transaction sender is the caller.
	Claim(key Identifier) (*types.Transaction, error)
	Revoke(key Identifier) (*types.Transaction, error)
	Change(oldKey, newKey Identifier) (*types.Transaction, error)

	// Signature family, the transaction sender only relays.
	ClaimFromSignature(key Identifier, owner Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error)
	RevokeFromSignature(key Identifier, owner Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error)
	ChangeFromSignature(oldKey, newKey Identifier, owner Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error)
}
