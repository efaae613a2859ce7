package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/signet-registry/api"
	"github.com/ruteri/signet-registry/api/clients"
	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
)

var (
	errNoPrivateKey   = errors.New("a private key is required to sign")
	errDirectNeedsRPC = errors.New("direct operations need a registry contract")
)

// miner is implemented by on-chain clients that can wait for their transactions.
type miner interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Client performs registry operations either through a relay or against a
// deployed contract. Exactly one of Relay and Chain is set.
type Client struct {
	Registry string
	Scheme   interfaces.DigestScheme
	Key      *ecdsa.PrivateKey

	Relay api.RelayProvider
	Chain interfaces.OnchainRegistry

	// Direct sends claim, revoke and change from the key's own account
	// instead of relaying a signature. Only valid with Chain.
	Direct bool
	// Wait blocks until on-chain transactions are mined.
	Wait bool

	Out io.Writer
}

// Owner prints the owner of key.
func (c *Client) Owner(ctx context.Context, key interfaces.Identifier) error {
	var (
		owner interfaces.Identity
		err   error
	)
	if c.Chain != nil {
		owner, err = c.Chain.OwnerOf(ctx, key)
	} else {
		owner, err = c.Relay.OwnerOf(ctx, c.Registry, key)
	}
	if err != nil {
		return fmt.Errorf("owner query failed: %w", err)
	}
	return c.print(&api.OwnerResponse{Key: key, Owner: owner})
}

// Nonce prints the nonce of identity. A NoOwner identity means the client's own key.
func (c *Client) Nonce(ctx context.Context, identity interfaces.Identity) error {
	if identity.IsNoOwner() {
		if c.Key == nil {
			return errNoPrivateKey
		}
		identity = cryptoutils.IdentityOf(c.Key)
	}

	nonce, err := c.nonceOf(ctx, identity)
	if err != nil {
		return err
	}
	return c.print(&api.NonceResponse{Identity: identity, Nonce: nonce})
}

// Digest prints the digest the client's key has to sign for action.
// With currentNonce the action nonce is replaced by the current nonce of the key.
func (c *Client) Digest(ctx context.Context, action interfaces.Action, currentNonce bool) error {
	if currentNonce {
		if c.Key == nil {
			return errNoPrivateKey
		}
		nonce, err := c.nonceOf(ctx, cryptoutils.IdentityOf(c.Key))
		if err != nil {
			return err
		}
		action.Nonce = nonce
	}

	digest, err := c.Scheme.Digest(action)
	if err != nil {
		return err
	}
	return c.print(&api.DigestResponse{Digest: digest, Scheme: c.Scheme.Name()})
}

// Apply performs a claim, revoke or change of the client's key.
func (c *Client) Apply(ctx context.Context, op interfaces.Operation, oldKey, key interfaces.Identifier) error {
	if c.Key == nil {
		return errNoPrivateKey
	}

	if c.Direct {
		if c.Chain == nil {
			return errDirectNeedsRPC
		}
		tx, err := c.sendDirect(op, oldKey, key)
		if err != nil {
			return fmt.Errorf("%s failed: %w", op, err)
		}
		return c.finish(ctx, tx)
	}

	owner := cryptoutils.IdentityOf(c.Key)
	nonce, err := c.nonceOf(ctx, owner)
	if err != nil {
		return err
	}

	req, err := clients.SignAction(c.Scheme, interfaces.Action{Kind: op, OldKey: oldKey, Key: key, Nonce: nonce}, c.Key)
	if err != nil {
		return err
	}

	if c.Chain == nil {
		resp, err := c.Relay.Submit(ctx, c.Registry, op, req)
		if err != nil {
			return fmt.Errorf("%s failed: %w", op, err)
		}
		return c.print(resp)
	}

	tx, err := c.sendSigned(op, req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return c.finish(ctx, tx)
}

func (c *Client) nonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	var (
		nonce uint64
		err   error
	)
	if c.Chain != nil {
		nonce, err = c.Chain.NonceOf(ctx, identity)
	} else {
		nonce, err = c.Relay.NonceOf(ctx, c.Registry, identity)
	}
	if err != nil {
		return 0, fmt.Errorf("nonce query failed: %w", err)
	}
	return nonce, nil
}

func (c *Client) sendDirect(op interfaces.Operation, oldKey, key interfaces.Identifier) (*types.Transaction, error) {
	switch op {
	case interfaces.OpClaim:
		return c.Chain.Claim(key)
	case interfaces.OpRevoke:
		return c.Chain.Revoke(key)
	case interfaces.OpChange:
		return c.Chain.Change(oldKey, key)
	default:
		return nil, interfaces.ErrUnknownOperation
	}
}

func (c *Client) sendSigned(op interfaces.Operation, req *api.SignedActionRequest) (*types.Transaction, error) {
	sig := req.Signature
	switch op {
	case interfaces.OpClaim:
		return c.Chain.ClaimFromSignature(req.Key, req.Owner, req.Nonce, sig.V, sig.R, sig.S)
	case interfaces.OpRevoke:
		return c.Chain.RevokeFromSignature(req.Key, req.Owner, req.Nonce, sig.V, sig.R, sig.S)
	case interfaces.OpChange:
		return c.Chain.ChangeFromSignature(*req.OldKey, req.Key, req.Owner, req.Nonce, sig.V, sig.R, sig.S)
	default:
		return nil, interfaces.ErrUnknownOperation
	}
}

type txResult struct {
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number,omitempty"`
}

func (c *Client) finish(ctx context.Context, tx *types.Transaction) error {
	result := &txResult{TxHash: tx.Hash()}

	if m, ok := c.Chain.(miner); ok && c.Wait {
		receipt, err := m.WaitMined(ctx, tx)
		if err != nil {
			return err
		}
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return c.print(result)
}

func (c *Client) print(v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, string(encoded))
	return err
}
