package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
)

// Registry is the authorization engine shared by every registry instance.
//
// It owns no state of its own: owners and nonces live in the Store, and every
// accepted operation is handed to the Store as a single ChangeSet. A mutex
// serializes check-then-commit so concurrent callers observe one operation at a time.
type Registry struct {
	mu     sync.Mutex
	name   string
	store  interfaces.Store
	scheme interfaces.DigestScheme
	log    *slog.Logger
}

// Name returns the instance name, e.g. "signet".
func (r *Registry) Name() string {
	return r.name
}

// Scheme returns the digest scheme signatures are verified against.
func (r *Registry) Scheme() interfaces.DigestScheme {
	return r.scheme
}

// Digest returns the digest an owner has to sign to authorize action.
func (r *Registry) Digest(action interfaces.Action) (common.Hash, error) {
	return r.scheme.Digest(action)
}

// OwnerOf returns the owner of key, or NoOwner.
func (r *Registry) OwnerOf(ctx context.Context, key interfaces.Identifier) (interfaces.Identity, error) {
	return r.store.OwnerOf(ctx, key)
}

// NonceOf returns the nonce the next signature of identity has to carry.
func (r *Registry) NonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	return r.store.NonceOf(ctx, identity)
}

// Claim points key at caller.
//
// The previous owner is overwritten unconditionally: any caller may (re)point any
// key to themselves. This mirrors the deployed contracts, which do not enforce
// first-claim-wins.
func (r *Registry) Claim(ctx context.Context, caller interfaces.Identity, key interfaces.Identifier) error {
	if caller.IsNoOwner() {
		return r.reject(interfaces.OpClaim, fmt.Errorf("%w: caller is the zero identity", interfaces.ErrUnauthorized))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cs := &interfaces.ChangeSet{}
	cs.SetOwner(key, caller)
	return r.commit(ctx, interfaces.OpClaim, caller, cs)
}

// Revoke clears key. Only its current owner may do so.
func (r *Registry) Revoke(ctx context.Context, caller interfaces.Identity, key interfaces.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(ctx, caller, key); err != nil {
		return r.reject(interfaces.OpRevoke, err)
	}

	cs := &interfaces.ChangeSet{}
	cs.Clear(key)
	return r.commit(ctx, interfaces.OpRevoke, caller, cs)
}

// Change moves the caller's ownership from oldKey to newKey.
func (r *Registry) Change(ctx context.Context, caller interfaces.Identity, oldKey, newKey interfaces.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(ctx, caller, oldKey); err != nil {
		return r.reject(interfaces.OpChange, err)
	}

	return r.commit(ctx, interfaces.OpChange, caller, changeSet(oldKey, newKey, caller))
}

// Outcome is the state an accepted signature operation committed: the owner of the
// action's key and the next nonce of the signer.
type Outcome struct {
	Key   interfaces.Identifier
	Owner interfaces.Identity
	Nonce uint64
}

// ClaimFromSignature points key at owner, authorized by owner's signature over (key, nonce).
func (r *Registry) ClaimFromSignature(ctx context.Context, key interfaces.Identifier, owner interfaces.Identity, nonce uint64, sig cryptoutils.Signature) error {
	_, err := r.ApplySigned(ctx, interfaces.Action{Kind: interfaces.OpClaim, Key: key, Owner: owner, Nonce: nonce}, sig)
	return err
}

// RevokeFromSignature clears key, authorized by its owner's signature over (key, nonce).
func (r *Registry) RevokeFromSignature(ctx context.Context, key interfaces.Identifier, owner interfaces.Identity, nonce uint64, sig cryptoutils.Signature) error {
	_, err := r.ApplySigned(ctx, interfaces.Action{Kind: interfaces.OpRevoke, Key: key, Owner: owner, Nonce: nonce}, sig)
	return err
}

// ChangeFromSignature moves owner's ownership from oldKey to newKey, authorized by
// owner's signature over (oldKey, newKey, nonce).
func (r *Registry) ChangeFromSignature(ctx context.Context, oldKey, newKey interfaces.Identifier, owner interfaces.Identity, nonce uint64, sig cryptoutils.Signature) error {
	_, err := r.ApplySigned(ctx, interfaces.Action{Kind: interfaces.OpChange, OldKey: oldKey, Key: newKey, Owner: owner, Nonce: nonce}, sig)
	return err
}

// ApplySigned runs the signature-authorized form of action.Kind. The returned Outcome
// is read before any other operation can run, so it reflects exactly this commit.
func (r *Registry) ApplySigned(ctx context.Context, action interfaces.Action, sig cryptoutils.Signature) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, err := r.signedChangeSet(ctx, action, sig)
	if err != nil {
		return Outcome{}, r.reject(action.Kind, err)
	}
	if err := r.commit(ctx, action.Kind, action.Owner, cs); err != nil {
		return Outcome{}, err
	}

	owner, err := r.store.OwnerOf(ctx, action.Key)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read owner: %w", err)
	}
	nonce, err := r.store.NonceOf(ctx, action.Owner)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read nonce: %w", err)
	}
	return Outcome{Key: action.Key, Owner: owner, Nonce: nonce}, nil
}

// signedChangeSet validates action and stages its effect. Must be called with r.mu held.
func (r *Registry) signedChangeSet(ctx context.Context, action interfaces.Action, sig cryptoutils.Signature) (*interfaces.ChangeSet, error) {
	if err := r.authorize(ctx, action, sig); err != nil {
		return nil, err
	}

	var cs *interfaces.ChangeSet
	switch action.Kind {
	case interfaces.OpClaim:
		cs = &interfaces.ChangeSet{}
		cs.SetOwner(action.Key, action.Owner)
	case interfaces.OpRevoke:
		if err := r.requireOwner(ctx, action.Owner, action.Key); err != nil {
			return nil, err
		}
		cs = &interfaces.ChangeSet{}
		cs.Clear(action.Key)
	case interfaces.OpChange:
		if err := r.requireOwner(ctx, action.Owner, action.OldKey); err != nil {
			return nil, err
		}
		cs = changeSet(action.OldKey, action.Key, action.Owner)
	default:
		return nil, interfaces.ErrUnknownOperation
	}

	cs.SetNonce(action.Owner, action.Nonce+1)
	return cs, nil
}

// authorize checks the signature and nonce of action. Must be called with r.mu held.
func (r *Registry) authorize(ctx context.Context, action interfaces.Action, sig cryptoutils.Signature) error {
	if action.Owner.IsNoOwner() {
		return fmt.Errorf("%w: asserted owner is the zero identity", interfaces.ErrInvalidSignature)
	}

	digest, err := r.scheme.Digest(action)
	if err != nil {
		return err
	}

	signer, err := cryptoutils.Recover(digest, sig)
	if err != nil {
		return err
	}
	if signer != action.Owner {
		return fmt.Errorf("%w: signed by %s, expected %s", interfaces.ErrInvalidSignature, signer, action.Owner)
	}

	current, err := r.store.NonceOf(ctx, action.Owner)
	if err != nil {
		return fmt.Errorf("failed to read nonce: %w", err)
	}
	if action.Nonce != current {
		return fmt.Errorf("%w: got %d, expected %d", interfaces.ErrStaleNonce, action.Nonce, current)
	}

	return nil
}

// requireOwner fails with ErrUnauthorized unless identity currently owns key.
func (r *Registry) requireOwner(ctx context.Context, identity interfaces.Identity, key interfaces.Identifier) error {
	if identity.IsNoOwner() {
		return fmt.Errorf("%w: caller is the zero identity", interfaces.ErrUnauthorized)
	}

	owner, err := r.store.OwnerOf(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read owner: %w", err)
	}
	if owner != identity {
		return fmt.Errorf("%w: %s does not own %s", interfaces.ErrUnauthorized, identity, key)
	}
	return nil
}

func (r *Registry) commit(ctx context.Context, op interfaces.Operation, actor interfaces.Identity, cs *interfaces.ChangeSet) error {
	if err := r.store.Commit(ctx, cs); err != nil {
		r.log.Error("Failed to commit registry operation",
			slog.String("registry", r.name),
			slog.String("operation", op.String()),
			slog.String("actor", actor.String()),
			"err", err)
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}

	r.log.Debug("Applied registry operation",
		slog.String("registry", r.name),
		slog.String("operation", op.String()),
		slog.String("actor", actor.String()),
		slog.Int("entries", len(cs.Entries)))
	return nil
}

func (r *Registry) reject(op interfaces.Operation, err error) error {
	r.log.Debug("Rejected registry operation",
		slog.String("registry", r.name),
		slog.String("operation", op.String()),
		"err", err)
	return err
}

// changeSet clears oldKey and then sets newKey, so change(K, K) leaves K with owner.
func changeSet(oldKey, newKey interfaces.Identifier, owner interfaces.Identity) *interfaces.ChangeSet {
	cs := &interfaces.ChangeSet{}
	cs.Clear(oldKey)
	cs.SetOwner(newKey, owner)
	return cs
}
