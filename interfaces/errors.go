package interfaces

import "errors"

var (
	// ErrUnauthorized is returned when the acting identity does not currently own the target key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidSignature is returned when the recovered signer does not match the asserted
	// owner or the signature components are malformed.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrStaleNonce is returned when the supplied nonce is not the owner's current counter.
	// This covers both replays and guessed future nonces.
	ErrStaleNonce = errors.New("stale nonce")

	// ErrUnknownOperation is returned by digest schemes for operation kinds they cannot encode.
	ErrUnknownOperation = errors.New("unknown operation")
)
