package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/signet-registry/interfaces"
)

// SignatureLength is the size of an encoded r || s || v signature.
const SignatureLength = 65

// Signature is a secp256k1 recoverable signature split into its components.
// V may use either the 0/1 or the 27/28 recovery id convention.
type Signature struct {
	R [32]byte
	S [32]byte
	V uint8
}

// ParseSignature splits a 65-byte signature: r is the first 32 bytes, s the next 32
// and v the final byte.
func ParseSignature(sig []byte) (Signature, error) {
	if len(sig) != SignatureLength {
		return Signature{}, fmt.Errorf("%w: expected %d bytes, got %d", interfaces.ErrInvalidSignature, SignatureLength, len(sig))
	}

	var res Signature
	copy(res.R[:], sig[:32])
	copy(res.S[:], sig[32:64])
	res.V = sig[64]
	return res, nil
}

// ParseSignatureHex parses a 0x-prefixed hex signature.
func ParseSignatureHex(sig string) (Signature, error) {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)
	}
	return ParseSignature(raw)
}

// Bytes encodes the signature as r || s || v.
func (sig Signature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	copy(out[:32], sig.R[:])
	copy(out[32:64], sig.S[:])
	out[64] = sig.V
	return out
}

// String returns the 0x-prefixed hex encoding.
func (sig Signature) String() string {
	return hexutil.Encode(sig.Bytes())
}

// MarshalText encodes the signature as 0x-prefixed hex.
func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

// UnmarshalText decodes a 0x-prefixed hex signature.
func (sig *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignatureHex(string(text))
	if err != nil {
		return err
	}
	*sig = parsed
	return nil
}

// RecoveryID returns v normalized to 0/1, or an error for any other value.
func (sig Signature) RecoveryID() (byte, error) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return 0, fmt.Errorf("%w: invalid recovery id %d", interfaces.ErrInvalidSignature, sig.V)
	}
	return v, nil
}

// Recover returns the identity that produced sig over digest.
// Out-of-range r/s values, high-s signatures and unknown recovery ids are rejected
// instead of recovering an unrelated key.
func Recover(digest common.Hash, sig Signature) (interfaces.Identity, error) {
	v, err := sig.RecoveryID()
	if err != nil {
		return interfaces.NoOwner, err
	}

	r := new(big.Int).SetBytes(sig.R[:])
	s := new(big.Int).SetBytes(sig.S[:])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return interfaces.NoOwner, fmt.Errorf("%w: signature values out of range", interfaces.ErrInvalidSignature)
	}

	normalized := sig.Bytes()
	normalized[64] = v

	pubkey, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return interfaces.NoOwner, fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)
	}

	signer := interfaces.IdentityFromAddress(crypto.PubkeyToAddress(*pubkey))
	if signer.IsNoOwner() {
		return interfaces.NoOwner, fmt.Errorf("%w: recovered zero address", interfaces.ErrInvalidSignature)
	}
	return signer, nil
}

// SignDigest signs digest with key and returns the signature with v in the 27/28
// convention used by wallet message signing.
func SignDigest(digest common.Hash, key *ecdsa.PrivateKey) (Signature, error) {
	if key == nil {
		return Signature{}, errors.New("private key cannot be nil")
	}

	raw, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return Signature{}, fmt.Errorf("could not sign digest: %w", err)
	}

	sig, err := ParseSignature(raw)
	if err != nil {
		return Signature{}, err
	}
	sig.V += 27
	return sig, nil
}

// IdentityOf returns the identity controlled by key.
func IdentityOf(key *ecdsa.PrivateKey) interfaces.Identity {
	return interfaces.IdentityFromAddress(crypto.PubkeyToAddress(key.PublicKey))
}
