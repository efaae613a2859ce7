// Package interfaces defines the core interfaces and types for the authorized mapping registry.
// It provides the contract between different components without implementation details.
package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identifier is the key under which ownership is tracked (a signet or proxy wallet address).
type Identifier [20]byte

// Identity is an account capable of signing messages. The registry only stores
// and compares its 20-byte address form.
type Identity [20]byte

// NoOwner is the sentinel identity that absent entries map to. It never authorizes anything.
var NoOwner Identity

func parseAddressHex(addr string) ([20]byte, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(clean) != 40 {
		return [20]byte{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var res [20]byte
	copy(res[:], addrBytes)
	return res, nil
}

// NewIdentifierFromHex parses a 40-char hex string, with or without 0x prefix.
func NewIdentifierFromHex(addr string) (Identifier, error) {
	res, err := parseAddressHex(addr)
	return Identifier(res), err
}

// NewIdentityFromHex parses a 40-char hex string, with or without 0x prefix.
func NewIdentityFromHex(addr string) (Identity, error) {
	res, err := parseAddressHex(addr)
	return Identity(res), err
}

// String returns the checksummed 0x-prefixed hex representation.
func (id Identifier) String() string {
	return id.Address().Hex()
}

// Bytes returns the raw 20-byte identifier.
func (id Identifier) Bytes() []byte {
	return id[:]
}

// Address converts the identifier into a go-ethereum address.
func (id Identifier) Address() common.Address {
	return common.Address(id)
}

// IsZero reports whether the identifier is the zero address.
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// MarshalText encodes the identifier as 0x-prefixed hex.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex identifier.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := NewIdentifierFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// String returns the checksummed 0x-prefixed hex representation.
func (id Identity) String() string {
	return id.Address().Hex()
}

// Bytes returns the raw 20-byte identity.
func (id Identity) Bytes() []byte {
	return id[:]
}

// Address converts the identity into a go-ethereum address.
func (id Identity) Address() common.Address {
	return common.Address(id)
}

// IsNoOwner reports whether the identity is the sentinel.
func (id Identity) IsNoOwner() bool {
	return id == NoOwner
}

// MarshalText encodes the identity as 0x-prefixed hex.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex identity.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := NewIdentityFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IdentityFromAddress converts a go-ethereum address into an Identity.
func IdentityFromAddress(addr common.Address) Identity {
	return Identity(addr)
}

// IdentifierFromAddress converts a go-ethereum address into an Identifier.
func IdentifierFromAddress(addr common.Address) Identifier {
	return Identifier(addr)
}
