package cryptoutils

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ruteri/signet-registry/interfaces"
)

// DefaultChainID is the chain of a local development node, used when a typed data
// scheme is built without a chain id.
const DefaultChainID int64 = 31337

// Scheme names reported by DigestScheme.Name.
const (
	TypedDataSchemeName       = "eip712"
	PersonalMessageSchemeName = "personal-message"
)

// TypedDataScheme builds EIP-712 structured digests.
//
// Claim and revoke are encoded as Message(address <KeyField>,uint256 nonce), change as
// Message(address <OldKeyField>,address <KeyField>,uint256 nonce). The domain carries
// name, version and chainId only, with no verifying contract.
type TypedDataScheme struct {
	DomainName    string
	DomainVersion string
	ChainID       *big.Int

	PrimaryType string
	KeyField    string
	OldKeyField string
}

// NewTypedDataScheme returns a structured digest scheme for the given domain and key field names.
// A nil chainID means DefaultChainID.
func NewTypedDataScheme(domainName, domainVersion string, chainID *big.Int, keyField, oldKeyField string) *TypedDataScheme {
	if chainID == nil {
		chainID = big.NewInt(DefaultChainID)
	}
	return &TypedDataScheme{
		DomainName:    domainName,
		DomainVersion: domainVersion,
		ChainID:       new(big.Int).Set(chainID),
		PrimaryType:   "Message",
		KeyField:      keyField,
		OldKeyField:   oldKeyField,
	}
}

func (s *TypedDataScheme) chainID() *big.Int {
	if s.ChainID == nil {
		return big.NewInt(DefaultChainID)
	}
	return new(big.Int).Set(s.ChainID)
}

// Name returns the scheme name.
func (s *TypedDataScheme) Name() string {
	return TypedDataSchemeName
}

// TypedData returns the EIP-712 payload for action, as a wallet would be asked to sign it.
func (s *TypedDataScheme) TypedData(action interfaces.Action) (apitypes.TypedData, error) {
	var fields []apitypes.Type
	message := apitypes.TypedDataMessage{
		s.KeyField: action.Key.Address().Hex(),
		"nonce":    new(big.Int).SetUint64(action.Nonce),
	}

	switch action.Kind {
	case interfaces.OpClaim, interfaces.OpRevoke:
		fields = []apitypes.Type{
			{Name: s.KeyField, Type: "address"},
			{Name: "nonce", Type: "uint256"},
		}
	case interfaces.OpChange:
		fields = []apitypes.Type{
			{Name: s.OldKeyField, Type: "address"},
			{Name: s.KeyField, Type: "address"},
			{Name: "nonce", Type: "uint256"},
		}
		message[s.OldKeyField] = action.OldKey.Address().Hex()
	default:
		return apitypes.TypedData{}, fmt.Errorf("%w: %d", interfaces.ErrUnknownOperation, action.Kind)
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			s.PrimaryType: fields,
		},
		PrimaryType: s.PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    s.DomainName,
			Version: s.DomainVersion,
			ChainId: (*math.HexOrDecimal256)(s.chainID()),
		},
		Message: message,
	}, nil
}

// Digest returns keccak256(0x19 0x01 || domainSeparator || hashStruct(message)).
func (s *TypedDataScheme) Digest(action interfaces.Action) (common.Hash, error) {
	typedData, err := s.TypedData(action)
	if err != nil {
		return common.Hash{}, err
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// PersonalMessageScheme hashes the tightly packed fields and wraps the result in the
// "\x19Ethereum Signed Message:\n32" prefix before the final keccak256.
type PersonalMessageScheme struct{}

// NewPersonalMessageScheme returns the prefixed-hash scheme.
func NewPersonalMessageScheme() *PersonalMessageScheme {
	return &PersonalMessageScheme{}
}

// Name returns the scheme name.
func (s *PersonalMessageScheme) Name() string {
	return PersonalMessageSchemeName
}

// ContentHash returns keccak256 of key || nonce, or oldKey || key || nonce for change,
// with the nonce encoded as a 32-byte big-endian uint256.
func (s *PersonalMessageScheme) ContentHash(action interfaces.Action) (common.Hash, error) {
	nonce := common.LeftPadBytes(new(big.Int).SetUint64(action.Nonce).Bytes(), 32)

	switch action.Kind {
	case interfaces.OpClaim, interfaces.OpRevoke:
		return crypto.Keccak256Hash(action.Key.Bytes(), nonce), nil
	case interfaces.OpChange:
		return crypto.Keccak256Hash(action.OldKey.Bytes(), action.Key.Bytes(), nonce), nil
	default:
		return common.Hash{}, fmt.Errorf("%w: %d", interfaces.ErrUnknownOperation, action.Kind)
	}
}

// Digest returns the prefixed hash of the content hash.
func (s *PersonalMessageScheme) Digest(action interfaces.Action) (common.Hash, error) {
	content, err := s.ContentHash(action)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(accounts.TextHash(content.Bytes())), nil
}
