package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/signet-registry/interfaces"
)

// ErrNoTransactOpts is returned when a transaction is attempted without first setting transaction options.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// ContractMethods names the methods of one deployed registry contract.
type ContractMethods struct {
	Keys   string // mapping getter, e.g. signets(address)
	Nonces string

	Claim  string
	Revoke string
	Change string

	ClaimFromSignature  string
	RevokeFromSignature string
	ChangeFromSignature string
}

var (
	// SignetRegistryMethods are the methods of the SignetRegistry contract.
	SignetRegistryMethods = ContractMethods{
		Keys:                "signets",
		Nonces:              "nonces",
		Claim:               "registerSignet",
		Revoke:              "revokeSignet",
		Change:              "changeSignet",
		ClaimFromSignature:  "registerSignetFromSignature",
		RevokeFromSignature: "revokeSignetFromSignature",
		ChangeFromSignature: "changeSignetFromSignature",
	}

	// ProxyWalletRegistryMethods are the methods of the RTSProxyWallet contract.
	ProxyWalletRegistryMethods = ContractMethods{
		Keys:                "proxyWallets",
		Nonces:              "nonces",
		Claim:               "setProxyWallet",
		Revoke:              "revokeProxyWallet",
		Change:              "changeProxyWallet",
		ClaimFromSignature:  "setProxyWalletFromSignature",
		RevokeFromSignature: "revokeProxyWalletFromSignature",
		ChangeFromSignature: "changeProxyWalletFromSignature",
	}
)

// MethodsFor returns the contract methods of a registry instance by name.
func MethodsFor(name string) (ContractMethods, error) {
	switch name {
	case SignetRegistryName:
		return SignetRegistryMethods, nil
	case ProxyWalletRegistryName:
		return ProxyWalletRegistryMethods, nil
	default:
		return ContractMethods{}, fmt.Errorf("unknown registry %q", name)
	}
}

const contractABITemplate = `[
	{"type":"function","name":"%[1]s","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"%[2]s","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"%[3]s","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"}],"outputs":[]},
	{"type":"function","name":"%[4]s","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"}],"outputs":[]},
	{"type":"function","name":"%[5]s","stateMutability":"nonpayable","inputs":[{"name":"oldKey","type":"address"},{"name":"newKey","type":"address"}],"outputs":[]},
	{"type":"function","name":"%[6]s","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"owner","type":"address"},{"name":"nonce","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"%[7]s","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"owner","type":"address"},{"name":"nonce","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"%[8]s","stateMutability":"nonpayable","inputs":[{"name":"oldKey","type":"address"},{"name":"newKey","type":"address"},{"name":"owner","type":"address"},{"name":"nonce","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]}
]`

// ABI returns the contract ABI for the method set.
func (m ContractMethods) ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(fmt.Sprintf(contractABITemplate,
		m.Keys, m.Nonces,
		m.Claim, m.Revoke, m.Change,
		m.ClaimFromSignature, m.RevokeFromSignature, m.ChangeFromSignature)))
}

// OnchainRegistryClient implements the interfaces.OnchainRegistry interface for
// interacting with a SignetRegistry or RTSProxyWallet contract deployed on a blockchain.
type OnchainRegistryClient struct {
	contract *bind.BoundContract
	methods  ContractMethods
	client   bind.ContractBackend
	backend  bind.DeployBackend
	address  common.Address
	auth     *bind.TransactOpts
}

// NewOnchainRegistryClient creates a new client for the contract at the specified address.
// It requires a ContractBackend for reading from the blockchain and a DeployBackend for
// waiting on transactions.
func NewOnchainRegistryClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address, methods ContractMethods) (*OnchainRegistryClient, error) {
	parsed, err := methods.ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &OnchainRegistryClient{
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		methods:  methods,
		client:   client,
		backend:  backend,
		address:  address,
	}, nil
}

// SetTransactOpts sets the transaction options required for functions that modify state.
// This must be called before using any methods that send transactions to the blockchain.
// The From address of auth is the caller of the direct family.
func (c *OnchainRegistryClient) SetTransactOpts(auth *bind.TransactOpts) {
	c.auth = auth
}

// Address returns the contract address.
func (c *OnchainRegistryClient) Address() common.Address {
	return c.address
}

// OwnerOf reads the owner of key from the contract mapping.
func (c *OnchainRegistryClient) OwnerOf(ctx context.Context, key interfaces.Identifier) (interfaces.Identity, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, c.methods.Keys, key.Address())
	if err != nil {
		return interfaces.NoOwner, err
	}

	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return interfaces.IdentityFromAddress(owner), nil
}

// NonceOf reads the current nonce of identity from the contract.
func (c *OnchainRegistryClient) NonceOf(ctx context.Context, identity interfaces.Identity) (uint64, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, c.methods.Nonces, identity.Address())
	if err != nil {
		return 0, err
	}

	nonce := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !nonce.IsUint64() {
		return 0, fmt.Errorf("nonce %s does not fit into uint64", nonce)
	}
	return nonce.Uint64(), nil
}

// Claim sends a direct claim of key by the transactor.
func (c *OnchainRegistryClient) Claim(key interfaces.Identifier) (*types.Transaction, error) {
	return c.transact(c.methods.Claim, key.Address())
}

// Revoke sends a direct revoke of key by the transactor.
func (c *OnchainRegistryClient) Revoke(key interfaces.Identifier) (*types.Transaction, error) {
	return c.transact(c.methods.Revoke, key.Address())
}

// Change sends a direct change from oldKey to newKey by the transactor.
func (c *OnchainRegistryClient) Change(oldKey, newKey interfaces.Identifier) (*types.Transaction, error) {
	return c.transact(c.methods.Change, oldKey.Address(), newKey.Address())
}

// ClaimFromSignature relays owner's signed claim of key.
func (c *OnchainRegistryClient) ClaimFromSignature(key interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	return c.transact(c.methods.ClaimFromSignature, key.Address(), owner.Address(), new(big.Int).SetUint64(nonce), v, r, s)
}

// RevokeFromSignature relays owner's signed revoke of key.
func (c *OnchainRegistryClient) RevokeFromSignature(key interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	return c.transact(c.methods.RevokeFromSignature, key.Address(), owner.Address(), new(big.Int).SetUint64(nonce), v, r, s)
}

// ChangeFromSignature relays owner's signed change from oldKey to newKey.
func (c *OnchainRegistryClient) ChangeFromSignature(oldKey, newKey interfaces.Identifier, owner interfaces.Identity, nonce uint64, v uint8, r, s [32]byte) (*types.Transaction, error) {
	return c.transact(c.methods.ChangeFromSignature, oldKey.Address(), newKey.Address(), owner.Address(), new(big.Int).SetUint64(nonce), v, r, s)
}

// WaitMined blocks until tx is mined and fails if it reverted.
func (c *OnchainRegistryClient) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", tx.Hash())
	}
	return receipt, nil
}

func (c *OnchainRegistryClient) transact(method string, params ...interface{}) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}
	return c.contract.Transact(c.auth, method, params...)
}

// RegistryFactory creates on-chain registry clients for a backend.
type RegistryFactory struct {
	client  bind.ContractBackend
	backend bind.DeployBackend
}

// NewRegistryFactory creates a new factory for contracts reachable through client.
func NewRegistryFactory(client bind.ContractBackend, backend bind.DeployBackend) *RegistryFactory {
	return &RegistryFactory{
		client:  client,
		backend: backend,
	}
}

// RegistryFor returns a client for the named registry instance deployed at address.
func (f *RegistryFactory) RegistryFor(name string, address common.Address) (*OnchainRegistryClient, error) {
	methods, err := MethodsFor(name)
	if err != nil {
		return nil, err
	}
	return NewOnchainRegistryClient(f.client, f.backend, address, methods)
}

var _ interfaces.OnchainRegistry = (*OnchainRegistryClient)(nil)
