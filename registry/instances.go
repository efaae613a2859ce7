package registry

import (
	"errors"
	"log/slog"
	"math/big"

	"github.com/ruteri/signet-registry/cryptoutils"
	"github.com/ruteri/signet-registry/interfaces"
)

const (
	// SignetRegistryName is the name of the Signet Registry instance.
	SignetRegistryName = "signet"
	// ProxyWalletRegistryName is the name of the RTSProxyWallet instance.
	ProxyWalletRegistryName = "proxy-wallet"

	// SignetDomainName and SignetDomainVersion form the typed-data domain of the Signet Registry.
	SignetDomainName    = "Signet"
	SignetDomainVersion = "1"

	// DefaultChainID is the chain of a local development node.
	DefaultChainID = cryptoutils.DefaultChainID
)

// Config describes a registry instance.
type Config struct {
	Name   string
	Store  interfaces.Store
	Scheme interfaces.DigestScheme
	Log    *slog.Logger
}

// New creates a registry instance from an arbitrary store and digest scheme.
func New(cfg Config) (*Registry, error) {
	if cfg.Store == nil {
		return nil, errors.New("registry store is required")
	}
	if cfg.Scheme == nil {
		return nil, errors.New("registry digest scheme is required")
	}
	if cfg.Name == "" {
		return nil, errors.New("registry name is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		name:   cfg.Name,
		store:  cfg.Store,
		scheme: cfg.Scheme,
		log:    log,
	}, nil
}

// NewSignetScheme returns the typed-data scheme of the Signet Registry on chainID.
// A nil chainID means DefaultChainID.
func NewSignetScheme(chainID *big.Int) *cryptoutils.TypedDataScheme {
	return cryptoutils.NewTypedDataScheme(SignetDomainName, SignetDomainVersion, chainID, "signet", "oldSignet")
}

// NewSignetRegistry creates the Signet Registry: signatures are EIP-712 typed data
// over the {name: "Signet", version: "1", chainId} domain.
func NewSignetRegistry(store interfaces.Store, chainID *big.Int, log *slog.Logger) (*Registry, error) {
	return New(Config{
		Name:   SignetRegistryName,
		Store:  store,
		Scheme: NewSignetScheme(chainID),
		Log:    log,
	})
}

// NewProxyWalletRegistry creates the RTSProxyWallet registry: signatures are
// personal messages over the packed hash of the operation fields.
func NewProxyWalletRegistry(store interfaces.Store, log *slog.Logger) (*Registry, error) {
	return New(Config{
		Name:   ProxyWalletRegistryName,
		Store:  store,
		Scheme: cryptoutils.NewPersonalMessageScheme(),
		Log:    log,
	})
}

// SchemeFor returns the digest scheme of the named registry instance.
// chainID only applies to the Signet Registry; nil means DefaultChainID.
func SchemeFor(name string, chainID *big.Int) (interfaces.DigestScheme, error) {
	switch name {
	case SignetRegistryName:
		return NewSignetScheme(chainID), nil
	case ProxyWalletRegistryName:
		return cryptoutils.NewPersonalMessageScheme(), nil
	default:
		_, err := MethodsFor(name)
		return nil, err
	}
}
