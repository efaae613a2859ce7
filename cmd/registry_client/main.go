package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/signet-registry/api/clients"
	"github.com/ruteri/signet-registry/cmd/flags"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/ruteri/signet-registry/registry"
	"github.com/urfave/cli/v2"
)

var flagKey = &cli.StringFlag{
	Name:     "key",
	Required: true,
	Usage:    "registry key (address) to operate on",
}

var flagOldKey = &cli.StringFlag{
	Name:     "old-key",
	Required: true,
	Usage:    "key currently owned, for change",
}

var flagIdentity = &cli.StringFlag{
	Name:  "identity",
	Usage: "identity to query the nonce of. Defaults to the address of --privkey",
}

var flagNonce = &cli.Uint64Flag{
	Name:  "nonce",
	Usage: "nonce to bind into the digest. Defaults to the current nonce of --privkey",
}

var flagDirect = &cli.BoolFlag{
	Name:  "direct",
	Usage: "send the operation from the --privkey account instead of relaying a signature (requires --contract)",
}

var flagWait = &cli.BoolFlag{
	Name:  "wait",
	Value: true,
	Usage: "wait for on-chain transactions to be mined",
}

const usage string = `Query and update the Signet Registry and the RTSProxyWallet registry.

Operations are signed with --privkey and submitted to the relay at --server-addr,
or to the contract at --contract through --rpc-addr.`

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: usage,
		Flags: []cli.Flag{
			flags.RegistryFlag,
			flags.PrivkeyFlag,
			flags.ServerAddrFlag,
			flags.RpcAddrFlag,
			flags.ContractFlag,
			flags.ChainIDFlag,
			flagWait,
		},
		Commands: []*cli.Command{
			{
				Name:  "owner",
				Usage: "print the owner of a key",
				Flags: []cli.Flag{flagKey},
				Action: func(cCtx *cli.Context) error {
					c, key, err := setup(cCtx)
					if err != nil {
						return err
					}
					return c.Owner(cCtx.Context, key)
				},
			},
			{
				Name:  "nonce",
				Usage: "print the signature nonce of an identity",
				Flags: []cli.Flag{flagIdentity},
				Action: func(cCtx *cli.Context) error {
					c, err := NewClientConfig(cCtx)
					if err != nil {
						return err
					}
					var identity interfaces.Identity
					if s := cCtx.String(flagIdentity.Name); s != "" {
						if identity, err = interfaces.NewIdentityFromHex(s); err != nil {
							return fmt.Errorf("could not parse identity: %w", err)
						}
					}
					return c.Nonce(cCtx.Context, identity)
				},
			},
			{
				Name:  "digest",
				Usage: "print the digest to sign for an operation",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "operation", Value: "claim", Usage: "claim, revoke or change"},
					flagKey,
					&cli.StringFlag{Name: flagOldKey.Name, Usage: flagOldKey.Usage},
					flagNonce,
				},
				Action: func(cCtx *cli.Context) error {
					c, key, err := setup(cCtx)
					if err != nil {
						return err
					}
					op, err := interfaces.ParseOperation(cCtx.String("operation"))
					if err != nil {
						return err
					}
					action := interfaces.Action{Kind: op, Key: key, Nonce: cCtx.Uint64(flagNonce.Name)}
					if op == interfaces.OpChange {
						if action.OldKey, err = interfaces.NewIdentifierFromHex(cCtx.String(flagOldKey.Name)); err != nil {
							return fmt.Errorf("could not parse old key: %w", err)
						}
					}
					return c.Digest(cCtx.Context, action, !cCtx.IsSet(flagNonce.Name))
				},
			},
			operationCommand(interfaces.OpClaim, "point a key at the owner of --privkey"),
			operationCommand(interfaces.OpRevoke, "clear a key owned by --privkey"),
			operationCommand(interfaces.OpChange, "move ownership from --old-key to --key"),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func operationCommand(op interfaces.Operation, usage string) *cli.Command {
	cmdFlags := []cli.Flag{flagKey, flagDirect}
	if op == interfaces.OpChange {
		cmdFlags = append(cmdFlags, flagOldKey)
	}

	return &cli.Command{
		Name:  op.String(),
		Usage: usage,
		Flags: cmdFlags,
		Action: func(cCtx *cli.Context) error {
			c, key, err := setup(cCtx)
			if err != nil {
				return err
			}
			c.Direct = cCtx.Bool(flagDirect.Name)

			var oldKey interfaces.Identifier
			if op == interfaces.OpChange {
				if oldKey, err = interfaces.NewIdentifierFromHex(cCtx.String(flagOldKey.Name)); err != nil {
					return fmt.Errorf("could not parse old key: %w", err)
				}
			}
			return c.Apply(cCtx.Context, op, oldKey, key)
		},
	}
}

func setup(cCtx *cli.Context) (*Client, interfaces.Identifier, error) {
	key, err := interfaces.NewIdentifierFromHex(cCtx.String(flagKey.Name))
	if err != nil {
		return nil, key, fmt.Errorf("could not parse key: %w", err)
	}
	c, err := NewClientConfig(cCtx)
	return c, key, err
}

func NewClientConfig(cCtx *cli.Context) (*Client, error) {
	name := cCtx.String(flags.RegistryFlag.Name)
	chainID := big.NewInt(cCtx.Int64(flags.ChainIDFlag.Name))

	scheme, err := registry.SchemeFor(name, chainID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Registry: name,
		Scheme:   scheme,
		Wait:     cCtx.Bool(flagWait.Name),
		Out:      os.Stdout,
	}

	if hexKey := cCtx.String(flags.PrivkeyFlag.Name); hexKey != "" {
		if c.Key, err = flags.ParsePrivateKey(hexKey); err != nil {
			return nil, err
		}
	}

	contract := cCtx.String(flags.ContractFlag.Name)
	if contract == "" {
		c.Relay = clients.NewRelayClient(cCtx.String(flags.ServerAddrFlag.Name))
		return c, nil
	}

	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("could not parse contract address %q", contract)
	}

	ethClient, err := ethclient.DialContext(context.Background(), cCtx.String(flags.RpcAddrFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not dial RPC: %w", err)
	}

	onchain, err := registry.NewRegistryFactory(ethClient, ethClient).RegistryFor(name, common.HexToAddress(contract))
	if err != nil {
		return nil, err
	}

	if c.Key != nil {
		auth, err := bind.NewKeyedTransactorWithChainID(c.Key, chainID)
		if err != nil {
			return nil, fmt.Errorf("could not create transactor: %w", err)
		}
		onchain.SetTransactOpts(auth)
	}

	c.Chain = onchain
	return c, nil
}
