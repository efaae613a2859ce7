// Package main (cmd/registry_client) is a command-line client for the Signet
// Registry and the RTSProxyWallet registry.
//
// Reads and writes go either to a relay server (--server-addr) or, when
// --contract is set, to the deployed contract through --rpc-addr. Writes are
// signed with --privkey: the client fetches the current nonce, computes the
// digest locally from the registry's scheme and submits the signature. With
// --direct the transaction is sent from the --privkey account itself.
//
// Commands:
//
//	owner  --key K                       print the owner of K
//	nonce  [--identity A]                print the nonce of A (default: own address)
//	digest --operation OP --key K ...    print the digest to sign
//	claim  --key K
//	revoke --key K
//	change --old-key K1 --key K2
//
// Example:
//
//	registry-client --registry signet --privkey $KEY claim --key 0x1c3f...
//
// --chain-id must match the chain the Signet Registry verifies signatures for.
package main
