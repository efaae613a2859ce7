// Package registry implements the authorized mapping registry: a key to owner
// mapping that its owners mutate either directly or through relayed signatures.
//
// # Registry Core
//
// Registry enforces who may claim, revoke or change an entry. It is shared by two
// instances that differ only in naming and in the digest scheme signatures are
// checked against:
//
//   - NewSignetRegistry: EIP-712 typed data, domain {name: "Signet", version: "1", chainId}
//   - NewProxyWalletRegistry: personal message over keccak256(abi.encodePacked(fields))
//
// Direct family (the caller comes from the invocation context):
//
//	Claim(ctx, caller, key)           // overwrites any previous owner
//	Revoke(ctx, caller, key)          // ErrUnauthorized unless caller owns key
//	Change(ctx, caller, oldKey, key)  // ErrUnauthorized unless caller owns oldKey
//
// Signature family (the owner is asserted and proven by a signature over the
// operation fields and the owner's current nonce):
//
//	ClaimFromSignature(ctx, key, owner, nonce, sig)
//	RevokeFromSignature(ctx, key, owner, nonce, sig)
//	ChangeFromSignature(ctx, oldKey, key, owner, nonce, sig)
//
// A signature operation is checked in order: recovered signer must equal owner
// (ErrInvalidSignature), nonce must equal the owner's counter (ErrStaleNonce), and the
// owner must hold the target key for revoke and change (ErrUnauthorized). The entry
// writes and the nonce increment are committed to the store as one change set, so a
// failed operation leaves no trace.
//
// Note that Claim does not enforce first-claim-wins: any identity may point any key
// at itself. The deployed contracts behave the same way.
//
// # On-chain Client
//
// OnchainRegistryClient talks to a deployed SignetRegistry or RTSProxyWallet contract
// through go-ethereum's bound contract, using an ABI built from ContractMethods:
//
//	factory := registry.NewRegistryFactory(ethClient, ethClient)
//	client, err := factory.RegistryFor(registry.SignetRegistryName, contractAddr)
//	client.SetTransactOpts(auth)
//	tx, err := client.ClaimFromSignature(key, owner, nonce, sig.V, sig.R, sig.S)
//
// MockRegistryClient implements the same interface in memory for tests.
package registry
