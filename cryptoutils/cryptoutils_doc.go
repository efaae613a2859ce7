// Package cryptoutils provides the cryptographic primitives of the registry:
// digest construction for signed operations and signer recovery.
//
// # Digest Schemes
//
// Two interchangeable implementations of interfaces.DigestScheme exist:
//
//   - TypedDataScheme: EIP-712 structured data. The domain separator binds the
//     (name, version, chainId) triple and the primary type binds the operation shape,
//     so claim digests can never be reinterpreted as change digests.
//   - PersonalMessageScheme: keccak256 over the tightly packed fields, wrapped in the
//     "\x19Ethereum Signed Message:\n32" prefix, as produced by eth_sign style wallets.
//
// Field order matters in both schemes and matches the deployed contracts:
//
//	claim / revoke:  key, nonce
//	change:          oldKey, key, nonce
//
// Claim and revoke share one encoding in both schemes. The per-owner nonce is what
// keeps a signature from being used twice.
//
// # Signature Recovery
//
// Recover takes a digest and a 65-byte r || s || v signature and returns the signer's
// address. v is accepted as 0/1 or 27/28. High-s signatures, out-of-range values and
// unknown recovery ids fail with interfaces.ErrInvalidSignature.
//
//	sig, _ := cryptoutils.SignDigest(digest, privateKey)
//	signer, err := cryptoutils.Recover(digest, sig)
package cryptoutils
