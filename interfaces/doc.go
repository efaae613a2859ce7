// Package interfaces defines the core types and interfaces of the registry,
// separating definitions from implementations.
//
// # Types
//
//   - Identifier: the 20-byte registry key (a signet or a proxy wallet address)
//   - Identity: the 20-byte owner address. NoOwner, the zero identity, marks
//     absent entries and never authorizes anything.
//   - Operation and Action: claim, revoke and change together with the fields
//     a digest binds.
//
// # Registry Interfaces
//
// DigestScheme: Encodes an Action into the 32-byte digest an owner signs.
//
// OnchainRegistry: A deployed registry contract with the direct and the
// signature-authorized operation families.
//
// # Storage Interfaces
//
// Store: Owner and nonce state of one registry instance. Updates are applied
// through a ChangeSet, atomically.
//
// SnapshotBackend: Persists the serialized state of a Store (file, S3, Vault).
//
// # Errors
//
// ErrUnauthorized, ErrInvalidSignature and ErrStaleNonce classify rejected
// operations. A rejected operation leaves the state unchanged.
package interfaces
