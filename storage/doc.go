// Package storage provides registry stores and pluggable snapshot backends.
//
// A store holds the two mappings a registry owns: key to owner and identity to
// nonce. Every registry operation is committed as one interfaces.ChangeSet, which
// a store applies either entirely or not at all.
//
//   - MemoryStore keeps state in process memory only
//   - SnapshotStore serves reads from memory and persists every commit as a JSON
//     snapshot to a SnapshotBackend before making it visible
//
// # Snapshot Backends
//
//   - FileBackend writes registry-state.json into a directory via temp file and rename
//   - S3Backend keeps the snapshot as a single object in an S3-compatible bucket
//   - VaultBackend keeps the snapshot in a HashiCorp Vault KV v2 secret
//   - MultiSnapshotBackend saves to several backends and loads the highest snapshot version
//
// # Location URI Format
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - memory://
//   - file:///var/lib/registry/signet/
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000
//   - vault://vault.example.com:8200/secret/registry/signet?tls=true (token from VAULT_TOKEN)
//
// # Snapshot Format
//
//	{
//	  "keys":   {"0x<key>": "0x<owner>"},
//	  "nonces": {"0x<identity>": "0x<hex nonce>"}
//	}
//
// # Usage Example
//
//	factory := storage.NewStoreFactory(logger)
//	store, err := factory.StoreFor(ctx, "file:///var/lib/registry/signet/", "s3://bucket/signet/")
//	if err != nil {
//	    log.Fatalf("Failed to create store: %v", err)
//	}
package storage
