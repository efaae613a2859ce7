// Package main (cmd/httpserver) runs the relay server for the Signet Registry
// and the RTSProxyWallet registry.
//
// Owners sign operations offline and anyone can submit them to the relay, which
// verifies the signature and nonce before applying the operation. Each registry
// keeps its state in its own store. A store is a list of locations: state is
// loaded from the first one that has it and saved to all of them.
//
// Example usage:
//
//	registry-server --listen-addr=0.0.0.0:8080 \
//	    --chain-id=31337 \
//	    --signet-store=file:///var/lib/registry/signet \
//	    --signet-store=s3://registry-backups/signet?region=us-east-1 \
//	    --proxy-wallet-store=vault://vault.internal:8200/secret/registry/proxy-wallet
//
// The vault:// scheme reads its token from VAULT_TOKEN. Stores default to
// memory://, which does not survive a restart.
//
// The server shuts down gracefully on SIGINT/SIGTERM after DrainDuration and
// serves health checks, Prometheus metrics and optional pprof endpoints.
package main
