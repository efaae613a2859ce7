/*
Package httpserver implements the relay host of the authorized mapping registries.

A relay accepts owner-signed operations over HTTP and applies them to the hosted
registries on the owner's behalf, the same way a relayer submits a meta-transaction
to the deployed contracts. The relay never learns the owner's key: it recomputes the
digest, recovers the signer and checks the nonce like the contract would.

Only the signature family is exposed. HTTP carries no authenticated caller that the
direct family could trust.

# Registry API Endpoints

  - GET /api/registry/{registry}/owner/{key} - Owner of a key
  - GET /api/registry/{registry}/nonce/{identity} - Nonce the next signature must carry
  - POST /api/registry/{registry}/digest - Digest to sign for an operation
  - POST /api/registry/{registry}/claim - Relay a signed claim
  - POST /api/registry/{registry}/revoke - Relay a signed revoke
  - POST /api/registry/{registry}/change - Relay a signed change
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready

{registry} is "signet" or "proxy-wallet".

# Errors

Errors are returned as {"error": "..."} with the status:

  - 400 malformed request
  - 401 invalid signature
  - 403 signer does not own the key
  - 404 unknown registry
  - 409 stale nonce
  - 413 request body too large
  - 500 anything else, e.g. a storage failure

# Metrics

registry_operations_total{registry,operation,result} and
registry_operation_duration_seconds are served on the metrics listener.
*/
package httpserver
