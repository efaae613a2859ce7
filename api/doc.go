/*
Package api defines the relay API of the registry: request and response types,
the error to status mapping and the server configuration.

The relay accepts signature-authorized operations from anyone and applies them
to a hosted registry instance. Routes are rooted at RegistryPathPrefix:

	GET  /api/registry/{registry}/owner/{key}
	GET  /api/registry/{registry}/nonce/{identity}
	POST /api/registry/{registry}/digest
	POST /api/registry/{registry}/claim
	POST /api/registry/{registry}/revoke
	POST /api/registry/{registry}/change

The server lives in package httpserver and the client in package api/clients.
Errors travel as ErrorResponse bodies; StatusForError and ErrorForStatus convert
between the registry errors and HTTP statuses in both directions.
*/
package api
