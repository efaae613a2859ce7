/*
Package clients provides the client side of the relay API.

RelayClient implements api.RelayProvider over HTTP. Non-2xx responses are
mapped back to the registry error taxonomy, so callers can test them with
errors.Is:

	client := clients.NewRelayClient("http://localhost:8080")
	req, err := clients.SignAction(registry.NewSignetScheme(nil), interfaces.Action{
		Kind:  interfaces.OpClaim,
		Key:   key,
		Nonce: nonce,
	}, privateKey)
	...
	resp, err := client.Submit(ctx, registry.SignetRegistryName, interfaces.OpClaim, req)
	if errors.Is(err, interfaces.ErrStaleNonce) {
		// refresh the nonce and sign again
	}

SignAction computes the digest locally from the registry's scheme. The digest
endpoint of the relay is only a convenience for signers that cannot.
*/
package clients
