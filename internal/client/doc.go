// Package client is an HTTP client for the check-in service in [server].
//
// A [Client] speaks for one user: every request carries the X-User-ID header and, when set,
// the viewer's time zone in X-Timezone. Responses are decoded into plain structs rather than
// domain models so the client can run against any compatible server.
//
// # Errors
//
// Non-2xx responses become [*APIError]. The server writes sentinel messages from [shared], so
// an APIError matches them with errors.Is:
//
//	_, err := c.Submit(ctx, id, "Happy", "")
//	if errors.Is(err, shared.ErrAlreadyCommitted) { ... }
package client
