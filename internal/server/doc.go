// Package server exposes the daily check-in gate and mood history over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// Middleware is bound when a route is registered, so routes added before [BasicRouter.Use] skip it.
// This keeps /health and /moods/options public while everything else requires a user.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /checkins/{id}/submit").
//
// # Identity
//
// Authentication happens upstream. [RequireUser] trusts the X-User-ID header set by the proxy
// in front of the service and rejects requests without it.
//
// # Check-in Activations
//
// Each POST /checkins creates one gate activation (one page visit) and evaluates it immediately.
// Activations live in a [Registry] keyed by id and scoped to their user; finished ones are reaped after
// a retention period and every live one is disposed on shutdown, so no auto-save fires for a
// server that is going away.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
