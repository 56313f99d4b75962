// Package fastauth provides a credential-authentication and token-issuance
// core with signed JWT access and refresh tokens, Redis-backed session
// revocation, and fixed-window lockout guards.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// fastauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, Claims, MetricsSnapshot, etc.). Transport,
// request parsing, and process startup belong to the caller; the caller
// reaches the core only through Engine operations (Login, Refresh, Revoke,
// Introspect, CreatePrincipal, Health).
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Own principal records. Credential lookup goes through the injected
//     [PrincipalProvider]; the core treats records as read-only.
//   - Leak whether a principal exists. Unknown principals and wrong secrets
//     produce the same error and comparable timing.
//
// # Failure contract
//
// Per-request failures come back as sentinel errors matched with errors.Is.
// Transient store failures are retried once internally with a short backoff
// and then surface as [ErrStoreUnavailable]. Configuration problems are
// rejected at Build time and never per request.
package fastauth
