// Package authcore is the unified authentication core of a B2B marketplace:
// credential verification, account lockout, per-address rate limiting, JWT
// access/refresh token pairs with a revocation set, and post-login dashboard
// routing for both administrative and organizational accounts.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [Directory] credential-store contract, and value types (AuthResult,
// TokenPair, MetricsSnapshot). Internal coordination — sliding-window rate
// limiting, token revocation storage, audit dispatch — lives under internal/
// and is never exported.
//
// The account store itself is an external collaborator: callers integrate
// their own database behind [Directory]. A reference SQLite implementation
// ships in directory/sqlitedir and an in-memory one in directory/memdir.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or token signing keys in its
//     public API.
//   - Render pages, send email, or set cookies; transport concerns end at
//     middleware.ExtractTokens.
//   - Reveal whether an email exists: unknown-account and wrong-password
//     failures are indistinguishable to callers.
package authcore
