// Package tokengate is a stateless signed-claims authentication engine: it registers
// and logs in accounts, issues HS256 tokens for them, and verifies and authorizes
// those tokens on later requests.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// tokengate is the public surface. It exposes [Engine], [Builder], [Config] and value
// types. Token encoding and verification live in package token, the role decision in
// package authz, account storage in package credential. Throttling and audit dispatch
// live under internal/ and are never exported.
//
// The engine is the only place that reads the clock. It passes now explicitly into the
// token package, which keeps verification deterministic.
//
// # Trust boundary for roles
//
// A token's role is set by exactly two call sites: Register, which always uses
// Config.Account.DefaultRole, and Login, which uses the role stored on the account.
// Neither reads a role from request input.
//
// # What this package must NOT do
//
//   - Return verification detail to clients. Callers get typed errors for diagnostics;
//     the middleware maps all of them to a generic 401 or 403.
//   - Log tokens, passwords, hashes or the secret.
//   - Keep server-side token state. Expiry is the only revocation.
package tokengate
