// Package middleware adapts tokengate verification to net/http.
//
// # Guards
//
//   - [Guard]: any valid token passes.
//   - [RequireRole]: a valid token whose role equals the required role passes.
//
// Each guard reads the Authorization header, calls the engine, and stores the verified
// claims in the request context for [ClaimsFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Decisions are delegated to
// Engine.Authenticate and Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Read a role from headers, query or body.
//   - Tell the client why a token was rejected. Every verification failure is the same
//     401 body and every denial the same 403 body.
package middleware
