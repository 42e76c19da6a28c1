// Package httpapi is the demo route layer: register, login, profile, admin, health and
// metrics endpoints on a gorilla/mux router wrapped in rs/cors.
//
// # What this package must NOT do
//
//   - Put error text from the engine, the token package or a repository in a response
//     body. Every failure maps to a fixed message.
//   - Read a role from the request.
//   - Trust client-supplied forwarding headers for the client IP.
package httpapi
