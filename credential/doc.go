// Package credential stores accounts and turns untrusted request bodies into the narrow
// values the issuance path needs.
//
// The role an account holds is decided here and nowhere else: it is written once when
// the account is created, by the caller that creates it, and read back at login. No
// decoder in this package has a role field, so a request body can never set one.
//
// # Backends
//
//   - [MemoryRepository] for tests and single-process demos.
//   - [RedisRepository] on go-redis: one hash per account plus a SETNX username index.
//   - [PostgresRepository] on database/sql with lib/pq.
//
// # What this package must NOT do
//
//   - Issue or verify tokens.
//   - Hash passwords (the caller supplies PasswordHash).
//   - Keep package-level mutable state.
package credential
