// Package token issues and verifies compact HS256 signed-claims tokens.
//
// A token is three unpadded base64url segments joined by ".":
//
//	<encode(header_json)> "." <encode(payload_json)> "." <encode(hmac_sha256)>
//
// The header is always {"alg":"HS256","typ":"JWT"}. The payload carries sub, role,
// iat and exp plus any extra claims the [Issuer] was configured to allow.
//
// # Verification order
//
// [Verifier.Verify] runs a fixed sequence and stops at the first failure, each with its
// own [Kind]: format, header decode, algorithm pin, signature, payload decode, required
// claims, expiry. The algorithm field is compared to "HS256" and used for nothing else,
// so no input can select a code path that skips the signature check.
//
// # Architecture boundaries
//
// Everything here is a pure function of its inputs. The only shared state is the
// [Secret], which is immutable after [NewSecret]. Callers supply the current time.
//
// # What this package must NOT do
//
//   - Read the clock, the environment, or files.
//   - Decide which role a principal holds (the issuance call site does).
//   - Log or serialise secret material.
//   - Return partially verified claims.
package token
