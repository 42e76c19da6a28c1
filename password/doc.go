// Package password hashes and checks account passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// Anything else, including bare hex digests left over from older stores, is rejected
// with [ErrUnsupportedHash] rather than compared.
//
// # What this package must NOT do
//
//   - Store passwords or hashes. Callers hand in plaintext and keep the result.
//   - Import other tokengate packages.
//   - Log plaintext or hash material.
package password
