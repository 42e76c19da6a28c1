package token

import (
	_ "crypto/sha256" // registers SHA-256 for SigningMethodHS256

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only header alg value this package issues or accepts.
const Algorithm = "HS256"

var hs256 = jwt.SigningMethodHS256

// Sign returns HMAC-SHA256(secret, message).
func Sign(message string, secret Secret) []byte {
	sig, err := hs256.Sign(message, secret.key)
	if err != nil {
		// Only reachable when SHA-256 is not linked or the key is not a []byte.
		panic("token: hs256 sign: " + err.Error())
	}
	return sig
}

// VerifySignature recomputes the MAC of message under secret and compares it with
// signature in constant time.
func VerifySignature(message string, signature []byte, secret Secret) bool {
	if secret.IsZero() {
		return false
	}
	return hs256.Verify(message, signature, secret.key) == nil
}
