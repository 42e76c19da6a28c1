package token

import (
	"testing"
	"time"
)

// FuzzVerify feeds arbitrary strings to the verifier. It must never panic, and anything
// it accepts must carry the required claims and be unexpired.
func FuzzVerify(f *testing.F) {
	iss, ver := newTestPair(f)
	now := time.Unix(1000, 0)

	valid, err := iss.Issue("alice", "user", time.Hour, now, StringClaim("tenant", "t1"))
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("..")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJhIn0.")
	f.Add("eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.bnVsbA.x")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := ver.Verify(input, now)
		if err != nil {
			if !claims.IsZero() {
				t.Fatal("claims returned alongside an error")
			}
			if KindOf(err) == KindUnknown {
				t.Fatalf("untyped verification error: %v", err)
			}
			return
		}
		if claims.Subject() == "" || claims.Role() == "" || now.Unix() >= claims.ExpiresAt() {
			t.Fatal("accepted token with invalid claims")
		}
	})
}
