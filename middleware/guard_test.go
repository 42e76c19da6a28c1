package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/middleware"
	"github.com/MrEthical07/tokengate/token"
)

func newEngine(t *testing.T) *tokengate.Engine {
	t.Helper()
	secret, err := token.NewSecret([]byte("0123456789abcdefghijklmnopqrstuv"))
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	cfg := tokengate.DefaultConfig()
	cfg.Token.Secret = secret
	cfg.Password = tokengate.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableIPThrottle = false

	engine, err := tokengate.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func issue(t *testing.T, engine *tokengate.Engine, role token.Role) string {
	t.Helper()
	issued, err := engine.IssueToken(context.Background(), "alice", role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued.Token
}

func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "no claims", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Subject() + ":" + string(claims.Role())))
	})
}

func do(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if len(body) != 1 {
		t.Fatalf("expected single-field body, got %v", body)
	}
	return body["error"]
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine := newEngine(t)
	h := middleware.Guard(engine)(protected())

	rec := do(h, "Bearer "+issue(t, engine, "user"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "alice:user" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestGuardRejectsWithGenericBody(t *testing.T) {
	engine := newEngine(t)
	h := middleware.Guard(engine)(protected())
	good := issue(t, engine, "user")
	parts := strings.Split(good, ".")
	none := token.EncodeSegment([]byte(`{"alg":"none","typ":"JWT"}`)) + "." + parts[1] + "."

	cases := map[string]string{
		"missing header":   "",
		"wrong scheme":     "Basic " + good,
		"empty bearer":     "Bearer ",
		"malformed":        "Bearer not-a-token",
		"alg none":         "Bearer " + none,
		"bad signature":    "Bearer " + parts[0] + "." + parts[1] + ".AAAA",
		"undecodable body": "Bearer " + parts[0] + ".###." + parts[2],
	}

	for name, auth := range cases {
		rec := do(h, auth)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
		if got := errorBody(t, rec); got != "unauthorized" {
			t.Fatalf("%s: expected generic message, got %q", name, got)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("%s: expected WWW-Authenticate header", name)
		}
	}
}

func TestGuardRejectsExpiredToken(t *testing.T) {
	secret, err := token.NewSecret([]byte("0123456789abcdefghijklmnopqrstuv"))
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	issuer, err := token.NewIssuer(token.IssuerConfig{Secret: secret, Roles: []token.Role{"user"}})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	expired, err := issuer.Issue("alice", "user", time.Second, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := do(middleware.Guard(newEngine(t))(protected()), "Bearer "+expired)
	if rec.Code != http.StatusUnauthorized || errorBody(t, rec) != "unauthorized" {
		t.Fatalf("expected generic 401, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	engine := newEngine(t)
	h := middleware.RequireRole(engine, "admin")(protected())

	rec := do(h, "Bearer "+issue(t, engine, "admin"))
	if rec.Code != http.StatusOK || rec.Body.String() != "alice:admin" {
		t.Fatalf("expected admin to pass, got %d %q", rec.Code, rec.Body.String())
	}

	rec = do(h, "Bearer "+issue(t, engine, "user"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "forbidden" {
		t.Fatalf("expected generic message, got %q", got)
	}

	rec = do(h, "Bearer garbage")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}
}

func TestRequireRoleIgnoresRoleInRequest(t *testing.T) {
	engine := newEngine(t)
	h := middleware.RequireRole(engine, "admin")(protected())

	req := httptest.NewRequest(http.MethodPost, "/?role=admin", strings.NewReader(`{"role":"admin"}`))
	req.Header.Set("Authorization", "Bearer "+issue(t, engine, "user"))
	req.Header.Set("X-Role", "admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	rec := do(middleware.Guard(nil)(protected()), "Bearer x")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
