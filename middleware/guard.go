package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokengate/authz"
	"github.com/MrEthical07/tokengate/token"
)

// Authenticator is the subset of *tokengate.Engine the guards need.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (token.Claims, error)
	Authorize(ctx context.Context, tokenString string, role token.Role) (token.Claims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims a guard stored for the current request.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(token.Claims)
	return claims, ok
}

// Guard admits requests carrying a valid Bearer token of any role.
func Guard(engine Authenticator) func(http.Handler) http.Handler {
	return guard(engine, func(ctx context.Context, tok string) (token.Claims, error) {
		return engine.Authenticate(ctx, tok)
	})
}

// RequireRole admits requests carrying a valid Bearer token whose role equals role.
// Valid tokens with another role get 403; everything else gets 401.
func RequireRole(engine Authenticator, role token.Role) func(http.Handler) http.Handler {
	return guard(engine, func(ctx context.Context, tok string) (token.Claims, error) {
		return engine.Authorize(ctx, tok, role)
	})
}

func guard(engine Authenticator, check func(context.Context, string) (token.Claims, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				Unauthorized(w)
				return
			}

			tok, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				Unauthorized(w)
				return
			}

			claims, err := check(r.Context(), tok)
			if err != nil {
				if errors.Is(err, authz.ErrForbidden) {
					Forbidden(w)
					return
				}
				Unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Unauthorized writes the fixed 401 response used for every verification failure.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

// Forbidden writes the fixed 403 response used for every authorization denial.
func Forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	tok := strings.TrimSpace(value[len(bearer):])
	if tok == "" {
		return "", false
	}

	return tok, true
}
