package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) error
}

// StaticTokens accepts a fixed set of bearer tokens.
type StaticTokens []string

// VerifyToken compares token against every configured token in constant time.
func (s StaticTokens) VerifyToken(_ context.Context, token string) error {
	ok := 0
	for _, want := range s {
		if want == "" {
			continue
		}
		ok |= subtle.ConstantTimeCompare([]byte(want), []byte(token))
	}
	if ok != 1 {
		return ErrUnauthorized
	}
	return nil
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if err := verifier.VerifyToken(r.Context(), token); err != nil {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
