package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) error
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(verifier TokenVerifier) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Protocol handshake is always allowed
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}
			if verifier == nil {
				return nil, fmt.Errorf("unauthorized: no tokens configured")
			}
			if err := verifier.VerifyToken(ctx, token); err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			return next(ctx, method, req)
		}
	}
}
