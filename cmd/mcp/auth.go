package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"rag-worker/internal/auth"
	"rag-worker/pkg/errors"

	"github.com/mark3labs/mcp-go/server"
)

type userIDKey struct{}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// userIDFromContext returns the token subject attached by the transport
func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// tokenAuth checks bearer tokens on both MCP transports
type tokenAuth struct {
	tokens *auth.TokenService
}

func newTokenAuth(tokens *auth.TokenService) *tokenAuth {
	return &tokenAuth{tokens: tokens}
}

func (a *tokenAuth) authenticate(header string) (*auth.Claims, error) {
	tokenString, err := a.tokens.ExtractTokenFromHeader(header)
	if err != nil {
		return nil, err
	}
	return a.tokens.ValidateToken(tokenString)
}

// requireToken rejects SSE and message requests without a valid token
func (a *tokenAuth) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.authenticate(r.Header.Get("Authorization")); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: "Invalid or missing bearer token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sseContext puts the token subject on the context the tool handlers see
func (a *tokenAuth) sseContext(ctx context.Context, r *http.Request) context.Context {
	claims, err := a.authenticate(r.Header.Get("Authorization"))
	if err != nil {
		return ctx
	}
	return withUserID(ctx, claims.UserID)
}

// stdioContext validates the token once, since a stdio session has a single caller
func (a *tokenAuth) stdioContext(token string) (server.StdioContextFunc, error) {
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return func(ctx context.Context) context.Context {
		return withUserID(ctx, claims.UserID)
	}, nil
}
