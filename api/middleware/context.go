package middleware

import (
	"context"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	pkgAuth "github.com/MarMoonz01/tiresync-hub-backend/pkg/auth"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxClaims   contextKey = "claims"
	ctxSnapshot contextKey = "session_snapshot"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromContext returns the parsed access token claims, or nil when
// the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *pkgAuth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClaims).(*pkgAuth.AccessTokenClaims); ok {
		return v
	}
	return nil
}

// SnapshotFromContext returns the session snapshot seeded by the gate
// middleware, or nil on ungated routes.
func SnapshotFromContext(ctx context.Context) *session.Snapshot {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSnapshot).(*session.Snapshot); ok {
		return v
	}
	return nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithClaims injects parsed token claims into the context.
func WithClaims(ctx context.Context, claims *pkgAuth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}

// WithSnapshot injects a session snapshot into the context for
// downstream handlers.
func WithSnapshot(ctx context.Context, snap *session.Snapshot) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSnapshot, snap)
}
