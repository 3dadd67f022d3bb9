package identity

import (
	"context"

	"ahorro/internal/core"
)

type contextKey struct{}

// WithUID stores the authenticated caller in ctx.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, contextKey{}, uid)
}

// UIDFromContext returns the caller or core.ErrNotAuthenticated.
func UIDFromContext(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(contextKey{}).(string)
	if !ok || uid == "" {
		return "", core.ErrNotAuthenticated
	}
	return uid, nil
}
