package api

import (
	"context"

	"github.com/trailheadapp/trailhead-server/internal/domain"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const contextKeyUser contextKey = "user"

// withUser stores the authenticated user in the request context.
func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// currentUser returns the authenticated user, or nil when the request is
// anonymous.
func currentUser(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(contextKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}
