package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/internal/identity"
)

// UserIDFromContext returns the authenticated actor as a string, or "".
func UserIDFromContext(ctx context.Context) string {
	if id, ok := identity.ActorFromContext(ctx); ok {
		return id.String()
	}
	return ""
}

// WithUserID injects the actor into the context the way Auth does.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return identity.WithActor(ctx, userID)
}
