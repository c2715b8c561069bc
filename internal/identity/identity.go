// Package identity resolves the actor responsible for a ledger change.
package identity

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// Provider returns the current actor. A nil id with a nil error means the
// change is anonymous and the configuration allows it.
type Provider interface {
	CurrentActor(ctx context.Context) (*uuid.UUID, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context) (*uuid.UUID, error)

func (f ProviderFunc) CurrentActor(ctx context.Context) (*uuid.UUID, error) {
	return f(ctx)
}

type ctxKey struct{}

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ContextProvider reads the actor placed on the context by the auth middleware.
type ContextProvider struct {
	allowNoUser bool
}

func NewContextProvider(allowNoUser bool) *ContextProvider {
	return &ContextProvider{allowNoUser: allowNoUser}
}

func (p *ContextProvider) CurrentActor(ctx context.Context) (*uuid.UUID, error) {
	if id, ok := ActorFromContext(ctx); ok {
		return &id, nil
	}
	if p.allowNoUser {
		return nil, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNoActiveUser, "no active user is available to attribute the change")
}

// Static always returns id. Handy for jobs and tests.
func Static(id uuid.UUID) Provider {
	return ProviderFunc(func(context.Context) (*uuid.UUID, error) {
		return &id, nil
	})
}

// Anonymous always returns a nil actor.
func Anonymous() Provider {
	return ProviderFunc(func(context.Context) (*uuid.UUID, error) {
		return nil, nil
	})
}
