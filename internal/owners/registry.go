// Package owners resolves the polymorphic owner of a stock or item code.
// Every owner kind registers a Resolver; nothing else inspects a kind.
package owners

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/types"
)

// Owner is the view the ledger, assembly and code services need of the
// record that owns stock.
type Owner interface {
	Ref() types.OwnerRef
	// Number is the numeric identity padded into reference codes.
	Number() int64
	// CategoryName is empty when the owner has no category.
	CategoryName() string
	IsAssembly() bool
}

// Resolver loads owners of one kind. tx may be nil.
type Resolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, id string) (Owner, error)
}

type Registry struct {
	mu        sync.RWMutex
	resolvers map[enums.OwnerKind]Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[enums.OwnerKind]Resolver)}
}

// Register binds kind to resolver, replacing any previous binding.
func (r *Registry) Register(kind enums.OwnerKind, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[kind] = resolver
}

// Kinds returns the registered kinds.
func (r *Registry) Kinds() []enums.OwnerKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]enums.OwnerKind, 0, len(r.resolvers))
	for kind := range r.resolvers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Resolve finds the owner behind ref.
func (r *Registry) Resolve(ctx context.Context, tx *gorm.DB, ref types.OwnerRef) (Owner, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[ref.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown owner kind %q", ref.Kind))
	}
	if ref.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	owner, err := resolver.Resolve(ctx, tx, ref.ID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "resolve owner")
	}
	if owner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("owner %s not found", ref))
	}
	return owner, nil
}
