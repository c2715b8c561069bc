package items

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/owners"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/types"
)

// Ref builds the owner reference of a catalogue item.
func Ref(id int64) types.OwnerRef {
	return types.OwnerRef{Kind: enums.OwnerKindItem, ID: strconv.FormatInt(id, 10)}
}

// ParseID reads the numeric item id out of an owner ref id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid item id %q", raw))
	}
	return id, nil
}

type itemOwner struct {
	item *models.Item
}

// AsOwner exposes an item through the owners.Owner view.
func AsOwner(item *models.Item) owners.Owner {
	return itemOwner{item: item}
}

func (o itemOwner) Ref() types.OwnerRef { return Ref(o.item.ID) }

func (o itemOwner) Number() int64 { return o.item.ID }

func (o itemOwner) CategoryName() string {
	if o.item.Category == nil {
		return ""
	}
	return o.item.Category.Name
}

func (o itemOwner) IsAssembly() bool { return o.item.IsAssembly }

// Resolver registers the item kind with an owners.Registry.
type Resolver struct {
	repo *Repository
}

func NewResolver(repo *Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, id string) (owners.Owner, error) {
	itemID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	repo := r.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	item, err := repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %d not found", itemID))
	}
	return AsOwner(item), nil
}
