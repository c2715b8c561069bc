package locations

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/types"
)

// Service manages warehouses and the locations stock is kept in.
type Service interface {
	CreateWarehouse(ctx context.Context, input CreateWarehouseInput) (*models.Warehouse, error)
	CreateLocation(ctx context.Context, input CreateLocationInput) (*models.Location, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
}

type CreateWarehouseInput struct {
	Name        string
	Description *string
}

type CreateLocationInput struct {
	Name        string
	WarehouseID *uuid.UUID
	Owner       *types.OwnerRef
	Aisle       *string
	Row         *string
	Bin         *string
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("location repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateWarehouse(ctx context.Context, input CreateWarehouseInput) (*models.Warehouse, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	w := &models.Warehouse{Name: name, Description: input.Description}
	if err := s.repo.CreateWarehouse(ctx, w); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warehouse")
	}
	return w, nil
}

func (s *service) CreateLocation(ctx context.Context, input CreateLocationInput) (*models.Location, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.WarehouseID != nil {
		w, err := s.repo.FindWarehouse(ctx, *input.WarehouseID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
		}
		if w == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
	}

	l := &models.Location{
		Name:        name,
		WarehouseID: input.WarehouseID,
		Aisle:       input.Aisle,
		Row:         input.Row,
		Bin:         input.Bin,
	}
	if input.Owner != nil && !input.Owner.IsZero() {
		kind := string(input.Owner.Kind)
		id := input.Owner.ID
		l.OwnerType = &kind
		l.OwnerID = &id
	}
	if err := s.repo.CreateLocation(ctx, l); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create location")
	}
	return s.GetLocation(ctx, l.ID)
}

func (s *service) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location")
	}
	if l == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
	}
	return l, nil
}
