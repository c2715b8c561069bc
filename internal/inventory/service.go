// Package inventory answers per-owner stock questions on top of the ledger.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/internal/quantity"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type Service interface {
	TotalStock(ctx context.Context, owner types.OwnerRef) (decimal.Decimal, error)
	IsInStock(ctx context.Context, owner types.OwnerRef) (bool, error)
	ListStocks(ctx context.Context, owner types.OwnerRef) ([]models.Stock, error)
	StockFromLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error)
	FirstOrCreateStock(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error)
	CreateStockOnLocation(ctx context.Context, owner types.OwnerRef, input CreateStockInput) (*models.Stock, error)
	PutToLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID, input stock.PutInput) (*models.Stock, error)
	TakeFromLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID, input stock.TakeInput) (*models.Stock, error)
	MoveStock(ctx context.Context, owner types.OwnerRef, fromLocationID, toLocationID uuid.UUID) (*models.Stock, error)
}

type CreateStockInput struct {
	LocationID uuid.UUID
	Quantity   decimal.Decimal
	Reason     string
	Cost       decimal.Decimal
}

type service struct {
	ledger stock.Service
}

func NewService(ledger stock.Service) (Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("stock service required")
	}
	return &service{ledger: ledger}, nil
}

func (s *service) TotalStock(ctx context.Context, owner types.OwnerRef) (decimal.Decimal, error) {
	return s.ledger.Total(ctx, owner)
}

func (s *service) IsInStock(ctx context.Context, owner types.OwnerRef) (bool, error) {
	total, err := s.ledger.Total(ctx, owner)
	if err != nil {
		return false, err
	}
	return total.IsPositive(), nil
}

func (s *service) ListStocks(ctx context.Context, owner types.OwnerRef) ([]models.Stock, error) {
	return s.ledger.ListByOwner(ctx, owner)
}

// StockFromLocation fails with CodeStockNotFound when owner has nothing there.
func (s *service) StockFromLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error) {
	return s.ledger.Find(ctx, owner, locationID)
}

func (s *service) FirstOrCreateStock(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error) {
	existing, err := s.ledger.Find(ctx, owner, locationID)
	if err == nil {
		return existing, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeStockNotFound) {
		return nil, err
	}
	created, err := s.ledger.Create(ctx, stock.CreateInput{Owner: owner, LocationID: locationID})
	if pkgerrors.IsCode(err, pkgerrors.CodeStockAlreadyExists) {
		return s.ledger.Find(ctx, owner, locationID)
	}
	return created, err
}

// CreateStockOnLocation opens an empty stock, then puts the quantity so the
// log shows the first record followed by the initial delivery.
func (s *service) CreateStockOnLocation(ctx context.Context, owner types.OwnerRef, input CreateStockInput) (*models.Stock, error) {
	if err := quantity.Validate(input.Quantity); err != nil {
		return nil, err
	}
	_, err := s.ledger.Find(ctx, owner, input.LocationID)
	if err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStockAlreadyExists, fmt.Sprintf("%s already has stock at location %s", owner, input.LocationID))
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeStockNotFound) {
		return nil, err
	}

	created, err := s.ledger.Create(ctx, stock.CreateInput{Owner: owner, LocationID: input.LocationID})
	if err != nil {
		return nil, err
	}
	if !input.Quantity.IsPositive() {
		return created, nil
	}
	return s.ledger.Put(ctx, created.ID, stock.PutInput{
		Quantity: input.Quantity,
		Reason:   input.Reason,
		Cost:     input.Cost,
	})
}

// PutToLocation opens the stock on first use, like the other by-location
// mutations.
func (s *service) PutToLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID, input stock.PutInput) (*models.Stock, error) {
	if err := quantity.Validate(input.Quantity); err != nil {
		return nil, err
	}
	current, err := s.FirstOrCreateStock(ctx, owner, locationID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Put(ctx, current.ID, input)
}

// TakeFromLocation fails with CodeNotEnoughStock on a location the owner
// never stocked, leaving an empty stock behind.
func (s *service) TakeFromLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID, input stock.TakeInput) (*models.Stock, error) {
	if err := quantity.Validate(input.Quantity); err != nil {
		return nil, err
	}
	current, err := s.FirstOrCreateStock(ctx, owner, locationID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Take(ctx, current.ID, input)
}

func (s *service) MoveStock(ctx context.Context, owner types.OwnerRef, fromLocationID, toLocationID uuid.UUID) (*models.Stock, error) {
	current, err := s.FirstOrCreateStock(ctx, owner, fromLocationID)
	if err != nil {
		return nil, err
	}
	return s.ledger.MoveTo(ctx, current.ID, toLocationID)
}
