// Package stock is the ledger of item quantities per location. Every
// quantity change is persisted under a version check, logged as a movement
// and queued as an outbox event inside one transaction.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/identity"
	"github.com/angelmondragon/stockledger/internal/locations"
	"github.com/angelmondragon/stockledger/internal/movements"
	"github.com/angelmondragon/stockledger/internal/owners"
	"github.com/angelmondragon/stockledger/internal/quantity"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/types"
)

const (
	opCreate   = "create"
	opPut      = "put"
	opTake     = "take"
	opMove     = "move"
	opRollback = "rollback"

	defaultReason     = "stock change"
	firstRecordReason = "first record"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ownerResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, ref types.OwnerRef) (owners.Owner, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the stock ledger.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	Find(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error)
	ListByOwner(ctx context.Context, owner types.OwnerRef) ([]models.Stock, error)
	Total(ctx context.Context, owner types.OwnerRef) (decimal.Decimal, error)
	Create(ctx context.Context, input CreateInput) (*models.Stock, error)
	Put(ctx context.Context, stockID uuid.UUID, input PutInput) (*models.Stock, error)
	Take(ctx context.Context, stockID uuid.UUID, input TakeInput) (*models.Stock, error)
	MoveTo(ctx context.Context, stockID, locationID uuid.UUID) (*models.Stock, error)
	Rollback(ctx context.Context, stockID uuid.UUID, input RollbackInput) (*models.Stock, error)
}

// ChangeInput describes one put or take.
type ChangeInput struct {
	Quantity decimal.Decimal
	Reason   string
	Cost     decimal.Decimal
	Receiver *types.OwnerRef
}

type (
	PutInput  = ChangeInput
	TakeInput = ChangeInput
)

type CreateInput struct {
	Owner       types.OwnerRef
	LocationID  uuid.UUID
	Quantity    decimal.Decimal
	Cost        decimal.Decimal
	Description *string
	Aisle       *string
	Row         *string
	Bin         *string
}

// RollbackInput selects the movement to undo. A nil MovementID targets the
// latest movement; Recursive also undoes everything recorded after it.
type RollbackInput struct {
	MovementID *uuid.UUID
	Recursive  bool
}

type ServiceParams struct {
	DB        txRunner
	Stocks    *Repository
	Movements *movements.Repository
	Recorder  *movements.Recorder
	Locations *locations.Repository
	Owners    ownerResolver
	Outbox    outboxPublisher
	Identity  identity.Provider
	Config    config.InventoryConfig
	Locker    Locker
	Metrics   *metrics.LedgerMetrics
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	repo      *Repository
	movements *movements.Repository
	recorder  *movements.Recorder
	locations *locations.Repository
	owners    ownerResolver
	outbox    outboxPublisher
	identity  identity.Provider
	cfg       config.InventoryConfig
	locker    Locker
	metrics   *metrics.LedgerMetrics
	logg      *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if p.Movements == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if p.Locations == nil {
		return nil, fmt.Errorf("location repository required")
	}
	if p.Owners == nil {
		return nil, fmt.Errorf("owner resolver required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if p.Recorder == nil {
		p.Recorder = movements.NewRecorder(p.Movements)
	}
	if p.Locker == nil {
		p.Locker = noopLocker{}
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewLedgerMetrics(nil)
	}
	return &service{
		tx:        p.DB,
		repo:      p.Stocks,
		movements: p.Movements,
		recorder:  p.Recorder,
		locations: p.Locations,
		owners:    p.Owners,
		outbox:    p.Outbox,
		identity:  p.Identity,
		cfg:       p.Config,
		locker:    p.Locker,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	stock, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStockNotFound, fmt.Sprintf("stock %s not found", id))
	}
	return stock, nil
}

func (s *service) Find(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error) {
	stock, err := s.repo.FindByOwnerAndLocation(ctx, owner, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStockNotFound, fmt.Sprintf("no stock of %s at location %s", owner, locationID))
	}
	return stock, nil
}

func (s *service) ListByOwner(ctx context.Context, owner types.OwnerRef) ([]models.Stock, error) {
	rows, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stocks")
	}
	return rows, nil
}

func (s *service) Total(ctx context.Context, owner types.OwnerRef) (decimal.Decimal, error) {
	total, err := s.repo.SumByOwner(ctx, owner)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum stock")
	}
	return total, nil
}

// Create opens a stock for owner at a location and logs the first record.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Stock, error) {
	started := time.Now()
	stock, err := s.create(ctx, input)
	stockID := uuid.Nil
	if stock != nil {
		stockID = stock.ID
	}
	s.observe(ctx, opCreate, stockID, started, stock, true, err)
	return stock, err
}

func (s *service) create(ctx context.Context, input CreateInput) (*models.Stock, error) {
	if err := quantity.Validate(input.Quantity); err != nil {
		return nil, err
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var created *models.Stock
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.owners.Resolve(ctx, tx, input.Owner); err != nil {
			return err
		}
		location, err := s.loadLocation(ctx, tx, input.LocationID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByOwnerAndLocation(ctx, input.Owner, location.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}
		if existing != nil {
			return stockExists(input.Owner, location.ID)
		}

		stock := &models.Stock{
			Owner:       input.Owner,
			LocationID:  location.ID,
			Quantity:    input.Quantity,
			Description: trimPtr(input.Description),
			Aisle:       trimPtr(input.Aisle),
			Row:         trimPtr(input.Row),
			Bin:         trimPtr(input.Bin),
			UserID:      actor,
		}
		if err := repo.Create(ctx, stock); err != nil {
			if db.IsUniqueViolation(err, "") {
				return stockExists(input.Owner, location.ID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock")
		}
		stock.Location = location

		movement, err := s.recorder.Record(ctx, tx, movements.Entry{
			Stock:  stock,
			Before: decimal.Zero,
			After:  stock.Quantity,
			Reason: firstRecordReason,
			Cost:   input.Cost,
			Actor:  actor,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record movement")
		}
		if err := s.emitChanged(ctx, tx, eventAdded, stock, movement, actor); err != nil {
			return err
		}
		created = stock
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create stock")
	}
	return created, nil
}

// Put adds quantity to the stock.
func (s *service) Put(ctx context.Context, stockID uuid.UUID, input PutInput) (*models.Stock, error) {
	if err := quantity.Validate(input.Quantity); err != nil {
		s.observe(ctx, opPut, stockID, time.Now(), nil, false, err)
		return nil, err
	}
	return s.mutate(ctx, opPut, stockID, func(tx *gorm.DB, stock *models.Stock, actor *uuid.UUID) (bool, error) {
		return s.apply(ctx, tx, stock, actor, change{
			after:    stock.Quantity.Add(input.Quantity),
			reason:   input.Reason,
			cost:     input.Cost,
			receiver: input.Receiver,
			event:    eventAdded,
		})
	})
}

// Take removes quantity from the stock; it never drives the stock negative.
func (s *service) Take(ctx context.Context, stockID uuid.UUID, input TakeInput) (*models.Stock, error) {
	if err := quantity.Validate(input.Quantity); err != nil {
		s.observe(ctx, opTake, stockID, time.Now(), nil, false, err)
		return nil, err
	}
	return s.mutate(ctx, opTake, stockID, func(tx *gorm.DB, stock *models.Stock, actor *uuid.UUID) (bool, error) {
		available := stock.Quantity
		if !available.GreaterThanOrEqual(input.Quantity) {
			return false, pkgerrors.New(
				pkgerrors.CodeNotEnoughStock,
				fmt.Sprintf("tried to take %s but only %s is available", input.Quantity.String(), available.String()),
			).WithDetails(map[string]any{
				"requested": input.Quantity.String(),
				"available": available.String(),
			})
		}
		return s.apply(ctx, tx, stock, actor, change{
			after:    available.Sub(input.Quantity),
			reason:   input.Reason,
			cost:     input.Cost,
			receiver: input.Receiver,
			event:    eventTaken,
		})
	})
}

// MoveTo reassigns the stock to another location without logging a movement.
func (s *service) MoveTo(ctx context.Context, stockID, locationID uuid.UUID) (*models.Stock, error) {
	if locationID == uuid.Nil {
		err := pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
		s.observe(ctx, opMove, stockID, time.Now(), nil, false, err)
		return nil, err
	}
	return s.mutate(ctx, opMove, stockID, func(tx *gorm.DB, stock *models.Stock, actor *uuid.UUID) (bool, error) {
		if stock.LocationID == locationID {
			return false, nil
		}
		location, err := s.loadLocation(ctx, tx, locationID)
		if err != nil {
			return false, err
		}
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByOwnerAndLocation(ctx, stock.Owner, locationID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}
		if existing != nil {
			return false, stockExists(stock.Owner, locationID)
		}

		from := stock.LocationID
		if err := repo.UpdateLocation(ctx, stock, location); err != nil {
			if db.IsUniqueViolation(err, "") {
				return false, stockExists(stock.Owner, locationID)
			}
			return false, writeError(err)
		}
		return true, s.emitMoved(ctx, tx, stock, from, actor)
	})
}

// Rollback undoes a movement by applying its inverse delta as a new movement.
func (s *service) Rollback(ctx context.Context, stockID uuid.UUID, input RollbackInput) (*models.Stock, error) {
	return s.mutate(ctx, opRollback, stockID, func(tx *gorm.DB, stock *models.Stock, actor *uuid.UUID) (bool, error) {
		log := s.movements.WithTx(tx)
		target, err := s.rollbackTarget(ctx, log, stock.ID, input.MovementID)
		if err != nil {
			return false, err
		}
		if !input.Recursive {
			return s.rollbackOne(ctx, tx, stock, actor, *target)
		}

		chain, err := log.ListSince(ctx, stock.ID, target.CreatedAt)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
		}
		applied := false
		for _, m := range chain {
			ok, err := s.rollbackOne(ctx, tx, stock, actor, m)
			if err != nil {
				return false, err
			}
			applied = applied || ok
		}
		return applied, nil
	})
}

func (s *service) rollbackTarget(ctx context.Context, log *movements.Repository, stockID uuid.UUID, movementID *uuid.UUID) (*models.Movement, error) {
	var (
		target *models.Movement
		err    error
	)
	if movementID != nil {
		target, err = log.FindForStock(ctx, stockID, *movementID)
	} else {
		target, err = log.Latest(ctx, stockID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movement")
	}
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidMovement, "movement to roll back not found for this stock")
	}
	return target, nil
}

func (s *service) rollbackOne(ctx context.Context, tx *gorm.DB, stock *models.Stock, actor *uuid.UUID, target models.Movement) (bool, error) {
	after := stock.Quantity.Sub(target.Delta())
	if after.IsNegative() {
		return false, pkgerrors.New(
			pkgerrors.CodeNotEnoughStock,
			fmt.Sprintf("rolling back movement %s needs %s but only %s is available", target.ID, target.Delta().String(), stock.Quantity.String()),
		)
	}
	cost := decimal.Zero
	if s.cfg.RollbackCost {
		cost = target.Cost.Neg()
	}
	return s.apply(ctx, tx, stock, actor, change{
		after:  after,
		reason: rollbackReason(target),
		cost:   cost,
		event:  eventRollback,
	})
}

func rollbackReason(target models.Movement) string {
	return fmt.Sprintf("Rolled back movement %s on %s", target.ID, target.CreatedAt.UTC().Format(time.RFC3339))
}

type change struct {
	after    decimal.Decimal
	reason   string
	cost     decimal.Decimal
	receiver *types.OwnerRef
	event    stockEvent
}

// apply persists one quantity change, then logs and queues it. It returns
// false when duplicates are disabled and the quantity would not change.
func (s *service) apply(ctx context.Context, tx *gorm.DB, stock *models.Stock, actor *uuid.UUID, c change) (bool, error) {
	before := stock.Quantity
	if !s.cfg.AllowDuplicateMovements && c.after.Equal(before) {
		return false, nil
	}
	if err := s.repo.WithTx(tx).UpdateQuantity(ctx, stock, c.after); err != nil {
		return false, writeError(err)
	}
	reason := strings.TrimSpace(c.reason)
	if reason == "" {
		reason = defaultReason
	}
	movement, err := s.recorder.Record(ctx, tx, movements.Entry{
		Stock:    stock,
		Before:   before,
		After:    c.after,
		Reason:   reason,
		Cost:     c.cost,
		Actor:    actor,
		Receiver: c.receiver,
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record movement")
	}
	if err := s.emitChanged(ctx, tx, c.event, stock, movement, actor); err != nil {
		return false, err
	}
	return true, nil
}

type mutation func(tx *gorm.DB, stock *models.Stock, actor *uuid.UUID) (bool, error)

func (s *service) mutate(ctx context.Context, op string, stockID uuid.UUID, fn mutation) (*models.Stock, error) {
	started := time.Now()
	stock, changed, err := s.runMutation(ctx, stockID, fn)
	s.observe(ctx, op, stockID, started, stock, changed, err)
	if err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *service) runMutation(ctx context.Context, stockID uuid.UUID, fn mutation) (*models.Stock, bool, error) {
	if stockID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, false, err
	}
	unlock, err := s.locker.Lock(ctx, stockID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	var (
		result  *models.Stock
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.repo.WithTx(tx).FindByID(ctx, stockID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}
		if stock == nil {
			return pkgerrors.New(pkgerrors.CodeStockNotFound, fmt.Sprintf("stock %s not found", stockID))
		}
		ok, err := fn(tx, stock, actor)
		if err != nil {
			return err
		}
		result, changed = stock, ok
		return nil
	})
	if err != nil {
		return nil, false, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "commit stock change")
	}
	return result, changed, nil
}

func (s *service) currentActor(ctx context.Context) (*uuid.UUID, error) {
	actor, err := s.identity.CurrentActor(ctx)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeNoActiveUser, err, "resolve current user")
	}
	if actor == nil && !s.cfg.AllowNoUser {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveUser, "no active user")
	}
	return actor, nil
}

func (s *service) loadLocation(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Location, error) {
	location, err := s.locations.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location")
	}
	if location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("location %s not found", id))
	}
	return location, nil
}

func writeError(err error) error {
	if errors.Is(err, ErrStaleVersion) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "stock was modified concurrently")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
}

func stockExists(owner types.OwnerRef, locationID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeStockAlreadyExists, fmt.Sprintf("%s already has stock at location %s", owner, locationID))
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
