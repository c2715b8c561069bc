// Package assembly maintains bill-of-materials edges between catalogue items.
package assembly

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/internal/quantity"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	AddPart(ctx context.Context, parentID, partID int64, qty decimal.Decimal, extra types.Extra) (*models.Item, error)
	UpdatePart(ctx context.Context, parentID, partID int64, qty decimal.Decimal, extra types.Extra) (*models.Item, error)
	RemovePart(ctx context.Context, parentID, partID int64) (bool, error)
	AddParts(ctx context.Context, parentID int64, parts []PartInput) (int, error)
	UpdateParts(ctx context.Context, parentID int64, parts []PartInput) (int, error)
	RemoveParts(ctx context.Context, parentID int64, partIDs []int64) (int, error)
	ListParts(ctx context.Context, parentID int64) ([]models.AssemblyPart, error)
	ListAssemblies(ctx context.Context) ([]models.Item, error)
}

type PartInput struct {
	PartID   int64
	Quantity decimal.Decimal
	Extra    types.Extra
}

type service struct {
	tx     txRunner
	repo   *Repository
	items  *items.Repository
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(tx txRunner, repo *Repository, itemRepo *items.Repository, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("assembly repository required")
	}
	if itemRepo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, items: itemRepo, outbox: publisher, logg: logg}, nil
}

// AddPart flags parent as an assembly and attaches qty of part to it. An
// existing edge is overwritten. Only direct self-reference is rejected.
func (s *service) AddPart(ctx context.Context, parentID, partID int64, qty decimal.Decimal, extra types.Extra) (*models.Item, error) {
	if err := validatePart(parentID, partID, qty); err != nil {
		return nil, err
	}
	var parent *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		itemRepo := s.items.WithTx(tx)
		loaded, err := s.loadPair(ctx, itemRepo, parentID, partID)
		if err != nil {
			return err
		}
		if !loaded.IsAssembly {
			if err := itemRepo.MarkAssembly(ctx, parentID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark assembly")
			}
			loaded.IsAssembly = true
		}
		edge := &models.AssemblyPart{ParentID: parentID, PartID: partID, Quantity: qty, Extra: extra}
		if err := s.repo.WithTx(tx).Upsert(ctx, edge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach part")
		}
		parent = loaded
		return s.emit(ctx, tx, enums.EventAssemblyPartAdded, parentID, partID, qty, extra)
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "add part")
	}
	return parent, nil
}

func (s *service) UpdatePart(ctx context.Context, parentID, partID int64, qty decimal.Decimal, extra types.Extra) (*models.Item, error) {
	if err := validatePart(parentID, partID, qty); err != nil {
		return nil, err
	}
	var parent *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.loadPair(ctx, s.items.WithTx(tx), parentID, partID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		edge, err := repo.Find(ctx, parentID, partID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
		}
		if edge == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %d is not a part of item %d", partID, parentID))
		}
		edge.Quantity = qty
		edge.Extra = extra
		if err := repo.Update(ctx, edge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part")
		}
		parent = loaded
		return s.emit(ctx, tx, enums.EventAssemblyPartUpdated, parentID, partID, qty, extra)
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update part")
	}
	return parent, nil
}

// RemovePart detaches part from parent. It returns false when no edge existed.
func (s *service) RemovePart(ctx context.Context, parentID, partID int64) (bool, error) {
	removed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		edge, err := s.repo.WithTx(tx).Find(ctx, parentID, partID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
		}
		if edge == nil {
			return nil
		}
		rows, err := s.repo.WithTx(tx).Delete(ctx, parentID, partID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove part")
		}
		if rows == 0 {
			return nil
		}
		removed = true
		return s.emit(ctx, tx, enums.EventAssemblyPartRemoved, parentID, partID, edge.Quantity, edge.Extra)
	})
	if err != nil {
		return false, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "remove part")
	}
	return removed, nil
}

// AddParts attaches each part in its own transaction and counts successes.
func (s *service) AddParts(ctx context.Context, parentID int64, parts []PartInput) (int, error) {
	return s.each(ctx, "add", parentID, len(parts), func(i int) error {
		_, err := s.AddPart(ctx, parentID, parts[i].PartID, parts[i].Quantity, parts[i].Extra)
		return err
	})
}

func (s *service) UpdateParts(ctx context.Context, parentID int64, parts []PartInput) (int, error) {
	return s.each(ctx, "update", parentID, len(parts), func(i int) error {
		_, err := s.UpdatePart(ctx, parentID, parts[i].PartID, parts[i].Quantity, parts[i].Extra)
		return err
	})
}

func (s *service) RemoveParts(ctx context.Context, parentID int64, partIDs []int64) (int, error) {
	return s.each(ctx, "remove", parentID, len(partIDs), func(i int) error {
		removed, err := s.RemovePart(ctx, parentID, partIDs[i])
		if err == nil && !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %d is not a part of item %d", partIDs[i], parentID))
		}
		return err
	})
}

func (s *service) each(ctx context.Context, op string, parentID int64, n int, fn func(i int) error) (int, error) {
	if parentID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "parent id is required")
	}
	succeeded := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return succeeded, err
		}
		if err := fn(i); err != nil {
			if s.logg != nil {
				fields := map[string]any{"operation": op, "parent_id": parentID, "index": i}
				s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error()), "assembly part skipped")
			}
			continue
		}
		succeeded++
	}
	return succeeded, nil
}

func (s *service) ListParts(ctx context.Context, parentID int64) ([]models.AssemblyPart, error) {
	rows, err := s.repo.ListParts(ctx, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}
	return rows, nil
}

func (s *service) ListAssemblies(ctx context.Context) ([]models.Item, error) {
	rows, err := s.items.ListAssemblies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assemblies")
	}
	return rows, nil
}

func validatePart(parentID, partID int64, qty decimal.Decimal) error {
	if err := quantity.Validate(qty); err != nil {
		return err
	}
	if parentID <= 0 || partID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "parent and part ids are required")
	}
	if parentID == partID {
		return pkgerrors.New(pkgerrors.CodeInvalidPart, "an item cannot be an assembly of itself")
	}
	return nil
}

// loadPair loads parent and checks that part exists.
func (s *service) loadPair(ctx context.Context, itemRepo *items.Repository, parentID, partID int64) (*models.Item, error) {
	parent, err := itemRepo.FindByID(ctx, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if parent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %d not found", parentID))
	}
	part, err := itemRepo.FindByID(ctx, partID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part item")
	}
	if part == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part item %d not found", partID))
	}
	return parent, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, parentID, partID int64, qty decimal.Decimal, extra types.Extra) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateAssembly,
		AggregateID:   strconv.FormatInt(parentID, 10),
		Data: payloads.AssemblyPartEvent{
			ItemID:   parentID,
			PartID:   partID,
			Quantity: qty,
			Extra:    extra,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue assembly event")
	}
	return nil
}
