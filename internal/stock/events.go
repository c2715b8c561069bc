package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/metrics"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
)

type stockEvent = enums.OutboxEventType

const (
	eventAdded    stockEvent = enums.EventStockAdded
	eventTaken    stockEvent = enums.EventStockTaken
	eventRollback stockEvent = enums.EventStockRollback
)

func snapshot(stock *models.Stock) payloads.StockSnapshot {
	return payloads.StockSnapshot{
		ID:         stock.ID,
		Owner:      stock.Owner,
		LocationID: stock.LocationID,
		Quantity:   stock.Quantity,
		Version:    stock.Version,
	}
}

func (s *service) emitChanged(ctx context.Context, tx *gorm.DB, eventType stockEvent, stock *models.Stock, movement *models.Movement, actor *uuid.UUID) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateStock,
		AggregateID:   stock.ID.String(),
		Actor:         outbox.Actor(actor),
		Data: payloads.StockChangedEvent{
			Stock:      snapshot(stock),
			MovementID: movement.ID,
			Before:     movement.Before,
			After:      movement.After,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue stock event")
	}
	return nil
}

func (s *service) emitMoved(ctx context.Context, tx *gorm.DB, stock *models.Stock, from uuid.UUID, actor *uuid.UUID) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventStockMoved,
		AggregateType: enums.AggregateStock,
		AggregateID:   stock.ID.String(),
		Actor:         outbox.Actor(actor),
		Data: payloads.StockMovedEvent{
			Stock:          snapshot(stock),
			FromLocationID: from,
			ToLocationID:   stock.LocationID,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue stock event")
	}
	return nil
}

// observe records the outcome metric and one log line per mutation.
func (s *service) observe(ctx context.Context, op string, stockID uuid.UUID, started time.Time, stock *models.Stock, changed bool, err error) {
	outcome := outcomeFor(changed, err)
	s.metrics.Observe(op, outcome, time.Since(started))
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithStockID(ctx, stockID.String())
	if stock != nil {
		ctx = s.logg.WithOwner(ctx, string(stock.Owner.Kind), stock.Owner.ID)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"operation": op,
		"outcome":   outcome,
	})
	switch outcome {
	case metrics.OutcomeOK:
		ctx = s.logg.WithFields(ctx, map[string]any{
			"quantity": stock.Quantity.String(),
			"version":  stock.Version,
		})
		s.logg.Info(ctx, "stock change committed")
	case metrics.OutcomeNoop:
		s.logg.Debug(ctx, "stock change skipped")
	case metrics.OutcomeRejected, metrics.OutcomeConflict:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stock change rejected")
	default:
		s.logg.Error(ctx, "stock change failed", err)
	}
}

func outcomeFor(changed bool, err error) string {
	if err == nil {
		if changed {
			return metrics.OutcomeOK
		}
		return metrics.OutcomeNoop
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeConflict:
		return metrics.OutcomeConflict
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
