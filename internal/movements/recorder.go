// Package movements owns the append-only audit log of stock changes.
package movements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/types"
)

// Entry describes one quantity change that has already been applied to Stock.
type Entry struct {
	Stock    *models.Stock
	Before   decimal.Decimal
	After    decimal.Decimal
	Reason   string
	Cost     decimal.Decimal
	Actor    *uuid.UUID
	Receiver *types.OwnerRef
}

// Recorder appends movements. It must run after the stock update succeeded
// in the same transaction.
type Recorder struct {
	repo *Repository
	now  func() time.Time
}

func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record inserts exactly one movement in tx.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, e Entry) (*models.Movement, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if e.Stock == nil {
		return nil, errors.New("stock required")
	}
	now := r.now()
	m := &models.Movement{
		StockID:   e.Stock.ID,
		UserID:    e.Actor,
		Before:    e.Before,
		After:     e.After,
		Cost:      e.Cost,
		Reason:    e.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if e.Stock.Location != nil {
		m.WarehouseID = e.Stock.Location.WarehouseID
	}
	if e.Receiver != nil && !e.Receiver.IsZero() {
		kind := string(e.Receiver.Kind)
		id := e.Receiver.ID
		m.ReceiverType = &kind
		m.ReceiverID = &id
	}
	if err := r.repo.WithTx(tx).Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
