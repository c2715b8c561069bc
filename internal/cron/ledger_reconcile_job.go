package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

const defaultReconcileBatch = 500

type stockPager interface {
	ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.Stock, error)
}

type latestMovementFinder interface {
	Latest(ctx context.Context, stockID uuid.UUID) (*models.Movement, error)
}

type LedgerReconcileJobParams struct {
	Logger    *logger.Logger
	Stocks    stockPager
	Movements latestMovementFinder
	BatchSize int
}

// NewLedgerReconcileJob checks that every stock quantity equals the after
// value of its newest movement. Drift is reported, never repaired.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Movements == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ledgerReconcileJob{
		logg:      params.Logger,
		stocks:    params.Stocks,
		movements: params.Movements,
		batch:     batch,
	}, nil
}

type ledgerReconcileJob struct {
	logg      *logger.Logger
	stocks    stockPager
	movements latestMovementFinder
	batch     int
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var (
		cursor  uuid.UUID
		checked int
		drift   error
	)
	for {
		rows, err := j.stocks.ListAfter(ctx, cursor, j.batch)
		if err != nil {
			return fmt.Errorf("list stocks: %w", err)
		}
		for i := range rows {
			if err := j.check(ctx, &rows[i]); err != nil {
				drift = multierr.Append(drift, err)
			}
			checked++
		}
		if len(rows) < j.batch {
			break
		}
		cursor = rows[len(rows)-1].ID
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stocks_checked": checked,
		"mismatches":     len(multierr.Errors(drift)),
	})
	j.logg.Info(logCtx, "ledger reconcile complete")
	return drift
}

func (j *ledgerReconcileJob) check(ctx context.Context, stock *models.Stock) error {
	latest, err := j.movements.Latest(ctx, stock.ID)
	if err != nil {
		return fmt.Errorf("stock %s: latest movement: %w", stock.ID, err)
	}
	logCtx := j.logg.WithStockID(ctx, stock.ID.String())
	if latest == nil {
		j.logg.Warn(logCtx, "stock has no movements")
		return fmt.Errorf("stock %s: no movements recorded", stock.ID)
	}
	if !latest.After.Equal(stock.Quantity) {
		logCtx = j.logg.WithFields(logCtx, map[string]any{
			"quantity":    stock.Quantity.String(),
			"ledger":      latest.After.String(),
			"movement_id": latest.ID.String(),
		})
		j.logg.Warn(logCtx, "stock quantity drifted from ledger")
		return fmt.Errorf("stock %s: quantity %s does not match ledger %s", stock.ID, stock.Quantity, latest.After)
	}
	return nil
}
