package movements

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type MovementDTO struct {
	ID          uuid.UUID       `json:"id"`
	StockID     uuid.UUID       `json:"stock_id"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	Before      decimal.Decimal `json:"before"`
	After       decimal.Decimal `json:"after"`
	Cost        decimal.Decimal `json:"cost"`
	Reason      string          `json:"reason"`
	Receiver    *types.OwnerRef `json:"receiver,omitempty"`
	WarehouseID *uuid.UUID      `json:"warehouse_id,omitempty"`
	Returned    bool            `json:"returned"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewMovementDTO(m models.Movement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		StockID:     m.StockID,
		UserID:      m.UserID,
		Before:      m.Before,
		After:       m.After,
		Cost:        m.Cost,
		Reason:      m.Reason,
		Receiver:    m.Receiver(),
		WarehouseID: m.WarehouseID,
		Returned:    m.Returned,
		CreatedAt:   m.CreatedAt,
	}
}
