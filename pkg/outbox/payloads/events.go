package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/pkg/types"
)

// StockSnapshot is the stock state carried by every stock event.
type StockSnapshot struct {
	ID         uuid.UUID       `json:"id"`
	Owner      types.OwnerRef  `json:"owner"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Version    int64           `json:"version"`
}

// StockChangedEvent backs stock.added, stock.taken and stock.rollback.
type StockChangedEvent struct {
	Stock      StockSnapshot   `json:"stock"`
	MovementID uuid.UUID       `json:"movement_id"`
	Before     decimal.Decimal `json:"before"`
	After      decimal.Decimal `json:"after"`
}

// StockMovedEvent is emitted when a stock changes location.
type StockMovedEvent struct {
	Stock          StockSnapshot `json:"stock"`
	FromLocationID uuid.UUID     `json:"from_location_id"`
	ToLocationID   uuid.UUID     `json:"to_location_id"`
}

// AssemblyPartEvent backs the assembly.part-* events.
type AssemblyPartEvent struct {
	ItemID   int64           `json:"item_id"`
	PartID   int64           `json:"part_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Extra    types.Extra     `json:"extra,omitempty"`
}

// CodeGeneratedEvent is emitted whenever an owner receives a reference code.
type CodeGeneratedEvent struct {
	Owner       types.OwnerRef `json:"owner"`
	Code        string         `json:"code"`
	GeneratedAt time.Time      `json:"generated_at"`
}
