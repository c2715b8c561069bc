package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/types"
)

// Stock is the quantity of one owner held at one location.
// Quantity never drops below zero; Version guards concurrent writers.
type Stock struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Owner       types.OwnerRef  `gorm:"embedded;embeddedPrefix:inventoriable_"`
	LocationID  uuid.UUID       `gorm:"column:location_id;type:uuid;not null"`
	Location    *Location       `gorm:"foreignKey:LocationID"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(20,4);not null;default:0"`
	Description *string         `gorm:"column:description"`
	Aisle       *string         `gorm:"column:aisle"`
	Row         *string         `gorm:"column:row"`
	Bin         *string         `gorm:"column:bin"`
	UserID      *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Version     int64           `gorm:"column:version;not null;default:1"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Stock) TableName() string { return "inventory_stocks" }

func (s *Stock) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// Movement is the immutable audit row of one quantity change.
// After minus Before is the applied delta.
type Movement struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StockID      uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;index"`
	UserID       *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Before       decimal.Decimal `gorm:"column:before;type:numeric(20,4);not null;default:0"`
	After        decimal.Decimal `gorm:"column:after;type:numeric(20,4);not null;default:0"`
	Cost         decimal.Decimal `gorm:"column:cost;type:numeric(20,4);not null;default:0"`
	Reason       string          `gorm:"column:reason;not null;default:''"`
	ReceiverType *string         `gorm:"column:receiver_type"`
	ReceiverID   *string         `gorm:"column:receiver_id"`
	WarehouseID  *uuid.UUID      `gorm:"column:warehouse_id;type:uuid"`
	Returned     bool            `gorm:"column:returned;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Movement) TableName() string { return "inventory_movements" }

// BeforeCreate assigns a UUIDv7 so id order follows creation order.
func (m *Movement) BeforeCreate(*gorm.DB) error {
	if m.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// Delta returns the signed change this movement applied.
func (m Movement) Delta() decimal.Decimal {
	return m.After.Sub(m.Before)
}

// Receiver returns the polymorphic receiver, if any.
func (m Movement) Receiver() *types.OwnerRef {
	if m.ReceiverType == nil || m.ReceiverID == nil {
		return nil
	}
	return &types.OwnerRef{Kind: enums.OwnerKind(*m.ReceiverType), ID: *m.ReceiverID}
}
