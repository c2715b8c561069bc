package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/types"
)

// AssemblyPart is one bill-of-materials edge: Quantity of Part goes into Parent.
type AssemblyPart struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ParentID  int64           `gorm:"column:parent_id;not null;uniqueIndex:idx_assembly_parent_part"`
	PartID    int64           `gorm:"column:part_id;not null;uniqueIndex:idx_assembly_parent_part"`
	Part      *Item           `gorm:"foreignKey:PartID"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(20,4);not null;default:0"`
	Extra     types.Extra     `gorm:"column:extra;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (AssemblyPart) TableName() string { return "inventory_assemblies" }

func (a *AssemblyPart) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// ItemCode is the unique reference code of an owner.
type ItemCode struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Owner     types.OwnerRef `gorm:"embedded;embeddedPrefix:inventoriable_"`
	Code      string         `gorm:"column:code;not null;uniqueIndex:idx_inventory_codes_code"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (ItemCode) TableName() string { return "inventory_codes" }

func (c *ItemCode) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
