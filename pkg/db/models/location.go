package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Warehouse struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Warehouse) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// Location is a place stock sits in. It belongs to at most one warehouse
// and may itself be owned by a host record.
type Location struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	WarehouseID *uuid.UUID `gorm:"column:warehouse_id;type:uuid"`
	Warehouse   *Warehouse `gorm:"foreignKey:WarehouseID"`
	OwnerType   *string    `gorm:"column:owner_type"`
	OwnerID     *string    `gorm:"column:owner_id"`
	Aisle       *string    `gorm:"column:aisle"`
	Row         *string    `gorm:"column:row"`
	Bin         *string    `gorm:"column:bin"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Location) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
