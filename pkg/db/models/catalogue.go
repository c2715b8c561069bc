package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is the catalogue entry that owns stocks, assembly parts and a code.
// The numeric identity is padded into the reference code suffix.
type Item struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	CategoryID  *uuid.UUID     `gorm:"column:category_id;type:uuid"`
	MetricID    *uuid.UUID     `gorm:"column:metric_id;type:uuid"`
	IsAssembly  bool           `gorm:"column:is_assembly;not null;default:false"`
	Category    *Category      `gorm:"foreignKey:CategoryID"`
	Metric      *Metric        `gorm:"foreignKey:MetricID"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Metric is the unit of measure an item is counted in.
type Metric struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Symbol    string    `gorm:"column:symbol;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Metric) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
