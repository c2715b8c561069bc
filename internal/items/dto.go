package items

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
)

type ItemDTO struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Category    *CategoryDTO `json:"category,omitempty"`
	Metric      *MetricDTO   `json:"metric,omitempty"`
	IsAssembly  bool         `json:"is_assembly"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type MetricDTO struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Symbol string    `json:"symbol"`
}

func NewItemDTO(item *models.Item) *ItemDTO {
	if item == nil {
		return nil
	}
	dto := &ItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		IsAssembly:  item.IsAssembly,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.Category != nil {
		dto.Category = NewCategoryDTO(item.Category)
	}
	if item.Metric != nil {
		dto.Metric = NewMetricDTO(item.Metric)
	}
	return dto
}

func NewCategoryDTO(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{ID: c.ID, Name: c.Name}
}

func NewMetricDTO(m *models.Metric) *MetricDTO {
	if m == nil {
		return nil
	}
	return &MetricDTO{ID: m.ID, Name: m.Name, Symbol: m.Symbol}
}
