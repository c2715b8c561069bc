package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type warehouseResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type locationResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	WarehouseID *uuid.UUID         `json:"warehouse_id,omitempty"`
	Warehouse   *warehouseResponse `json:"warehouse,omitempty"`
	OwnerType   *string            `json:"owner_type,omitempty"`
	OwnerID     *string            `json:"owner_id,omitempty"`
	Aisle       *string            `json:"aisle,omitempty"`
	Row         *string            `json:"row,omitempty"`
	Bin         *string            `json:"bin,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type stockResponse struct {
	ID          uuid.UUID         `json:"id"`
	Owner       types.OwnerRef    `json:"owner"`
	LocationID  uuid.UUID         `json:"location_id"`
	Location    *locationResponse `json:"location,omitempty"`
	Quantity    decimal.Decimal   `json:"quantity"`
	Description *string           `json:"description,omitempty"`
	Aisle       *string           `json:"aisle,omitempty"`
	Row         *string           `json:"row,omitempty"`
	Bin         *string           `json:"bin,omitempty"`
	Version     int64             `json:"version"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type partResponse struct {
	PartID   int64           `json:"part_id"`
	Part     *items.ItemDTO  `json:"part,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Extra    types.Extra     `json:"extra,omitempty"`
}

type codeResponse struct {
	Code      string          `json:"code"`
	Owner     *types.OwnerRef `json:"owner,omitempty"`
	Generated bool            `json:"generated"`
}

func newWarehouseResponse(w *models.Warehouse) *warehouseResponse {
	if w == nil {
		return nil
	}
	return &warehouseResponse{ID: w.ID, Name: w.Name, Description: w.Description, CreatedAt: w.CreatedAt}
}

func newLocationResponse(l *models.Location) *locationResponse {
	if l == nil {
		return nil
	}
	return &locationResponse{
		ID:          l.ID,
		Name:        l.Name,
		WarehouseID: l.WarehouseID,
		Warehouse:   newWarehouseResponse(l.Warehouse),
		OwnerType:   l.OwnerType,
		OwnerID:     l.OwnerID,
		Aisle:       l.Aisle,
		Row:         l.Row,
		Bin:         l.Bin,
		CreatedAt:   l.CreatedAt,
	}
}

func newStockResponse(s *models.Stock) *stockResponse {
	if s == nil {
		return nil
	}
	return &stockResponse{
		ID:          s.ID,
		Owner:       s.Owner,
		LocationID:  s.LocationID,
		Location:    newLocationResponse(s.Location),
		Quantity:    s.Quantity,
		Description: s.Description,
		Aisle:       s.Aisle,
		Row:         s.Row,
		Bin:         s.Bin,
		Version:     s.Version,
		UpdatedAt:   s.UpdatedAt,
	}
}

func newStockResponses(rows []models.Stock) []*stockResponse {
	out := make([]*stockResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newStockResponse(&rows[i]))
	}
	return out
}

func newPartResponses(rows []models.AssemblyPart) []partResponse {
	out := make([]partResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, partResponse{
			PartID:   row.PartID,
			Part:     items.NewItemDTO(row.Part),
			Quantity: row.Quantity,
			Extra:    row.Extra,
		})
	}
	return out
}
