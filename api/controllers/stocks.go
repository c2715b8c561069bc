package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type createStockRequest struct {
	LocationID uuid.UUID       `json:"location_id" validate:"required"`
	Quantity   json.RawMessage `json:"quantity"`
	Reason     string          `json:"reason" validate:"max=255"`
	Cost       decimal.Decimal `json:"cost"`
}

type changeStockRequest struct {
	Quantity json.RawMessage `json:"quantity"`
	Reason   string          `json:"reason" validate:"max=255"`
	Cost     decimal.Decimal `json:"cost"`
	// Receiver is "kind:id" of whoever the quantity went to or came from.
	Receiver *string `json:"receiver,omitempty"`
}

type moveStockRequest struct {
	LocationID uuid.UUID `json:"location_id" validate:"required"`
}

type rollbackStockRequest struct {
	MovementID *uuid.UUID `json:"movement_id,omitempty"`
	Recursive  bool       `json:"recursive"`
}

func (p changeStockRequest) toInput() (stock.ChangeInput, error) {
	input := stock.ChangeInput{
		Reason: validators.SanitizeString(p.Reason, 255),
		Cost:   p.Cost,
	}
	qty, err := validators.Quantity(p.Quantity, "quantity")
	if err != nil {
		return input, err
	}
	input.Quantity = qty
	if p.Receiver != nil {
		ref, err := types.ParseOwnerRef(*p.Receiver)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receiver")
		}
		input.Receiver = &ref
	}
	return input, nil
}

func itemOwner(r *http.Request) (types.OwnerRef, error) {
	id, err := validators.PathInt64(r, "itemId")
	if err != nil {
		return types.OwnerRef{}, err
	}
	return items.Ref(id), nil
}

// ListItemStocks returns every stock the item holds across locations.
func ListItemStocks(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := itemOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListStocks(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponses(rows))
	}
}

func CreateItemStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := itemOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := validators.Quantity(payload.Quantity, "quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.CreateStockOnLocation(r.Context(), owner, inventory.CreateStockInput{
			LocationID: payload.LocationID,
			Quantity:   qty,
			Reason:     validators.SanitizeString(payload.Reason, 255),
			Cost:       payload.Cost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newStockResponse(created))
	}
}

func ItemStockTotal(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := itemOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total, err := svc.TotalStock(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"owner":       owner,
			"total":       total,
			"is_in_stock": total.IsPositive(),
		})
	}
}

func itemLocation(r *http.Request) (types.OwnerRef, uuid.UUID, error) {
	owner, err := itemOwner(r)
	if err != nil {
		return types.OwnerRef{}, uuid.Nil, err
	}
	locationID, err := validators.PathUUID(r, "locationId")
	if err != nil {
		return types.OwnerRef{}, uuid.Nil, err
	}
	return owner, locationID, nil
}

// PutToLocation adds to the item's stock at a location, opening it on first use.
func PutToLocation(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return changeLocation(logg, svc.PutToLocation)
}

func TakeFromLocation(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return changeLocation(logg, svc.TakeFromLocation)
}

type locationChangeFunc func(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID, input stock.ChangeInput) (*models.Stock, error)

func changeLocation(logg *logger.Logger, apply locationChangeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, locationID, err := itemLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload changeStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := apply(r.Context(), owner, locationID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponse(updated))
	}
}

// MoveFromLocation relocates the item's stock at {locationId} to location_id.
func MoveFromLocation(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, from, err := itemLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload moveStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		moved, err := svc.MoveStock(r.Context(), owner, from, payload.LocationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponse(moved))
	}
}

func GetStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		found, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponse(found))
	}
}

func PutStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return changeStock(logg, svc.Put)
}

func TakeStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return changeStock(logg, svc.Take)
}

type changeFunc func(ctx context.Context, stockID uuid.UUID, input stock.ChangeInput) (*models.Stock, error)

func changeStock(logg *logger.Logger, apply changeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload changeStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := apply(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponse(updated))
	}
}

func MoveStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload moveStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		moved, err := svc.MoveTo(r.Context(), id, payload.LocationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponse(moved))
	}
}

// RollbackStock undoes the latest movement unless one is named.
func RollbackStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload rollbackStockRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		updated, err := svc.Rollback(r.Context(), id, stock.RollbackInput{
			MovementID: payload.MovementID,
			Recursive:  payload.Recursive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockResponse(updated))
	}
}
