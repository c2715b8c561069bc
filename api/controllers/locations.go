package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/locations"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type createWarehouseRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description,omitempty"`
}

type createLocationRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	// Owner is "kind:id", for a location that belongs to a stock owner.
	Owner *string `json:"owner,omitempty"`
	Aisle *string `json:"aisle,omitempty"`
	Row   *string `json:"row,omitempty"`
	Bin   *string `json:"bin,omitempty"`
}

func CreateWarehouse(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createWarehouseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		warehouse, err := svc.CreateWarehouse(r.Context(), locations.CreateWarehouseInput{
			Name:        validators.SanitizeString(payload.Name, 255),
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWarehouseResponse(warehouse))
	}
}

func CreateLocation(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createLocationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := locations.CreateLocationInput{
			Name:        validators.SanitizeString(payload.Name, 255),
			WarehouseID: payload.WarehouseID,
			Aisle:       payload.Aisle,
			Row:         payload.Row,
			Bin:         payload.Bin,
		}
		if payload.Owner != nil {
			owner, err := types.ParseOwnerRef(*payload.Owner)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner"))
				return
			}
			input.Owner = &owner
		}

		location, err := svc.CreateLocation(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newLocationResponse(location))
	}
}

func GetLocation(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		location, err := svc.GetLocation(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLocationResponse(location))
	}
}
