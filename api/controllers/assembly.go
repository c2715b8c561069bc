package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/assembly"
	"github.com/angelmondragon/stockledger/internal/items"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type partRequest struct {
	Quantity json.RawMessage `json:"quantity"`
	Extra    types.Extra     `json:"extra,omitempty"`
}

type bulkPartRequest struct {
	PartID   int64           `json:"part_id" validate:"required,min=1"`
	Quantity json.RawMessage `json:"quantity"`
	Extra    types.Extra     `json:"extra,omitempty"`
}

type bulkPartsRequest struct {
	Parts []bulkPartRequest `json:"parts" validate:"required,min=1,max=500,dive"`
}

type removePartsRequest struct {
	PartIDs []int64 `json:"part_ids" validate:"required,min=1,max=500,dive,min=1"`
}

// toInputs rejects the whole batch when any quantity is unreadable.
func (p bulkPartsRequest) toInputs() ([]assembly.PartInput, error) {
	out := make([]assembly.PartInput, 0, len(p.Parts))
	for i, part := range p.Parts {
		qty, err := validators.Quantity(part.Quantity, fmt.Sprintf("parts[%d].quantity", i))
		if err != nil {
			return nil, err
		}
		out = append(out, assembly.PartInput{PartID: part.PartID, Quantity: qty, Extra: part.Extra})
	}
	return out, nil
}

func pathPair(r *http.Request) (int64, int64, error) {
	parentID, err := validators.PathInt64(r, "itemId")
	if err != nil {
		return 0, 0, err
	}
	partID, err := validators.PathInt64(r, "partId")
	if err != nil {
		return 0, 0, err
	}
	return parentID, partID, nil
}

func ListParts(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, err := validators.PathInt64(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListParts(r.Context(), parentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPartResponses(rows))
	}
}

func ListAssemblies(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListAssemblies(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]*items.ItemDTO, 0, len(rows))
		for i := range rows {
			out = append(out, items.NewItemDTO(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func AddPart(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, partID, err := pathPair(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload partRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := validators.Quantity(payload.Quantity, "quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		parent, err := svc.AddPart(r.Context(), parentID, partID, qty, payload.Extra)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, items.NewItemDTO(parent))
	}
}

func UpdatePart(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, partID, err := pathPair(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload partRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := validators.Quantity(payload.Quantity, "quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		parent, err := svc.UpdatePart(r.Context(), parentID, partID, qty, payload.Extra)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items.NewItemDTO(parent))
	}
}

func RemovePart(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, partID, err := pathPair(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		removed, err := svc.RemovePart(r.Context(), parentID, partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !removed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "part not attached"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AddParts attaches many parts; failures are skipped and the response counts
// what was applied.
func AddParts(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return bulkParts(logg, svc.AddParts)
}

func UpdateParts(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return bulkParts(logg, svc.UpdateParts)
}

func bulkParts(logg *logger.Logger, apply func(ctx context.Context, parentID int64, parts []assembly.PartInput) (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, err := validators.PathInt64(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkPartsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inputs, err := payload.toInputs()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applied, err := apply(r.Context(), parentID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"requested": len(payload.Parts), "applied": applied})
	}
}

func RemoveParts(svc assembly.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, err := validators.PathInt64(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload removePartsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applied, err := svc.RemoveParts(r.Context(), parentID, payload.PartIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"requested": len(payload.PartIDs), "applied": applied})
	}
}
