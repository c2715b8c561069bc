package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/codes"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type createCodeRequest struct {
	Code      string `json:"code" validate:"required,max=64"`
	Overwrite bool   `json:"overwrite"`
}

func GetItemCode(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := itemOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.GetCode(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, codeResponse{Code: row.Code, Owner: &row.Owner})
	}
}

// GenerateItemCode derives a code when none exists. generated=false means
// codes are disabled or the item has no category.
func GenerateItemCode(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return deriveCode(logg, svc.Generate)
}

// RegenerateItemCode replaces the code, keeping the old one when no new code
// can be derived.
func RegenerateItemCode(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return deriveCode(logg, svc.Regenerate)
}

func deriveCode(logg *logger.Logger, derive func(context.Context, types.OwnerRef) (string, bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := itemOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code, ok, err := derive(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, codeResponse{Code: code, Owner: &owner, Generated: ok})
	}
}

func PutItemCode(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := itemOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Create(r.Context(), owner, validators.SanitizeString(payload.Code, 64), payload.Overwrite)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, codeResponse{Code: row.Code, Owner: &row.Owner})
	}
}

func FindByCode(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}
		row, err := svc.FindByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, codeResponse{Code: row.Code, Owner: &row.Owner})
	}
}
