package validators

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

type takeBody struct {
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note" validate:"max=8"`
	Kind     string          `json:"kind" validate:"required,oneof=item part"`
}

func TestDecodeJSONBodyAcceptsDecimalStrings(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":"2.5","kind":"item"}`))
	var body takeBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Quantity.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected quantity %s", body.Quantity)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":"1","kind":"item","extra":true}`))
	var body takeBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":"1","kind":"box","note":"far too long"}`))
	var body takeBody
	err := DecodeJSONBody(req, &body)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %#v", pkgerrors.As(err).Details())
	}
	if details["kind"] != "must be one of item part" {
		t.Fatalf("unexpected kind message %q", details["kind"])
	}
	if details["note"] != "must be at most 8" {
		t.Fatalf("unexpected note message %q", details["note"])
	}
}

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "stockId", id.String())
	got, err := PathUUID(req, "stockId")
	if err != nil || got != id {
		t.Fatalf("PathUUID = %s, %v", got, err)
	}

	bad := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "stockId", "nope")
	if _, err := PathUUID(bad, "stockId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 50, 1, 200); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 200); err != nil || v != 50 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
}

func TestQueryUUIDOptional(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id, err := QueryUUID(req, "cursor"); err != nil || id != uuid.Nil {
		t.Fatalf("expected nil uuid, got %s %v", id, err)
	}
}

func TestQuantity(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		code pkgerrors.Code
	}{
		{raw: `"2.5"`, want: "2.5"},
		{raw: `4`, want: "4"},
		{raw: `" 0 "`, want: "0"},
		{raw: `"abc"`, code: pkgerrors.CodeInvalidQuantity},
		{raw: `"-1"`, code: pkgerrors.CodeInvalidQuantity},
		{raw: `true`, code: pkgerrors.CodeInvalidQuantity},
		{raw: `null`, code: pkgerrors.CodeValidation},
		{raw: ``, code: pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		got, err := Quantity(json.RawMessage(tc.raw), "quantity")
		if tc.code != "" {
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("Quantity(%s): expected %s, got %v", tc.raw, tc.code, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Quantity(%s): unexpected error %v", tc.raw, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("Quantity(%s) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestSanitizeStringCountsRunes(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{in: "  Salsa  ", max: 10, want: "Salsa"},
		{in: "Salsa", max: 3, want: "Sal"},
		{in: "Ñandú", max: 3, want: "Ñan"},
		{in: "日本語テキスト", max: 2, want: "日本"},
		{in: "Ñandú", max: 0, want: "Ñandú"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
