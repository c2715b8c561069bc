package validators

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/internal/quantity"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// Quantity reads a quantity field given as a JSON string or number.
// Absent or null values fail validation; anything else goes through
// quantity.Parse so non-numeric text reports INVALID_QUANTITY.
func Quantity(raw json.RawMessage, field string) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{field: "is required"})
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInvalidQuantity, err, "quantity is not numeric").
				WithDetails(map[string]any{"quantity": string(trimmed)})
		}
	}
	return quantity.Parse(text)
}
