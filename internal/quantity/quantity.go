// Package quantity validates the amounts flowing into the ledger and the
// assembly graph. Every mutating operation runs these checks before it
// touches any state.
package quantity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

const (
	// Scale and Precision mirror the NUMERIC(20,4) quantity columns.
	Scale     = 4
	Precision = 20
)

var limit = decimal.New(1, Precision-Scale)

// Parse reads a decimal quantity from text and validates it.
func Parse(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	q, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInvalidQuantity, err, fmt.Sprintf("quantity %q is not numeric", raw)).
			WithDetails(map[string]any{"quantity": raw})
	}
	if err := Validate(q); err != nil {
		return decimal.Zero, err
	}
	return q, nil
}

// Validate rejects negative quantities and values the store would round.
// Zero is accepted.
func Validate(q decimal.Decimal) error {
	switch {
	case q.IsNegative():
		return invalid(q, fmt.Sprintf("quantity %s must not be negative", q.String()))
	case !q.Equal(q.Round(Scale)):
		return invalid(q, fmt.Sprintf("quantity %s has more than %d decimal places", q.String(), Scale))
	case q.GreaterThanOrEqual(limit):
		return invalid(q, fmt.Sprintf("quantity %s exceeds %d integer digits", q.String(), Precision-Scale))
	}
	return nil
}

func invalid(q decimal.Decimal, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, msg).
		WithDetails(map[string]any{"quantity": q.String()})
}

// Valid is the predicate form of Validate.
func Valid(q decimal.Decimal) bool {
	return Validate(q) == nil
}
