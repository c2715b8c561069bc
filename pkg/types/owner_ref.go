package types

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// OwnerRef points at whatever owns a stock or code. Kind selects the
// registered owner provider, ID is that provider's identifier as text.
type OwnerRef struct {
	Kind enums.OwnerKind `gorm:"column:type;type:varchar(64);not null" json:"kind"`
	ID   string          `gorm:"column:id;type:varchar(64);not null" json:"id"`
}

func (r OwnerRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// IsZero reports whether the reference is unset.
func (r OwnerRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// ParseOwnerRef parses the "kind:id" form produced by String.
func ParseOwnerRef(raw string) (OwnerRef, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || id == "" {
		return OwnerRef{}, fmt.Errorf("owner ref: invalid format %q", raw)
	}
	parsed, err := enums.ParseOwnerKind(kind)
	if err != nil {
		return OwnerRef{}, err
	}
	return OwnerRef{Kind: parsed, ID: id}, nil
}
