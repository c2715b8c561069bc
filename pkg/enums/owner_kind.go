package enums

import (
	"fmt"
	"strings"
)

// OwnerKind tags the polymorphic owner of a stock or item code.
type OwnerKind string

const (
	OwnerKindItem OwnerKind = "item"
)

var validOwnerKinds = []OwnerKind{
	OwnerKindItem,
}

func (k OwnerKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is registered.
func (k OwnerKind) IsValid() bool {
	for _, candidate := range validOwnerKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOwnerKind converts raw input into an OwnerKind.
func ParseOwnerKind(value string) (OwnerKind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOwnerKinds {
		if string(candidate) == v {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid owner kind %q", value)
}
