package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Extra is free-form JSON attached to an assembly part.
type Extra map[string]any

func (e Extra) Value() (driver.Value, error) {
	if e == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]any(e))
	if err != nil {
		return nil, fmt.Errorf("extra: marshal: %w", err)
	}
	return string(raw), nil
}

func (e *Extra) Scan(value interface{}) error {
	if value == nil {
		*e = Extra{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("extra: unsupported scan type %T", value)
	}

	out := Extra{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("extra: unmarshal: %w", err)
		}
	}
	*e = out
	return nil
}

// GormDataType lets gorm pick jsonb on postgres and text elsewhere.
func (Extra) GormDataType() string {
	return "json"
}
