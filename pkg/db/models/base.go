package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a random UUID when the caller left the key empty so
// inserts work on stores without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
