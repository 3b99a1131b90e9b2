package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller left the primary key empty so
// inserts behave the same on databases without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
