package model

import (
	"github.com/google/uuid"
)

// NewID generates a new random identifier.
func NewID() string {
	return uuid.NewString()
}

// IsUUID reports whether s parses as a UUID.
// Seeded records use short ids like "q1", so callers must not require this.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
