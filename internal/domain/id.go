package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a UUIDv7 string for application-owned entities.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CompactID strips the dashes from an id so it can be embedded in an
// unquoted SQL identifier.
func CompactID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
