package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary. IDs are externally issued; the
// store never mints them.
type Organization struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Metadata  map[string]any `json:"metadata" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
