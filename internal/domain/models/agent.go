package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is an actor (human or automated) scoped to exactly one
// organization. The organization binding is immutable after creation.
type Agent struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OrganizationID uuid.UUID      `json:"organization_id" db:"organization_id"`
	Metadata       map[string]any `json:"metadata" db:"metadata"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
