package services

import (
	"context"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// OrganizationService manages tenant lifecycle, including the
// organization's object-store bucket.
type OrganizationService interface {
	// Register creates the organization and its bucket. The ID is
	// issued by the caller's identity system, not generated here.
	Register(ctx context.Context, req *RegisterOrganizationRequest) (*models.Organization, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// UpdateMetadata replaces the organization's metadata map.
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) (*models.Organization, error)

	// Delete removes the organization and cascades to its agents,
	// documents, versions, and grants. Refused while agents or
	// documents exist unless force is set; force also drops the
	// bucket and its blobs.
	Delete(ctx context.Context, id uuid.UUID, force bool) error

	List(ctx context.Context, limit, offset int) ([]models.Organization, error)
}

// RegisterOrganizationRequest creates a tenant.
type RegisterOrganizationRequest struct {
	ID       uuid.UUID              `json:"id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
