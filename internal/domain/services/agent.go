package services

import (
	"context"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// AgentService manages actor lifecycle within an organization.
type AgentService interface {
	// Register creates an agent under an existing organization. The ID
	// is issued by the caller's identity system.
	Register(ctx context.Context, req *RegisterAgentRequest) (*models.Agent, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Agent, error)

	// UpdateMetadata replaces the agent's metadata map.
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) (*models.Agent, error)

	// Deactivate flips is_active off. Reversible; the agent's grants
	// and documents stay put.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// Reactivate flips is_active back on.
	Reactivate(ctx context.Context, id uuid.UUID) error

	// Remove hard-deletes the agent. Refused while the agent owns
	// created documents or holds grants, unless force is set.
	Remove(ctx context.Context, id uuid.UUID, force bool) error

	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Agent, error)
}

// RegisterAgentRequest creates an agent.
type RegisterAgentRequest struct {
	ID             uuid.UUID              `json:"id"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
