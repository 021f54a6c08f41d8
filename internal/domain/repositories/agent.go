package repositories

import (
	"context"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// AgentRepository persists organization-scoped actors.
type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	Update(ctx context.Context, agent *models.Agent) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Agent, error)
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error)
}
