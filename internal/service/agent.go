package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"
)

// agentService implements the AgentService interface.
type agentService struct {
	agentRepo repositories.AgentRepository
	orgRepo   repositories.OrganizationRepository
	docRepo   repositories.DocumentRepository
	aclRepo   repositories.ACLRepository
	logger    *slog.Logger
}

// NewAgentService creates a new agent service.
func NewAgentService(
	agentRepo repositories.AgentRepository,
	orgRepo repositories.OrganizationRepository,
	docRepo repositories.DocumentRepository,
	aclRepo repositories.ACLRepository,
	logger *slog.Logger,
) services.AgentService {
	return &agentService{
		agentRepo: agentRepo,
		orgRepo:   orgRepo,
		docRepo:   docRepo,
		aclRepo:   aclRepo,
		logger:    logger,
	}
}

// Register creates an agent under an existing organization.
func (s *agentService) Register(ctx context.Context, req *services.RegisterAgentRequest) (*models.Agent, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ID, validation.Required),
		validation.Field(&req.OrganizationID, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	if _, err := s.orgRepo.GetByID(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	agent := &models.Agent{
		ID:             req.ID,
		OrganizationID: req.OrganizationID,
		Metadata:       req.Metadata,
		IsActive:       true,
	}
	if err := s.agentRepo.Create(ctx, agent); err != nil {
		return nil, err
	}

	s.logger.Info("agent registered",
		"agent_id", agent.ID,
		"organization_id", agent.OrganizationID,
	)

	return agent, nil
}

func (s *agentService) Get(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.agentRepo.GetByID(ctx, id)
}

// UpdateMetadata replaces the metadata map wholesale. The organization
// binding is immutable.
func (s *agentService) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) (*models.Agent, error) {
	agent, err := s.agentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	agent.Metadata = metadata
	if err := s.agentRepo.Update(ctx, agent); err != nil {
		return nil, err
	}

	return agent, nil
}

// Deactivate soft-removes the agent. Its grants and documents stay.
func (s *agentService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.agentRepo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.logger.Info("agent deactivated", "agent_id", id)
	return nil
}

// Reactivate reverses a deactivation.
func (s *agentService) Reactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.agentRepo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.logger.Info("agent reactivated", "agent_id", id)
	return nil
}

// Remove hard-deletes the agent. Refused while the agent owns created
// documents or holds grants, unless forced. Remaining grants cascade
// away with the row.
func (s *agentService) Remove(ctx context.Context, id uuid.UUID, force bool) error {
	if _, err := s.agentRepo.GetByID(ctx, id); err != nil {
		return err
	}

	if !force {
		owned, err := s.docRepo.CountCreatedBy(ctx, id)
		if err != nil {
			return err
		}
		if owned > 0 {
			return &domain.ValidationError{
				Message: fmt.Sprintf("agent %s created %d documents; pass force to remove anyway", id, owned),
			}
		}

		grants, err := s.aclRepo.ListByAgent(ctx, id, 1)
		if err != nil {
			return err
		}
		if len(grants) > 0 {
			return &domain.ValidationError{
				Message: fmt.Sprintf("agent %s still holds permission grants; pass force to remove anyway", id),
			}
		}
	}

	if err := s.agentRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("agent removed", "agent_id", id, "forced", force)
	return nil
}

func (s *agentService) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Agent, error) {
	limit, offset, err := normalizeWindow(limit, offset)
	if err != nil {
		return nil, err
	}
	if _, err := s.orgRepo.GetByID(ctx, orgID); err != nil {
		return nil, err
	}
	return s.agentRepo.ListByOrganization(ctx, orgID, limit, offset)
}
