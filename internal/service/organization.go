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
	"docvault/internal/storage"
)

// organizationService implements the OrganizationService interface.
type organizationService struct {
	orgRepo      repositories.OrganizationRepository
	agentRepo    repositories.AgentRepository
	docRepo      repositories.DocumentRepository
	store        storage.ObjectStore
	bucketPrefix string
	logger       *slog.Logger
}

// NewOrganizationService creates a new organization service.
func NewOrganizationService(
	orgRepo repositories.OrganizationRepository,
	agentRepo repositories.AgentRepository,
	docRepo repositories.DocumentRepository,
	store storage.ObjectStore,
	bucketPrefix string,
	logger *slog.Logger,
) services.OrganizationService {
	return &organizationService{
		orgRepo:      orgRepo,
		agentRepo:    agentRepo,
		docRepo:      docRepo,
		store:        store,
		bucketPrefix: bucketPrefix,
		logger:       logger,
	}
}

// Register creates the tenant row and its bucket.
func (s *organizationService) Register(ctx context.Context, req *services.RegisterOrganizationRequest) (*models.Organization, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ID, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	org := &models.Organization{
		ID:       req.ID,
		Metadata: req.Metadata,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, err
	}

	bucket := storage.BucketName(s.bucketPrefix, org.ID)
	if err := s.store.EnsureBucket(ctx, bucket); err != nil {
		// The row exists; the bucket gets retried lazily on first
		// upload.
		s.logger.Warn("bucket creation failed at registration",
			"organization_id", org.ID,
			"bucket", bucket,
			"error", err,
		)
	}

	s.logger.Info("organization registered", "organization_id", org.ID)
	return org, nil
}

func (s *organizationService) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.orgRepo.GetByID(ctx, id)
}

// UpdateMetadata replaces the metadata map wholesale.
func (s *organizationService) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) (*models.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	org.Metadata = metadata
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, err
	}

	return org, nil
}

// Delete removes the tenant. Refused while agents or documents exist
// unless forced; forcing also drops the bucket and every blob in it.
// Agent, document, version, and ACL rows go through foreign-key
// cascade.
func (s *organizationService) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	if _, err := s.orgRepo.GetByID(ctx, id); err != nil {
		return err
	}

	agents, err := s.agentRepo.CountByOrganization(ctx, id)
	if err != nil {
		return err
	}
	docs, err := s.docRepo.CountByOrganization(ctx, id)
	if err != nil {
		return err
	}
	if (agents > 0 || docs > 0) && !force {
		return &domain.ValidationError{
			Message: fmt.Sprintf("cannot delete organization %s: %d agents and %d documents remain; pass force to cascade", id, agents, docs),
		}
	}

	if err := s.orgRepo.Delete(ctx, id); err != nil {
		return err
	}

	bucket := storage.BucketName(s.bucketPrefix, id)
	if err := s.store.DeleteBucket(ctx, bucket); err != nil {
		// Rows are gone; the bucket is an orphan to clean up out of
		// band.
		s.logger.Warn("bucket cleanup failed after organization delete",
			"organization_id", id,
			"bucket", bucket,
			"error", err,
		)
	}

	s.logger.Info("organization deleted",
		"organization_id", id,
		"agents", agents,
		"documents", docs,
		"forced", force,
	)

	return nil
}

func (s *organizationService) List(ctx context.Context, limit, offset int) ([]models.Organization, error) {
	limit, offset, err := normalizeWindow(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.orgRepo.List(ctx, limit, offset)
}
