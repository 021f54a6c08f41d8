package repositories

import (
	"context"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// ListOptions controls the organization-wide document listing. SortBy
// must already be validated against the allowed column set; the
// repository interpolates it into SQL.
type ListOptions struct {
	Status    *models.DocumentStatus
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// DocumentRepository persists the mutable "current view" of documents.
// Soft-deleted documents are returned by GetByID (callers map them to
// not-found) but excluded from every listing query.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	// GetByIDForUpdate locks the document row for the remainder of the
	// enclosing transaction. Version-number allocation depends on this
	// lock to keep the sequence gap-free under concurrent writers.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, updatedBy uuid.UUID) error
	// FindByNameInOrg resolves an exact display-name match within an
	// organization, optionally constrained to an exact prefix. Returns
	// a NotFoundError when no live document matches.
	FindByNameInOrg(ctx context.Context, orgID uuid.UUID, name string, prefix *string) (*models.Document, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, opts ListOptions) ([]models.Document, error)
	ListByPrefix(ctx context.Context, orgID uuid.UUID, prefix string, limit, offset int) ([]models.Document, error)
	ListRecursive(ctx context.Context, orgID uuid.UUID, prefix string, maxDepth *int, limit, offset int) ([]models.Document, error)
	ListByTags(ctx context.Context, orgID uuid.UUID, tags []string, limit, offset int) ([]models.Document, error)
	SearchByName(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]models.Document, error)
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error)
	CountCreatedBy(ctx context.Context, agentID uuid.UUID) (int, error)
	// HardDelete removes the document row; versions and ACL rows go
	// with it through foreign-key cascade.
	HardDelete(ctx context.Context, id uuid.UUID) error
}
