package repositories

import (
	"context"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// VersionRepository persists immutable content snapshots.
type VersionRepository interface {
	Create(ctx context.Context, v *models.DocumentVersion) error
	GetByDocumentAndVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error)
	// MaxVersionNumber returns the highest version number for the
	// document, or 0 when no versions exist. Call it only with the
	// parent document row locked.
	MaxVersionNumber(ctx context.Context, documentID uuid.UUID) (int, error)
	// UpdateCurrent rewrites the size, filename and MIME fields of an
	// existing version row. Used only by the in-place replace path.
	UpdateCurrent(ctx context.Context, v *models.DocumentVersion) error
}
