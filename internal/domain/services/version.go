package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// VersionService maintains each document's append-only version
// history and the blobs behind it.
type VersionService interface {
	// CreateVersion allocates the next version number, stores the
	// content, and advances the document's current version, all in one
	// transaction.
	CreateVersion(ctx context.Context, req *CreateVersionRequest) (*models.DocumentVersion, error)

	// ReplaceCurrent overwrites the current version's content in place
	// without allocating a new number. The previous content is gone.
	ReplaceCurrent(ctx context.Context, req *CreateVersionRequest) (*models.DocumentVersion, error)

	// GetVersion fetches one numbered version's record.
	GetVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error)

	// ListVersions returns the full history, oldest first.
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error)

	// RestoreVersion copies an old version's content forward as a new
	// version. History stays intact; version numbers keep climbing.
	RestoreVersion(ctx context.Context, req *RestoreVersionRequest) (*models.DocumentVersion, error)

	// OpenContent opens the stored blob for a version, defaulting to
	// the document's current version when versionNumber is nil.
	OpenContent(ctx context.Context, doc *models.Document, versionNumber *int) (io.ReadCloser, *models.DocumentVersion, error)
}

// CreateVersionRequest carries new content for a document.
type CreateVersionRequest struct {
	DocumentID        uuid.UUID              `json:"document_id"`
	Content           io.Reader              `json:"-"`
	Size              int64                  `json:"size"`
	Filename          string                 `json:"filename"`
	MimeType          string                 `json:"mime_type"`
	ChangeDescription string                 `json:"change_description,omitempty"`
	CreatedBy         uuid.UUID              `json:"created_by"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// RestoreVersionRequest identifies the version to copy forward.
type RestoreVersionRequest struct {
	DocumentID        uuid.UUID `json:"document_id"`
	VersionNumber     int       `json:"version_number"`
	RestoredBy        uuid.UUID `json:"restored_by"`
	ChangeDescription string    `json:"change_description,omitempty"`
}
