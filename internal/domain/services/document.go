package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// DocumentService is the permission-aware front door for document
// content and metadata. Every operation checks the acting agent's
// grants before touching anything.
type DocumentService interface {
	// Upload stores content under a name. A new name creates a
	// document (version 1, uploader gets ADMIN); an existing name
	// becomes a version operation on the matched document, which
	// requires WRITE.
	Upload(ctx context.Context, req *UploadRequest) (*models.Document, error)

	// Download opens the content of the current version, or of the
	// numbered version when version is non-nil. Requires READ.
	Download(ctx context.Context, documentID, agentID uuid.UUID, version *int) (io.ReadCloser, *models.DocumentVersion, error)

	// UpdateMetadata changes descriptive fields without touching
	// content or versions. Requires WRITE.
	UpdateMetadata(ctx context.Context, req *UpdateMetadataRequest) (*models.Document, error)

	// UpdateStatus moves the document between lifecycle states. Any
	// transition is allowed; requires WRITE, except a transition to
	// deleted, which requires DELETE like Delete does.
	UpdateStatus(ctx context.Context, documentID, agentID uuid.UUID, status models.DocumentStatus) (*models.Document, error)

	// Delete soft-deletes by default; hard delete removes the rows and
	// blobs permanently. Requires DELETE.
	Delete(ctx context.Context, documentID, agentID uuid.UUID, hardDelete bool) error

	// ListDocuments returns documents the agent can READ, silently
	// omitting the rest.
	ListDocuments(ctx context.Context, req *ListRequest) (*DocumentList, error)

	// Search matches document names case-insensitively, filtered to
	// documents the agent can READ.
	Search(ctx context.Context, req *SearchRequest) (*SearchResults, error)

	// GetDocumentDetails returns the document plus optional version
	// history and ACL rows. Requires READ; the permissions block
	// additionally requires ADMIN.
	GetDocumentDetails(ctx context.Context, req *DetailsRequest) (*DocumentDetails, error)

	// RestoreVersion copies an old version forward as a new one.
	// Requires WRITE.
	RestoreVersion(ctx context.Context, documentID uuid.UUID, versionNumber int, agentID uuid.UUID, changeDescription string) (*models.DocumentVersion, error)

	// SetPermissions, GetPermissions and TransferOwnership delegate to
	// the access service so callers holding a DocumentService have the
	// full sharing surface in one place.
	SetPermissions(ctx context.Context, req *SetPermissionsRequest) ([]models.DocumentACL, error)
	GetPermissions(ctx context.Context, req *GetPermissionsRequest) (*PermissionList, error)
	TransferOwnership(ctx context.Context, req *TransferOwnershipRequest) (*TransferResult, error)
}

// UploadRequest carries content plus placement for an upload.
// ReplaceCurrent switches an existing document's upload from
// create-a-version to overwrite-current-in-place.
type UploadRequest struct {
	Content           io.Reader              `json:"-"`
	Size              int64                  `json:"size"`
	Name              string                 `json:"name"`
	OrganizationID    uuid.UUID              `json:"organization_id"`
	AgentID           uuid.UUID              `json:"agent_id"`
	Prefix            string                 `json:"prefix,omitempty"`
	Description       string                 `json:"description,omitempty"`
	MimeType          string                 `json:"mime_type,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	ReplaceCurrent    bool                   `json:"replace_current,omitempty"`
	ChangeDescription string                 `json:"change_description,omitempty"`
}

// UpdateMetadataRequest changes descriptive fields. Nil fields keep
// their current values; Metadata is merged key-by-key into the
// existing map.
type UpdateMetadataRequest struct {
	DocumentID  uuid.UUID              `json:"document_id"`
	AgentID     uuid.UUID              `json:"agent_id"`
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ListRequest scopes a document listing. With Prefix set, Recursive
// chooses between direct children and the whole subtree; MaxDepth
// bounds the subtree walk.
type ListRequest struct {
	OrganizationID uuid.UUID              `json:"organization_id"`
	AgentID        uuid.UUID              `json:"agent_id"`
	Prefix         *string                `json:"prefix,omitempty"`
	Recursive      bool                   `json:"recursive,omitempty"`
	MaxDepth       *int                   `json:"max_depth,omitempty"`
	Status         *models.DocumentStatus `json:"status,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
	SortBy         string                 `json:"sort_by,omitempty"`
	SortOrder      string                 `json:"sort_order,omitempty"`
}

// ListFilters echoes the filters that shaped a listing.
type ListFilters struct {
	Prefix    *string                `json:"prefix,omitempty"`
	Recursive bool                   `json:"recursive,omitempty"`
	MaxDepth  *int                   `json:"max_depth,omitempty"`
	Status    *models.DocumentStatus `json:"status,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
}

// DocumentList is a permission-filtered page of documents.
type DocumentList struct {
	Documents  []models.Document `json:"documents"`
	Pagination Pagination        `json:"pagination"`
	Filters    ListFilters       `json:"filters"`
}

// SearchRequest is a name-substring search within an organization.
type SearchRequest struct {
	Query          string                 `json:"query"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	AgentID        uuid.UUID              `json:"agent_id"`
	Prefix         *string                `json:"prefix,omitempty"`
	Status         *models.DocumentStatus `json:"status,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
}

// SearchResults is a permission-filtered page of matches.
type SearchResults struct {
	Documents  []models.Document `json:"documents"`
	Query      string            `json:"query"`
	Pagination Pagination        `json:"pagination"`
	Filters    ListFilters       `json:"filters"`
}

// DetailsRequest asks for a document with optional expansions.
type DetailsRequest struct {
	DocumentID         uuid.UUID `json:"document_id"`
	AgentID            uuid.UUID `json:"agent_id"`
	IncludeVersions    bool      `json:"include_versions"`
	IncludePermissions bool      `json:"include_permissions"`
}

// DocumentDetails is the expanded view of one document.
type DocumentDetails struct {
	Document       *models.Document         `json:"document"`
	Versions       []models.DocumentVersion `json:"versions,omitempty"`
	Permissions    []models.DocumentACL     `json:"permissions,omitempty"`
	VersionCount   int                      `json:"version_count"`
	CurrentVersion int                      `json:"current_version"`
}
