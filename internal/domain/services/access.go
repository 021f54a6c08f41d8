package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// AccessService is the authority for every permission decision and
// mutation on document ACLs.
type AccessService interface {
	// CheckPermission reports whether the agent holds the permission.
	// It fails closed: any lookup error yields false, nil.
	CheckPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) (bool, error)

	// RequirePermission returns a PermissionDeniedError unless the
	// agent holds the permission.
	RequirePermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) error

	// GrantAccess creates a single grant.
	GrantAccess(ctx context.Context, req *GrantAccessRequest) (*models.DocumentACL, error)

	// RevokeAccess removes a single grant. Revoking an absent grant
	// succeeds.
	RevokeAccess(ctx context.Context, req *RevokeAccessRequest) error

	// SetPermissions applies a batch of grant/remove actions
	// atomically. The acting agent needs SHARE or ADMIN on the
	// document.
	SetPermissions(ctx context.Context, req *SetPermissionsRequest) ([]models.DocumentACL, error)

	// GetPermissions enumerates the document's ACL rows, optionally
	// filtered to one agent. The requester must hold ADMIN.
	GetPermissions(ctx context.Context, req *GetPermissionsRequest) (*PermissionList, error)

	// TransferOwnership moves the ADMIN grant between agents
	// atomically.
	TransferOwnership(ctx context.Context, req *TransferOwnershipRequest) (*TransferResult, error)

	// CheckMultiple evaluates several permission levels in one call.
	// An empty list evaluates every level.
	CheckMultiple(ctx context.Context, documentID, agentID uuid.UUID, permissions []models.Permission) (*MultiCheckResult, error)

	// ListAccessibleDocuments returns documents the agent holds any
	// unexpired grant on, skipping soft-deleted ones.
	ListAccessibleDocuments(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Document, error)
}

// GrantAccessRequest describes a single new grant.
type GrantAccessRequest struct {
	DocumentID uuid.UUID              `json:"document_id"`
	AgentID    uuid.UUID              `json:"agent_id"`
	Permission models.Permission      `json:"permission"`
	GrantedBy  uuid.UUID              `json:"granted_by"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// RevokeAccessRequest identifies the grant to remove.
type RevokeAccessRequest struct {
	DocumentID uuid.UUID         `json:"document_id"`
	AgentID    uuid.UUID         `json:"agent_id"`
	Permission models.Permission `json:"permission"`
	RevokedBy  uuid.UUID         `json:"revoked_by"`
}

// PermissionGrant is one entry in a bulk SetPermissions batch. Remove
// deletes the matching rows instead of inserting.
type PermissionGrant struct {
	AgentID    uuid.UUID              `json:"agent_id"`
	Permission models.Permission      `json:"permission"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Remove     bool                   `json:"remove,omitempty"`
}

// SetPermissionsRequest is a bulk ACL replace for one document.
type SetPermissionsRequest struct {
	DocumentID uuid.UUID         `json:"document_id"`
	Grants     []PermissionGrant `json:"grants"`
	GrantedBy  uuid.UUID         `json:"granted_by"`
}

// GetPermissionsRequest asks for a document's ACL rows.
type GetPermissionsRequest struct {
	DocumentID  uuid.UUID  `json:"document_id"`
	RequestedBy uuid.UUID  `json:"requested_by"`
	AgentID     *uuid.UUID `json:"agent_id,omitempty"`
}

// PermissionList is the enumeration result.
type PermissionList struct {
	DocumentID  uuid.UUID            `json:"document_id"`
	Permissions []models.DocumentACL `json:"permissions"`
	Total       int                  `json:"total"`
}

// TransferOwnershipRequest moves ADMIN from one agent to another.
// AuthorizedBy must equal FromAgentID or hold ADMIN itself.
type TransferOwnershipRequest struct {
	DocumentID   uuid.UUID `json:"document_id"`
	FromAgentID  uuid.UUID `json:"from_agent_id"`
	ToAgentID    uuid.UUID `json:"to_agent_id"`
	AuthorizedBy uuid.UUID `json:"authorized_by"`
}

// TransferResult reports the outcome of an ownership transfer.
type TransferResult struct {
	Document       *models.Document     `json:"document"`
	OldOwner       uuid.UUID            `json:"old_owner"`
	NewOwner       uuid.UUID            `json:"new_owner"`
	NewPermissions []models.DocumentACL `json:"new_permissions"`
}

// MultiCheckResult holds per-level outcomes plus folds over them.
type MultiCheckResult struct {
	Results    map[models.Permission]bool `json:"results"`
	AllGranted bool                       `json:"all_granted"`
	AnyGranted bool                       `json:"any_granted"`
}
