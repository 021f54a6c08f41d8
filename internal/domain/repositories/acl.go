package repositories

import (
	"context"

	"github.com/google/uuid"

	"docvault/internal/domain/models"
)

// ACLRepository persists per-document permission grants.
type ACLRepository interface {
	Create(ctx context.Context, acl *models.DocumentACL) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentACL, error)
	ListByDocumentAndAgent(ctx context.Context, documentID, agentID uuid.UUID) ([]models.DocumentACL, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.DocumentACL, error)
	// CheckPermission reports whether an unexpired grant satisfies the
	// requested level. An unexpired ADMIN grant satisfies any level.
	CheckPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) (bool, error)
	// DeleteByDocumentAgentPermission removes every row matching the
	// exact (document, agent, permission) tuple. Deleting a tuple that
	// does not exist is not an error.
	DeleteByDocumentAgentPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) error
}
