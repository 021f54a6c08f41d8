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

// accessService implements the AccessService interface.
type accessService struct {
	aclRepo   repositories.ACLRepository
	docRepo   repositories.DocumentRepository
	agentRepo repositories.AgentRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewAccessService creates a new access service.
func NewAccessService(
	aclRepo repositories.ACLRepository,
	docRepo repositories.DocumentRepository,
	agentRepo repositories.AgentRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.AccessService {
	return &accessService{
		aclRepo:   aclRepo,
		docRepo:   docRepo,
		agentRepo: agentRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// liveDocument fetches a document, treating soft-deleted ones as not
// found.
func (s *accessService) liveDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Deleted() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", documentID)}
	}
	return doc, nil
}

func (s *accessService) checkAgentExists(ctx context.Context, agentID uuid.UUID) error {
	_, err := s.agentRepo.GetByID(ctx, agentID)
	return err
}

// requireShare ensures the agent can manage grants on the document.
// An ADMIN grant satisfies the SHARE check at the repository level.
func (s *accessService) requireShare(ctx context.Context, documentID, agentID uuid.UUID) error {
	granted, err := s.aclRepo.CheckPermission(ctx, documentID, agentID, models.PermissionShare)
	if err != nil {
		return err
	}
	if !granted {
		return &domain.PermissionDeniedError{
			Message: fmt.Sprintf("agent %s cannot manage sharing on document %s", agentID, documentID),
		}
	}
	return nil
}

// CheckPermission fails closed: any lookup failure is reported as an
// access denial, never as an error the caller could mistake for a
// grant.
func (s *accessService) CheckPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) (bool, error) {
	permission, err := models.ParsePermission(string(permission))
	if err != nil {
		return false, err
	}

	granted, err := s.aclRepo.CheckPermission(ctx, documentID, agentID, permission)
	if err != nil {
		s.logger.Warn("permission check failed, denying access",
			"document_id", documentID,
			"agent_id", agentID,
			"permission", permission,
			"error", err,
		)
		return false, nil
	}

	return granted, nil
}

// RequirePermission turns a denied check into a typed error.
func (s *accessService) RequirePermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) error {
	granted, err := s.CheckPermission(ctx, documentID, agentID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return &domain.PermissionDeniedError{
			Message: fmt.Sprintf("agent %s does not have %s permission on document %s", agentID, permission, documentID),
		}
	}
	return nil
}

// GrantAccess creates or refreshes a single grant. Re-granting an
// existing (agent, permission) pair replaces the row, which updates
// the expiry without leaving duplicates.
func (s *accessService) GrantAccess(ctx context.Context, req *services.GrantAccessRequest) (*models.DocumentACL, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.AgentID, validation.Required),
		validation.Field(&req.GrantedBy, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	permission, err := models.ParsePermission(string(req.Permission))
	if err != nil {
		return nil, err
	}

	if err := s.checkAgentExists(ctx, req.AgentID); err != nil {
		return nil, err
	}
	if err := s.checkAgentExists(ctx, req.GrantedBy); err != nil {
		return nil, err
	}
	if _, err := s.liveDocument(ctx, req.DocumentID); err != nil {
		return nil, err
	}
	if err := s.requireShare(ctx, req.DocumentID, req.GrantedBy); err != nil {
		return nil, err
	}

	entry := &models.DocumentACL{
		ID:         uuid.New(),
		DocumentID: req.DocumentID,
		AgentID:    req.AgentID,
		Permission: permission,
		GrantedBy:  req.GrantedBy,
		ExpiresAt:  req.ExpiresAt,
		Metadata:   req.Metadata,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.aclRepo.DeleteByDocumentAgentPermission(txCtx, req.DocumentID, req.AgentID, permission); err != nil {
			return err
		}
		return s.aclRepo.Create(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("access granted",
		"document_id", req.DocumentID,
		"agent_id", req.AgentID,
		"permission", permission,
		"granted_by", req.GrantedBy,
	)

	return entry, nil
}

// RevokeAccess removes a single grant. Revoking a grant that does not
// exist succeeds.
func (s *accessService) RevokeAccess(ctx context.Context, req *services.RevokeAccessRequest) error {
	permission, err := models.ParsePermission(string(req.Permission))
	if err != nil {
		return err
	}

	if err := s.checkAgentExists(ctx, req.AgentID); err != nil {
		return err
	}
	if err := s.checkAgentExists(ctx, req.RevokedBy); err != nil {
		return err
	}
	if _, err := s.liveDocument(ctx, req.DocumentID); err != nil {
		return err
	}
	if err := s.requireShare(ctx, req.DocumentID, req.RevokedBy); err != nil {
		return err
	}

	if err := s.aclRepo.DeleteByDocumentAgentPermission(ctx, req.DocumentID, req.AgentID, permission); err != nil {
		return err
	}

	s.logger.Info("access revoked",
		"document_id", req.DocumentID,
		"agent_id", req.AgentID,
		"permission", permission,
		"revoked_by", req.RevokedBy,
	)

	return nil
}

// SetPermissions applies the batch atomically: either every grant and
// removal lands, or the previous ACL rows survive untouched.
func (s *accessService) SetPermissions(ctx context.Context, req *services.SetPermissionsRequest) ([]models.DocumentACL, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.GrantedBy, validation.Required),
		validation.Field(&req.Grants, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	if _, err := s.liveDocument(ctx, req.DocumentID); err != nil {
		return nil, err
	}
	if err := s.requireShare(ctx, req.DocumentID, req.GrantedBy); err != nil {
		return nil, err
	}

	var applied []models.DocumentACL
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		applied = applied[:0]
		for _, grant := range req.Grants {
			if grant.AgentID == uuid.Nil {
				return &domain.ValidationError{Message: "each grant must name an agent"}
			}
			permission, err := models.ParsePermission(string(grant.Permission))
			if err != nil {
				return err
			}
			if err := s.checkAgentExists(txCtx, grant.AgentID); err != nil {
				return err
			}

			if grant.Remove {
				if err := s.aclRepo.DeleteByDocumentAgentPermission(txCtx, req.DocumentID, grant.AgentID, permission); err != nil {
					return err
				}
				continue
			}

			// Replace-then-insert keeps one row per (agent, permission)
			// and lets a repeated grant update the expiry.
			if err := s.aclRepo.DeleteByDocumentAgentPermission(txCtx, req.DocumentID, grant.AgentID, permission); err != nil {
				return err
			}

			entry := models.DocumentACL{
				ID:         uuid.New(),
				DocumentID: req.DocumentID,
				AgentID:    grant.AgentID,
				Permission: permission,
				GrantedBy:  req.GrantedBy,
				ExpiresAt:  grant.ExpiresAt,
				Metadata:   grant.Metadata,
			}
			if err := s.aclRepo.Create(txCtx, &entry); err != nil {
				return err
			}
			applied = append(applied, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("permissions set",
		"document_id", req.DocumentID,
		"grants", len(req.Grants),
		"granted_by", req.GrantedBy,
	)

	return applied, nil
}

// GetPermissions enumerates ACL rows. ADMIN is required even to read
// one's own rows; WRITE or SHARE is not enough to see who else has
// access.
func (s *accessService) GetPermissions(ctx context.Context, req *services.GetPermissionsRequest) (*services.PermissionList, error) {
	if err := s.checkAgentExists(ctx, req.RequestedBy); err != nil {
		return nil, err
	}
	if _, err := s.liveDocument(ctx, req.DocumentID); err != nil {
		return nil, err
	}

	granted, err := s.aclRepo.CheckPermission(ctx, req.DocumentID, req.RequestedBy, models.PermissionAdmin)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, &domain.PermissionDeniedError{
			Message: fmt.Sprintf("agent %s does not have ADMIN permission on document %s", req.RequestedBy, req.DocumentID),
		}
	}

	var entries []models.DocumentACL
	if req.AgentID != nil {
		entries, err = s.aclRepo.ListByDocumentAndAgent(ctx, req.DocumentID, *req.AgentID)
	} else {
		entries, err = s.aclRepo.ListByDocument(ctx, req.DocumentID)
	}
	if err != nil {
		return nil, err
	}

	return &services.PermissionList{
		DocumentID:  req.DocumentID,
		Permissions: entries,
		Total:       len(entries),
	}, nil
}

// TransferOwnership swaps the ADMIN grant in one transaction. The
// authorizer must be the outgoing owner or hold ADMIN themselves.
func (s *accessService) TransferOwnership(ctx context.Context, req *services.TransferOwnershipRequest) (*services.TransferResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.FromAgentID, validation.Required),
		validation.Field(&req.ToAgentID, validation.Required),
		validation.Field(&req.AuthorizedBy, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	doc, err := s.liveDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAgentExists(ctx, req.ToAgentID); err != nil {
		return nil, err
	}

	isOwner := req.AuthorizedBy == req.FromAgentID
	isAdmin, err := s.aclRepo.CheckPermission(ctx, req.DocumentID, req.AuthorizedBy, models.PermissionAdmin)
	if err != nil {
		return nil, err
	}
	if !isOwner && !isAdmin {
		return nil, &domain.PermissionDeniedError{
			Message: fmt.Sprintf("agent %s is not authorized to transfer ownership of document %s", req.AuthorizedBy, req.DocumentID),
		}
	}

	newAdmin := models.DocumentACL{
		ID:         uuid.New(),
		DocumentID: req.DocumentID,
		AgentID:    req.ToAgentID,
		Permission: models.PermissionAdmin,
		GrantedBy:  req.AuthorizedBy,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.aclRepo.DeleteByDocumentAgentPermission(txCtx, req.DocumentID, req.FromAgentID, models.PermissionAdmin); err != nil {
			return err
		}
		// The incoming owner may already hold ADMIN.
		if err := s.aclRepo.DeleteByDocumentAgentPermission(txCtx, req.DocumentID, req.ToAgentID, models.PermissionAdmin); err != nil {
			return err
		}
		return s.aclRepo.Create(txCtx, &newAdmin)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ownership transferred",
		"document_id", req.DocumentID,
		"from", req.FromAgentID,
		"to", req.ToAgentID,
		"authorized_by", req.AuthorizedBy,
	)

	return &services.TransferResult{
		Document:       doc,
		OldOwner:       req.FromAgentID,
		NewOwner:       req.ToAgentID,
		NewPermissions: []models.DocumentACL{newAdmin},
	}, nil
}

// CheckMultiple evaluates each level independently and folds the
// results. An empty list asks about every grant level.
func (s *accessService) CheckMultiple(ctx context.Context, documentID, agentID uuid.UUID, permissions []models.Permission) (*services.MultiCheckResult, error) {
	if len(permissions) == 0 {
		permissions = models.AllPermissions
	}

	result := &services.MultiCheckResult{
		Results:    make(map[models.Permission]bool, len(permissions)),
		AllGranted: true,
	}

	for _, permission := range permissions {
		granted, err := s.CheckPermission(ctx, documentID, agentID, permission)
		if err != nil {
			return nil, err
		}
		result.Results[permission] = granted
		if granted {
			result.AnyGranted = true
		} else {
			result.AllGranted = false
		}
	}

	return result, nil
}

// ListAccessibleDocuments walks the agent's unexpired grants and
// resolves the live documents behind them. Documents that fail to
// resolve are skipped rather than failing the whole list.
func (s *accessService) ListAccessibleDocuments(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Document, error) {
	if err := s.checkAgentExists(ctx, agentID); err != nil {
		return nil, err
	}

	grants, err := s.aclRepo.ListByAgent(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(grants))
	docs := []models.Document{}
	for _, grant := range grants {
		if seen[grant.DocumentID] {
			continue
		}
		seen[grant.DocumentID] = true

		doc, err := s.docRepo.GetByID(ctx, grant.DocumentID)
		if err != nil {
			s.logger.Warn("skipping unresolvable document in accessible list",
				"document_id", grant.DocumentID,
				"agent_id", agentID,
				"error", err,
			)
			continue
		}
		if doc.Deleted() {
			continue
		}
		docs = append(docs, *doc)
	}

	return docs, nil
}
