package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"docvault/internal/config"
	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"
	"docvault/internal/storage"
)

var listSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"file_size":  true,
}

// documentService implements the DocumentService interface.
type documentService struct {
	docRepo      repositories.DocumentRepository
	versionRepo  repositories.VersionRepository
	aclRepo      repositories.ACLRepository
	access       services.AccessService
	versions     services.VersionService
	txManager    repositories.TransactionManager
	store        storage.ObjectStore
	bucketPrefix string
	logger       *slog.Logger
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	versionRepo repositories.VersionRepository,
	aclRepo repositories.ACLRepository,
	access services.AccessService,
	versions services.VersionService,
	txManager repositories.TransactionManager,
	store storage.ObjectStore,
	bucketPrefix string,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:      docRepo,
		versionRepo:  versionRepo,
		aclRepo:      aclRepo,
		access:       access,
		versions:     versions,
		txManager:    txManager,
		store:        store,
		bucketPrefix: bucketPrefix,
		logger:       logger,
	}
}

func (s *documentService) liveDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Deleted() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", documentID)}
	}
	return doc, nil
}

func (s *documentService) validateUploadRequest(req *services.UploadRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxDocumentNameLength)),
		validation.Field(&req.Prefix, validation.Length(0, config.MaxPrefixLength)),
		validation.Field(&req.OrganizationID, validation.Required),
		validation.Field(&req.AgentID, validation.Required),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	if req.Content == nil {
		return &domain.ValidationError{Message: "content is required"}
	}
	return models.ValidatePrefix(req.Prefix)
}

// Upload is upload-or-version: an unknown (name, prefix) creates a
// document, a known one appends a version to it. Callers relying on
// name uniqueness get versioning instead of a conflict error.
func (s *documentService) Upload(ctx context.Context, req *services.UploadRequest) (*models.Document, error) {
	if err := s.validateUploadRequest(req); err != nil {
		return nil, err
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	existing, err := s.docRepo.FindByNameInOrg(ctx, req.OrganizationID, req.Name, &req.Prefix)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return s.createDocument(ctx, req, mimeType)
	}

	return s.addVersion(ctx, existing, req, mimeType)
}

// createDocument builds a brand-new document: the row, version 1, the
// uploader's ADMIN grant, and the blob all land in one transaction. A
// document must never exist without an owner and a first version.
func (s *documentService) createDocument(ctx context.Context, req *services.UploadRequest, mimeType string) (*models.Document, error) {
	bucket := storage.BucketName(s.bucketPrefix, req.OrganizationID)
	if err := s.store.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}

	docID := uuid.New()
	key := models.StorageKey(docID, 1, req.Name)

	doc := &models.Document{
		ID:             docID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Filename:       req.Name,
		FileSize:       req.Size,
		MimeType:       mimeType,
		StoragePath:    key,
		Prefix:         req.Prefix,
		Path:           models.BuildPath(req.Prefix, req.Name),
		CurrentVersion: 1,
		Status:         models.StatusActive,
		CreatedBy:      req.AgentID,
		UpdatedBy:      req.AgentID,
		Metadata:       req.Metadata,
		Tags:           req.Tags,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return err
		}

		if err := s.store.Put(txCtx, bucket, key, req.Content, req.Size, mimeType); err != nil {
			return err
		}

		version := &models.DocumentVersion{
			ID:                uuid.New(),
			DocumentID:        docID,
			VersionNumber:     1,
			Filename:          req.Name,
			FileSize:          req.Size,
			MimeType:          mimeType,
			StoragePath:       key,
			ChangeDescription: req.ChangeDescription,
			ChangeType:        models.ChangeCreate,
			CreatedBy:         req.AgentID,
		}
		if err := s.versionRepo.Create(txCtx, version); err != nil {
			return err
		}

		grant := &models.DocumentACL{
			ID:         uuid.New(),
			DocumentID: docID,
			AgentID:    req.AgentID,
			Permission: models.PermissionAdmin,
			GrantedBy:  req.AgentID,
		}
		return s.aclRepo.Create(txCtx, grant)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"document_id", doc.ID,
		"name", doc.Name,
		"organization_id", doc.OrganizationID,
		"path", doc.Path,
		"created_by", doc.CreatedBy,
	)

	return doc, nil
}

// addVersion handles an upload against an existing document.
func (s *documentService) addVersion(ctx context.Context, doc *models.Document, req *services.UploadRequest, mimeType string) (*models.Document, error) {
	if err := s.access.RequirePermission(ctx, doc.ID, req.AgentID, models.PermissionWrite); err != nil {
		return nil, err
	}

	versionReq := &services.CreateVersionRequest{
		DocumentID:        doc.ID,
		Content:           req.Content,
		Size:              req.Size,
		Filename:          req.Name,
		MimeType:          mimeType,
		ChangeDescription: req.ChangeDescription,
		CreatedBy:         req.AgentID,
	}

	var err error
	if req.ReplaceCurrent {
		_, err = s.versions.ReplaceCurrent(ctx, versionReq)
	} else {
		_, err = s.versions.CreateVersion(ctx, versionReq)
	}
	if err != nil {
		return nil, err
	}

	return s.docRepo.GetByID(ctx, doc.ID)
}

// Download streams a version's content after a READ check.
func (s *documentService) Download(ctx context.Context, documentID, agentID uuid.UUID, version *int) (io.ReadCloser, *models.DocumentVersion, error) {
	doc, err := s.liveDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.access.RequirePermission(ctx, documentID, agentID, models.PermissionRead); err != nil {
		return nil, nil, err
	}

	return s.versions.OpenContent(ctx, doc, version)
}

// UpdateMetadata changes descriptive fields only. Metadata keys merge
// into the existing map; tags replace wholesale.
func (s *documentService) UpdateMetadata(ctx context.Context, req *services.UpdateMetadataRequest) (*models.Document, error) {
	doc, err := s.liveDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequirePermission(ctx, req.DocumentID, req.AgentID, models.PermissionWrite); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ValidationError{Message: "name cannot be empty"}
		}
		doc.Name = *req.Name
		doc.Path = models.BuildPath(doc.Prefix, doc.Name)
	}
	if req.Description != nil {
		doc.Description = *req.Description
	}
	if req.Tags != nil {
		doc.Tags = req.Tags
	}
	if req.Metadata != nil {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]interface{}, len(req.Metadata))
		}
		for k, v := range req.Metadata {
			doc.Metadata[k] = v
		}
	}
	doc.UpdatedBy = req.AgentID

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document metadata updated",
		"document_id", doc.ID,
		"updated_by", req.AgentID,
	)

	return doc, nil
}

// UpdateStatus transitions the lifecycle state. No state machine is
// enforced between draft, active and archived; moving to deleted is
// the soft-delete path and needs DELETE rather than WRITE.
func (s *documentService) UpdateStatus(ctx context.Context, documentID, agentID uuid.UUID, status models.DocumentStatus) (*models.Document, error) {
	if !status.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid status %q", status)}
	}

	if _, err := s.liveDocument(ctx, documentID); err != nil {
		return nil, err
	}

	required := models.PermissionWrite
	if status == models.StatusDeleted {
		required = models.PermissionDelete
	}
	if err := s.access.RequirePermission(ctx, documentID, agentID, required); err != nil {
		return nil, err
	}

	if err := s.docRepo.UpdateStatus(ctx, documentID, status, agentID); err != nil {
		return nil, err
	}

	s.logger.Info("document status updated",
		"document_id", documentID,
		"status", status,
		"updated_by", agentID,
	)

	return s.docRepo.GetByID(ctx, documentID)
}

// Delete soft-deletes by default. A hard delete removes the rows and
// every version's blob; blob deletion failures are logged and skipped
// so a flaky object store cannot wedge the delete.
func (s *documentService) Delete(ctx context.Context, documentID, agentID uuid.UUID, hardDelete bool) error {
	doc, err := s.liveDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.access.RequirePermission(ctx, documentID, agentID, models.PermissionDelete); err != nil {
		return err
	}

	if !hardDelete {
		if err := s.docRepo.UpdateStatus(ctx, documentID, models.StatusDeleted, agentID); err != nil {
			return err
		}
		s.logger.Info("document soft-deleted", "document_id", documentID, "deleted_by", agentID)
		return nil
	}

	versions, err := s.versionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return err
	}

	bucket := storage.BucketName(s.bucketPrefix, doc.OrganizationID)
	for _, version := range versions {
		if err := s.store.Delete(ctx, bucket, version.StoragePath); err != nil {
			s.logger.Warn("failed to delete version blob",
				"document_id", documentID,
				"version", version.VersionNumber,
				"error", err,
			)
		}
	}

	if err := s.docRepo.HardDelete(ctx, documentID); err != nil {
		return err
	}

	s.logger.Info("document hard-deleted",
		"document_id", documentID,
		"versions", len(versions),
		"deleted_by", agentID,
	)

	return nil
}

func normalizeWindow(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = config.DefaultListLimit
	}
	if limit < 1 || limit > config.MaxListLimit {
		return 0, 0, &domain.ValidationError{Message: fmt.Sprintf("limit must be between 1 and %d", config.MaxListLimit)}
	}
	if offset < 0 {
		return 0, 0, &domain.ValidationError{Message: "offset cannot be negative"}
	}
	return limit, offset, nil
}

// filterReadable keeps the documents the agent can READ. Per-document
// check failures deny silently, so an inaccessible document is
// indistinguishable from an absent one.
func (s *documentService) filterReadable(ctx context.Context, docs []models.Document, agentID uuid.UUID) []models.Document {
	readable := []models.Document{}
	for _, doc := range docs {
		granted, err := s.access.CheckPermission(ctx, doc.ID, agentID, models.PermissionRead)
		if err != nil || !granted {
			continue
		}
		readable = append(readable, doc)
	}
	return readable
}

// ListDocuments scans a window of the organization's documents and
// returns the ones the agent can READ.
func (s *documentService) ListDocuments(ctx context.Context, req *services.ListRequest) (*services.DocumentList, error) {
	limit, offset, err := normalizeWindow(req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid status %q", *req.Status)}
	}
	if req.SortBy != "" && !listSortColumns[req.SortBy] {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("cannot sort by %q", req.SortBy)}
	}
	if req.SortOrder != "" && req.SortOrder != "asc" && req.SortOrder != "desc" {
		return nil, &domain.ValidationError{Message: "sort order must be asc or desc"}
	}

	var docs []models.Document
	switch {
	case req.Prefix != nil && req.Recursive:
		if err := models.ValidatePrefix(*req.Prefix); err != nil {
			return nil, err
		}
		docs, err = s.docRepo.ListRecursive(ctx, req.OrganizationID, *req.Prefix, req.MaxDepth, limit, offset)
	case req.Prefix != nil:
		if err := models.ValidatePrefix(*req.Prefix); err != nil {
			return nil, err
		}
		docs, err = s.docRepo.ListByPrefix(ctx, req.OrganizationID, *req.Prefix, limit, offset)
	case len(req.Tags) > 0:
		docs, err = s.docRepo.ListByTags(ctx, req.OrganizationID, req.Tags, limit, offset)
	default:
		docs, err = s.docRepo.ListByOrganization(ctx, req.OrganizationID, repositories.ListOptions{
			Status:    req.Status,
			SortBy:    req.SortBy,
			SortOrder: req.SortOrder,
			Limit:     limit,
			Offset:    offset,
		})
	}
	if err != nil {
		return nil, err
	}

	// The prefix and tags queries constrain only their own dimension;
	// the remaining filters apply here so combinations hold.
	if req.Status != nil || len(req.Tags) > 0 {
		kept := docs[:0]
		for _, doc := range docs {
			if req.Status != nil && doc.Status != *req.Status {
				continue
			}
			if len(req.Tags) > 0 && !anyTagMatch(doc.Tags, req.Tags) {
				continue
			}
			kept = append(kept, doc)
		}
		docs = kept
	}

	readable := s.filterReadable(ctx, docs, req.AgentID)

	return &services.DocumentList{
		Documents: readable,
		Pagination: services.Pagination{
			Limit:  limit,
			Offset: offset,
			Count:  len(readable),
			Total:  len(readable),
		},
		Filters: services.ListFilters{
			Prefix:    req.Prefix,
			Recursive: req.Recursive,
			MaxDepth:  req.MaxDepth,
			Status:    req.Status,
			Tags:      req.Tags,
		},
	}, nil
}

// Search matches names case-insensitively, then applies the optional
// prefix/status/tags filters and the permission filter before
// windowing.
func (s *documentService) Search(ctx context.Context, req *services.SearchRequest) (*services.SearchResults, error) {
	if len(req.Query) < config.MinSearchQueryLength {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("query must be at least %d characters", config.MinSearchQueryLength)}
	}
	limit, offset, err := normalizeWindow(req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid status %q", *req.Status)}
	}

	// Over-fetch so post-filter windowing still fills the page.
	matches, err := s.docRepo.SearchByName(ctx, req.OrganizationID, req.Query, limit+offset)
	if err != nil {
		return nil, err
	}

	filtered := []models.Document{}
	for _, doc := range matches {
		if req.Prefix != nil && doc.Prefix != *req.Prefix {
			continue
		}
		if req.Status != nil && doc.Status != *req.Status {
			continue
		}
		if len(req.Tags) > 0 && !anyTagMatch(doc.Tags, req.Tags) {
			continue
		}
		filtered = append(filtered, doc)
	}

	readable := s.filterReadable(ctx, filtered, req.AgentID)

	total := len(readable)
	if offset < len(readable) {
		readable = readable[offset:]
	} else {
		readable = []models.Document{}
	}
	if len(readable) > limit {
		readable = readable[:limit]
	}

	return &services.SearchResults{
		Documents: readable,
		Query:     req.Query,
		Pagination: services.Pagination{
			Limit:  limit,
			Offset: offset,
			Count:  len(readable),
			Total:  total,
		},
		Filters: services.ListFilters{
			Prefix: req.Prefix,
			Status: req.Status,
			Tags:   req.Tags,
		},
	}, nil
}

func anyTagMatch(docTags, wanted []string) bool {
	for _, tag := range docTags {
		for _, w := range wanted {
			if tag == w {
				return true
			}
		}
	}
	return false
}

// GetDocumentDetails returns the document plus optional expansions.
// Reading the ACL block is gated on ADMIN separately from the READ
// gate on the document itself.
func (s *documentService) GetDocumentDetails(ctx context.Context, req *services.DetailsRequest) (*services.DocumentDetails, error) {
	doc, err := s.liveDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequirePermission(ctx, req.DocumentID, req.AgentID, models.PermissionRead); err != nil {
		return nil, err
	}

	versions, err := s.versionRepo.ListByDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	details := &services.DocumentDetails{
		Document:       doc,
		VersionCount:   len(versions),
		CurrentVersion: doc.CurrentVersion,
	}
	if req.IncludeVersions {
		details.Versions = versions
	}

	if req.IncludePermissions {
		if err := s.access.RequirePermission(ctx, req.DocumentID, req.AgentID, models.PermissionAdmin); err != nil {
			return nil, err
		}
		permissions, err := s.aclRepo.ListByDocument(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		details.Permissions = permissions
	}

	return details, nil
}

// RestoreVersion brings an old version's content forward. Requires
// WRITE.
func (s *documentService) RestoreVersion(ctx context.Context, documentID uuid.UUID, versionNumber int, agentID uuid.UUID, changeDescription string) (*models.DocumentVersion, error) {
	if _, err := s.liveDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if err := s.access.RequirePermission(ctx, documentID, agentID, models.PermissionWrite); err != nil {
		return nil, err
	}

	return s.versions.RestoreVersion(ctx, &services.RestoreVersionRequest{
		DocumentID:        documentID,
		VersionNumber:     versionNumber,
		RestoredBy:        agentID,
		ChangeDescription: changeDescription,
	})
}

// SetPermissions delegates to the access service.
func (s *documentService) SetPermissions(ctx context.Context, req *services.SetPermissionsRequest) ([]models.DocumentACL, error) {
	return s.access.SetPermissions(ctx, req)
}

// GetPermissions delegates to the access service.
func (s *documentService) GetPermissions(ctx context.Context, req *services.GetPermissionsRequest) (*services.PermissionList, error) {
	return s.access.GetPermissions(ctx, req)
}

// TransferOwnership delegates to the access service.
func (s *documentService) TransferOwnership(ctx context.Context, req *services.TransferOwnershipRequest) (*services.TransferResult, error) {
	return s.access.TransferOwnership(ctx, req)
}
