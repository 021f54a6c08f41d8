package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"
	"docvault/internal/storage"
)

// versionService implements the VersionService interface. Version
// numbers are allocated under a row lock on the parent document so
// concurrent writers never compute the same next number.
type versionService struct {
	docRepo      repositories.DocumentRepository
	versionRepo  repositories.VersionRepository
	txManager    repositories.TransactionManager
	store        storage.ObjectStore
	bucketPrefix string
	logger       *slog.Logger
}

// NewVersionService creates a new version service.
func NewVersionService(
	docRepo repositories.DocumentRepository,
	versionRepo repositories.VersionRepository,
	txManager repositories.TransactionManager,
	store storage.ObjectStore,
	bucketPrefix string,
	logger *slog.Logger,
) services.VersionService {
	return &versionService{
		docRepo:      docRepo,
		versionRepo:  versionRepo,
		txManager:    txManager,
		store:        store,
		bucketPrefix: bucketPrefix,
		logger:       logger,
	}
}

func (s *versionService) validateCreateRequest(req *services.CreateVersionRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Filename, validation.Required),
		validation.Field(&req.CreatedBy, validation.Required),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	if req.Content == nil {
		return &domain.ValidationError{Message: "content is required"}
	}
	return nil
}

// lockLiveDocument takes the row lock and rejects soft-deleted
// documents.
func (s *versionService) lockLiveDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.docRepo.GetByIDForUpdate(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Deleted() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", documentID)}
	}
	return doc, nil
}

// advanceDocument moves the document's current view onto the new
// version.
func (s *versionService) advanceDocument(ctx context.Context, doc *models.Document, version *models.DocumentVersion) error {
	doc.CurrentVersion = version.VersionNumber
	doc.Filename = version.Filename
	doc.FileSize = version.FileSize
	doc.MimeType = version.MimeType
	doc.StoragePath = version.StoragePath
	doc.UpdatedBy = version.CreatedBy
	return s.docRepo.Update(ctx, doc)
}

// CreateVersion appends the next version. The blob write happens
// inside the transaction closure: a storage failure rolls the row
// changes back, while a commit failure can only strand an unreferenced
// blob, never a dangling row.
func (s *versionService) CreateVersion(ctx context.Context, req *services.CreateVersionRequest) (*models.DocumentVersion, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	var created *models.DocumentVersion
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.lockLiveDocument(txCtx, req.DocumentID)
		if err != nil {
			return err
		}

		max, err := s.versionRepo.MaxVersionNumber(txCtx, req.DocumentID)
		if err != nil {
			return err
		}
		next := max + 1

		bucket := storage.BucketName(s.bucketPrefix, doc.OrganizationID)
		key := models.StorageKey(doc.ID, next, req.Filename)
		if err := s.store.Put(txCtx, bucket, key, req.Content, req.Size, req.MimeType); err != nil {
			return err
		}

		version := &models.DocumentVersion{
			ID:                uuid.New(),
			DocumentID:        doc.ID,
			VersionNumber:     next,
			Filename:          req.Filename,
			FileSize:          req.Size,
			MimeType:          req.MimeType,
			StoragePath:       key,
			ChangeDescription: req.ChangeDescription,
			ChangeType:        models.ChangeUpdate,
			CreatedBy:         req.CreatedBy,
			Metadata:          req.Metadata,
		}
		if next == 1 {
			version.ChangeType = models.ChangeCreate
		}
		if err := s.versionRepo.Create(txCtx, version); err != nil {
			return err
		}

		if err := s.advanceDocument(txCtx, doc, version); err != nil {
			return err
		}

		created = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version created",
		"document_id", created.DocumentID,
		"version", created.VersionNumber,
		"size", created.FileSize,
	)

	return created, nil
}

// ReplaceCurrent overwrites the current version's blob and record in
// place. No new number is allocated and the previous content is
// unrecoverable.
func (s *versionService) ReplaceCurrent(ctx context.Context, req *services.CreateVersionRequest) (*models.DocumentVersion, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	var replaced *models.DocumentVersion
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.lockLiveDocument(txCtx, req.DocumentID)
		if err != nil {
			return err
		}

		current, err := s.versionRepo.GetByDocumentAndVersion(txCtx, doc.ID, doc.CurrentVersion)
		if err != nil {
			return err
		}

		bucket := storage.BucketName(s.bucketPrefix, doc.OrganizationID)
		// Reuse the existing key so the old blob is overwritten, not
		// orphaned.
		if err := s.store.Put(txCtx, bucket, current.StoragePath, req.Content, req.Size, req.MimeType); err != nil {
			return err
		}

		current.Filename = req.Filename
		current.FileSize = req.Size
		current.MimeType = req.MimeType
		current.ChangeDescription = req.ChangeDescription
		current.CreatedBy = req.CreatedBy
		if req.Metadata != nil {
			current.Metadata = req.Metadata
		}
		if err := s.versionRepo.UpdateCurrent(txCtx, current); err != nil {
			return err
		}

		if err := s.advanceDocument(txCtx, doc, current); err != nil {
			return err
		}

		replaced = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("current version replaced",
		"document_id", replaced.DocumentID,
		"version", replaced.VersionNumber,
		"size", replaced.FileSize,
	)

	return replaced, nil
}

func (s *versionService) GetVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error) {
	if versionNumber < 1 {
		return nil, &domain.ValidationError{Message: "version number must be positive"}
	}
	return s.versionRepo.GetByDocumentAndVersion(ctx, documentID, versionNumber)
}

func (s *versionService) ListVersions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	return s.versionRepo.ListByDocument(ctx, documentID)
}

// RestoreVersion copies an old version's content forward under the
// next number. The intermediate versions stay in the history.
func (s *versionService) RestoreVersion(ctx context.Context, req *services.RestoreVersionRequest) (*models.DocumentVersion, error) {
	if req.VersionNumber < 1 {
		return nil, &domain.ValidationError{Message: "version number must be positive"}
	}

	var restored *models.DocumentVersion
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.lockLiveDocument(txCtx, req.DocumentID)
		if err != nil {
			return err
		}

		source, err := s.versionRepo.GetByDocumentAndVersion(txCtx, doc.ID, req.VersionNumber)
		if err != nil {
			return err
		}

		max, err := s.versionRepo.MaxVersionNumber(txCtx, req.DocumentID)
		if err != nil {
			return err
		}
		next := max + 1

		bucket := storage.BucketName(s.bucketPrefix, doc.OrganizationID)
		content, err := s.store.Get(txCtx, bucket, source.StoragePath)
		if err != nil {
			return err
		}
		defer content.Close()

		key := models.StorageKey(doc.ID, next, source.Filename)
		if err := s.store.Put(txCtx, bucket, key, content, source.FileSize, source.MimeType); err != nil {
			return err
		}

		description := req.ChangeDescription
		if description == "" {
			description = fmt.Sprintf("Restored from version %d", req.VersionNumber)
		}

		version := &models.DocumentVersion{
			ID:                uuid.New(),
			DocumentID:        doc.ID,
			VersionNumber:     next,
			Filename:          source.Filename,
			FileSize:          source.FileSize,
			MimeType:          source.MimeType,
			StoragePath:       key,
			ChangeDescription: description,
			ChangeType:        models.ChangeRestore,
			CreatedBy:         req.RestoredBy,
			Metadata:          source.Metadata,
		}
		if err := s.versionRepo.Create(txCtx, version); err != nil {
			return err
		}

		if err := s.advanceDocument(txCtx, doc, version); err != nil {
			return err
		}

		restored = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version restored",
		"document_id", restored.DocumentID,
		"restored_from", req.VersionNumber,
		"new_version", restored.VersionNumber,
	)

	return restored, nil
}

// OpenContent streams a version's blob, defaulting to the current
// version.
func (s *versionService) OpenContent(ctx context.Context, doc *models.Document, versionNumber *int) (io.ReadCloser, *models.DocumentVersion, error) {
	number := doc.CurrentVersion
	if versionNumber != nil {
		number = *versionNumber
	}

	version, err := s.versionRepo.GetByDocumentAndVersion(ctx, doc.ID, number)
	if err != nil {
		return nil, nil, err
	}

	bucket := storage.BucketName(s.bucketPrefix, doc.OrganizationID)
	content, err := s.store.Get(ctx, bucket, version.StoragePath)
	if err != nil {
		return nil, nil, err
	}

	return content, version, nil
}
