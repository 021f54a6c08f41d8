package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
)

const versionColumns = `id, document_id, version_number, filename, file_size, mime_type,
	storage_path, COALESCE(change_description, ''), change_type, created_by, metadata, created_at`

// PostgresVersionRepository implements the VersionRepository interface.
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{pool: config.Pool, logger: config.Logger}
}

func scanVersion(row interface{ Scan(...any) error }, v *models.DocumentVersion) error {
	return row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.Filename,
		&v.FileSize,
		&v.MimeType,
		&v.StoragePath,
		&v.ChangeDescription,
		&v.ChangeType,
		&v.CreatedBy,
		&v.Metadata,
		&v.CreatedAt,
	)
}

// Create inserts a version row. The unique (document_id, version_number)
// constraint backstops the row-lock allocation protocol.
func (r *PostgresVersionRepository) Create(ctx context.Context, version *models.DocumentVersion) error {
	query := `
		INSERT INTO document_versions (id, document_id, version_number, filename, file_size,
			mime_type, storage_path, change_description, change_type, created_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		RETURNING created_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		version.ID,
		version.DocumentID,
		version.VersionNumber,
		version.Filename,
		version.FileSize,
		version.MimeType,
		version.StoragePath,
		version.ChangeDescription,
		version.ChangeType,
		version.CreatedBy,
		version.Metadata,
	).Scan(&version.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.DatabaseError{
				Message: fmt.Sprintf("version %d already exists for document %s", version.VersionNumber, version.DocumentID),
				Err:     err,
			}
		}
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", version.DocumentID)}
		}
		return &domain.DatabaseError{Message: "create document version", Err: err}
	}

	return nil
}

// GetByDocumentAndVersion retrieves a single numbered version.
func (r *PostgresVersionRepository) GetByDocumentAndVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM document_versions
		WHERE document_id = $1 AND version_number = $2
	`, versionColumns)

	var v models.DocumentVersion
	executor := GetExecutor(ctx, r.pool)
	if err := scanVersion(executor.QueryRow(ctx, query, documentID, versionNumber), &v); err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{
				Message: fmt.Sprintf("version %d of document %s not found", versionNumber, documentID),
			}
		}
		return nil, &domain.DatabaseError{Message: "get document version", Err: err}
	}

	return &v, nil
}

// ListByDocument returns the full version history in version order.
func (r *PostgresVersionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number ASC
	`, versionColumns)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, &domain.DatabaseError{Message: "list document versions", Err: err}
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		if err := scanVersion(rows, &v); err != nil {
			return nil, &domain.DatabaseError{Message: "scan document version", Err: err}
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Message: "iterate document versions", Err: err}
	}

	if versions == nil {
		versions = []models.DocumentVersion{}
	}

	return versions, nil
}

// MaxVersionNumber returns the highest allocated version number, or 0
// when the document has none. Call with the parent document row locked.
func (r *PostgresVersionRepository) MaxVersionNumber(ctx context.Context, documentID uuid.UUID) (int, error) {
	var max int
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE document_id = $1`,
		documentID).Scan(&max)
	if err != nil {
		return 0, &domain.DatabaseError{Message: "max version number", Err: err}
	}
	return max, nil
}

// UpdateCurrent rewrites the content columns of an existing version in
// place. Used by replace-current uploads only.
func (r *PostgresVersionRepository) UpdateCurrent(ctx context.Context, version *models.DocumentVersion) error {
	query := `
		UPDATE document_versions
		SET filename = $1, file_size = $2, mime_type = $3, storage_path = $4,
			change_description = NULLIF($5, ''), created_by = $6, metadata = $7
		WHERE document_id = $8 AND version_number = $9
	`

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		version.Filename,
		version.FileSize,
		version.MimeType,
		version.StoragePath,
		version.ChangeDescription,
		version.CreatedBy,
		version.Metadata,
		version.DocumentID,
		version.VersionNumber,
	)
	if err != nil {
		return &domain.DatabaseError{Message: "update current version", Err: err}
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{
			Message: fmt.Sprintf("version %d of document %s not found", version.VersionNumber, version.DocumentID),
		}
	}

	return nil
}
