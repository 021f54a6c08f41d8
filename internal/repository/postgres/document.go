package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
)

const documentColumns = `id, organization_id, name, COALESCE(description, ''), filename,
	file_size, mime_type, storage_path, COALESCE(prefix, ''), COALESCE(path, ''),
	current_version, status, created_by, updated_by, metadata, tags, created_at, updated_at`

// PostgresDocumentRepository implements the DocumentRepository interface.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{pool: config.Pool, logger: config.Logger}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE metacharacters so user input matches
// literally under ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanDocument(row interface{ Scan(...any) error }, doc *models.Document) error {
	return row.Scan(
		&doc.ID,
		&doc.OrganizationID,
		&doc.Name,
		&doc.Description,
		&doc.Filename,
		&doc.FileSize,
		&doc.MimeType,
		&doc.StoragePath,
		&doc.Prefix,
		&doc.Path,
		&doc.CurrentVersion,
		&doc.Status,
		&doc.CreatedBy,
		&doc.UpdatedBy,
		&doc.Metadata,
		&doc.Tags,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
}

// Create inserts a document row. Empty prefix/path are stored as NULL.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, organization_id, name, description, filename, file_size,
			mime_type, storage_path, prefix, path, current_version, status,
			created_by, updated_by, metadata, tags)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''),
			$11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.ID,
		doc.OrganizationID,
		doc.Name,
		doc.Description,
		doc.Filename,
		doc.FileSize,
		doc.MimeType,
		doc.StoragePath,
		doc.Prefix,
		doc.Path,
		doc.CurrentVersion,
		doc.Status,
		doc.CreatedBy,
		doc.UpdatedBy,
		doc.Metadata,
		doc.Tags,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", doc.OrganizationID)}
		}
		return &domain.DatabaseError{Message: "create document", Err: err}
	}

	return nil
}

// GetByID retrieves a document regardless of status. Callers are
// responsible for mapping soft-deleted documents to not-found.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	if err := scanDocument(executor.QueryRow(ctx, query, id), &doc); err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
		}
		return nil, &domain.DatabaseError{Message: "get document", Err: err}
	}

	return &doc, nil
}

// GetByIDForUpdate locks the document row until the enclosing
// transaction commits.
func (r *PostgresDocumentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 FOR UPDATE`, documentColumns)

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	if err := scanDocument(executor.QueryRow(ctx, query, id), &doc); err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
		}
		return nil, &domain.DatabaseError{Message: "lock document", Err: err}
	}

	return &doc, nil
}

// Update rewrites every mutable column from the model.
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents
		SET name = $1, description = NULLIF($2, ''), filename = $3, file_size = $4,
			mime_type = $5, storage_path = $6, prefix = NULLIF($7, ''), path = NULLIF($8, ''),
			current_version = $9, status = $10, updated_by = $11, metadata = $12, tags = $13,
			updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Name,
		doc.Description,
		doc.Filename,
		doc.FileSize,
		doc.MimeType,
		doc.StoragePath,
		doc.Prefix,
		doc.Path,
		doc.CurrentVersion,
		doc.Status,
		doc.UpdatedBy,
		doc.Metadata,
		doc.Tags,
		doc.ID,
	).Scan(&doc.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", doc.ID)}
		}
		return &domain.DatabaseError{Message: "update document", Err: err}
	}

	return nil
}

// UpdateStatus transitions the lifecycle state. No state machine guards
// the transition; callers own the sanity of it.
func (r *PostgresDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, updatedBy uuid.UUID) error {
	query := `
		UPDATE documents
		SET status = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, status, updatedBy, id)
	if err != nil {
		return &domain.DatabaseError{Message: "update document status", Err: err}
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}

	return nil
}

// FindByNameInOrg resolves an exact display-name match, excluding
// soft-deleted documents. A nil prefix matches any placement; a non-nil
// prefix must match exactly (empty string means "at the root").
func (r *PostgresDocumentRepository) FindByNameInOrg(ctx context.Context, orgID uuid.UUID, name string, prefix *string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM documents
		WHERE organization_id = $1 AND name = $2 AND status != 'deleted'
	`, documentColumns)
	args := []interface{}{orgID, name}

	if prefix != nil {
		if *prefix == "" {
			query += ` AND prefix IS NULL`
		} else {
			query += ` AND prefix = $3`
			args = append(args, *prefix)
		}
	}

	query += ` ORDER BY created_at ASC LIMIT 1`

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	if err := scanDocument(executor.QueryRow(ctx, query, args...), &doc); err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %q not found in organization %s", name, orgID)}
		}
		return nil, &domain.DatabaseError{Message: "find document by name", Err: err}
	}

	return &doc, nil
}

func (r *PostgresDocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.DatabaseError{Message: "list documents", Err: err}
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, &domain.DatabaseError{Message: "scan document", Err: err}
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Message: "iterate documents", Err: err}
	}

	if docs == nil {
		docs = []models.Document{}
	}

	return docs, nil
}

// ListByOrganization returns the organization's documents, excluding
// soft-deleted ones unless the status filter asks for them explicitly.
// opts.SortBy and opts.SortOrder are interpolated and must come from
// the service-level whitelist.
func (r *PostgresDocumentRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, opts repositories.ListOptions) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE organization_id = $1`, documentColumns)
	args := []interface{}{orgID}

	if opts.Status != nil {
		query += ` AND status = $2`
		args = append(args, *opts.Status)
	} else {
		query += ` AND status != 'deleted'`
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if opts.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	query += fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, sortBy, sortOrder, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	return r.queryDocuments(ctx, query, args...)
}

// ListByPrefix returns direct children of the prefix: documents whose
// prefix column equals the given prefix exactly.
func (r *PostgresDocumentRepository) ListByPrefix(ctx context.Context, orgID uuid.UUID, prefix string, limit, offset int) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM documents
		WHERE organization_id = $1 AND prefix = $2 AND status != 'deleted'
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`, documentColumns)

	return r.queryDocuments(ctx, query, orgID, prefix, limit, offset)
}

// ListRecursive returns every document whose path starts with the
// prefix. With maxDepth set, the remaining path segments beyond the
// prefix are bounded: segment count = slash count + 1 on the relative
// remainder.
func (r *PostgresDocumentRepository) ListRecursive(ctx context.Context, orgID uuid.UUID, prefix string, maxDepth *int, limit, offset int) ([]models.Document, error) {
	pattern := escapeLike(prefix) + "%"

	if maxDepth != nil {
		query := fmt.Sprintf(`
			SELECT %s FROM documents
			WHERE organization_id = $1
			  AND path LIKE $2 ESCAPE '\'
			  AND status != 'deleted'
			  AND (char_length(substring(path FROM char_length($3) + 1))
			       - char_length(replace(substring(path FROM char_length($3) + 1), '/', ''))) + 1 <= $4
			ORDER BY path ASC
			LIMIT $5 OFFSET $6
		`, documentColumns)
		return r.queryDocuments(ctx, query, orgID, pattern, prefix, *maxDepth, limit, offset)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM documents
		WHERE organization_id = $1
		  AND path LIKE $2 ESCAPE '\'
		  AND status != 'deleted'
		ORDER BY path ASC
		LIMIT $3 OFFSET $4
	`, documentColumns)

	return r.queryDocuments(ctx, query, orgID, pattern, limit, offset)
}

// ListByTags returns documents carrying any of the given tags, using
// the array overlap operator.
func (r *PostgresDocumentRepository) ListByTags(ctx context.Context, orgID uuid.UUID, tags []string, limit, offset int) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM documents
		WHERE organization_id = $1 AND tags && $2 AND status != 'deleted'
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, documentColumns)

	return r.queryDocuments(ctx, query, orgID, tags, limit, offset)
}

// SearchByName performs a case-insensitive substring match on the
// display name. The query string is matched literally; pattern
// characters in it carry no wildcard meaning.
func (r *PostgresDocumentRepository) SearchByName(ctx context.Context, orgID uuid.UUID, nameQuery string, limit int) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM documents
		WHERE organization_id = $1 AND name ILIKE $2 ESCAPE '\' AND status != 'deleted'
		ORDER BY created_at DESC
		LIMIT $3
	`, documentColumns)

	return r.queryDocuments(ctx, query, orgID, "%"+escapeLike(nameQuery)+"%", limit)
}

// CountByOrganization counts live documents owned by the organization.
func (r *PostgresDocumentRepository) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE organization_id = $1 AND status != 'deleted'`, orgID).Scan(&count)
	if err != nil {
		return 0, &domain.DatabaseError{Message: "count documents", Err: err}
	}
	return count, nil
}

// CountCreatedBy counts live documents created by the agent.
func (r *PostgresDocumentRepository) CountCreatedBy(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE created_by = $1 AND status != 'deleted'`, agentID).Scan(&count)
	if err != nil {
		return 0, &domain.DatabaseError{Message: "count documents by creator", Err: err}
	}
	return count, nil
}

// HardDelete removes the document row. Versions and ACL rows cascade.
func (r *PostgresDocumentRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return &domain.DatabaseError{Message: "hard delete document", Err: err}
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}

	return nil
}
