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

const aclColumns = `id, document_id, agent_id, permission, granted_by, expires_at, metadata, granted_at`

// PostgresACLRepository implements the ACLRepository interface.
type PostgresACLRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewACLRepository creates a new ACL repository.
func NewACLRepository(config *RepositoryConfig) repositories.ACLRepository {
	return &PostgresACLRepository{pool: config.Pool, logger: config.Logger}
}

func scanACL(row interface{ Scan(...any) error }, entry *models.DocumentACL) error {
	return row.Scan(
		&entry.ID,
		&entry.DocumentID,
		&entry.AgentID,
		&entry.Permission,
		&entry.GrantedBy,
		&entry.ExpiresAt,
		&entry.Metadata,
		&entry.GrantedAt,
	)
}

// Create inserts a grant. The (document_id, agent_id, permission)
// unique constraint makes repeated grants fail; callers delete first
// when re-granting with new expiry.
func (r *PostgresACLRepository) Create(ctx context.Context, entry *models.DocumentACL) error {
	query := `
		INSERT INTO document_acl (id, document_id, agent_id, permission, granted_by, expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING granted_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		entry.ID,
		entry.DocumentID,
		entry.AgentID,
		entry.Permission,
		entry.GrantedBy,
		entry.ExpiresAt,
		entry.Metadata,
	).Scan(&entry.GrantedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("agent %s already holds %s on document %s", entry.AgentID, entry.Permission, entry.DocumentID),
			}
		}
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: "document or agent not found"}
		}
		return &domain.DatabaseError{Message: "create acl entry", Err: err}
	}

	return nil
}

func (r *PostgresACLRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.DocumentACL, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.DatabaseError{Message: "list acl entries", Err: err}
	}
	defer rows.Close()

	var entries []models.DocumentACL
	for rows.Next() {
		var entry models.DocumentACL
		if err := scanACL(rows, &entry); err != nil {
			return nil, &domain.DatabaseError{Message: "scan acl entry", Err: err}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Message: "iterate acl entries", Err: err}
	}

	if entries == nil {
		entries = []models.DocumentACL{}
	}

	return entries, nil
}

// ListByDocument returns every grant on the document, including
// expired ones. Expiry is a check-time concern.
func (r *PostgresACLRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentACL, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM document_acl
		WHERE document_id = $1
		ORDER BY granted_at ASC
	`, aclColumns)

	return r.queryEntries(ctx, query, documentID)
}

// ListByDocumentAndAgent returns one agent's grants on a document.
func (r *PostgresACLRepository) ListByDocumentAndAgent(ctx context.Context, documentID, agentID uuid.UUID) ([]models.DocumentACL, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM document_acl
		WHERE document_id = $1 AND agent_id = $2
		ORDER BY granted_at ASC
	`, aclColumns)

	return r.queryEntries(ctx, query, documentID, agentID)
}

// ListByAgent returns the agent's unexpired grants across all
// documents, most recent first.
func (r *PostgresACLRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.DocumentACL, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM document_acl
		WHERE agent_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY granted_at DESC
		LIMIT $2
	`, aclColumns)

	return r.queryEntries(ctx, query, agentID, limit)
}

// CheckPermission reports whether the agent holds the permission on
// the document. An unexpired ADMIN grant satisfies any requested
// permission; expired grants never match.
func (r *PostgresACLRepository) CheckPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM document_acl
			WHERE document_id = $1
			  AND agent_id = $2
			  AND permission IN ($3, 'ADMIN')
			  AND (expires_at IS NULL OR expires_at > NOW())
		)
	`

	var granted bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, documentID, agentID, permission).Scan(&granted); err != nil {
		return false, &domain.DatabaseError{Message: "check permission", Err: err}
	}

	return granted, nil
}

// DeleteByDocumentAgentPermission removes a specific grant. Removing a
// grant that does not exist is not an error.
func (r *PostgresACLRepository) DeleteByDocumentAgentPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) error {
	query := `
		DELETE FROM document_acl
		WHERE document_id = $1 AND agent_id = $2 AND permission = $3
	`

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID, agentID, permission); err != nil {
		return &domain.DatabaseError{Message: "delete acl entry", Err: err}
	}

	return nil
}
