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

// PostgresOrganizationRepository implements the OrganizationRepository
// interface.
type PostgresOrganizationRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(config *RepositoryConfig) repositories.OrganizationRepository {
	return &PostgresOrganizationRepository{pool: config.Pool, logger: config.Logger}
}

// Create inserts an organization row. The ID is externally issued, so
// the caller supplies it.
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, metadata)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, org.ID, org.Metadata).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ValidationError{Message: fmt.Sprintf("organization %s already registered", org.ID)}
		}
		return &domain.DatabaseError{Message: "create organization", Err: err}
	}

	return nil
}

// GetByID retrieves an organization by ID.
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT id, metadata, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	var org models.Organization
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&org.ID, &org.Metadata, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", id)}
		}
		return nil, &domain.DatabaseError{Message: "get organization", Err: err}
	}

	return &org, nil
}

// Update rewrites the organization's metadata.
func (r *PostgresOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET metadata = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, org.Metadata, org.ID).Scan(&org.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", org.ID)}
		}
		return &domain.DatabaseError{Message: "update organization", Err: err}
	}

	return nil
}

// Delete removes the organization row. Agents, documents, versions and
// ACL rows cascade.
func (r *PostgresOrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return &domain.DatabaseError{Message: "delete organization", Err: err}
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", id)}
	}

	return nil
}

// List returns organizations ordered by creation time, newest first.
func (r *PostgresOrganizationRepository) List(ctx context.Context, limit, offset int) ([]models.Organization, error) {
	query := `
		SELECT id, metadata, created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, &domain.DatabaseError{Message: "list organizations", Err: err}
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Metadata, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, &domain.DatabaseError{Message: "scan organization", Err: err}
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Message: "iterate organizations", Err: err}
	}

	if orgs == nil {
		orgs = []models.Organization{}
	}

	return orgs, nil
}
