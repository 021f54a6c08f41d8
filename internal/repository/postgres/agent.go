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

// PostgresAgentRepository implements the AgentRepository interface.
type PostgresAgentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAgentRepository creates a new agent repository.
func NewAgentRepository(config *RepositoryConfig) repositories.AgentRepository {
	return &PostgresAgentRepository{pool: config.Pool, logger: config.Logger}
}

// Create inserts an agent row bound to its organization.
func (r *PostgresAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	query := `
		INSERT INTO agents (id, organization_id, metadata, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		agent.ID,
		agent.OrganizationID,
		agent.Metadata,
		agent.IsActive,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ValidationError{Message: fmt.Sprintf("agent %s already registered", agent.ID)}
		}
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", agent.OrganizationID)}
		}
		return &domain.DatabaseError{Message: "create agent", Err: err}
	}

	return nil
}

// GetByID retrieves an agent by ID.
func (r *PostgresAgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	query := `
		SELECT id, organization_id, metadata, is_active, created_at, updated_at
		FROM agents
		WHERE id = $1
	`

	var agent models.Agent
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&agent.ID,
		&agent.OrganizationID,
		&agent.Metadata,
		&agent.IsActive,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", id)}
		}
		return nil, &domain.DatabaseError{Message: "get agent", Err: err}
	}

	return &agent, nil
}

// Update rewrites the agent's metadata. The organization binding is
// immutable and never touched here.
func (r *PostgresAgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	query := `
		UPDATE agents
		SET metadata = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, agent.Metadata, agent.ID).Scan(&agent.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", agent.ID)}
		}
		return &domain.DatabaseError{Message: "update agent", Err: err}
	}

	return nil
}

// SetActive flips the soft-removal flag.
func (r *PostgresAgentRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE agents
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2
	`

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, active, id)
	if err != nil {
		return &domain.DatabaseError{Message: "set agent active", Err: err}
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", id)}
	}

	return nil
}

// Delete hard-removes the agent row.
func (r *PostgresAgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return &domain.DatabaseError{Message: "delete agent", Err: err}
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", id)}
	}

	return nil
}

// ListByOrganization returns the organization's agents, newest first.
func (r *PostgresAgentRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Agent, error) {
	query := `
		SELECT id, organization_id, metadata, is_active, created_at, updated_at
		FROM agents
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, &domain.DatabaseError{Message: "list agents", Err: err}
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		var agent models.Agent
		err := rows.Scan(
			&agent.ID,
			&agent.OrganizationID,
			&agent.Metadata,
			&agent.IsActive,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		)
		if err != nil {
			return nil, &domain.DatabaseError{Message: "scan agent", Err: err}
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Message: "iterate agents", Err: err}
	}

	if agents == nil {
		agents = []models.Agent{}
	}

	return agents, nil
}

// CountByOrganization counts agents belonging to the organization.
func (r *PostgresAgentRepository) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE organization_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, &domain.DatabaseError{Message: "count agents", Err: err}
	}
	return count, nil
}
