// Package vault assembles the document store into a single embeddable
// client. Host applications open a Client and reach every service
// through it; there is no network surface in between.
package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"docvault/internal/config"
	"docvault/internal/domain/services"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// Client is the assembled document store. Version content is reached
// through Documents, which checks the acting agent's grants; the raw
// version store is not exposed.
type Client struct {
	Organizations services.OrganizationService
	Agents        services.AgentService
	Documents     services.DocumentService
	Access        services.AccessService

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to the database and object store and wires the service
// graph. The caller owns the returned Client and must Close it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	return newClient(pool, store, cfg.BucketPrefix, logger), nil
}

func newClient(pool *pgxpool.Pool, store storage.ObjectStore, bucketPrefix string, logger *slog.Logger) *Client {
	repoCfg := &postgres.RepositoryConfig{Pool: pool, Logger: logger}

	orgRepo := postgres.NewOrganizationRepository(repoCfg)
	agentRepo := postgres.NewAgentRepository(repoCfg)
	docRepo := postgres.NewDocumentRepository(repoCfg)
	versionRepo := postgres.NewVersionRepository(repoCfg)
	aclRepo := postgres.NewACLRepository(repoCfg)
	txManager := postgres.NewTransactionManager(pool, logger)

	access := service.NewAccessService(aclRepo, docRepo, agentRepo, txManager, logger)
	versions := service.NewVersionService(docRepo, versionRepo, txManager, store, bucketPrefix, logger)
	documents := service.NewDocumentService(docRepo, versionRepo, aclRepo, access, versions, txManager, store, bucketPrefix, logger)
	organizations := service.NewOrganizationService(orgRepo, agentRepo, docRepo, store, bucketPrefix, logger)
	agents := service.NewAgentService(agentRepo, orgRepo, docRepo, aclRepo, logger)

	return &Client{
		Organizations: organizations,
		Agents:        agents,
		Documents:     documents,
		Access:        access,
		pool:          pool,
		logger:        logger,
	}
}

// Close releases the database pool.
func (c *Client) Close() {
	c.pool.Close()
}
