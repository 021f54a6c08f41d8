package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/repository/postgres/migrations"
	"docvault/internal/vault"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the environment and builds the logger shared by every
// command.
func setup() (*config.Config, *slog.Logger) {
	// Missing .env is fine in production.
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if cfg.Environment == "dev" {
		if f, err := config.SetupLogFile("logs", 10); err == nil {
			out = io.MultiWriter(os.Stdout, f)
		} else {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	return cfg, logger
}

func openSQL(cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

var rootCmd = &cobra.Command{
	Use:   "docvault",
	Short: "Multi-tenant versioned document store administration",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		db, err := openSQL(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			return err
		}

		version, dirty, err := migrations.Version(db)
		if err != nil {
			return err
		}

		logger.Info("migrations applied", "version", version, "dirty", dirty)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report schema version and verify connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		db, err := openSQL(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		version, dirty, err := migrations.Version(db)
		if err != nil {
			return err
		}
		logger.Info("schema status", "version", version, "dirty", dirty)

		ctx := context.Background()
		client, err := vault.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		orgs, err := client.Organizations.List(ctx, 1, 0)
		if err != nil {
			return err
		}
		logger.Info("store reachable", "sample_organizations", len(orgs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
}
