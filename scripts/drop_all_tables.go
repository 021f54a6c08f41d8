package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	// Child tables first, then the migration bookkeeping table.
	dropSQL := `
		DROP TABLE IF EXISTS document_acl CASCADE;
		DROP TABLE IF EXISTS document_versions CASCADE;
		DROP TABLE IF EXISTS documents CASCADE;
		DROP TABLE IF EXISTS agents CASCADE;
		DROP TABLE IF EXISTS organizations CASCADE;
		DROP TABLE IF EXISTS schema_migrations CASCADE;
	`

	if _, err := db.Exec(dropSQL); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Println("All tables dropped successfully")
}
