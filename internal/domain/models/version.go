package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType records why a version was created.
type ChangeType string

const (
	ChangeCreate  ChangeType = "create"
	ChangeUpdate  ChangeType = "update"
	ChangeRestore ChangeType = "restore"
)

// DocumentVersion is an immutable content snapshot. Version numbers for
// a document form a contiguous ascending sequence starting at 1; once
// written, the storage path and file size never change. A restore
// produces a new version record rather than mutating an old one.
type DocumentVersion struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	DocumentID        uuid.UUID      `json:"document_id" db:"document_id"`
	VersionNumber     int            `json:"version_number" db:"version_number"`
	Filename          string         `json:"filename" db:"filename"`
	FileSize          int64          `json:"file_size" db:"file_size"`
	MimeType          string         `json:"mime_type" db:"mime_type"`
	StoragePath       string         `json:"storage_path" db:"storage_path"`
	ChangeDescription string         `json:"change_description" db:"change_description"`
	ChangeType        ChangeType     `json:"change_type" db:"change_type"`
	CreatedBy         uuid.UUID      `json:"created_by" db:"created_by"`
	Metadata          map[string]any `json:"metadata" db:"metadata"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
}
