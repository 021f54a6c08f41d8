package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// DocumentStatus is the document lifecycle state. "deleted" is the
// soft-delete marker: a deleted document is invisible to every normal
// read path.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusActive   DocumentStatus = "active"
	StatusArchived DocumentStatus = "archived"
	StatusDeleted  DocumentStatus = "deleted"
)

// Valid reports whether s is one of the four lifecycle states.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Document is the mutable "current view" of a versioned document. The
// filename, file size, MIME type and storage path mirror the version
// identified by CurrentVersion; they change only through version
// creation, restore, or an explicit in-place replace.
type Document struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OrganizationID uuid.UUID      `json:"organization_id" db:"organization_id"`
	Name           string         `json:"name" db:"name"`
	Description    string         `json:"description" db:"description"`
	Filename       string         `json:"filename" db:"filename"`
	FileSize       int64          `json:"file_size" db:"file_size"`
	MimeType       string         `json:"mime_type" db:"mime_type"`
	StoragePath    string         `json:"storage_path" db:"storage_path"`
	Prefix         string         `json:"prefix,omitempty" db:"prefix"`
	Path           string         `json:"path,omitempty" db:"path"`
	CurrentVersion int            `json:"current_version" db:"current_version"`
	Status         DocumentStatus `json:"status" db:"status"`
	CreatedBy      uuid.UUID      `json:"created_by" db:"created_by"`
	UpdatedBy      uuid.UUID      `json:"updated_by" db:"updated_by"`
	Metadata       map[string]any `json:"metadata" db:"metadata"`
	Tags           []string       `json:"tags" db:"tags"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// Deleted reports whether the document has been soft-deleted.
func (d *Document) Deleted() bool {
	return d.Status == StatusDeleted
}

// ValidatePrefix checks the hierarchical prefix format: must start and
// end with a slash and contain no consecutive slashes. Empty prefix is
// allowed (document lives at the root).
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if !strings.HasPrefix(prefix, "/") {
		return &domain.ValidationError{Message: "prefix must start with /"}
	}
	if !strings.HasSuffix(prefix, "/") {
		return &domain.ValidationError{Message: "prefix must end with /"}
	}
	if strings.Contains(prefix, "//") {
		return &domain.ValidationError{Message: "prefix cannot contain consecutive slashes"}
	}
	return nil
}

// BuildPath computes the full hierarchical path for a document:
// prefix+name when a prefix is set, otherwise "/"+name.
func BuildPath(prefix, name string) string {
	if prefix != "" {
		return prefix + name
	}
	return "/" + name
}

// StorageKey derives the object-store key for a document version:
// "{documentID}/v{versionNumber}/{filename}". Keys embed the document
// and version IDs, so an orphaned blob from a rolled-back transaction
// can never collide with a committed one.
func StorageKey(documentID uuid.UUID, versionNumber int, filename string) string {
	return fmt.Sprintf("%s/v%d/%s", documentID, versionNumber, filename)
}
