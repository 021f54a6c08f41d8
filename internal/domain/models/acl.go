package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// Permission is a closed enumeration of grant levels. ADMIN carries
// implicit-superset semantics: an unexpired ADMIN grant satisfies a
// check for any level. That rule lives in the ACL repository's check
// query, not at call sites.
type Permission string

const (
	PermissionRead   Permission = "READ"
	PermissionWrite  Permission = "WRITE"
	PermissionDelete Permission = "DELETE"
	PermissionShare  Permission = "SHARE"
	PermissionAdmin  Permission = "ADMIN"
)

// AllPermissions lists every grant level, in check order.
var AllPermissions = []Permission{
	PermissionRead,
	PermissionWrite,
	PermissionDelete,
	PermissionShare,
	PermissionAdmin,
}

// Valid reports whether p is one of the five grant levels.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete, PermissionShare, PermissionAdmin:
		return true
	}
	return false
}

// ParsePermission converts a case-insensitive string to a Permission.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToUpper(s))
	if !p.Valid() {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("invalid permission %q: must be one of READ, WRITE, DELETE, SHARE, ADMIN", s),
		}
	}
	return p, nil
}

// DocumentACL is a single permission grant. Expiration is evaluated at
// check time; expired rows are treated as absent but are not swept.
type DocumentACL struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	DocumentID uuid.UUID      `json:"document_id" db:"document_id"`
	AgentID    uuid.UUID      `json:"agent_id" db:"agent_id"`
	Permission Permission     `json:"permission" db:"permission"`
	GrantedBy  uuid.UUID      `json:"granted_by" db:"granted_by"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty" db:"expires_at"`
	Metadata   map[string]any `json:"metadata" db:"metadata"`
	GrantedAt  time.Time      `json:"granted_at" db:"granted_at"`
}

// Expired reports whether the grant has an expiry in the past relative
// to now.
func (a *DocumentACL) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}
