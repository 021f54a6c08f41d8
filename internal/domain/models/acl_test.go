package models

import (
	"errors"
	"testing"
	"time"

	"docvault/internal/domain"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		input   string
		want    Permission
		wantErr bool
	}{
		{input: "READ", want: PermissionRead},
		{input: "read", want: PermissionRead},
		{input: "Admin", want: PermissionAdmin},
		{input: "SHARE", want: PermissionShare},
		{input: "OWNER", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePermission(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePermission(%q) = %v, want error", tt.input, got)
			} else if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ParsePermission(%q) error is not a validation error: %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePermission(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePermission(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestACLExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no expiry never expires", expiresAt: nil, want: false},
		{name: "future expiry is live", expiresAt: &future, want: false},
		{name: "past expiry is expired", expiresAt: &past, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := DocumentACL{ExpiresAt: tt.expiresAt}
			if got := entry.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
