package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/domain/services"
	"docvault/internal/storage"
)

func TestRegisterOrganizationTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	id := uuid.New()
	if _, err := f.orgs.Register(ctx, &services.RegisterOrganizationRequest{ID: id}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.orgs.Register(ctx, &services.RegisterOrganizationRequest{ID: id}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("duplicate register: error = %v, want ErrValidation", err)
	}
}

func TestOrganizationUpdateMetadataReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	id := uuid.New()
	if _, err := f.orgs.Register(ctx, &services.RegisterOrganizationRequest{
		ID:       id,
		Metadata: map[string]interface{}{"name": "Acme", "tier": "free"},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	org, err := f.orgs.UpdateMetadata(ctx, id, map[string]interface{}{"name": "Acme"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := org.Metadata["tier"]; ok {
		t.Error("metadata replace kept a stale key")
	}
}

func TestOrganizationDeleteRefusedWhileDocumentsExist(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.upload(ctx, orgID, agents[0], "spec.md", "draft"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := f.orgs.Delete(ctx, orgID, false); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("delete with documents: error = %v, want ErrValidation", err)
	}
	if _, err := f.orgs.Get(ctx, orgID); err != nil {
		t.Fatalf("organization disappeared after refused delete: %v", err)
	}
}

func TestOrganizationDeleteRefusedWhileAgentsExist(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Agents alone block deletion, even with zero documents.
	orgID, _, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.orgs.Delete(ctx, orgID, false); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("delete with agents: error = %v, want ErrValidation", err)
	}
	if err := f.orgs.Delete(ctx, orgID, true); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if _, err := f.orgs.Get(ctx, orgID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("organization lookup: error = %v, want ErrNotFound", err)
	}
}

func TestOrganizationForceDeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 2)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	owner := agents[0]

	doc, err := f.upload(ctx, orgID, owner, "spec.md", "draft")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := f.orgs.Delete(ctx, orgID, true); err != nil {
		t.Fatalf("force delete: %v", err)
	}

	if _, err := f.orgs.Get(ctx, orgID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("organization lookup: error = %v, want ErrNotFound", err)
	}
	if _, err := f.agents.Get(ctx, owner); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("agent lookup: error = %v, want ErrNotFound", err)
	}
	if _, _, err := f.documents.Download(ctx, doc.ID, owner, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("document lookup: error = %v, want ErrNotFound", err)
	}
	if bucket := storage.BucketName(testBucketPrefix, orgID); f.store.ObjectCount(bucket) != 0 {
		t.Errorf("bucket still holds %d objects", f.store.ObjectCount(bucket))
	}
}
