package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/services"
)

func (f *fixture) addVersion(ctx context.Context, docID, agentID uuid.UUID, filename, content string) (*models.DocumentVersion, error) {
	return f.versions.CreateVersion(ctx, &services.CreateVersionRequest{
		DocumentID: docID,
		Content:    strings.NewReader(content),
		Size:       int64(len(content)),
		Filename:   filename,
		CreatedBy:  agentID,
	})
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	return string(data)
}

func TestVersionNumbersAreContiguous(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	owner := agents[0]

	doc, err := f.upload(ctx, orgID, owner, "notes.txt", "first")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	for i, content := range []string{"second", "third", "fourth"} {
		v, err := f.addVersion(ctx, doc.ID, owner, "notes.txt", content)
		if err != nil {
			t.Fatalf("version %d: %v", i+2, err)
		}
		if v.VersionNumber != i+2 {
			t.Fatalf("VersionNumber = %d, want %d", v.VersionNumber, i+2)
		}
		if v.ChangeType != models.ChangeUpdate {
			t.Errorf("ChangeType = %s, want %s", v.ChangeType, models.ChangeUpdate)
		}
	}

	// A restore allocates the next number in the same sequence.
	restored, err := f.versions.RestoreVersion(ctx, &services.RestoreVersionRequest{
		DocumentID:    doc.ID,
		VersionNumber: 2,
		RestoredBy:    owner,
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.VersionNumber != 5 {
		t.Errorf("restored VersionNumber = %d, want 5", restored.VersionNumber)
	}
	if restored.ChangeType != models.ChangeRestore {
		t.Errorf("ChangeType = %s, want %s", restored.ChangeType, models.ChangeRestore)
	}

	history, err := f.versions.ListVersions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	for i, v := range history {
		if want := i + 1; v.VersionNumber != want {
			t.Errorf("history[%d].VersionNumber = %d, want %d", i, v.VersionNumber, want)
		}
	}
}

func TestRestorePreservesHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	owner := agents[0]

	doc, err := f.upload(ctx, orgID, owner, "notes.txt", "original")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := f.addVersion(ctx, doc.ID, owner, "notes.txt", "edited"); err != nil {
		t.Fatalf("second version: %v", err)
	}

	restored, err := f.versions.RestoreVersion(ctx, &services.RestoreVersionRequest{
		DocumentID:    doc.ID,
		VersionNumber: 1,
		RestoredBy:    owner,
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ChangeDescription != "Restored from version 1" {
		t.Errorf("ChangeDescription = %q", restored.ChangeDescription)
	}

	// Current content is the original again, the intermediate edit is
	// still downloadable, and the source blob was copied, not moved.
	rc, current, err := f.documents.Download(ctx, doc.ID, owner, nil)
	if err != nil {
		t.Fatalf("download current: %v", err)
	}
	if got := readAll(t, rc); got != "original" {
		t.Errorf("current content = %q, want %q", got, "original")
	}
	if current.VersionNumber != 3 {
		t.Errorf("current VersionNumber = %d, want 3", current.VersionNumber)
	}

	for n, want := range map[int]string{1: "original", 2: "edited", 3: "original"} {
		version := n
		rc, _, err := f.documents.Download(ctx, doc.ID, owner, &version)
		if err != nil {
			t.Fatalf("download v%d: %v", n, err)
		}
		if got := readAll(t, rc); got != want {
			t.Errorf("v%d content = %q, want %q", n, got, want)
		}
	}
}

func TestReplaceCurrentKeepsVersionNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	owner := agents[0]

	doc, err := f.upload(ctx, orgID, owner, "notes.txt", "draft")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	replaced, err := f.versions.ReplaceCurrent(ctx, &services.CreateVersionRequest{
		DocumentID: doc.ID,
		Content:    strings.NewReader("draft, corrected"),
		Size:       int64(len("draft, corrected")),
		Filename:   "notes.txt",
		CreatedBy:  owner,
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.VersionNumber != 1 {
		t.Errorf("VersionNumber = %d, want 1", replaced.VersionNumber)
	}

	history, err := f.versions.ListVersions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}

	rc, _, err := f.documents.Download(ctx, doc.ID, owner, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if got := readAll(t, rc); got != "draft, corrected" {
		t.Errorf("content = %q, want replacement", got)
	}
}

func TestCreateVersionRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	owner := agents[0]

	doc, err := f.upload(ctx, orgID, owner, "notes.txt", "first")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	f.store.FailPuts(errors.New("bucket unreachable"))
	_, err = f.addVersion(ctx, doc.ID, owner, "notes.txt", "second")
	if err == nil {
		t.Fatal("expected storage failure")
	}
	f.store.FailPuts(nil)

	// Neither a version row nor a current-version bump may survive the
	// failed write.
	history, err := f.versions.ListVersions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length after rollback = %d, want 1", len(history))
	}
	after, err := f.documents.GetDocumentDetails(ctx, &services.DetailsRequest{DocumentID: doc.ID, AgentID: owner})
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if after.CurrentVersion != 1 {
		t.Errorf("CurrentVersion after rollback = %d, want 1", after.CurrentVersion)
	}

	// The sequence continues cleanly once storage recovers.
	v, err := f.addVersion(ctx, doc.ID, owner, "notes.txt", "second")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if v.VersionNumber != 2 {
		t.Errorf("VersionNumber after retry = %d, want 2", v.VersionNumber)
	}
}

func TestGetVersionUnknownNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orgID, agents, err := f.seedOrgAndAgents(ctx, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	doc, err := f.upload(ctx, orgID, agents[0], "notes.txt", "first")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := f.versions.GetVersion(ctx, doc.ID, 7); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
