package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"
	"docvault/internal/storage"
)

// fakeState is the shared in-memory database behind the fake
// repositories. Values are stored by value so a snapshot is a plain
// map copy.
type fakeState struct {
	orgs     map[uuid.UUID]models.Organization
	agents   map[uuid.UUID]models.Agent
	docs     map[uuid.UUID]models.Document
	versions map[uuid.UUID]map[int]models.DocumentVersion
	acls     []models.DocumentACL
}

func newFakeState() *fakeState {
	return &fakeState{
		orgs:     make(map[uuid.UUID]models.Organization),
		agents:   make(map[uuid.UUID]models.Agent),
		docs:     make(map[uuid.UUID]models.Document),
		versions: make(map[uuid.UUID]map[int]models.DocumentVersion),
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.agents {
		c.agents[k] = v
	}
	for k, v := range s.docs {
		c.docs[k] = v
	}
	for docID, byNumber := range s.versions {
		m := make(map[int]models.DocumentVersion, len(byNumber))
		for n, v := range byNumber {
			m[n] = v
		}
		c.versions[docID] = m
	}
	c.acls = append([]models.DocumentACL(nil), s.acls...)
	return c
}

func (s *fakeState) restore(from *fakeState) {
	s.orgs = from.orgs
	s.agents = from.agents
	s.docs = from.docs
	s.versions = from.versions
	s.acls = from.acls
}

// fakeTxManager emulates transactional rollback by snapshotting the
// state before the function runs and restoring it on error. Nested
// calls join the outer "transaction".
type fakeTxManager struct {
	state *fakeState
	depth int
}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if m.depth > 0 {
		m.depth++
		defer func() { m.depth-- }()
		return fn(ctx)
	}

	snapshot := m.state.clone()
	m.depth = 1
	err := fn(ctx)
	m.depth = 0
	if err != nil {
		m.state.restore(snapshot)
		return err
	}
	return nil
}

type fakeOrgRepo struct{ state *fakeState }

func (r *fakeOrgRepo) Create(ctx context.Context, org *models.Organization) error {
	if _, ok := r.state.orgs[org.ID]; ok {
		return &domain.ValidationError{Message: fmt.Sprintf("organization %s already exists", org.ID)}
	}
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now
	r.state.orgs[org.ID] = *org
	return nil
}

func (r *fakeOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, ok := r.state.orgs[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", id)}
	}
	return &org, nil
}

func (r *fakeOrgRepo) Update(ctx context.Context, org *models.Organization) error {
	if _, ok := r.state.orgs[org.ID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", org.ID)}
	}
	org.UpdatedAt = time.Now()
	r.state.orgs[org.ID] = *org
	return nil
}

func (r *fakeOrgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.orgs[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", id)}
	}
	delete(r.state.orgs, id)
	// Emulate foreign-key cascade.
	for agentID, agent := range r.state.agents {
		if agent.OrganizationID == id {
			delete(r.state.agents, agentID)
		}
	}
	for docID, doc := range r.state.docs {
		if doc.OrganizationID == id {
			delete(r.state.docs, docID)
			delete(r.state.versions, docID)
			kept := r.state.acls[:0]
			for _, entry := range r.state.acls {
				if entry.DocumentID != docID {
					kept = append(kept, entry)
				}
			}
			r.state.acls = kept
		}
	}
	return nil
}

func (r *fakeOrgRepo) List(ctx context.Context, limit, offset int) ([]models.Organization, error) {
	orgs := []models.Organization{}
	for _, org := range r.state.orgs {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID.String() < orgs[j].ID.String() })
	return window(orgs, limit, offset), nil
}

type fakeAgentRepo struct{ state *fakeState }

func (r *fakeAgentRepo) Create(ctx context.Context, agent *models.Agent) error {
	if _, ok := r.state.agents[agent.ID]; ok {
		return &domain.ValidationError{Message: fmt.Sprintf("agent %s already exists", agent.ID)}
	}
	if _, ok := r.state.orgs[agent.OrganizationID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", agent.OrganizationID)}
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	r.state.agents[agent.ID] = *agent
	return nil
}

func (r *fakeAgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	agent, ok := r.state.agents[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", id)}
	}
	return &agent, nil
}

func (r *fakeAgentRepo) Update(ctx context.Context, agent *models.Agent) error {
	if _, ok := r.state.agents[agent.ID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", agent.ID)}
	}
	agent.UpdatedAt = time.Now()
	r.state.agents[agent.ID] = *agent
	return nil
}

func (r *fakeAgentRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	agent, ok := r.state.agents[id]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", id)}
	}
	agent.IsActive = active
	agent.UpdatedAt = time.Now()
	r.state.agents[id] = agent
	return nil
}

func (r *fakeAgentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.agents[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("agent %s not found", id)}
	}
	delete(r.state.agents, id)
	kept := r.state.acls[:0]
	for _, entry := range r.state.acls {
		if entry.AgentID != id {
			kept = append(kept, entry)
		}
	}
	r.state.acls = kept
	return nil
}

func (r *fakeAgentRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Agent, error) {
	agents := []models.Agent{}
	for _, agent := range r.state.agents {
		if agent.OrganizationID == orgID {
			agents = append(agents, agent)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID.String() < agents[j].ID.String() })
	return window(agents, limit, offset), nil
}

func (r *fakeAgentRepo) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	count := 0
	for _, agent := range r.state.agents {
		if agent.OrganizationID == orgID {
			count++
		}
	}
	return count, nil
}

type fakeDocRepo struct{ state *fakeState }

func (r *fakeDocRepo) Create(ctx context.Context, doc *models.Document) error {
	if _, ok := r.state.orgs[doc.OrganizationID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("organization %s not found", doc.OrganizationID)}
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	r.state.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, ok := r.state.docs[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	return &doc, nil
}

func (r *fakeDocRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeDocRepo) Update(ctx context.Context, doc *models.Document) error {
	if _, ok := r.state.docs[doc.ID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", doc.ID)}
	}
	doc.UpdatedAt = time.Now()
	r.state.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, updatedBy uuid.UUID) error {
	doc, ok := r.state.docs[id]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	doc.Status = status
	doc.UpdatedBy = updatedBy
	doc.UpdatedAt = time.Now()
	r.state.docs[id] = doc
	return nil
}

func (r *fakeDocRepo) FindByNameInOrg(ctx context.Context, orgID uuid.UUID, name string, prefix *string) (*models.Document, error) {
	for _, doc := range r.state.docs {
		if doc.OrganizationID != orgID || doc.Name != name || doc.Deleted() {
			continue
		}
		if prefix != nil && doc.Prefix != *prefix {
			continue
		}
		found := doc
		return &found, nil
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %q not found in organization %s", name, orgID)}
}

func (r *fakeDocRepo) live(orgID uuid.UUID) []models.Document {
	docs := []models.Document{}
	for _, doc := range r.state.docs {
		if doc.OrganizationID == orgID && !doc.Deleted() {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

func (r *fakeDocRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID, opts repositories.ListOptions) ([]models.Document, error) {
	docs := []models.Document{}
	for _, doc := range r.state.docs {
		if doc.OrganizationID != orgID {
			continue
		}
		if opts.Status != nil {
			if doc.Status != *opts.Status {
				continue
			}
		} else if doc.Deleted() {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return window(docs, opts.Limit, opts.Offset), nil
}

func (r *fakeDocRepo) ListByPrefix(ctx context.Context, orgID uuid.UUID, prefix string, limit, offset int) ([]models.Document, error) {
	docs := []models.Document{}
	for _, doc := range r.live(orgID) {
		if doc.Prefix == prefix {
			docs = append(docs, doc)
		}
	}
	return window(docs, limit, offset), nil
}

func (r *fakeDocRepo) ListRecursive(ctx context.Context, orgID uuid.UUID, prefix string, maxDepth *int, limit, offset int) ([]models.Document, error) {
	docs := []models.Document{}
	for _, doc := range r.live(orgID) {
		if !strings.HasPrefix(doc.Path, prefix) {
			continue
		}
		if maxDepth != nil {
			rest := strings.TrimPrefix(doc.Path, prefix)
			if segmentCount(rest) > *maxDepth {
				continue
			}
		}
		docs = append(docs, doc)
	}
	return window(docs, limit, offset), nil
}

func (r *fakeDocRepo) ListByTags(ctx context.Context, orgID uuid.UUID, tags []string, limit, offset int) ([]models.Document, error) {
	docs := []models.Document{}
	for _, doc := range r.live(orgID) {
		match := false
		for _, tag := range doc.Tags {
			for _, want := range tags {
				if tag == want {
					match = true
				}
			}
		}
		if match {
			docs = append(docs, doc)
		}
	}
	return window(docs, limit, offset), nil
}

func (r *fakeDocRepo) SearchByName(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]models.Document, error) {
	docs := []models.Document{}
	for _, doc := range r.live(orgID) {
		if strings.Contains(strings.ToLower(doc.Name), strings.ToLower(query)) {
			docs = append(docs, doc)
		}
	}
	return window(docs, limit, 0), nil
}

func (r *fakeDocRepo) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	return len(r.live(orgID)), nil
}

func (r *fakeDocRepo) CountCreatedBy(ctx context.Context, agentID uuid.UUID) (int, error) {
	count := 0
	for _, doc := range r.state.docs {
		if doc.CreatedBy == agentID && !doc.Deleted() {
			count++
		}
	}
	return count, nil
}

func (r *fakeDocRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.docs[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	delete(r.state.docs, id)
	delete(r.state.versions, id)
	kept := r.state.acls[:0]
	for _, entry := range r.state.acls {
		if entry.DocumentID != id {
			kept = append(kept, entry)
		}
	}
	r.state.acls = kept
	return nil
}

type fakeVersionRepo struct{ state *fakeState }

func (r *fakeVersionRepo) Create(ctx context.Context, v *models.DocumentVersion) error {
	byNumber, ok := r.state.versions[v.DocumentID]
	if !ok {
		byNumber = make(map[int]models.DocumentVersion)
		r.state.versions[v.DocumentID] = byNumber
	}
	if _, exists := byNumber[v.VersionNumber]; exists {
		return &domain.DatabaseError{
			Message: fmt.Sprintf("version %d already exists for document %s", v.VersionNumber, v.DocumentID),
		}
	}
	v.CreatedAt = time.Now()
	byNumber[v.VersionNumber] = *v
	return nil
}

func (r *fakeVersionRepo) GetByDocumentAndVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*models.DocumentVersion, error) {
	v, ok := r.state.versions[documentID][versionNumber]
	if !ok {
		return nil, &domain.NotFoundError{
			Message: fmt.Sprintf("version %d of document %s not found", versionNumber, documentID),
		}
	}
	return &v, nil
}

func (r *fakeVersionRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	versions := []models.DocumentVersion{}
	for _, v := range r.state.versions[documentID] {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].VersionNumber < versions[j].VersionNumber })
	return versions, nil
}

func (r *fakeVersionRepo) MaxVersionNumber(ctx context.Context, documentID uuid.UUID) (int, error) {
	max := 0
	for n := range r.state.versions[documentID] {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (r *fakeVersionRepo) UpdateCurrent(ctx context.Context, v *models.DocumentVersion) error {
	if _, ok := r.state.versions[v.DocumentID][v.VersionNumber]; !ok {
		return &domain.NotFoundError{
			Message: fmt.Sprintf("version %d of document %s not found", v.VersionNumber, v.DocumentID),
		}
	}
	r.state.versions[v.DocumentID][v.VersionNumber] = *v
	return nil
}

type fakeACLRepo struct {
	state *fakeState
	// checkErr makes CheckPermission fail, for exercising fail-closed
	// behavior.
	checkErr error
}

func (r *fakeACLRepo) Create(ctx context.Context, entry *models.DocumentACL) error {
	for _, existing := range r.state.acls {
		if existing.DocumentID == entry.DocumentID && existing.AgentID == entry.AgentID && existing.Permission == entry.Permission {
			return &domain.ValidationError{
				Message: fmt.Sprintf("agent %s already holds %s on document %s", entry.AgentID, entry.Permission, entry.DocumentID),
			}
		}
	}
	if _, ok := r.state.agents[entry.AgentID]; !ok {
		return &domain.NotFoundError{Message: "document or agent not found"}
	}
	entry.GrantedAt = time.Now()
	r.state.acls = append(r.state.acls, *entry)
	return nil
}

func (r *fakeACLRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentACL, error) {
	entries := []models.DocumentACL{}
	for _, entry := range r.state.acls {
		if entry.DocumentID == documentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *fakeACLRepo) ListByDocumentAndAgent(ctx context.Context, documentID, agentID uuid.UUID) ([]models.DocumentACL, error) {
	entries := []models.DocumentACL{}
	for _, entry := range r.state.acls {
		if entry.DocumentID == documentID && entry.AgentID == agentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *fakeACLRepo) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.DocumentACL, error) {
	now := time.Now()
	entries := []models.DocumentACL{}
	for _, entry := range r.state.acls {
		if entry.AgentID == agentID && !entry.Expired(now) {
			entries = append(entries, entry)
		}
	}
	return window(entries, limit, 0), nil
}

func (r *fakeACLRepo) CheckPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) (bool, error) {
	if r.checkErr != nil {
		return false, r.checkErr
	}
	now := time.Now()
	for _, entry := range r.state.acls {
		if entry.DocumentID != documentID || entry.AgentID != agentID || entry.Expired(now) {
			continue
		}
		if entry.Permission == permission || entry.Permission == models.PermissionAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeACLRepo) DeleteByDocumentAgentPermission(ctx context.Context, documentID, agentID uuid.UUID, permission models.Permission) error {
	kept := r.state.acls[:0]
	for _, entry := range r.state.acls {
		if entry.DocumentID == documentID && entry.AgentID == agentID && entry.Permission == permission {
			continue
		}
		kept = append(kept, entry)
	}
	r.state.acls = kept
	return nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func segmentCount(path string) int {
	count := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			count++
		}
	}
	return count
}

// fixture wires the full service graph onto the fakes.
type fixture struct {
	state *fakeState
	store *storage.MemoryStore
	acl   *fakeACLRepo
	tx    *fakeTxManager

	orgs      services.OrganizationService
	agents    services.AgentService
	documents services.DocumentService
	access    services.AccessService
	versions  services.VersionService
}

const testBucketPrefix = "docvault-test"

func newFixture() *fixture {
	state := newFakeState()
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orgRepo := &fakeOrgRepo{state: state}
	agentRepo := &fakeAgentRepo{state: state}
	docRepo := &fakeDocRepo{state: state}
	versionRepo := &fakeVersionRepo{state: state}
	aclRepo := &fakeACLRepo{state: state}
	tx := &fakeTxManager{state: state}

	access := NewAccessService(aclRepo, docRepo, agentRepo, tx, logger)
	versions := NewVersionService(docRepo, versionRepo, tx, store, testBucketPrefix, logger)
	documents := NewDocumentService(docRepo, versionRepo, aclRepo, access, versions, tx, store, testBucketPrefix, logger)
	orgs := NewOrganizationService(orgRepo, agentRepo, docRepo, store, testBucketPrefix, logger)
	agents := NewAgentService(agentRepo, orgRepo, docRepo, aclRepo, logger)

	return &fixture{
		state:     state,
		store:     store,
		acl:       aclRepo,
		tx:        tx,
		orgs:      orgs,
		agents:    agents,
		documents: documents,
		access:    access,
		versions:  versions,
	}
}

// seedOrgAndAgents registers an organization with n agents and returns
// their IDs.
func (f *fixture) seedOrgAndAgents(ctx context.Context, n int) (uuid.UUID, []uuid.UUID, error) {
	orgID := uuid.New()
	if _, err := f.orgs.Register(ctx, &services.RegisterOrganizationRequest{ID: orgID}); err != nil {
		return uuid.Nil, nil, err
	}

	agentIDs := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		agentID := uuid.New()
		if _, err := f.agents.Register(ctx, &services.RegisterAgentRequest{
			ID:             agentID,
			OrganizationID: orgID,
		}); err != nil {
			return uuid.Nil, nil, err
		}
		agentIDs = append(agentIDs, agentID)
	}

	return orgID, agentIDs, nil
}

// upload stores content under a name and returns the document.
func (f *fixture) upload(ctx context.Context, orgID, agentID uuid.UUID, name, content string) (*models.Document, error) {
	return f.documents.Upload(ctx, &services.UploadRequest{
		Content:        strings.NewReader(content),
		Size:           int64(len(content)),
		Name:           name,
		OrganizationID: orgID,
		AgentID:        agentID,
	})
}
