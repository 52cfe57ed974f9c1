package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/sfadvisor/internal/core/auth"
	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/plan"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	"github.com/artpar/sfadvisor/internal/shell/cache"
	"github.com/artpar/sfadvisor/internal/shell/salesforce"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

const (
	testSecret   = "test-secret"
	testPassword = "s3cret-admin"
)

var (
	hashOnce     sync.Once
	testPassHash string
)

// adminPasswordHash hashes the test password once; argon2id is slow.
func adminPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		hash, err := auth.HashPassword(testPassword)
		require.NoError(t, err)
		testPassHash = hash
	})
	return testPassHash
}

// failingStore wraps a store and fails selected operations.
type failingStore struct {
	store.Store
	pingErr error
}

func (s *failingStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.Store.Ping(ctx)
}

// countingCache records cache traffic.
type countingCache struct {
	cache.Cache
	mu   sync.Mutex
	hits int
	sets int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.Cache.Get(ctx, key)
	c.mu.Lock()
	if ok {
		c.hits++
	}
	c.mu.Unlock()
	return v, ok, err
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Cache.Set(ctx, key, value, ttl)
}

type testEnv struct {
	h     *Handler
	store *store.SQLiteStore
	cache *countingCache
	srv   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.SeedCatalog(context.Background(), catalog.Default())
	require.NoError(t, err)

	c := &countingCache{Cache: cache.NewMemoryCache(0, 0)}
	h := NewHandler(Config{
		Store:             s,
		Connector:         salesforce.NewMockConnector(salesforce.MockConfig{}),
		Cache:             c,
		JWTSecret:         []byte(testSecret),
		AdminPasswordHash: adminPasswordHash(t),
		TokenTTL:          time.Hour,
	})
	return &testEnv{h: h, store: s, cache: c, srv: h.Routes()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

func parseResponse[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(body).Decode(&v))
	return v
}

// leadManagementComponents is the full component list generated for the
// seeded Sales/Technology "Lead Management" module.
func leadManagementComponents(t *testing.T) []metadata.ComponentRef {
	t.Helper()
	m, ok := catalog.Default().FindModule("Sales", "Technology", "Lead Management")
	require.True(t, ok)
	return metadata.NewGenerator("").Package([]catalog.Module{m}, "Technology").Components()
}

func sessionPathFor(id string) string {
	return "/api/v1/sessions/" + id
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return parseResponse[SessionResponse](t, w.Body).ID
}

// submittedSession walks a new session to the plan step with the given modules.
func (e *testEnv) submittedSession(t *testing.T, modules ...string) string {
	t.Helper()
	id := e.createSession(t)
	p := sessionPathFor(id)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, p+"/domain", SelectDomainRequest{Domain: "Sales"}).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, p+"/industry", SelectIndustryRequest{Industry: "Technology"}).Code)
	for _, m := range modules {
		require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: m}).Code)
	}
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, p+"/submit", nil).Code)
	return id
}

func (e *testEnv) connect(t *testing.T, sessionID string) {
	t.Helper()
	w := e.do(t, http.MethodPost, sessionPathFor(sessionID)+"/org/connect", ConnectOrgRequest{Method: "oauth"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/admin/login", LoginRequest{Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	return "Bearer " + parseResponse[LoginResponse](t, w.Body).Token
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHealth_Success(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", parseResponse[HealthResponse](t, w.Body).Status)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestReady_Success(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[ReadyResponse](t, w.Body)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
}

func TestReady_DatabaseDown(t *testing.T) {
	e := newTestEnv(t)
	h := NewHandler(Config{
		Store:     &failingStore{Store: e.store, pingErr: errors.New("closed")},
		Connector: salesforce.NewMockConnector(salesforce.MockConfig{}),
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := parseResponse[ReadyResponse](t, w.Body)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "failed", resp.Checks["database"])
}

func TestOpenAPI_DescribesRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/openapi.json", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	assert.Contains(t, doc.Paths, "/api/v1/sessions/{id}/package.zip")
	assert.Contains(t, doc.Paths["/api/v1/deployments/{id}/retry"], "post")
	assert.Contains(t, doc.Paths["/api/v1/admin/domains/{domain}/industries/{industry}/modules/{index}"], "patch")
}

// =============================================================================
// Catalog Tests
// =============================================================================

func TestListDomains(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/catalog/domains", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, catalog.Default().Domains, parseResponse[DomainsResponse](t, w.Body).Domains)
}

func TestListIndustries(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/catalog/domains/Sales/industries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[IndustriesResponse](t, w.Body)
	assert.Contains(t, resp.Industries, "Technology")

	w = e.do(t, http.MethodGet, "/api/v1/catalog/domains/Nope/industries", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "domain_not_found", parseResponse[ErrorResponse](t, w.Body).Code)
}

func TestListModules_UnknownKeysAreEmpty(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/catalog/modules?domain=Sales&industry=Technology", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, parseResponse[ModulesResponse](t, w.Body).Modules)

	w = e.do(t, http.MethodGet, "/api/v1/catalog/modules?domain=Sales&industry=Nowhere", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, parseResponse[ModulesResponse](t, w.Body).Modules)
}

// =============================================================================
// Wizard Tests
// =============================================================================

func TestWizard_FullFlow(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)
	p := sessionPathFor(id)

	w := e.do(t, http.MethodPost, p+"/domain", SelectDomainRequest{Domain: "Sales"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[SessionResponse](t, w.Body)
	assert.Equal(t, wizard.StepIndustry, resp.Step)
	assert.Equal(t, "industry", resp.StepName)
	assert.Contains(t, resp.Industries, "Technology")

	w = e.do(t, http.MethodPost, p+"/industry", SelectIndustryRequest{Industry: "Technology"})
	require.Equal(t, http.StatusOK, w.Code)
	resp = parseResponse[SessionResponse](t, w.Body)
	assert.Equal(t, wizard.StepModules, resp.Step)
	assert.NotEmpty(t, resp.AvailableModules)

	e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: "Lead Management"})
	e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: "Opportunity Management"})
	w = e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: "Lead Management"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Opportunity Management"}, parseResponse[SessionResponse](t, w.Body).SelectedModules)

	w = e.do(t, http.MethodPost, p+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wizard.StepPlan, parseResponse[SessionResponse](t, w.Body).Step)

	// Persisted
	w = e.do(t, http.MethodGet, p, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := parseResponse[SessionResponse](t, w.Body)
	assert.Equal(t, "Sales", got.Domain)
	assert.Equal(t, "Technology", got.Industry)
	assert.Equal(t, wizard.StepPlan, got.Step)
}

func TestWizard_Errors(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)
	p := sessionPathFor(id)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown domain", p + "/domain", SelectDomainRequest{Domain: "Nope"}, http.StatusBadRequest, "unknown_domain"},
		{"industry before domain", p + "/industry", SelectIndustryRequest{Industry: "Technology"}, http.StatusConflict, "wrong_step"},
		{"toggle before industry", p + "/modules/toggle", ToggleModuleRequest{Module: "Lead Management"}, http.StatusConflict, "wrong_step"},
		{"submit at domain step", p + "/submit", nil, http.StatusConflict, "wrong_step"},
		{"unknown session", sessionPathFor("missing") + "/back", nil, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, parseResponse[ErrorResponse](t, w.Body).Code)
		})
	}
}

func TestWizard_InvalidJSON(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	req := httptest.NewRequest(http.MethodPost, sessionPathFor(id)+"/domain", strings.NewReader("{"))
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", parseResponse[ErrorResponse](t, w.Body).Code)
}

func TestWizard_SubmitRequiresModules(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)
	p := sessionPathFor(id)
	e.do(t, http.MethodPost, p+"/domain", SelectDomainRequest{Domain: "Sales"})
	e.do(t, http.MethodPost, p+"/industry", SelectIndustryRequest{Industry: "Technology"})

	w := e.do(t, http.MethodPost, p+"/submit", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_modules_selected", parseResponse[ErrorResponse](t, w.Body).Code)
}

func TestWizard_ModuleDeletedAfterSelection(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)
	p := sessionPathFor(id)
	e.do(t, http.MethodPost, p+"/domain", SelectDomainRequest{Domain: "Sales"})
	e.do(t, http.MethodPost, p+"/industry", SelectIndustryRequest{Industry: "Technology"})
	w := e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: "Lead Management"})
	require.Equal(t, http.StatusOK, w.Code)

	// Lead Management is the first Sales/Technology module.
	w = e.do(t, http.MethodDelete, "/api/v1/admin/domains/Sales/industries/Technology/modules/0", nil, "Authorization", e.adminToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, p+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_modules_selected", parseResponse[ErrorResponse](t, w.Body).Code)

	w = e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: "Lead Management"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, parseResponse[SessionResponse](t, w.Body).SelectedModules)
}

func TestWizard_ConcurrentTogglesKeepEverySelection(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)
	p := sessionPathFor(id)
	e.do(t, http.MethodPost, p+"/domain", SelectDomainRequest{Domain: "Sales"})
	e.do(t, http.MethodPost, p+"/industry", SelectIndustryRequest{Industry: "Technology"})

	modules := []string{"Lead Management", "Opportunity Management", "CPQ (Configure, Price, Quote)"}
	codes := make([]int, len(modules))
	var wg sync.WaitGroup
	for i, name := range modules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = e.do(t, http.MethodPost, p+"/modules/toggle", ToggleModuleRequest{Module: name}).Code
		}()
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	w := e.do(t, http.MethodGet, p, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, modules, parseResponse[SessionResponse](t, w.Body).SelectedModules)
}

func TestWizard_BackAndReset(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")
	p := sessionPathFor(id)

	w := e.do(t, http.MethodPost, p+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[SessionResponse](t, w.Body)
	assert.Equal(t, wizard.StepModules, resp.Step)
	assert.Equal(t, []string{"Lead Management"}, resp.SelectedModules)

	w = e.do(t, http.MethodPost, p+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = parseResponse[SessionResponse](t, w.Body)
	assert.Equal(t, wizard.StepDomain, resp.Step)
	assert.Empty(t, resp.Domain)
	assert.Empty(t, resp.SelectedModules)
}

func TestDeleteSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, sessionPathFor(id), nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, sessionPathFor(id), nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, sessionPathFor(id), nil).Code)
}

// =============================================================================
// Questionnaire Tests
// =============================================================================

func TestQuestions_AnswerAndProgress(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")
	p := sessionPathFor(id)

	w := e.do(t, http.MethodGet, p+"/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := parseResponse[QuestionsResponse](t, w.Body)
	assert.Zero(t, before.Answered)
	assert.Equal(t, len(before.Questions), before.Total)

	w = e.do(t, http.MethodPut, p+"/answers/team_size", AnswerRequest{Value: "6-20"})
	require.Equal(t, http.StatusOK, w.Code)
	after := parseResponse[QuestionsResponse](t, w.Body)
	assert.Equal(t, 1, after.Answered)
	assert.Equal(t, "6-20", after.Answers["team_size"].Value)

	w = e.do(t, http.MethodPut, p+"/answers/team_size", AnswerRequest{Value: "huge"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_answer", parseResponse[ErrorResponse](t, w.Body).Code)

	w = e.do(t, http.MethodPut, p+"/answers/no_such_question", AnswerRequest{Value: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_question", parseResponse[ErrorResponse](t, w.Body).Code)
}

// =============================================================================
// Plan Tests
// =============================================================================

func TestPlan_RequiresSubmittedSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	for _, path := range []string{"/plan", "/recommendations", "/timeline", "/package", "/package.zip"} {
		w := e.do(t, http.MethodGet, sessionPathFor(id)+path, nil)
		assert.Equal(t, http.StatusConflict, w.Code, path)
	}
}

func TestPlan_Outputs(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management", "Opportunity Management")
	p := sessionPathFor(id)

	w := e.do(t, http.MethodGet, p+"/plan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pl := parseResponse[PlanResponse](t, w.Body)
	require.Len(t, pl.Modules, 2)
	assert.Equal(t, "Lead Management", pl.Modules[0].Name)
	assert.Equal(t, "2-4 weeks", pl.Modules[0].EstimatedTimeline)
	assert.Equal(t, "3-4 people", pl.Modules[1].TeamSize)

	w = e.do(t, http.MethodGet, p+"/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs := parseResponse[plan.Recommendations](t, w.Body)
	assert.NotEmpty(t, recs.Objects)

	w = e.do(t, http.MethodGet, p+"/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tl := parseResponse[plan.Timeline](t, w.Body)
	assert.Positive(t, tl.TotalWeeks)
	assert.Empty(t, tl.Warnings)

	w = e.do(t, http.MethodGet, p+"/suggestions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, parseResponse[plan.Suggestions](t, w.Body).BestPractices)
}

func TestSuggestions_RequireIndustry(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	w := e.do(t, http.MethodGet, sessionPathFor(id)+"/suggestions", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// =============================================================================
// Metadata Package Tests
// =============================================================================

func TestPackage_JSON(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")

	w := e.do(t, http.MethodGet, sessionPathFor(id)+"/package?documents=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[PackageResponse](t, w.Body)
	assert.Equal(t, metadata.DefaultAPIVersion, resp.APIVersion)
	assert.Equal(t, 1, resp.Counts[metadata.KindCustomObject])
	assert.Equal(t, leadManagementComponents(t), resp.Components)
	for _, key := range metadata.DocumentKeys {
		assert.Contains(t, resp.Documents, key)
	}
	assert.Contains(t, resp.Documents[metadata.DocPackage], "<version>"+metadata.DefaultAPIVersion+"</version>")
}

func TestPackage_SelectionFromQuery(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")

	w := e.do(t, http.MethodGet, sessionPathFor(id)+"/package?flows=false&rules=0", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[PackageResponse](t, w.Body)
	assert.Zero(t, resp.Counts[metadata.KindFlow])
	assert.Zero(t, resp.Counts[metadata.KindValidationRule])
	assert.Equal(t, 1, resp.Counts[metadata.KindPermissionSet])
	assert.Empty(t, resp.Documents)
}

func TestPackage_FollowsOrgAPIVersion(t *testing.T) {
	e := newTestEnv(t)
	h := NewHandler(Config{
		Store:     e.store,
		Connector: salesforce.NewMockConnector(salesforce.MockConfig{APIVersion: "60.0"}),
	})
	srv := h.Routes()
	id := e.submittedSession(t, "Lead Management")

	req := httptest.NewRequest(http.MethodPost, sessionPathFor(id)+"/org/connect", jsonBody(t, ConnectOrgRequest{Method: "password"}))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, sessionPathFor(id)+"/package", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60.0", parseResponse[PackageResponse](t, w.Body).APIVersion)
}

func TestPackageZip_CachedBundle(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")
	p := sessionPathFor(id) + "/package.zip"

	first := e.do(t, http.MethodGet, p, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "application/zip", first.Header().Get("Content-Type"))
	assert.Contains(t, first.Header().Get("Content-Disposition"), metadata.BundleFileName("Sales", "Technology"))

	zr, err := zip.NewReader(bytes.NewReader(first.Body.Bytes()), int64(first.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, len(metadata.DocumentKeys))

	second := e.do(t, http.MethodGet, p, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, 1, e.cache.hits)
	assert.Equal(t, 1, e.cache.sets)
}

// =============================================================================
// Org Tests
// =============================================================================

func TestOrg_ConnectTestDisconnect(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)
	p := sessionPathFor(id)

	w := e.do(t, http.MethodGet, p+"/org", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.OrgDisconnected, parseResponse[OrgResponse](t, w.Body).Status)

	w = e.do(t, http.MethodPost, p+"/org/connect", ConnectOrgRequest{Method: "oauth"})
	require.Equal(t, http.StatusOK, w.Code)
	org := parseResponse[OrgResponse](t, w.Body)
	assert.Equal(t, domain.OrgConnected, org.Status)
	assert.True(t, org.CanDeploy)
	assert.Equal(t, salesforce.DemoOrgName, org.Info.OrgName)

	w = e.do(t, http.MethodPost, p+"/org/connect", ConnectOrgRequest{Method: "oauth"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, p+"/org/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, parseResponse[OrgResponse](t, w.Body).LastTestedAt)

	w = e.do(t, http.MethodPost, p+"/org/disconnect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	org = parseResponse[OrgResponse](t, w.Body)
	assert.Equal(t, domain.OrgDisconnected, org.Status)
	assert.False(t, org.CanDeploy)

	w = e.do(t, http.MethodPost, p+"/org/test", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "org_not_connected", parseResponse[ErrorResponse](t, w.Body).Code)
}

func TestOrg_InvalidMethod(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	w := e.do(t, http.MethodPost, sessionPathFor(id)+"/org/connect", ConnectOrgRequest{Method: "saml"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_auth_method", parseResponse[ErrorResponse](t, w.Body).Code)
}

// =============================================================================
// Deployment Tests
// =============================================================================

func TestDeployment_CreateAndGet(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")
	e.connect(t, id)

	w := e.do(t, http.MethodPost, sessionPathFor(id)+"/deployments", CreateDeploymentRequest{})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	dep := parseResponse[DeploymentResponse](t, w.Body)
	assert.Equal(t, domain.StatusPending, dep.Status)
	assert.Equal(t, leadManagementComponents(t), dep.Components)
	assert.Len(t, dep.Steps, len(domain.ProgressSteps))
	assert.Zero(t, dep.Progress)

	// Owner via header
	w = e.do(t, http.MethodGet, "/api/v1/deployments/"+dep.ID, nil, HeaderSessionID, id)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dep.ID, parseResponse[DeploymentResponse](t, w.Body).ID)

	// Owner via cookie
	req := httptest.NewRequest(http.MethodGet, "/api/v1/deployments/"+dep.ID, nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Admin
	w = e.do(t, http.MethodGet, "/api/v1/deployments/"+dep.ID, nil, "Authorization", e.adminToken(t))
	assert.Equal(t, http.StatusOK, w.Code)

	// Anyone else
	w = e.do(t, http.MethodGet, "/api/v1/deployments/"+dep.ID, nil, HeaderSessionID, "other")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, sessionPathFor(id)+"/deployments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, parseResponse[DeploymentsResponse](t, w.Body).Deployments, 1)
}

func TestDeployment_SelectedComponents(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")
	e.connect(t, id)

	sel := metadata.Selection{CustomObjects: true}
	w := e.do(t, http.MethodPost, sessionPathFor(id)+"/deployments", CreateDeploymentRequest{Components: &sel})
	require.Equal(t, http.StatusAccepted, w.Code)
	dep := parseResponse[DeploymentResponse](t, w.Body)
	require.Len(t, dep.Components, 1)
	assert.Equal(t, metadata.KindCustomObject, dep.Components[0].Kind)

	w = e.do(t, http.MethodPost, sessionPathFor(id)+"/deployments", CreateDeploymentRequest{Components: &metadata.Selection{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nothing_to_deploy", parseResponse[ErrorResponse](t, w.Body).Code)
}

func TestDeployment_Preconditions(t *testing.T) {
	e := newTestEnv(t)

	notSubmitted := e.createSession(t)
	w := e.do(t, http.MethodPost, sessionPathFor(notSubmitted)+"/deployments", CreateDeploymentRequest{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "wrong_step", parseResponse[ErrorResponse](t, w.Body).Code)

	notConnected := e.submittedSession(t, "Lead Management")
	w = e.do(t, http.MethodPost, sessionPathFor(notConnected)+"/deployments", CreateDeploymentRequest{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "org_not_connected", parseResponse[ErrorResponse](t, w.Body).Code)
}

func TestDeployment_Retry(t *testing.T) {
	e := newTestEnv(t)
	id := e.submittedSession(t, "Lead Management")
	e.connect(t, id)

	w := e.do(t, http.MethodPost, sessionPathFor(id)+"/deployments", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	depID := parseResponse[DeploymentResponse](t, w.Body).ID

	// Pending runs cannot be retried.
	w = e.do(t, http.MethodPost, "/api/v1/deployments/"+depID+"/retry", nil, HeaderSessionID, id)
	assert.Equal(t, http.StatusConflict, w.Code)

	dep, err := e.store.GetDeployment(context.Background(), depID)
	require.NoError(t, err)
	require.NoError(t, dep.Fail("boom"))
	require.NoError(t, e.store.UpdateDeployment(context.Background(), dep))

	// Admins may look but not retry.
	w = e.do(t, http.MethodPost, "/api/v1/deployments/"+depID+"/retry", nil, "Authorization", e.adminToken(t))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/deployments/"+depID+"/retry", nil, HeaderSessionID, id)
	require.Equal(t, http.StatusAccepted, w.Code)
	retried := parseResponse[DeploymentResponse](t, w.Body)
	assert.Equal(t, domain.StatusPending, retried.Status)
	assert.Equal(t, 2, retried.Attempts)
}

// =============================================================================
// Admin Tests
// =============================================================================

func TestAdmin_Login(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/admin/login", LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/admin/login", LoginRequest{Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse[LoginResponse](t, w.Body)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestAdmin_DisabledWithoutConfig(t *testing.T) {
	e := newTestEnv(t)
	h := NewHandler(Config{Store: e.store, Connector: salesforce.NewMockConnector(salesforce.MockConfig{})})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", jsonBody(t, LoginRequest{Password: testPassword}))
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdmin_RequiresToken(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/admin/domains", NameRequest{Name: "Field Service"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/admin/domains", NameRequest{Name: "Field Service"}, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_CatalogEdits(t *testing.T) {
	e := newTestEnv(t)
	token := e.adminToken(t)
	authz := []string{"Authorization", token}

	w := e.do(t, http.MethodPost, "/api/v1/admin/domains", NameRequest{Name: "<b>Field</b> Service"}, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, parseResponse[CatalogResponse](t, w.Body).Domains, "Field Service")

	w = e.do(t, http.MethodPost, "/api/v1/admin/domains", NameRequest{Name: "Field Service"}, authz...)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_domain", parseResponse[ErrorResponse](t, w.Body).Code)

	w = e.do(t, http.MethodPost, "/api/v1/admin/domains/Field%20Service/industries", NameRequest{Name: "Utilities & Energy"}, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Utilities & Energy"}, parseResponse[CatalogResponse](t, w.Body).Industries["Field Service"])

	base := "/api/v1/admin/domains/Field%20Service/industries/Utilities%20&%20Energy/modules"
	w = e.do(t, http.MethodPost, base, NameRequest{Name: "Work Orders"}, authz...)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPatch, base+"/0", UpdateModuleRequest{Field: "complexity", Value: "High"}, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	cat := parseResponse[CatalogResponse](t, w.Body)
	mods := cat.Modules["Field Service"]["Utilities & Energy"]
	require.Len(t, mods, 1)
	assert.Equal(t, catalog.ComplexityHigh, mods[0].Complexity)

	w = e.do(t, http.MethodPatch, base+"/0", UpdateModuleRequest{Field: "complexity", Value: "Extreme"}, authz...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, base+"/x", UpdateModuleRequest{Field: "name", Value: "y"}, authz...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Edits are visible to the wizard.
	w = e.do(t, http.MethodGet, "/api/v1/catalog/modules?domain=Field%20Service&industry=Utilities%20%26%20Energy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, parseResponse[ModulesResponse](t, w.Body).Modules, 1)

	w = e.do(t, http.MethodDelete, base+"/0", nil, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodDelete, base+"/0", nil, authz...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodDelete, "/api/v1/admin/domains/Field%20Service", nil, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, parseResponse[CatalogResponse](t, w.Body).Domains, "Field Service")
}

func TestAdmin_ExportImport(t *testing.T) {
	e := newTestEnv(t)
	authz := []string{"Authorization", e.adminToken(t)}

	w := e.do(t, http.MethodGet, "/api/v1/admin/export", nil, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), catalog.ExportFileName)
	snapshot, err := catalog.DecodeSnapshot(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, catalog.Default().Domains, snapshot.Domains)

	w = e.do(t, http.MethodPost, "/api/v1/admin/import", catalog.Snapshot{Domains: []string{"Sales"}, Industries: map[string][]string{"Sales": {"Technology"}}, Modules: map[string]map[string][]catalog.Module{}}, authz...)
	require.Equal(t, http.StatusOK, w.Code)
	cat := parseResponse[CatalogResponse](t, w.Body)
	assert.Equal(t, []string{"Sales"}, cat.Domains)
	assert.Zero(t, cat.ModuleCount)

	// Industries pointing at unknown domains are rejected and nothing changes.
	w = e.do(t, http.MethodPost, "/api/v1/admin/import", catalog.Snapshot{Industries: map[string][]string{"Ghost": {"X"}}}, authz...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/catalog/domains", nil)
	assert.Equal(t, []string{"Sales"}, parseResponse[DomainsResponse](t, w.Body).Domains)

	w = e.do(t, http.MethodPost, "/api/v1/admin/import", catalog.Snapshot{Industries: map[string][]string{"Sales": {"Technology", "Technology"}}}, authz...)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_industry", parseResponse[ErrorResponse](t, w.Body).Code)

	w = e.do(t, http.MethodPost, "/api/v1/admin/import", "not a snapshot", authz...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
