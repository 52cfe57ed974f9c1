package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	"github.com/artpar/sfadvisor/internal/shell/salesforce"
)

// browser replays the session cookie like a web browser would.
type browser struct {
	t      *testing.T
	srv    http.Handler
	cookie *http.Cookie
}

func newBrowser(t *testing.T, e *testEnv) *browser {
	return &browser{t: t, srv: e.srv}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.srv.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

// postRedirect posts a form and returns the redirect target.
func (b *browser) postRedirect(path string, form url.Values) string {
	b.t.Helper()
	w := b.post(path, form)
	require.Equal(b.t, http.StatusSeeOther, w.Code, w.Body.String())
	return w.Header().Get("Location")
}

func (b *browser) sessionID() string {
	require.NotNil(b.t, b.cookie)
	return b.cookie.Value
}

func TestWebUI_StartsSession(t *testing.T) {
	e := newTestEnv(t)
	b := newBrowser(t, e)

	w := b.get("/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Which business area")
	assert.Contains(t, w.Body.String(), `value="Sales"`)
	require.NotNil(t, b.cookie)
	assert.True(t, b.cookie.HttpOnly)

	// Same session on the next visit.
	id := b.sessionID()
	b.get("/")
	assert.Equal(t, id, b.sessionID())
}

func TestWebUI_StaleCookieGetsNewSession(t *testing.T) {
	e := newTestEnv(t)
	b := newBrowser(t, e)
	b.cookie = &http.Cookie{Name: SessionCookie, Value: "gone"}

	w := b.get("/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "gone", b.sessionID())
}

func TestWebUI_WizardToDeployment(t *testing.T) {
	e := newTestEnv(t)
	b := newBrowser(t, e)
	b.get("/")

	assert.Equal(t, "/", b.postRedirect("/wizard/domain", url.Values{"domain": {"Sales"}}))
	assert.Contains(t, b.get("/").Body.String(), `value="Technology"`)

	assert.Equal(t, "/", b.postRedirect("/wizard/industry", url.Values{"industry": {"Technology"}}))
	assert.Contains(t, b.get("/").Body.String(), "Lead Management")

	assert.Equal(t, "/", b.postRedirect("/wizard/toggle", url.Values{"module": {"Lead Management"}}))
	assert.Equal(t, "/plan", b.postRedirect("/wizard/submit", nil))

	w := b.get("/")
	assert.Equal(t, http.StatusSeeOther, w.Code)

	plan := b.get("/plan")
	require.Equal(t, http.StatusOK, plan.Code)
	assert.Contains(t, plan.Body.String(), "Lead Management")
	assert.Contains(t, plan.Body.String(), "2-4 weeks")

	deploy := b.get("/deploy")
	require.Equal(t, http.StatusOK, deploy.Code)
	assert.Contains(t, deploy.Body.String(), "/package.zip")

	// Deploying before connecting shows the error on the deploy page.
	target := b.postRedirect("/deploy", url.Values{"objects": {"1"}})
	assert.True(t, strings.HasPrefix(target, "/deploy?error="), target)
	assert.Contains(t, b.get(target).Body.String(), domain.ErrOrgNotConnected.Error())

	assert.Equal(t, "/deploy", b.postRedirect("/deploy/connect", url.Values{"method": {"oauth"}}))
	assert.Contains(t, b.get("/deploy").Body.String(), salesforce.DemoOrgName)

	target = b.postRedirect("/deploy", url.Values{"objects": {"1"}, "flows": {"1"}})
	require.True(t, strings.HasPrefix(target, "/deployments/"), target)

	progress := b.get(target)
	require.Equal(t, http.StatusOK, progress.Code)
	body := progress.Body.String()
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, domain.ProgressSteps[0])
}

func TestWebUI_ValidationErrorRedirects(t *testing.T) {
	e := newTestEnv(t)
	b := newBrowser(t, e)
	b.get("/")

	target := b.postRedirect("/wizard/industry", url.Values{"industry": {"Technology"}})

	assert.Equal(t, "/?error="+url.QueryEscape(wizard.ErrWrongStep.Error()), target)
	assert.Contains(t, b.get(target).Body.String(), "not allowed at the current step")
}

func TestWebUI_PlanRedirectsUnfinishedWizard(t *testing.T) {
	e := newTestEnv(t)
	b := newBrowser(t, e)

	w := b.get("/plan")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestWebUI_Questions(t *testing.T) {
	e := newTestEnv(t)
	b := newBrowser(t, e)
	b.get("/")
	b.postRedirect("/wizard/domain", url.Values{"domain": {"Sales"}})

	w := b.get("/questions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="team_size"`)

	assert.Equal(t, "/", b.postRedirect("/questions", url.Values{"team_size": {"6-20"}}))

	session, err := e.store.GetSession(t.Context(), b.sessionID())
	require.NoError(t, err)
	assert.Equal(t, "6-20", session.Answers["team_size"].Value)

	target := b.postRedirect("/questions", url.Values{"team_size": {"lots"}})
	assert.True(t, strings.HasPrefix(target, "/questions?error="), target)
}

func TestWebUI_ForeignDeploymentIsHidden(t *testing.T) {
	e := newTestEnv(t)
	owner := e.submittedSession(t, "Lead Management")
	e.connect(t, owner)
	w := e.do(t, http.MethodPost, sessionPathFor(owner)+"/deployments", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	depID := parseResponse[DeploymentResponse](t, w.Body).ID

	b := newBrowser(t, e)
	assert.Equal(t, http.StatusNotFound, b.get("/deployments/"+depID).Code)

	b.cookie = &http.Cookie{Name: SessionCookie, Value: owner}
	assert.Equal(t, http.StatusOK, b.get("/deployments/"+depID).Code)
}

func TestWebUI_StaticAssets(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/static/style.css", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".topbar")
}
