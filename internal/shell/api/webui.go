package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/sfadvisor/internal/core/auth"
	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/plan"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

//go:embed webui/templates/*.html
var templatesFS embed.FS

//go:embed webui/static
var staticFS embed.FS

// sessionCookieMaxAge keeps the wizard cookie for 30 days.
const sessionCookieMaxAge = 30 * 24 * 60 * 60

// Page templates. Each is parsed together with layout.html.
var pageNames = []string{"wizard", "plan", "questions", "deploy", "deployment", "error"}

var templateFuncs = template.FuncMap{
	"percent": func(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) + "%" },
	"join":    strings.Join,
	"count": func(counts map[metadata.Kind]int, kind string) int {
		return counts[metadata.Kind(kind)]
	},
	"time": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04:05")
	},
}

// =============================================================================
// Web UI
// =============================================================================

// webUI serves the server-rendered wizard. The session is tracked with a
// cookie holding the wizard session ID.
type webUI struct {
	h     *Handler
	pages map[string]*template.Template
}

func newWebUI(h *Handler) *webUI {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templatesFS,
			"webui/templates/layout.html",
			"webui/templates/"+name+".html",
		))
	}
	return &webUI{h: h, pages: pages}
}

func (u *webUI) mount(r chi.Router) {
	static, err := fs.Sub(staticFS, "webui/static")
	if err != nil {
		panic(fmt.Sprintf("webui: static assets: %v", err))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", u.handleWizard)
	r.Post("/wizard/{action}", u.handleWizardAction)
	r.Get("/plan", u.handlePlan)
	r.Get("/questions", u.handleQuestions)
	r.Post("/questions", u.handleSaveAnswers)
	r.Get("/deploy", u.handleDeploy)
	r.Post("/deploy", u.handleStartDeployment)
	r.Post("/deploy/{action}", u.handleOrgAction)
	r.Get("/deployments/{id}", u.handleDeployment)
	r.Post("/deployments/{id}/retry", u.handleRetry)
}

// page is the data passed to every template.
type page struct {
	Title   string
	Session *wizard.Session
	Error   string
	Data    any
}

// =============================================================================
// Wizard Pages
// =============================================================================

type moduleOption struct {
	catalog.Module
	Selected bool
}

type wizardData struct {
	Step       string
	Domains    []string
	Industries []string
	Modules    []moduleOption
}

func (u *webUI) handleWizard(w http.ResponseWriter, r *http.Request) {
	session, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return
	}
	if session.IsSubmitted() {
		http.Redirect(w, r, "/plan", http.StatusSeeOther)
		return
	}

	cat, err := u.h.loadCatalog(r.Context())
	if err != nil {
		u.h.logger.Error("failed to load catalog", "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not load the catalog.")
		return
	}

	data := wizardData{Step: session.Step.String(), Domains: cat.Domains}
	if session.Domain != "" {
		data.Industries = cat.IndustriesFor(session.Domain)
	}
	for _, m := range session.AvailableModules(cat) {
		data.Modules = append(data.Modules, moduleOption{Module: m, Selected: session.IsSelected(m.Name)})
	}

	u.render(w, r, "wizard", page{Title: "Plan your Salesforce implementation", Session: session, Data: data})
}

func (u *webUI) handleWizardAction(w http.ResponseWriter, r *http.Request) {
	var apply func(catalog.Catalog, *wizard.Session) error
	switch chi.URLParam(r, "action") {
	case "domain":
		apply = func(cat catalog.Catalog, s *wizard.Session) error {
			return s.SelectDomain(cat, r.FormValue("domain"))
		}
	case "industry":
		apply = func(cat catalog.Catalog, s *wizard.Session) error {
			return s.SelectIndustry(cat, r.FormValue("industry"))
		}
	case "toggle":
		apply = func(cat catalog.Catalog, s *wizard.Session) error {
			return s.ToggleModule(cat, r.FormValue("module"))
		}
	case "back":
		apply = func(_ catalog.Catalog, s *wizard.Session) error {
			s.Back()
			return nil
		}
	case "submit":
		apply = func(cat catalog.Catalog, s *wizard.Session) error {
			return s.Submit(cat)
		}
	case "reset":
		apply = func(_ catalog.Catalog, s *wizard.Session) error {
			s.Reset()
			return nil
		}
	default:
		u.renderError(w, http.StatusNotFound, "Unknown wizard action.")
		return
	}

	current, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return
	}
	_, session, err := u.h.updateSession(r.Context(), current.ID, apply)
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		u.h.logger.Error("failed to update session", "session_id", current.ID, "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not save your progress.")
		return
	}
	if err != nil {
		redirectWithError(w, r, "/", err)
		return
	}

	target := "/"
	if session.IsSubmitted() {
		target = "/plan"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// =============================================================================
// Plan Pages
// =============================================================================

type planData struct {
	Plan            plan.Plan
	Recommendations plan.Recommendations
	Timeline        plan.Timeline
	Suggestions     plan.Suggestions
	Answered        int
	Total           int
}

func (u *webUI) handlePlan(w http.ResponseWriter, r *http.Request) {
	session, sel, ok := u.submitted(w, r)
	if !ok {
		return
	}
	answered, total := wizard.Progress(wizard.QuestionsFor(session.Domain, session.Industry), session.Answers)

	u.render(w, r, "plan", page{
		Title:   "Your implementation plan",
		Session: session,
		Data: planData{
			Plan:            plan.Build(sel),
			Recommendations: plan.Recommend(sel),
			Timeline:        plan.BuildTimeline(sel.Modules),
			Suggestions:     plan.Suggest(sel.Industry),
			Answered:        answered,
			Total:           total,
		},
	})
}

type questionsData struct {
	Questions []wizard.Question
	Answers   map[string]wizard.Answer
	ScaleMin  int
	ScaleMax  int
}

func (u *webUI) handleQuestions(w http.ResponseWriter, r *http.Request) {
	session, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return
	}
	u.render(w, r, "questions", page{
		Title:   "Tell us more",
		Session: session,
		Data: questionsData{
			Questions: wizard.QuestionsFor(session.Domain, session.Industry),
			Answers:   session.Answers,
			ScaleMin:  wizard.ScaleMin,
			ScaleMax:  wizard.ScaleMax,
		},
	})
}

// handleSaveAnswers stores every answered question of the form. Questions
// left blank are skipped.
func (u *webUI) handleSaveAnswers(w http.ResponseWriter, r *http.Request) {
	current, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/questions", err)
		return
	}

	_, session, err := u.h.updateSession(r.Context(), current.ID, func(_ catalog.Catalog, s *wizard.Session) error {
		for _, q := range wizard.QuestionsFor(s.Domain, s.Industry) {
			a := answerFromForm(q, r.PostForm)
			if a.IsEmpty() {
				continue
			}
			if err := s.Answer(q.ID, a); err != nil {
				return fmt.Errorf("%s: %w", q.Question, err)
			}
		}
		return nil
	})
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		u.h.logger.Error("failed to save answers", "session_id", current.ID, "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not save your answers.")
		return
	}
	if err != nil {
		redirectWithError(w, r, "/questions", err)
		return
	}

	target := "/"
	if session.IsSubmitted() {
		target = "/plan"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func answerFromForm(q wizard.Question, form url.Values) wizard.Answer {
	switch q.Type {
	case wizard.MultipleChoice:
		return wizard.Answer{Values: form[q.ID]}
	case wizard.ScaleQuestion:
		scale, _ := strconv.Atoi(form.Get(q.ID))
		return wizard.Answer{Scale: scale}
	default:
		return wizard.Answer{Value: form.Get(q.ID)}
	}
}

// =============================================================================
// Deploy Pages
// =============================================================================

type deployData struct {
	Plan        plan.Plan
	Org         OrgResponse
	Package     PackageResponse
	Deployments []DeploymentResponse
	PackageURL  string
}

func (u *webUI) handleDeploy(w http.ResponseWriter, r *http.Request) {
	session, _, ok := u.submitted(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	org, err := u.h.orgForSession(ctx, session.ID)
	if err != nil {
		u.h.logger.Error("failed to get org connection", "session_id", session.ID, "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not load the org connection.")
		return
	}
	pkg, sel, err := u.h.buildPackage(ctx, session, metadata.AllComponents())
	if err != nil {
		u.h.logger.Error("failed to generate package", "session_id", session.ID, "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not generate the metadata package.")
		return
	}
	deps, err := u.h.store.ListDeploymentsBySession(ctx, session.ID, store.ListOptions{Limit: 10})
	if err != nil {
		u.h.logger.Error("failed to list deployments", "session_id", session.ID, "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not load your deployments.")
		return
	}

	data := deployData{
		Plan:       plan.Build(sel),
		Org:        newOrgResponse(org),
		Package:    PackageResponse{Package: pkg, Counts: pkg.Counts(), Components: pkg.Components()},
		PackageURL: "/api/v1/sessions/" + url.PathEscape(session.ID) + "/package.zip",
	}
	for i := range deps {
		data.Deployments = append(data.Deployments, newDeploymentResponse(&deps[i]))
	}

	u.render(w, r, "deploy", page{Title: "Deploy to Salesforce", Session: session, Data: data})
}

func (u *webUI) handleOrgAction(w http.ResponseWriter, r *http.Request) {
	session, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return
	}
	ctx := r.Context()

	switch chi.URLParam(r, "action") {
	case "connect":
		var method domain.AuthMethod
		if method, err = domain.ParseAuthMethod(r.FormValue("method")); err == nil {
			_, err = u.h.connectOrg(ctx, session.ID, method)
		}
	case "test":
		_, err = u.h.testOrg(ctx, session.ID)
	case "disconnect":
		_, err = u.h.disconnectOrg(ctx, session.ID)
	default:
		u.renderError(w, http.StatusNotFound, "Unknown org action.")
		return
	}
	if err != nil {
		redirectWithError(w, r, "/deploy", err)
		return
	}
	http.Redirect(w, r, "/deploy", http.StatusSeeOther)
}

func (u *webUI) handleStartDeployment(w http.ResponseWriter, r *http.Request) {
	session, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/deploy", err)
		return
	}

	components := metadata.Selection{
		CustomObjects:   r.PostForm.Get("objects") != "",
		Flows:           r.PostForm.Get("flows") != "",
		ValidationRules: r.PostForm.Get("rules") != "",
		PermissionSets:  r.PostForm.Get("permissions") != "",
	}
	dep, err := u.h.queueDeployment(r.Context(), session, components)
	if err != nil {
		redirectWithError(w, r, "/deploy", err)
		return
	}
	http.Redirect(w, r, "/deployments/"+url.PathEscape(dep.ID), http.StatusSeeOther)
}

type deploymentData struct {
	DeploymentResponse
	Active bool
}

func (u *webUI) handleDeployment(w http.ResponseWriter, r *http.Request) {
	session, dep, ok := u.ownDeployment(w, r)
	if !ok {
		return
	}
	u.render(w, r, "deployment", page{
		Title:   "Deployment progress",
		Session: session,
		Data: deploymentData{
			DeploymentResponse: newDeploymentResponse(dep),
			Active:             dep.IsActive(),
		},
	})
}

func (u *webUI) handleRetry(w http.ResponseWriter, r *http.Request) {
	_, dep, ok := u.ownDeployment(w, r)
	if !ok {
		return
	}
	target := "/deployments/" + url.PathEscape(dep.ID)
	if err := u.h.retryDeployment(r.Context(), dep); err != nil {
		redirectWithError(w, r, target, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// =============================================================================
// Helpers
// =============================================================================

// session returns the wizard session of the cookie, starting a new one when
// the cookie is missing or stale.
func (u *webUI) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, error) {
	ctx := r.Context()
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		session, err := u.h.store.GetSession(ctx, c.Value)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			u.h.logger.Error("failed to get session", "error", err)
			return nil, err
		}
	}
	return u.newSession(ctx, w)
}

func (u *webUI) newSession(ctx context.Context, w http.ResponseWriter) (*wizard.Session, error) {
	session := wizard.NewSession()
	if err := u.h.store.CreateSession(ctx, session); err != nil {
		u.h.logger.Error("failed to create session", "error", err)
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	u.h.logger.Info("session created", "session_id", session.ID)
	return session, nil
}

// submitted loads the cookie session and sends unfinished wizards back to
// the start.
func (u *webUI) submitted(w http.ResponseWriter, r *http.Request) (*wizard.Session, wizard.Selection, bool) {
	session, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return nil, wizard.Selection{}, false
	}
	sel, err := u.h.selectionFor(r.Context(), session)
	if errors.Is(err, wizard.ErrWrongStep) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, wizard.Selection{}, false
	}
	if err != nil {
		u.h.logger.Error("failed to load catalog", "error", err)
		u.renderError(w, http.StatusInternalServerError, "Could not load the catalog.")
		return nil, wizard.Selection{}, false
	}
	return session, sel, true
}

// ownDeployment loads the deployment named in the URL when it belongs to the
// cookie session.
func (u *webUI) ownDeployment(w http.ResponseWriter, r *http.Request) (*wizard.Session, *domain.Deployment, bool) {
	session, err := u.session(w, r)
	if err != nil {
		u.renderError(w, http.StatusInternalServerError, "Could not load your session.")
		return nil, nil, false
	}
	dep, err := u.h.store.GetDeployment(r.Context(), chi.URLParam(r, "id"))
	if err != nil || !auth.CanViewDeployment(auth.FromContext(r.Context()), session.ID, *dep) {
		u.renderError(w, http.StatusNotFound, "Deployment not found.")
		return nil, nil, false
	}
	return session, dep, true
}

func (u *webUI) render(w http.ResponseWriter, r *http.Request, name string, p page) {
	if p.Error == "" {
		p.Error = r.URL.Query().Get("error")
	}
	u.write(w, http.StatusOK, name, p)
}

func (u *webUI) renderError(w http.ResponseWriter, status int, message string) {
	u.write(w, status, "error", page{Title: http.StatusText(status), Error: message})
}

func (u *webUI) write(w http.ResponseWriter, status int, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := u.pages[name].ExecuteTemplate(w, "layout", p); err != nil {
		u.h.logger.Error("failed to execute template", "template", name, "error", err)
	}
}

// redirectWithError sends the browser back to target with the error shown
// as a notice.
func redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error) {
	http.Redirect(w, r, target+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
}
