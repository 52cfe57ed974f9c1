// Package api provides the HTTP surface of the advisor: the JSON API, the
// server-rendered wizard and the OpenAPI document.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	apimw "github.com/artpar/sfadvisor/internal/shell/api/middleware"
	"github.com/artpar/sfadvisor/internal/shell/api/openapi"
	"github.com/artpar/sfadvisor/internal/shell/cache"
	"github.com/artpar/sfadvisor/internal/shell/salesforce"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// Session identification for session-scoped endpoints outside /sessions/{id}.
const (
	SessionCookie   = "sfadvisor_session"
	HeaderSessionID = "X-Session-ID"
)

// =============================================================================
// Handler
// =============================================================================

// Config holds the handler dependencies and settings.
type Config struct {
	Store     store.Store
	Connector salesforce.Connector
	Cache     cache.Cache
	Logger    *slog.Logger

	// JWTSecret signs admin tokens. Admin routes are disabled when empty.
	JWTSecret []byte
	// AdminPasswordHash is the argon2id hash checked by POST /admin/login.
	AdminPasswordHash string
	TokenTTL          time.Duration

	// APIVersion is used for packages generated before an org is connected.
	APIVersion string
	CacheTTL   time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Version is reported in the OpenAPI document.
	Version string
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	store     store.Store
	connector salesforce.Connector
	cache     cache.Cache
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
	openapi   *openapi.Generator
	web       *webUI

	jwtSecret         []byte
	adminPasswordHash string
	tokenTTL          time.Duration
	apiVersion        string
	cacheTTL          time.Duration
	now               func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = metadata.DefaultAPIVersion
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryCache(0, cfg.CacheTTL)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	h := &Handler{
		store:             cfg.Store,
		connector:         cfg.Connector,
		cache:             cfg.Cache,
		logger:            cfg.Logger.With("component", "api"),
		sanitizer:         bluemonday.StrictPolicy(),
		jwtSecret:         cfg.JWTSecret,
		adminPasswordHash: cfg.AdminPasswordHash,
		tokenTTL:          cfg.TokenTTL,
		apiVersion:        cfg.APIVersion,
		cacheTTL:          cfg.CacheTTL,
		now:               cfg.Now,
	}
	var docOpts []openapi.Option
	if cfg.Version != "" {
		docOpts = append(docOpts, openapi.WithVersion(cfg.Version))
	}
	h.openapi = openapi.NewGenerator(docOpts...)
	h.openapi.Register(apiRoutes()...)
	h.web = newWebUI(h)
	return h
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestIDHeader)

	authMW := apimw.NewAuthMiddleware(apimw.AuthConfig{
		Secret: h.jwtSecret,
		Now:    h.now,
		Logger: h.logger,
	})

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/openapi.json", h.openapi.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.jsonContentType)
		r.Use(authMW.Handler)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/domains", h.handleListDomains)
			r.Get("/domains/{domain}/industries", h.handleListIndustries)
			r.Get("/modules", h.handleListModules)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Delete("/", h.handleDeleteSession)
				r.Post("/domain", h.handleSelectDomain)
				r.Post("/industry", h.handleSelectIndustry)
				r.Post("/modules/toggle", h.handleToggleModule)
				r.Post("/back", h.handleBack)
				r.Post("/submit", h.handleSubmit)
				r.Post("/reset", h.handleReset)

				r.Get("/questions", h.handleQuestions)
				r.Put("/answers/{questionID}", h.handleAnswer)

				r.Get("/plan", h.handlePlan)
				r.Get("/recommendations", h.handleRecommendations)
				r.Get("/suggestions", h.handleSuggestions)
				r.Get("/timeline", h.handleTimeline)

				r.Get("/package", h.handlePackage)
				r.Get("/package.zip", h.handlePackageZip)

				r.Get("/org", h.handleGetOrg)
				r.Post("/org/connect", h.handleConnectOrg)
				r.Post("/org/test", h.handleTestOrg)
				r.Post("/org/disconnect", h.handleDisconnectOrg)

				r.Post("/deployments", h.handleCreateDeployment)
				r.Get("/deployments", h.handleListDeployments)
			})
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/{id}", h.handleGetDeployment)
			r.Post("/{id}/retry", h.handleRetryDeployment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.handleAdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(apimw.RequireAdmin(h.logger))

				r.Get("/catalog", h.handleAdminCatalog)
				r.Get("/export", h.handleAdminExport)
				r.Post("/import", h.handleAdminImport)

				r.Post("/domains", h.handleAdminAddDomain)
				r.Delete("/domains/{domain}", h.handleAdminDeleteDomain)
				r.Post("/domains/{domain}/industries", h.handleAdminAddIndustry)
				r.Delete("/domains/{domain}/industries/{industry}", h.handleAdminDeleteIndustry)
				r.Post("/domains/{domain}/industries/{industry}/modules", h.handleAdminAddModule)
				r.Patch("/domains/{domain}/industries/{industry}/modules/{index}", h.handleAdminUpdateModule)
				r.Delete("/domains/{domain}/industries/{industry}/modules/{index}", h.handleAdminDeleteModule)
			})
		})
	})

	h.web.mount(r)

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.store.Ping(r.Context()); err != nil {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Shared Loading
// =============================================================================

func (h *Handler) loadCatalog(ctx context.Context) (catalog.Catalog, error) {
	return h.store.LoadCatalog(ctx)
}

// loadSession fetches the session named by the {id} URL parameter and writes
// the error response when it cannot.
func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	session, err := h.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err, "failed to get session")
		return nil, false
	}
	return session, true
}

// requestSessionID identifies the wizard session making a request.
func requestSessionID(r *http.Request) string {
	if id := r.Header.Get(HeaderSessionID); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// listOptions reads limit/offset query parameters.
func listOptions(r *http.Request) store.ListOptions {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	return opts.Normalize()
}

// =============================================================================
// Response Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a request body into v and writes a 400 on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return false
	}
	return true
}

// errorMapping maps sentinel errors to HTTP statuses and error codes.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{store.ErrDuplicateID, http.StatusConflict, "duplicate"},
	{store.ErrDuplicateSession, http.StatusConflict, "duplicate"},

	{wizard.ErrWrongStep, http.StatusConflict, "wrong_step"},
	{wizard.ErrUnknownDomain, http.StatusBadRequest, "unknown_domain"},
	{wizard.ErrUnknownIndustry, http.StatusBadRequest, "unknown_industry"},
	{wizard.ErrUnknownModule, http.StatusBadRequest, "unknown_module"},
	{wizard.ErrNoModulesSelected, http.StatusBadRequest, "no_modules_selected"},
	{wizard.ErrUnknownQuestion, http.StatusNotFound, "unknown_question"},
	{wizard.ErrInvalidAnswer, http.StatusBadRequest, "invalid_answer"},

	{catalog.ErrDomainNotFound, http.StatusNotFound, "domain_not_found"},
	{catalog.ErrIndustryNotFound, http.StatusNotFound, "industry_not_found"},
	{catalog.ErrModuleNotFound, http.StatusNotFound, "module_not_found"},
	{catalog.ErrDuplicateDomain, http.StatusConflict, "duplicate_domain"},
	{catalog.ErrDuplicateIndustry, http.StatusConflict, "duplicate_industry"},
	{catalog.ErrDuplicateModule, http.StatusConflict, "duplicate_module"},
	{catalog.ErrNameRequired, http.StatusBadRequest, "validation_error"},
	{catalog.ErrInvalidComplexity, http.StatusBadRequest, "validation_error"},
	{catalog.ErrUnknownField, http.StatusBadRequest, "validation_error"},

	{domain.ErrInvalidAuthMethod, http.StatusBadRequest, "invalid_auth_method"},
	{domain.ErrOrgNotConnected, http.StatusConflict, "org_not_connected"},
	{domain.ErrMissingPermission, http.StatusForbidden, "missing_permission"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrNothingToDeploy, http.StatusBadRequest, "nothing_to_deploy"},

	{salesforce.ErrConnectFailed, http.StatusBadGateway, "connect_failed"},
}

// writeDomainError maps known errors to their status; anything else is
// logged and reported as an internal error with the fallback message.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			h.writeError(w, m.status, errorMessage(err, m.err), m.code)
			return
		}
	}
	h.logger.Error(fallback, "error", err)
	h.writeError(w, http.StatusInternalServerError, fallback, "internal_error")
}

// errorMessage hides store internals behind the sentinel text.
func errorMessage(err, sentinel error) string {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Message
	}
	return err.Error()
}
