package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/plan"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// =============================================================================
// Catalog Handlers
// =============================================================================

func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}
	h.writeJSON(w, http.StatusOK, DomainsResponse{Domains: cat.Domains})
}

func (h *Handler) handleListIndustries(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}

	domainName := chi.URLParam(r, "domain")
	if !cat.HasDomain(domainName) {
		h.writeError(w, http.StatusNotFound, "domain not found", "domain_not_found")
		return
	}

	industries := cat.IndustriesFor(domainName)
	if industries == nil {
		industries = []string{}
	}
	h.writeJSON(w, http.StatusOK, IndustriesResponse{Domain: domainName, Industries: industries})
}

// handleListModules never fails on unknown keys; it answers with an empty list.
func (h *Handler) handleListModules(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}

	domainName := r.URL.Query().Get("domain")
	industry := r.URL.Query().Get("industry")
	h.writeJSON(w, http.StatusOK, ModulesResponse{
		Domain:   domainName,
		Industry: industry,
		Modules:  cat.ModulesFor(domainName, industry),
	})
}

// =============================================================================
// Session Handlers
// =============================================================================

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}

	session := wizard.NewSession()
	if err := h.store.CreateSession(r.Context(), session); err != nil {
		h.writeDomainError(w, err, "failed to create session")
		return
	}

	h.logger.Info("session created", "session_id", session.ID)
	h.writeJSON(w, http.StatusCreated, newSessionResponse(cat, session))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(cat, session))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectDomain(w http.ResponseWriter, r *http.Request) {
	var req SelectDomainRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.mutateSession(w, r, func(cat catalog.Catalog, s *wizard.Session) error {
		return s.SelectDomain(cat, req.Domain)
	})
}

func (h *Handler) handleSelectIndustry(w http.ResponseWriter, r *http.Request) {
	var req SelectIndustryRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.mutateSession(w, r, func(cat catalog.Catalog, s *wizard.Session) error {
		return s.SelectIndustry(cat, req.Industry)
	})
}

func (h *Handler) handleToggleModule(w http.ResponseWriter, r *http.Request) {
	var req ToggleModuleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.mutateSession(w, r, func(cat catalog.Catalog, s *wizard.Session) error {
		return s.ToggleModule(cat, req.Module)
	})
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	h.mutateSession(w, r, func(_ catalog.Catalog, s *wizard.Session) error {
		s.Back()
		return nil
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.mutateSession(w, r, func(cat catalog.Catalog, s *wizard.Session) error {
		return s.Submit(cat)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.mutateSession(w, r, func(_ catalog.Catalog, s *wizard.Session) error {
		s.Reset()
		return nil
	})
}

// mutateSession loads the catalog and session, applies fn and persists the
// result. Nothing is saved when fn fails.
func (h *Handler) mutateSession(w http.ResponseWriter, r *http.Request, fn func(catalog.Catalog, *wizard.Session) error) {
	cat, session, err := h.updateSession(r.Context(), chi.URLParam(r, "id"), fn)
	if err != nil {
		h.writeDomainError(w, err, "failed to update session")
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(cat, session))
}

// updateSession loads the session and the catalog, applies fn and saves the
// session in one transaction. Nothing is saved when fn fails.
func (h *Handler) updateSession(ctx context.Context, id string, fn func(catalog.Catalog, *wizard.Session) error) (catalog.Catalog, *wizard.Session, error) {
	var (
		cat     catalog.Catalog
		session *wizard.Session
	)
	err := h.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		if cat, err = tx.LoadCatalog(ctx); err != nil {
			return err
		}
		if session, err = tx.GetSession(ctx, id); err != nil {
			return err
		}
		if err := fn(cat, session); err != nil {
			return err
		}
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	return cat, session, nil
}

func newSessionResponse(cat catalog.Catalog, s *wizard.Session) SessionResponse {
	resp := SessionResponse{Session: *s, StepName: s.Step.String()}
	if s.Domain != "" {
		resp.Industries = cat.IndustriesFor(s.Domain)
	}
	if s.Industry != "" {
		resp.AvailableModules = s.AvailableModules(cat)
	}
	return resp
}

// =============================================================================
// Questionnaire Handlers
// =============================================================================

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, newQuestionsResponse(session))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	answer := wizard.Answer{Value: req.Value, Values: req.Values, Scale: req.Scale}
	_, session, err := h.updateSession(r.Context(), chi.URLParam(r, "id"), func(_ catalog.Catalog, s *wizard.Session) error {
		return s.Answer(chi.URLParam(r, "questionID"), answer)
	})
	if err != nil {
		h.writeDomainError(w, err, "failed to save answer")
		return
	}

	h.writeJSON(w, http.StatusOK, newQuestionsResponse(session))
}

func newQuestionsResponse(s *wizard.Session) QuestionsResponse {
	questions := wizard.QuestionsFor(s.Domain, s.Industry)
	answered, total := wizard.Progress(questions, s.Answers)
	answers := s.Answers
	if answers == nil {
		answers = map[string]wizard.Answer{}
	}
	return QuestionsResponse{Questions: questions, Answers: answers, Answered: answered, Total: total}
}

// =============================================================================
// Plan Handlers
// =============================================================================

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.submittedSelection(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, PlanResponse{Plan: plan.Build(sel)})
}

func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.submittedSelection(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, plan.Recommend(sel))
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.submittedSelection(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, plan.BuildTimeline(sel.Modules))
}

// handleSuggestions only needs an industry; unknown industries get the
// generic suggestions.
func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if session.Industry == "" {
		h.writeError(w, http.StatusConflict, "select an industry first", "wrong_step")
		return
	}
	h.writeJSON(w, http.StatusOK, plan.Suggest(session.Industry))
}

// submittedSelection resolves the selection of a session that reached the
// plan step.
func (h *Handler) submittedSelection(w http.ResponseWriter, r *http.Request) (wizard.Selection, bool) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return wizard.Selection{}, false
	}
	sel, err := h.selectionFor(r.Context(), session)
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return wizard.Selection{}, false
	}
	return sel, true
}

func (h *Handler) selectionFor(ctx context.Context, session *wizard.Session) (wizard.Selection, error) {
	if !session.IsSubmitted() {
		return wizard.Selection{}, wizard.ErrWrongStep
	}
	cat, err := h.loadCatalog(ctx)
	if err != nil {
		return wizard.Selection{}, err
	}
	return session.Selection(cat), nil
}
