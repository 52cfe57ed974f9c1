package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/sfadvisor/internal/core/auth"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// =============================================================================
// Deployment Handlers
// =============================================================================

// handleCreateDeployment queues a deployment run of the session's package.
// The runner picks it up; the response is 202 with the pending run.
func (h *Handler) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var req CreateDeploymentRequest
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &req) {
		return
	}
	components := metadata.AllComponents()
	if req.Components != nil {
		components = *req.Components
	}

	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	dep, err := h.queueDeployment(r.Context(), session, components)
	if err != nil {
		h.writeDomainError(w, err, "failed to create deployment")
		return
	}
	h.writeJSON(w, http.StatusAccepted, newDeploymentResponse(dep))
}

// queueDeployment freezes the selected components of a submitted session
// into a pending run for the connected org.
func (h *Handler) queueDeployment(ctx context.Context, session *wizard.Session, components metadata.Selection) (*domain.Deployment, error) {
	sel, err := h.selectionFor(ctx, session)
	if err != nil {
		return nil, err
	}

	org, err := h.orgForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if err := org.CheckDeploy(components); err != nil {
		return nil, err
	}

	pkg := metadata.NewGenerator(org.APIVersion()).Package(sel.Modules, sel.Industry).Filter(components)
	dep, err := domain.NewDeployment(session.ID, org.ID, sel.Domain, sel.ModuleNames(), pkg)
	if err != nil {
		return nil, err
	}
	if err := h.store.CreateDeployment(ctx, dep); err != nil {
		return nil, err
	}

	h.logger.Info("deployment queued",
		"deployment_id", dep.ID,
		"session_id", session.ID,
		"components", len(dep.Components),
	)
	return dep, nil
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	opts := listOptions(r)
	deps, err := h.store.ListDeploymentsBySession(r.Context(), session.ID, opts)
	if err != nil {
		h.writeDomainError(w, err, "failed to list deployments")
		return
	}

	resp := DeploymentsResponse{
		Deployments: make([]DeploymentResponse, 0, len(deps)),
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}
	for i := range deps {
		resp.Deployments = append(resp.Deployments, newDeploymentResponse(&deps[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleGetDeployment is visible to admins and to the session that created
// the run. Other callers get 404.
func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dep, err := h.store.GetDeployment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err, "failed to get deployment")
		return
	}

	if !auth.CanViewDeployment(auth.FromContext(ctx), requestSessionID(r), *dep) {
		h.writeError(w, http.StatusNotFound, store.ErrNotFound.Error(), "not_found")
		return
	}

	h.writeJSON(w, http.StatusOK, newDeploymentResponse(dep))
}

func (h *Handler) handleRetryDeployment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dep, err := h.store.GetDeployment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err, "failed to get deployment")
		return
	}

	sessionID := requestSessionID(r)
	if !auth.CanViewDeployment(auth.FromContext(ctx), sessionID, *dep) {
		h.writeError(w, http.StatusNotFound, store.ErrNotFound.Error(), "not_found")
		return
	}
	if !auth.CanManageDeployment(sessionID, *dep) {
		h.writeError(w, http.StatusForbidden, "not authorized", "forbidden")
		return
	}

	if err := h.retryDeployment(ctx, dep); err != nil {
		h.writeDomainError(w, err, "failed to retry deployment")
		return
	}
	h.writeJSON(w, http.StatusAccepted, newDeploymentResponse(dep))
}

// retryDeployment puts a failed run back in the queue.
func (h *Handler) retryDeployment(ctx context.Context, dep *domain.Deployment) error {
	if err := dep.Retry(); err != nil {
		return err
	}
	if err := h.store.UpdateDeployment(ctx, dep); err != nil {
		return err
	}
	h.logger.Info("deployment retried", "deployment_id", dep.ID, "attempts", dep.Attempts)
	return nil
}

func newDeploymentResponse(d *domain.Deployment) DeploymentResponse {
	steps := make([]StepStatus, len(domain.ProgressSteps))
	for i, name := range domain.ProgressSteps {
		steps[i] = StepStatus{Name: name, Completed: d.StepCompleted(i)}
	}
	succeeded := d.Succeeded()
	return DeploymentResponse{
		Deployment:  *d,
		Progress:    d.Progress(),
		CurrentStep: d.CurrentStep(),
		Steps:       steps,
		Succeeded:   succeeded,
		Failed:      len(d.Results) - succeeded,
	}
}
