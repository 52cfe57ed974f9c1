package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// =============================================================================
// Org Connection Handlers
// =============================================================================

// handleGetOrg returns the session's org connection. Sessions that never
// connected get a disconnected placeholder.
func (h *Handler) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	org, err := h.orgForSession(r.Context(), session.ID)
	if err != nil {
		h.writeDomainError(w, err, "failed to get org connection")
		return
	}
	h.writeJSON(w, http.StatusOK, newOrgResponse(org))
}

func (h *Handler) handleConnectOrg(w http.ResponseWriter, r *http.Request) {
	var req ConnectOrgRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	method, err := domain.ParseAuthMethod(req.Method)
	if err != nil {
		h.writeDomainError(w, err, "invalid auth method")
		return
	}

	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	org, err := h.connectOrg(r.Context(), session.ID, method)
	if err != nil {
		h.writeDomainError(w, err, "failed to connect org")
		return
	}
	h.writeJSON(w, http.StatusOK, newOrgResponse(org))
}

func (h *Handler) handleTestOrg(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	org, err := h.testOrg(r.Context(), session.ID)
	if err != nil {
		h.writeDomainError(w, err, "org connection test failed")
		return
	}
	h.writeJSON(w, http.StatusOK, newOrgResponse(org))
}

func (h *Handler) handleDisconnectOrg(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	org, err := h.disconnectOrg(r.Context(), session.ID)
	if err != nil {
		h.writeDomainError(w, err, "failed to disconnect org")
		return
	}
	h.writeJSON(w, http.StatusOK, newOrgResponse(org))
}

// connectOrg runs the connect flow synchronously. Connecting is persisted
// before the connector is called so concurrent readers see it, and a failed
// attempt is recorded as the error state.
func (h *Handler) connectOrg(ctx context.Context, sessionID string, method domain.AuthMethod) (*domain.OrgConnection, error) {
	org, err := h.orgForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := org.BeginConnect(method); err != nil {
		return nil, err
	}
	if err := h.store.SaveOrgConnection(ctx, org); err != nil {
		return nil, err
	}

	info, connectErr := h.connector.Connect(ctx, method)
	if connectErr != nil {
		if err := org.ConnectFailed(connectErr.Error()); err != nil {
			return nil, err
		}
	} else if err := org.Connected(info); err != nil {
		return nil, err
	}

	// The request may be gone after a failed connect; the outcome is
	// still recorded.
	if err := h.store.SaveOrgConnection(context.WithoutCancel(ctx), org); err != nil {
		return nil, err
	}
	if connectErr != nil {
		h.logger.Warn("org connect failed", "session_id", sessionID, "error", connectErr)
		return nil, connectErr
	}

	h.logger.Info("org connected",
		"session_id", sessionID,
		"org_id", org.ID,
		"method", method,
	)
	return org, nil
}

// testOrg checks a connected org and records the test time.
func (h *Handler) testOrg(ctx context.Context, sessionID string) (*domain.OrgConnection, error) {
	org, err := h.orgForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := h.connector.Test(ctx, org); err != nil {
		return nil, err
	}
	if err := org.MarkTested(); err != nil {
		return nil, err
	}
	if err := h.store.SaveOrgConnection(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// disconnectOrg drops the org connection of a session.
func (h *Handler) disconnectOrg(ctx context.Context, sessionID string) (*domain.OrgConnection, error) {
	org, err := h.orgForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	org.Disconnect()
	if err := h.store.SaveOrgConnection(ctx, org); err != nil {
		return nil, err
	}
	h.logger.Info("org disconnected", "session_id", sessionID, "org_id", org.ID)
	return org, nil
}

// orgForSession loads the org connection of a session, or a new disconnected
// one when the session has none yet.
func (h *Handler) orgForSession(ctx context.Context, sessionID string) (*domain.OrgConnection, error) {
	org, err := h.store.GetOrgConnectionBySession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewOrgConnection(sessionID), nil
	}
	return org, err
}

func newOrgResponse(org *domain.OrgConnection) OrgResponse {
	return OrgResponse{OrgConnection: org, CanDeploy: org.CanDeploy()}
}
