package api

import (
	"errors"
	"html"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/sfadvisor/internal/core/auth"
	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// maxImportSize bounds catalog import bodies.
const maxImportSize = 10 << 20

// adminSubject is the token subject of the single admin account.
const adminSubject = "admin"

// =============================================================================
// Admin Login
// =============================================================================

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if len(h.jwtSecret) == 0 || h.adminPasswordHash == "" {
		h.writeError(w, http.StatusServiceUnavailable, "admin access is not configured", "admin_disabled")
		return
	}

	var req LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := auth.CheckPassword(h.adminPasswordHash, req.Password); err != nil {
		h.logger.Warn("admin login failed", "remote_addr", r.RemoteAddr)
		h.writeError(w, http.StatusUnauthorized, "invalid password", "unauthorized")
		return
	}

	token, expires, err := auth.IssueToken(h.jwtSecret, adminSubject, h.tokenTTL, h.now())
	if err != nil {
		h.writeDomainError(w, err, "failed to issue token")
		return
	}

	h.logger.Info("admin logged in", "expires_at", expires)
	h.writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires})
}

// =============================================================================
// Catalog Snapshot
// =============================================================================

func (h *Handler) handleAdminCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}
	h.writeJSON(w, http.StatusOK, CatalogResponse{Catalog: cat, ModuleCount: cat.ModuleCount()})
}

func (h *Handler) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loadCatalog(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to load catalog")
		return
	}
	data, err := catalog.EncodeSnapshot(cat.Export(h.now()))
	if err != nil {
		h.writeDomainError(w, err, "failed to export catalog")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+catalog.ExportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write catalog export", "error", err)
	}
}

// handleAdminImport merges a snapshot into the catalog. Sections missing
// from the snapshot are kept.
func (h *Handler) handleAdminImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read body", "validation_error")
		return
	}
	snapshot, err := catalog.DecodeSnapshot(data)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	h.editCatalog(w, r, "import", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.Import(snapshot)
	})
}

// =============================================================================
// Catalog Edits
// =============================================================================

func (h *Handler) handleAdminAddDomain(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	name := h.cleanText(req.Name)
	h.editCatalog(w, r, "add domain", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.AddDomain(name)
	})
}

func (h *Handler) handleAdminDeleteDomain(w http.ResponseWriter, r *http.Request) {
	domainName := chi.URLParam(r, "domain")
	h.editCatalog(w, r, "delete domain", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.DeleteDomain(domainName)
	})
}

func (h *Handler) handleAdminAddIndustry(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	domainName := chi.URLParam(r, "domain")
	name := h.cleanText(req.Name)
	h.editCatalog(w, r, "add industry", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.AddIndustry(domainName, name)
	})
}

func (h *Handler) handleAdminDeleteIndustry(w http.ResponseWriter, r *http.Request) {
	domainName := chi.URLParam(r, "domain")
	industry := chi.URLParam(r, "industry")
	h.editCatalog(w, r, "delete industry", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.DeleteIndustry(domainName, industry)
	})
}

func (h *Handler) handleAdminAddModule(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	domainName := chi.URLParam(r, "domain")
	industry := chi.URLParam(r, "industry")
	name := h.cleanText(req.Name)
	h.editCatalog(w, r, "add module", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.AddModule(domainName, industry, name)
	})
}

func (h *Handler) handleAdminUpdateModule(w http.ResponseWriter, r *http.Request) {
	index, ok := h.moduleIndex(w, r)
	if !ok {
		return
	}
	var req UpdateModuleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	domainName := chi.URLParam(r, "domain")
	industry := chi.URLParam(r, "industry")
	value := h.cleanText(req.Value)
	h.editCatalog(w, r, "update module", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.UpdateModule(domainName, industry, index, req.Field, value)
	})
}

func (h *Handler) handleAdminDeleteModule(w http.ResponseWriter, r *http.Request) {
	index, ok := h.moduleIndex(w, r)
	if !ok {
		return
	}
	domainName := chi.URLParam(r, "domain")
	industry := chi.URLParam(r, "industry")
	h.editCatalog(w, r, "delete module", func(cat catalog.Catalog) (catalog.Catalog, error) {
		return cat.DeleteModule(domainName, industry, index)
	})
}

// cleanText strips markup from admin input. Entities escaped by the policy
// are decoded again since templates escape on output.
func (h *Handler) cleanText(s string) string {
	return html.UnescapeString(h.sanitizer.Sanitize(s))
}

func (h *Handler) moduleIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		h.writeError(w, http.StatusBadRequest, "module index must be a non-negative integer", "validation_error")
		return 0, false
	}
	return index, true
}

// editCatalog applies fn to the stored catalog inside a transaction and
// answers with the updated catalog.
func (h *Handler) editCatalog(w http.ResponseWriter, r *http.Request, op string, fn func(catalog.Catalog) (catalog.Catalog, error)) {
	var updated catalog.Catalog
	err := h.store.WithTx(r.Context(), func(tx store.Store) error {
		cat, err := tx.LoadCatalog(r.Context())
		if err != nil {
			return err
		}
		if updated, err = fn(cat); err != nil {
			return err
		}
		return tx.SaveCatalog(r.Context(), updated)
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidData) {
			h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
			return
		}
		h.writeDomainError(w, err, "failed to "+op)
		return
	}

	authCtx := auth.FromContext(r.Context())
	h.logger.Info("catalog edited", "op", op, "subject", authCtx.Subject, "modules", updated.ModuleCount())
	h.writeJSON(w, http.StatusOK, CatalogResponse{Catalog: updated, ModuleCount: updated.ModuleCount()})
}
