package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/wizard"
	"github.com/artpar/sfadvisor/internal/shell/cache"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// Query parameters selecting component kinds. Each defaults to true.
var selectionParams = []struct {
	name string
	kind metadata.Kind
}{
	{"objects", metadata.KindCustomObject},
	{"flows", metadata.KindFlow},
	{"rules", metadata.KindValidationRule},
	{"permissions", metadata.KindPermissionSet},
}

// =============================================================================
// Metadata Package Handlers
// =============================================================================

// handlePackage returns the generated package. ?documents=true adds the
// rendered XML documents.
func (h *Handler) handlePackage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	pkg, _, err := h.buildPackage(r.Context(), session, selectionFromQuery(r))
	if err != nil {
		h.writeDomainError(w, err, "failed to generate package")
		return
	}

	resp := PackageResponse{
		Package:    pkg,
		Components: pkg.Components(),
		Counts:     pkg.Counts(),
		Manifest:   pkg.Manifest(),
	}
	if withDocs, _ := strconv.ParseBool(r.URL.Query().Get("documents")); withDocs {
		docs, err := metadata.RenderXML(pkg)
		if err != nil {
			h.writeDomainError(w, err, "failed to render package")
			return
		}
		resp.Documents = make(map[string]string, len(docs))
		for key, doc := range docs {
			resp.Documents[key] = string(doc)
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePackageZip(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	bundle, err := h.packageBundle(r.Context(), session, selectionFromQuery(r))
	if err != nil {
		h.writeDomainError(w, err, "failed to build package bundle")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+metadata.BundleFileName(session.Domain, session.Industry)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(bundle)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(bundle); err != nil {
		h.logger.Warn("failed to write package bundle", "session_id", session.ID, "error", err)
	}
}

// packageBundle returns the zipped export of a session, served from the
// cache when the same package was bundled before. Cache failures only cost
// a rebuild.
func (h *Handler) packageBundle(ctx context.Context, session *wizard.Session, sel metadata.Selection) ([]byte, error) {
	pkg, wsel, err := h.buildPackage(ctx, session, sel)
	if err != nil {
		return nil, err
	}

	key, err := cache.BundleKey(pkg.APIVersion, wsel.Domain, wsel.Industry, wsel.Modules, sel)
	if err != nil {
		return nil, err
	}
	if cached, found, err := h.cache.Get(ctx, key); err != nil {
		h.logger.Warn("package cache read failed", "error", err)
	} else if found {
		return cached, nil
	}

	bundle, err := metadata.Bundle(pkg, wsel.Domain, wsel.Industry)
	if err != nil {
		return nil, err
	}
	if err := h.cache.Set(ctx, key, bundle, h.cacheTTL); err != nil {
		h.logger.Warn("package cache write failed", "error", err)
	}
	return bundle, nil
}

// buildPackage generates the package of a submitted session. The API version
// follows the connected org when there is one.
func (h *Handler) buildPackage(ctx context.Context, session *wizard.Session, sel metadata.Selection) (metadata.Package, wizard.Selection, error) {
	wsel, err := h.selectionFor(ctx, session)
	if err != nil {
		return metadata.Package{}, wizard.Selection{}, err
	}

	apiVersion := h.apiVersion
	org, err := h.store.GetOrgConnectionBySession(ctx, session.ID)
	switch {
	case err == nil && org.Info.APIVersion != "":
		apiVersion = org.APIVersion()
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return metadata.Package{}, wizard.Selection{}, err
	}

	pkg := metadata.NewGenerator(apiVersion).Package(wsel.Modules, wsel.Industry).Filter(sel)
	return pkg, wsel, nil
}

// selectionFromQuery reads ?objects=&flows=&rules=&permissions=. Missing or
// unparsable values count as selected.
func selectionFromQuery(r *http.Request) metadata.Selection {
	sel := metadata.AllComponents()
	q := r.URL.Query()
	for _, p := range selectionParams {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil || on {
			continue
		}
		switch p.kind {
		case metadata.KindCustomObject:
			sel.CustomObjects = false
		case metadata.KindFlow:
			sel.Flows = false
		case metadata.KindValidationRule:
			sel.ValidationRules = false
		case metadata.KindPermissionSet:
			sel.PermissionSets = false
		}
	}
	return sel
}
