package handlers

import (
	"net/http"

	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

// Categories

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context(), queryBool(r, "active_only"))
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	var p service.CategoryPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	c, err := h.Service.CreateCategory(r.Context(), p)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "category": c})
}

func (h *AdminHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	c, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	var p service.CategoryPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	c, err := h.Service.UpdateCategory(r.Context(), id, p)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"category": c})
}

// DeleteCategory only removes categories without parts.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	if err := h.Store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, nil)
}

func (h *AdminHandler) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	active, err := h.Store.ToggleCategoryActive(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"is_active": active})
}

// Parts

func (h *AdminHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.Store.ListParts(r.Context(), store.PartFilter{
		ActiveOnly: queryBool(r, "active_only"),
		Category:   r.URL.Query().Get("category"),
	})
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

func (h *AdminHandler) CreatePart(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	var p service.PartPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	part, err := h.Service.CreatePart(r.Context(), p)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "part": part})
}

func (h *AdminHandler) GetPart(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	part, err := h.Store.GetPart(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (h *AdminHandler) UpdatePart(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	var p service.PartPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	part, err := h.Service.UpdatePart(r.Context(), id, p)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"part": part})
}

func (h *AdminHandler) DeletePart(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	if err := h.Store.DeletePart(r.Context(), id); err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, nil)
}

func (h *AdminHandler) TogglePart(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	active, err := h.Store.TogglePartActive(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"is_active": active})
}

// BulkCreateParts serves POST /api/admin/parts/bulk with
// {"category": ..., "parts": [names or part objects]}. The category is
// created when missing.
func (h *AdminHandler) BulkCreateParts(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	var in service.BulkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, lang, err)
		return
	}
	res, err := h.Service.BulkCreateParts(r.Context(), in)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "result": res})
}

func (h *AdminHandler) ImportDefaultCatalog(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ImportDefaultCatalog(r.Context())
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeOK(w, map[string]any{"result": res})
}
