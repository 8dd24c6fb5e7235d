package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

type HomeHandler struct {
	*Base
}

// Index is the language picker and entry page.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	m, err := h.sessionMechanic(r)
	if err != nil {
		slog.Error("Failed to load mechanic", "error", err)
	}
	h.render(w, r, "home.html", map[string]any{
		"Mechanic":       m,
		"AllowAnonymous": h.Service.AllowAnonymous(),
	})
}

// SetLanguage stores the language choice and sends the browser back to
// the page it came from.
func (h *HomeHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.PathValue("lang")
	if !i18n.IsSupported(lang) {
		http.Error(w, "Unsupported language", http.StatusBadRequest)
		return
	}
	if err := h.setLang(w, r, lang); err != nil {
		slog.Error("Failed to save language", "error", err)
	}
	h.rememberMechanicLang(r, lang)

	back := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
		back = safeNext(ref.RequestURI(), "/")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Language serves POST /api/language with {"language": "en"}.
func (h *HomeHandler) Language(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Language string `json:"language"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	if !i18n.IsSupported(body.Language) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unsupported language"})
		return
	}
	if err := h.setLang(w, r, body.Language); err != nil {
		writeError(w, body.Language, err)
		return
	}
	h.rememberMechanicLang(r, body.Language)
	writeOK(w, map[string]any{"language": body.Language, "dir": i18n.Dir(body.Language)})
}

// rememberMechanicLang saves the choice as the signed-in mechanic's
// preference, which also drives their notifications.
func (h *HomeHandler) rememberMechanicLang(r *http.Request, lang string) {
	m, err := h.sessionMechanic(r)
	if err != nil || m == nil || m.Language == lang {
		return
	}
	if _, err := h.Service.UpdateMechanic(r.Context(), m.ID, service.MechanicPatch{Language: &lang}); err != nil {
		slog.Warn("Failed to save mechanic language", "mechanic_id", m.ID, "error", err)
	}
}

// Health reports whether the database answers.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "database": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

// Parts serves GET /api/parts.
func (h *HomeHandler) Parts(w http.ResponseWriter, r *http.Request) {
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

// Catalog serves the active catalog named in the request language.
func (h *HomeHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	categories, err := h.Service.PublicCatalog(r.Context(), lang)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// PartCategories lists the names of categories that have active parts.
func (h *HomeHandler) PartCategories(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	categories, err := h.Service.PublicCatalog(r.Context(), lang)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if len(c.Parts) > 0 {
			names = append(names, c.Name)
		}
	}
	writeJSON(w, http.StatusOK, names)
}

// Categories serves GET /api/categories: active categories with counts.
func (h *HomeHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context(), true)
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
