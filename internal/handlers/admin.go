package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

type AdminHandler struct {
	*Base
}

func (h *AdminHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if h.isAdmin(r) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	h.render(w, r, "admin_login.html", map[string]any{
		"Next": r.URL.Query().Get("next"),
	})
}

func (h *AdminHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	back := "/admin/login?next=" + url.QueryEscape(r.FormValue("next"))

	admin, err := h.Service.AuthenticateAdmin(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		slog.Warn("Admin login failed", "username", r.FormValue("username"), "ip", clientIP(r))
		h.flash(w, r, "error", i18n.T(lang, "login.invalid"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("Admin login error", "error", err)
		h.flash(w, r, "error", "Internal Server Error")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	session := h.session(r, adminSession)
	session.Values["authenticated"] = true
	session.Values["admin_id"] = admin.ID
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	slog.Info("Admin login successful", "admin_id", admin.ID)
	http.Redirect(w, r, safeNext(r.FormValue("next"), "/admin"), http.StatusSeeOther)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.session(r, adminSession)
	session.Values["authenticated"] = false
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to clear admin session", "error", err)
	}
	h.flash(w, r, "success", i18n.T(h.lang(r), "logout.done"))
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// RequireAdmin lets only signed-in administrators through.
func (h *AdminHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.isAdmin(r) {
			slog.Debug("Admin session required", "path", r.URL.Path)
			h.deny(w, r, http.StatusUnauthorized, "error.admin_required", "/admin/login")
			return
		}
		next(w, r)
	}
}

// Dashboard lists orders with the same filters as GET /api/orders.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		slog.Error("Error fetching stats", "error", err)
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}
	filter, err := orderFilter(r)
	if err != nil {
		filter = store.OrderFilter{}
	}
	orders, err := h.Service.OrderViews(r.Context(), filter, lang)
	if err != nil {
		slog.Error("Error fetching orders", "error", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "admin.html", map[string]any{
		"Stats":  stats,
		"Orders": orders,
		"Filter": map[string]string{
			"Status":      string(filter.Status),
			"PlateNumber": filter.PlateNumber,
			"Mechanic":    filter.Mechanic,
		},
	})
}

func (h *AdminHandler) MechanicsPage(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.MechanicProfiles(r.Context())
	if err != nil {
		slog.Error("Error fetching mechanics", "error", err)
		http.Error(w, "Error fetching mechanics", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "admin_mechanics.html", map[string]any{"Mechanics": profiles})
}

func (h *AdminHandler) PartsPage(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context(), false)
	if err != nil {
		slog.Error("Error fetching categories", "error", err)
		http.Error(w, "Error fetching categories", http.StatusInternalServerError)
		return
	}
	parts, err := h.Store.ListParts(r.Context(), store.PartFilter{Category: r.URL.Query().Get("category")})
	if err != nil {
		slog.Error("Error fetching parts", "error", err)
		http.Error(w, "Error fetching parts", http.StatusInternalServerError)
		return
	}
	byCategory := make(map[string][]models.Part)
	for _, p := range parts {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}
	h.render(w, r, "admin_parts.html", map[string]any{
		"Categories": categories,
		"Parts":      byCategory,
		"Total":      len(parts),
	})
}

// Stats serves GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Live upgrades to the order event feed.
func (h *AdminHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeWS(w, r)
}
