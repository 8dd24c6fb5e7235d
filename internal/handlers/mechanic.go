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

type MechanicHandler struct {
	*Base
}

// Entry sends mechanics to their dashboard, guests to the anonymous order
// form when that is allowed, and everyone else to the login page.
func (h *MechanicHandler) Entry(w http.ResponseWriter, r *http.Request) {
	m, err := h.sessionMechanic(r)
	if err != nil {
		slog.Error("Failed to load mechanic", "error", err)
	}
	switch {
	case m != nil && m.IsActive:
		http.Redirect(w, r, "/mechanic/dashboard", http.StatusSeeOther)
	case h.Service.AllowAnonymous():
		h.orderForm(w, r, nil)
	default:
		http.Redirect(w, r, "/mechanic/login", http.StatusSeeOther)
	}
}

func (h *MechanicHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if m, _ := h.sessionMechanic(r); m != nil && m.IsActive {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next"), "/mechanic/dashboard"), http.StatusSeeOther)
		return
	}
	h.render(w, r, "mechanic_login.html", map[string]any{
		"Next": r.URL.Query().Get("next"),
	})
}

func (h *MechanicHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	back := "/mechanic/login?next=" + url.QueryEscape(r.FormValue("next"))

	m, err := h.Service.AuthenticateMechanic(r.Context(), r.FormValue("username"), r.FormValue("password"))
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		slog.Warn("Mechanic login failed", "username", r.FormValue("username"), "ip", clientIP(r))
		h.flash(w, r, "error", i18n.T(lang, "login.invalid"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case errors.Is(err, service.ErrInactive):
		h.flash(w, r, "error", i18n.T(lang, "login.inactive"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case err != nil:
		slog.Error("Mechanic login error", "error", err)
		h.flash(w, r, "error", "Internal Server Error")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	session := h.session(r, mechanicSession)
	session.Values["mechanic_id"] = m.ID
	session.Values["lang"] = m.Language
	session.Options.Path = "/"
	if r.FormValue("remember") != "" {
		session.Options.MaxAge = rememberFor
	} else {
		session.Options.MaxAge = 0
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	slog.Info("Mechanic login successful", "mechanic_id", m.ID)
	h.flash(w, r, "success", m.FullName)
	http.Redirect(w, r, safeNext(r.FormValue("next"), "/mechanic/dashboard"), http.StatusSeeOther)
}

func (h *MechanicHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	h.flash(w, r, "info", i18n.T(h.lang(r), "logout.done"))
	http.Redirect(w, r, "/mechanic/login", http.StatusSeeOther)
}

func (h *MechanicHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	session := h.session(r, mechanicSession)
	delete(session.Values, "mechanic_id")
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to clear mechanic session", "error", err)
	}
}

// RequireMechanic lets only signed-in, active mechanics through and puts
// the mechanic in the request context.
func (h *MechanicHandler) RequireMechanic(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := h.sessionMechanic(r)
		if err != nil {
			writeError(w, h.lang(r), err)
			return
		}
		if m == nil {
			h.deny(w, r, http.StatusUnauthorized, "login.required", "/mechanic/login")
			return
		}
		if !m.IsActive {
			slog.Info("Inactive mechanic refused", "mechanic_id", m.ID, "path", r.URL.Path)
			h.clearSession(w, r)
			h.deny(w, r, http.StatusForbidden, "login.inactive", "/mechanic/login")
			return
		}
		next(w, r.WithContext(withMechanic(r.Context(), m)))
	}
}

// Pages

func (h *MechanicHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	m := mechanicFrom(r.Context())
	stats, err := h.Service.MechanicStats(r.Context(), m.ID)
	if err != nil {
		slog.Error("Error fetching stats", "error", err)
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}
	recent, err := h.Service.OrderViews(r.Context(), store.OrderFilter{MechanicID: &m.ID, Limit: 5}, h.lang(r))
	if err != nil {
		slog.Error("Error fetching orders", "error", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "mechanic_dashboard.html", map[string]any{
		"Stats":  stats,
		"Orders": recent,
	})
}

func (h *MechanicHandler) OrdersPage(w http.ResponseWriter, r *http.Request) {
	m := mechanicFrom(r.Context())
	f, err := orderFilter(r)
	if err != nil {
		f = store.OrderFilter{}
	}
	f.Mechanic, f.MechanicID = "", &m.ID
	orders, err := h.Service.OrderViews(r.Context(), f, h.lang(r))
	if err != nil {
		slog.Error("Error fetching orders", "error", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "mechanic_orders.html", map[string]any{
		"Orders": orders,
		"Filter": map[string]string{"Status": string(f.Status), "PlateNumber": f.PlateNumber},
	})
}

func (h *MechanicHandler) NewOrderPage(w http.ResponseWriter, r *http.Request) {
	h.orderForm(w, r, mechanicFrom(r.Context()))
}

func (h *MechanicHandler) orderForm(w http.ResponseWriter, r *http.Request, m *models.Mechanic) {
	catalog, err := h.Service.PublicCatalog(r.Context(), h.lang(r))
	if err != nil {
		slog.Error("Error fetching catalog", "error", err)
		http.Error(w, "Error fetching catalog", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "order_form.html", map[string]any{
		"Mechanic": m,
		"Catalog":  catalog,
		"Guest":    m == nil,
	})
}

func (h *MechanicHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.MechanicProfile(r.Context(), mechanicFrom(r.Context()))
	if err != nil {
		slog.Error("Error fetching profile", "error", err)
		http.Error(w, "Error fetching profile", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "mechanic_profile.html", map[string]any{"Profile": profile})
}

// API

func (h *MechanicHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.MechanicProfile(r.Context(), mechanicFrom(r.Context()))
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile lets a mechanic edit their contact details and language.
func (h *MechanicHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.patchSelf(w, r, service.MechanicPatch.SelfService, "profile")
}

// UpdateSettings changes notification preferences only.
func (h *MechanicHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	h.patchSelf(w, r, service.MechanicPatch.Settings, "settings")
}

func (h *MechanicHandler) patchSelf(w http.ResponseWriter, r *http.Request, restrict func(service.MechanicPatch) service.MechanicPatch, key string) {
	lang := h.lang(r)
	var p service.MechanicPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	m, err := h.Service.UpdateMechanic(r.Context(), mechanicFrom(r.Context()).ID, restrict(p))
	if err != nil {
		writeError(w, lang, err)
		return
	}
	if p.Language != nil && key == "profile" {
		session := h.session(r, mechanicSession)
		session.Values["lang"] = m.Language
		if err := session.Save(r, w); err != nil {
			slog.Error("Failed to save session", "error", err)
		}
	}
	if key == "settings" {
		writeOK(w, map[string]any{"settings": map[string]bool{
			"notify_on_ready":      m.NotifyOnReady,
			"notify_on_processing": m.NotifyOnProcessing,
			"notify_on_cancelled":  m.NotifyOnCancelled,
		}})
		return
	}
	writeOK(w, map[string]any{"profile": m})
}

func (h *MechanicHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, lang, err)
		return
	}
	m := mechanicFrom(r.Context())
	if err := h.Service.ChangePassword(r.Context(), m.ID, body.OldPassword, body.NewPassword); err != nil {
		writeError(w, lang, err)
		return
	}
	slog.Info("Mechanic changed password", "mechanic_id", m.ID)
	writeOK(w, map[string]any{"message": "password changed"})
}

// Orders serves the mechanic's own orders, filtered by status and plate.
func (h *MechanicHandler) Orders(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	m := mechanicFrom(r.Context())
	f.Mechanic, f.MechanicID = "", &m.ID
	views, err := h.Service.OrderViews(r.Context(), f, lang)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *MechanicHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.MechanicStats(r.Context(), mechanicFrom(r.Context()).ID)
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
