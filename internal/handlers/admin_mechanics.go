package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vorokhovskii-creator/felix-hub/internal/service"
)

func (h *AdminHandler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.MechanicProfiles(r.Context())
	if err != nil {
		writeError(w, h.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *AdminHandler) CreateMechanic(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	var p service.MechanicPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	m, err := h.Service.CreateMechanic(r.Context(), p)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	slog.Info("Mechanic created", "mechanic_id", m.ID, "username", m.Username)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "mechanic": m})
}

func (h *AdminHandler) GetMechanic(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	m, err := h.Store.GetMechanic(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	profile, err := h.Service.MechanicProfile(r.Context(), m)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AdminHandler) UpdateMechanic(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	var p service.MechanicPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, lang, err)
		return
	}
	m, err := h.Service.UpdateMechanic(r.Context(), id, p)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"mechanic": m})
}

// DeleteMechanic refuses mechanics that still own orders; deactivate
// them instead.
func (h *AdminHandler) DeleteMechanic(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	if err := h.Store.DeleteMechanic(r.Context(), id); err != nil {
		writeError(w, lang, err)
		return
	}
	slog.Info("Mechanic deleted", "mechanic_id", id)
	writeOK(w, nil)
}

func (h *AdminHandler) ToggleMechanic(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	active, err := h.Store.ToggleMechanicActive(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"is_active": active})
}
