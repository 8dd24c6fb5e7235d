package handlers

import (
	"net/http"

	"github.com/vorokhovskii-creator/felix-hub/internal/service"
)

// UpdateOrder serves PUT /api/orders/{id} with an optional status and
// printed flag.
func (h *AdminHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	var in service.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, lang, err)
		return
	}
	if _, err := h.Service.UpdateOrder(r.Context(), id, in); err != nil {
		writeError(w, lang, err)
		return
	}
	v, err := h.Service.OrderView(r.Context(), id, lang)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"order": v})
}

func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	if err := h.Service.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, nil)
}

// PrintOrder serves POST /api/orders/{id}/print.
func (h *AdminHandler) PrintOrder(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	receipt, err := h.Service.PrintOrder(r.Context(), id)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeOK(w, map[string]any{"receipt": receipt})
}
