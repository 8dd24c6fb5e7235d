package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

type OrderHandler struct {
	*Base
}

// submitRequest is the POST /api/submit_order body. Older clients send
// the guest name as mechanic_name and plain part names in selected_parts.
type submitRequest struct {
	GuestName     string            `json:"guest_name"`
	MechanicName  string            `json:"mechanic_name"`
	TelegramID    string            `json:"telegram_id"`
	Category      string            `json:"category"`
	PlateNumber   string            `json:"plate_number"`
	Items         []models.LineItem `json:"items"`
	SelectedParts []models.LineItem `json:"selected_parts"`
	IsOriginal    bool              `json:"is_original"`
	PhotoURL      string            `json:"photo_url"`
	Comment       string            `json:"comment"`
}

func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, lang, err)
		return
	}

	m, err := h.sessionMechanic(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	in := service.SubmitInput{
		Category:    req.Category,
		PlateNumber: req.PlateNumber,
		Items:       req.Items,
		IsOriginal:  req.IsOriginal,
		PhotoURL:    req.PhotoURL,
		Comment:     req.Comment,
	}
	if len(in.Items) == 0 {
		in.Items = req.SelectedParts
	}
	if m != nil {
		if !m.IsActive {
			writeError(w, lang, service.ErrInactive)
			return
		}
		in.MechanicID = &m.ID
	} else {
		in.GuestName = firstNonEmpty(req.GuestName, req.MechanicName)
		in.GuestChatID = req.TelegramID
	}

	order, err := h.Service.SubmitOrder(r.Context(), in)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"order_id": order.ID,
		"message":  fmt.Sprintf("%s%d", i18n.T(lang, "order.number"), order.ID),
	})
}

// orderFilter reads the status, plate_number and mechanic query filters.
// "all" (or the Russian "все") means no status filter.
func orderFilter(r *http.Request) (store.OrderFilter, error) {
	q := r.URL.Query()
	f := store.OrderFilter{
		PlateNumber: strings.TrimSpace(q.Get("plate_number")),
		Mechanic:    strings.TrimSpace(q.Get("mechanic")),
		Limit:       queryInt(r, "limit"),
		Offset:      queryInt(r, "offset"),
	}
	switch status := strings.TrimSpace(q.Get("status")); status {
	case "", "all", "все":
	default:
		f.Status = models.Status(status)
		if !f.Status.Valid() {
			return f, fmt.Errorf("%w: unknown status %q", errBadRequest, status)
		}
	}
	return f, nil
}

// ListOrders serves GET /api/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	views, err := h.Service.OrderViews(r.Context(), f, lang)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	id, err := pathID(r)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	v, err := h.Service.OrderView(r.Context(), id, lang)
	if err != nil {
		writeError(w, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
