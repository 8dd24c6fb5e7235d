package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vorokhovskii-creator/felix-hub/internal/catalog"
	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
)

const receiptWidth = 40

// Receipt renders the plain-text slip handed out with the parts.
func Receipt(v catalog.OrderView, lang string) string {
	rule := strings.Repeat("=", receiptWidth)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, i18n.T(lang, "app.shop"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s%d\n", i18n.T(lang, "order.number"), v.ID)
	fmt.Fprintf(&b, "%s: %s\n", i18n.T(lang, "order.mechanic"), v.MechanicName)
	fmt.Fprintf(&b, "%s: %s\n", i18n.T(lang, "order.plate"), v.PlateNumber)
	fmt.Fprintf(&b, "%s: %s\n", i18n.T(lang, "order.category"), v.CategoryLabel)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s:\n", i18n.T(lang, "order.items"))
	for _, it := range v.Items {
		if it.Quantity > 1 {
			fmt.Fprintf(&b, "- %s x%d\n", it.Name, it.Quantity)
		} else {
			fmt.Fprintf(&b, "- %s\n", it.Name)
		}
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s: %s\n", i18n.T(lang, "order.status"), v.StatusLabel)
	fmt.Fprintf(&b, "%s: %s\n", i18n.T(lang, "order.date"), v.CreatedAt)
	fmt.Fprintln(&b, rule)
	return b.String()
}

func (s *Service) emitReceipt(orderID int64, text string) {
	if s.opts.Receipts == nil {
		slog.Info("Receipt printed", "order_id", orderID, "receipt", text)
		return
	}
	if _, err := fmt.Fprint(s.opts.Receipts, text); err != nil {
		slog.Error("Failed to print receipt", "order_id", orderID, "error", err)
	}
}
