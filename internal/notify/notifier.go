package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/vorokhovskii-creator/felix-hub/internal/catalog"
	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/metrics"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

// Notifier formats order messages and hands them to a Sender. Delivery is
// best effort: failures are logged and counted, never returned.
type Notifier struct {
	sender    Sender
	adminChat string
	adminLang string
	metrics   *metrics.Metrics
}

// New returns a Notifier. A nil sender disables delivery.
func New(sender Sender, adminChat, adminLang string, m *metrics.Metrics) *Notifier {
	return &Notifier{sender: sender, adminChat: adminChat, adminLang: i18n.Pick(i18n.Default, adminLang), metrics: m}
}

// NewOrder tells the admin chat about a submitted order. v should be
// rendered in the admin language.
func (n *Notifier) NewOrder(ctx context.Context, v catalog.OrderView) {
	n.deliver(ctx, "new_order", n.adminChat, NewOrderText(v, n.adminLang))
}

// StatusChanged tells the submitter that their order moved to v.Status.
// It reports whether a delivery was attempted.
func (n *Notifier) StatusChanged(ctx context.Context, v catalog.OrderView, chatID, lang string) bool {
	text := StatusText(v, i18n.Pick(n.adminLang, lang))
	if text == "" {
		return false
	}
	return n.deliver(ctx, string(v.Status), chatID, text)
}

func (n *Notifier) deliver(ctx context.Context, kind, chatID, text string) bool {
	if n == nil || n.sender == nil || chatID == "" {
		slog.Debug("Notification skipped", "kind", kind, "chat_configured", chatID != "")
		n.count(kind, "skipped")
		return false
	}
	if err := n.sender.Send(ctx, chatID, text); err != nil {
		slog.Error("Failed to send notification", "kind", kind, "chat_id", chatID, "error", err)
		n.count(kind, "failed")
		return true
	}
	slog.Info("Notification sent", "kind", kind, "chat_id", chatID)
	n.count(kind, "sent")
	return true
}

func (n *Notifier) count(kind, result string) {
	if n != nil {
		n.metrics.Notification(kind, result)
	}
}

// NewOrderText renders the admin message for a new order.
func NewOrderText(v catalog.OrderView, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>%s %s</b>\n\n", i18n.T(lang, "notify.new_order"), esc(v.MechanicName))
	fmt.Fprintf(&b, "📋 %s%d\n", i18n.T(lang, "order.number"), v.ID)
	fmt.Fprintf(&b, "🚗 %s: <b>%s</b>\n", i18n.T(lang, "order.plate"), esc(v.PlateNumber))
	fmt.Fprintf(&b, "📦 %s: %s\n\n", i18n.T(lang, "order.category"), esc(v.CategoryLabel))
	fmt.Fprintf(&b, "<b>%s:</b>\n", i18n.T(lang, "order.items"))
	for _, it := range v.Items {
		if it.Quantity > 1 {
			fmt.Fprintf(&b, "• %s × %d\n", esc(it.Name), it.Quantity)
		} else {
			fmt.Fprintf(&b, "• %s\n", esc(it.Name))
		}
	}
	if v.IsOriginal {
		fmt.Fprintf(&b, "\n🔧 %s\n", i18n.T(lang, "order.original"))
	} else {
		fmt.Fprintf(&b, "\n💰 %s\n", i18n.T(lang, "order.analog"))
	}
	fmt.Fprintf(&b, "⏰ %s", v.CreatedAt)
	if v.Comment != "" {
		fmt.Fprintf(&b, "\n\n💬 %s: %s", i18n.T(lang, "order.comment"), esc(v.Comment))
	}
	return b.String()
}

// StatusText renders the submitter message for the order's current status,
// or "" for statuses that have no message.
func StatusText(v catalog.OrderView, lang string) string {
	head := fmt.Sprintf("%s%d", i18n.T(lang, "order.number"), v.ID)
	car := fmt.Sprintf("🚗 %s: <b>%s</b>\n📦 %s: %s",
		i18n.T(lang, "notify.car"), esc(v.PlateNumber), i18n.T(lang, "order.category"), esc(v.CategoryLabel))

	switch v.Status {
	case models.StatusReady:
		return fmt.Sprintf("✅ <b>%s %s</b>\n\n%s\n\n%s 📦", head, i18n.T(lang, "notify.ready"), car,
			i18n.T(lang, "notify.ready_hint"))
	case models.StatusProcessing:
		return fmt.Sprintf("🔧 <b>%s %s</b>\n\n%s", head, i18n.T(lang, "notify.processing"), car)
	case models.StatusCancelled:
		return fmt.Sprintf("❌ <b>%s %s</b>\n\n%s", head, i18n.T(lang, "notify.cancelled"), car)
	}
	return ""
}

func esc(s string) string { return html.EscapeString(s) }
