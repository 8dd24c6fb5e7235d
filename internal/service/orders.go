package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vorokhovskii-creator/felix-hub/internal/catalog"
	"github.com/vorokhovskii-creator/felix-hub/internal/live"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

const minPlateLength = 5

var plateChars = regexp.MustCompile(`[A-ZА-ЯЁ0-9]`)

// NormalizePlate trims and upper-cases a plate number and checks that it is
// long enough and contains at least one letter or digit.
func NormalizePlate(plate string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(plate))
	if p == "" {
		return "", invalid("error.plate_required", "plate number is required")
	}
	if utf8.RuneCountInString(p) < minPlateLength || !plateChars.MatchString(p) {
		return "", invalid("error.plate_invalid", "invalid plate number %q", plate)
	}
	return p, nil
}

type SubmitInput struct {
	// MechanicID is the signed-in mechanic; nil for anonymous orders.
	MechanicID  *int64
	GuestName   string
	GuestChatID string
	Category    string
	PlateNumber string
	Items       []models.LineItem
	IsOriginal  bool
	PhotoURL    string
	Comment     string
}

func normalizeItems(items []models.LineItem) ([]models.LineItem, error) {
	out := make([]models.LineItem, 0, len(items))
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" && it.PartID == nil {
			continue
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		if it.Quantity < 0 {
			return nil, invalid("error.quantity_invalid", "quantity must be at least 1")
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, invalid("error.items_required", "select at least one part")
	}
	return out, nil
}

// SubmitOrder validates and stores a new order, then notifies the admin
// chat and live dashboards.
func (s *Service) SubmitOrder(ctx context.Context, in SubmitInput) (*models.Order, error) {
	order := &models.Order{
		MechanicID: in.MechanicID,
		Category:   strings.TrimSpace(in.Category),
		IsOriginal: in.IsOriginal,
		PhotoURL:   strings.TrimSpace(in.PhotoURL),
		Comment:    strings.TrimSpace(in.Comment),
		Status:     models.StatusNew,
	}
	if in.MechanicID == nil {
		if !s.opts.AllowAnonymous {
			return nil, ErrAnonymousDisabled
		}
		order.GuestName = strings.TrimSpace(in.GuestName)
		order.GuestChatID = strings.TrimSpace(in.GuestChatID)
		if order.GuestName == "" {
			return nil, invalid("error.guest_name_required", "name is required")
		}
	}

	plate, err := NormalizePlate(in.PlateNumber)
	if err != nil {
		return nil, err
	}
	order.PlateNumber = plate

	if order.Category == "" {
		return nil, invalid("error.category_required", "category is required")
	}
	if order.Items, err = normalizeItems(in.Items); err != nil {
		return nil, err
	}
	// Items picked by id alone get the part's name as of today.
	for i := range order.Items {
		it := &order.Items[i]
		if it.Name != "" {
			continue
		}
		p, err := s.store.GetPart(ctx, *it.PartID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid("", "unknown part %d", *it.PartID)
		}
		if err != nil {
			return nil, err
		}
		it.Name = p.NameIn("ru")
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	saved, err := s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	slog.Info("Order submitted", "order_id", saved.ID, "plate", saved.PlateNumber, "mechanic", saved.MechanicName)

	submitter := "mechanic"
	if saved.MechanicID == nil {
		submitter = "guest"
	}
	s.metrics.OrderSubmitted(submitter)
	s.hub.Broadcast(live.Event{Type: live.EventOrderCreated, OrderID: saved.ID, Status: saved.Status})

	if cat, err := s.Catalog(ctx); err != nil {
		slog.Error("Skipping new order notification", "order_id", saved.ID, "error", err)
	} else {
		s.notifier.NewOrder(ctx, cat.View(saved, s.opts.AdminLanguage))
	}
	return saved, nil
}

type UpdateInput struct {
	Status  *models.Status `json:"status"`
	Printed *bool          `json:"printed"`
}

// UpdateOrder applies a status and/or printed change. Entering "ready"
// from another status prints the receipt (once) and notifies the
// submitter; updates that change nothing have no side effects.
func (s *Service) UpdateOrder(ctx context.Context, id int64, in UpdateInput) (*models.Order, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, invalid("", "unknown status %q", *in.Status)
	}

	var (
		order        *models.Order
		prev         models.Status
		changed      bool
		printReceipt bool
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		prev = o.Status

		if in.Status != nil && *in.Status != o.Status {
			moved, err := tx.UpdateOrderStatus(ctx, id, *in.Status)
			if err != nil {
				return err
			}
			if !moved {
				// Another update got there first.
				prev = *in.Status
			}
			o.Status = *in.Status
			changed = moved
		}
		if in.Printed != nil && *in.Printed != o.Printed {
			if err := tx.SetOrderPrinted(ctx, id, *in.Printed); err != nil {
				return err
			}
			o.Printed = *in.Printed
			changed = true
		}
		if o.Status == models.StatusReady && prev != models.StatusReady && !o.Printed {
			if printReceipt, err = tx.MarkOrderPrinted(ctx, id); err != nil {
				return err
			}
			o.Printed = true
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}

	s.hub.Broadcast(live.Event{Type: live.EventOrderUpdated, OrderID: order.ID, Status: order.Status})
	if order.Status == prev {
		return order, nil
	}

	slog.Info("Order status changed", "order_id", order.ID, "from", prev, "to", order.Status)
	s.metrics.StatusChanged(string(order.Status))

	cat, err := s.Catalog(ctx)
	if err != nil {
		slog.Error("Skipping status side effects", "order_id", order.ID, "error", err)
		return order, nil
	}
	if printReceipt {
		s.emitReceipt(order.ID, Receipt(cat.View(order, s.opts.AdminLanguage), s.opts.AdminLanguage))
	}
	s.notifyStatus(ctx, cat, order)
	return order, nil
}

// notifyStatus messages the order's submitter when they opted in to the
// new status. Guests have no preferences and only hear about "ready".
func (s *Service) notifyStatus(ctx context.Context, cat *catalog.Catalog, o *models.Order) {
	chatID := o.ChatID()
	if chatID == "" {
		return
	}
	lang, wants := s.opts.AdminLanguage, o.Status == models.StatusReady
	if o.MechanicID != nil {
		m, err := s.store.GetMechanic(ctx, *o.MechanicID)
		if err != nil {
			slog.Error("Failed to load mechanic for notification", "order_id", o.ID, "error", err)
			return
		}
		lang, wants = m.Language, m.WantsNotification(o.Status)
	}
	if !wants {
		return
	}
	s.notifier.StatusChanged(ctx, cat.View(o, lang), chatID, lang)
}

// PrintOrder renders the receipt, marks the order printed and returns the
// receipt text.
func (s *Service) PrintOrder(ctx context.Context, id int64) (string, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return "", err
	}
	if err := s.store.SetOrderPrinted(ctx, id, true); err != nil {
		return "", err
	}
	wasPrinted := o.Printed
	o.Printed = true

	text := Receipt(cat.View(o, s.opts.AdminLanguage), s.opts.AdminLanguage)
	s.emitReceipt(id, text)
	if !wasPrinted {
		s.hub.Broadcast(live.Event{Type: live.EventOrderUpdated, OrderID: id, Status: o.Status})
	}
	return text, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	slog.Info("Order deleted", "order_id", id)
	s.hub.Broadcast(live.Event{Type: live.EventOrderDeleted, OrderID: id})
	return nil
}

// OrderViews lists orders rendered in lang.
func (s *Service) OrderViews(ctx context.Context, f store.OrderFilter, lang string) ([]catalog.OrderView, error) {
	orders, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Views(orders, lang), nil
}

func (s *Service) OrderView(ctx context.Context, id int64, lang string) (*catalog.OrderView, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	v := cat.View(o, lang)
	return &v, nil
}

func (s *Service) MechanicStats(ctx context.Context, mechanicID int64) (models.OrderStats, error) {
	return s.store.OrderStats(ctx, &mechanicID)
}
