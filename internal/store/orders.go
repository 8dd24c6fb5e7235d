package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const orderColumns = `
	o.id, o.mechanic_id, COALESCE(o.guest_name, ''), o.guest_chat_id,
	COALESCE(m.full_name, o.guest_name, ''), COALESCE(m.telegram_id, ''),
	o.category, o.plate_number, o.items, o.is_original, o.photo_url, o.comment,
	o.status, o.printed, o.created_at, o.updated_at`

const orderFrom = `FROM orders o LEFT JOIN mechanics m ON m.id = o.mechanic_id`

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Status      models.Status
	PlateNumber string // substring, case-insensitive
	Mechanic    string // substring of the display name, case-insensitive, Unicode-aware
	MechanicID  *int64
	Limit       int
	Offset      int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o          models.Order
		mechanicID sql.NullInt64
		items      string
		status     string
	)
	err := row.Scan(&o.ID, &mechanicID, &o.GuestName, &o.GuestChatID,
		&o.MechanicName, &o.MechanicChat,
		&o.Category, &o.PlateNumber, &items, &o.IsOriginal, &o.PhotoURL, &o.Comment,
		&status, &o.Printed, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if mechanicID.Valid {
		id := mechanicID.Int64
		o.MechanicID = &id
	}
	o.Status = models.Status(status)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("order %d: decode items: %w", o.ID, err)
	}
	if o.Items == nil {
		o.Items = []models.LineItem{}
	}
	return &o, nil
}

func (c *conn) CreateOrder(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	if order.Status == "" {
		order.Status = models.StatusNew
	}

	var guest sql.NullString
	if order.MechanicID == nil {
		guest = sql.NullString{String: order.GuestName, Valid: true}
	}

	query := `
		INSERT INTO orders (mechanic_id, guest_name, guest_chat_id, category, plate_number, items,
			is_original, photo_url, comment, status, printed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := c.insert(ctx, query, order.MechanicID, guest, order.GuestChatID, order.Category,
		order.PlateNumber, string(items), order.IsOriginal, order.PhotoURL, order.Comment,
		string(order.Status), order.Printed, now, now)
	if err != nil {
		return err
	}
	order.ID = id
	return nil
}

func (c *conn) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	row := c.queryRow(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

// ListOrders returns orders newest first.
func (c *conn) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, string(f.Status))
	}
	if f.PlateNumber != "" {
		// Plates are stored upper-cased.
		where = append(where, `o.plate_number LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToUpper(strings.TrimSpace(f.PlateNumber)))+"%")
	}
	if f.MechanicID != nil {
		where = append(where, "o.mechanic_id = ?")
		args = append(args, *f.MechanicID)
	}

	query := `SELECT ` + orderColumns + ` ` + orderFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"
	// SQLite's LOWER only folds ASCII, so names are matched in Go.
	if f.Limit > 0 && f.Mechanic == "" {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	needle := strings.ToLower(f.Mechanic)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		if needle != "" && !strings.Contains(strings.ToLower(o.MechanicName), needle) {
			continue
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if f.Mechanic != "" && f.Limit > 0 {
		orders = page(orders, f.Offset, f.Limit)
	}
	return orders, nil
}

func page[T any](s []T, offset, limit int) []T {
	if offset >= len(s) {
		return s[:0]
	}
	s = s[offset:]
	if limit < len(s) {
		s = s[:limit]
	}
	return s
}

func (c *conn) CountOrders(ctx context.Context) (int, error) {
	var count int
	err := c.queryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&count)
	return count, err
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// UpdateOrderStatus sets the status and reports whether the order was in a
// different status before. The check and the write are one statement, so
// of two concurrent callers only one sees the change.
func (c *conn) UpdateOrderStatus(ctx context.Context, id int64, status models.Status) (bool, error) {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`
	return c.changed(ctx, id, query, string(status), time.Now().UTC(), id, string(status))
}

func (c *conn) SetOrderPrinted(ctx context.Context, id int64, printed bool) error {
	query := `UPDATE orders SET printed = ?, updated_at = ? WHERE id = ?`
	return mustAffect(c.exec(ctx, query, printed, time.Now().UTC(), id))
}

// MarkOrderPrinted sets the printed flag and reports whether it was unset.
func (c *conn) MarkOrderPrinted(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE orders SET printed = ?, updated_at = ? WHERE id = ? AND printed = ?`
	return c.changed(ctx, id, query, true, time.Now().UTC(), id, false)
}

// changed runs a conditional update of one order. No affected row means
// the condition did not hold, or ErrNotFound when the order is gone.
func (c *conn) changed(ctx context.Context, id int64, query string, args ...any) (bool, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var one int
	if err := c.queryRow(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&one); err != nil {
		return false, mapErr(err)
	}
	return false, nil
}

func (c *conn) DeleteOrder(ctx context.Context, id int64) error {
	return mustAffect(c.exec(ctx, `DELETE FROM orders WHERE id = ?`, id))
}

// CountOrdersByMechanic counts orders that reference the mechanic.
func (c *conn) CountOrdersByMechanic(ctx context.Context, mechanicID int64) (int, error) {
	var n int
	err := c.queryRow(ctx, `SELECT COUNT(*) FROM orders WHERE mechanic_id = ?`, mechanicID).Scan(&n)
	return n, err
}

// OrderStats counts orders by status, optionally for a single mechanic.
func (c *conn) OrderStats(ctx context.Context, mechanicID *int64) (models.OrderStats, error) {
	var stats models.OrderStats
	query := `SELECT status, COUNT(*) FROM orders`
	var args []any
	if mechanicID != nil {
		query += ` WHERE mechanic_id = ?`
		args = append(args, *mechanicID)
	}
	query += ` GROUP BY status`

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.Add(models.Status(status), n)
	}
	return stats, rows.Err()
}
