package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const mechanicColumns = `id, username, password_hash, full_name, telegram_id, phone, email,
	is_active, notify_on_ready, notify_on_processing, notify_on_cancelled, language,
	created_at, updated_at, last_login`

func scanMechanic(row rowScanner) (*models.Mechanic, error) {
	var (
		m         models.Mechanic
		chatID    sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Username, &m.PasswordHash, &m.FullName, &chatID, &m.Phone, &m.Email,
		&m.IsActive, &m.NotifyOnReady, &m.NotifyOnProcessing, &m.NotifyOnCancelled, &m.Language,
		&m.CreatedAt, &m.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	m.ChatID = chatID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		m.LastLogin = &t
	}
	return &m, nil
}

func (c *conn) CreateMechanic(ctx context.Context, m *models.Mechanic) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	if m.Language == "" {
		m.Language = "ru"
	}
	query := `
		INSERT INTO mechanics (username, password_hash, full_name, telegram_id, phone, email,
			is_active, notify_on_ready, notify_on_processing, notify_on_cancelled, language,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := c.insert(ctx, query, m.Username, m.PasswordHash, m.FullName, nullString(m.ChatID),
		m.Phone, m.Email, m.IsActive, m.NotifyOnReady, m.NotifyOnProcessing, m.NotifyOnCancelled,
		m.Language, now, now)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (c *conn) GetMechanic(ctx context.Context, id int64) (*models.Mechanic, error) {
	row := c.queryRow(ctx, `SELECT `+mechanicColumns+` FROM mechanics WHERE id = ?`, id)
	m, err := scanMechanic(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (c *conn) GetMechanicByUsername(ctx context.Context, username string) (*models.Mechanic, error) {
	row := c.queryRow(ctx, `SELECT `+mechanicColumns+` FROM mechanics WHERE username = ?`, username)
	m, err := scanMechanic(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

// ListMechanics returns mechanics newest first.
func (c *conn) ListMechanics(ctx context.Context) ([]models.Mechanic, error) {
	rows, err := c.query(ctx, `SELECT `+mechanicColumns+` FROM mechanics ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mechanics := []models.Mechanic{}
	for rows.Next() {
		m, err := scanMechanic(rows)
		if err != nil {
			return nil, err
		}
		mechanics = append(mechanics, *m)
	}
	return mechanics, rows.Err()
}

// UpdateMechanic writes every mutable field except the password.
func (c *conn) UpdateMechanic(ctx context.Context, m *models.Mechanic) error {
	m.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE mechanics
		SET username = ?, full_name = ?, telegram_id = ?, phone = ?, email = ?, is_active = ?,
			notify_on_ready = ?, notify_on_processing = ?, notify_on_cancelled = ?, language = ?,
			updated_at = ?
		WHERE id = ?`
	return mustAffect(c.exec(ctx, query, m.Username, m.FullName, nullString(m.ChatID), m.Phone, m.Email,
		m.IsActive, m.NotifyOnReady, m.NotifyOnProcessing, m.NotifyOnCancelled, m.Language,
		m.UpdatedAt, m.ID))
}

func (c *conn) UpdateMechanicPassword(ctx context.Context, id int64, hash string) error {
	query := `UPDATE mechanics SET password_hash = ?, updated_at = ? WHERE id = ?`
	return mustAffect(c.exec(ctx, query, hash, time.Now().UTC(), id))
}

func (c *conn) TouchMechanicLogin(ctx context.Context, id int64) error {
	query := `UPDATE mechanics SET last_login = ? WHERE id = ?`
	return mustAffect(c.exec(ctx, query, time.Now().UTC(), id))
}

// ToggleMechanicActive flips is_active and returns the new value.
func (c *conn) ToggleMechanicActive(ctx context.Context, id int64) (bool, error) {
	m, err := c.GetMechanic(ctx, id)
	if err != nil {
		return false, err
	}
	query := `UPDATE mechanics SET is_active = ?, updated_at = ? WHERE id = ?`
	if err := mustAffect(c.exec(ctx, query, !m.IsActive, time.Now().UTC(), id)); err != nil {
		return false, err
	}
	return !m.IsActive, nil
}

// DeleteMechanic removes a mechanic that owns no orders.
func (c *conn) DeleteMechanic(ctx context.Context, id int64) error {
	if _, err := c.GetMechanic(ctx, id); err != nil {
		return err
	}
	n, err := c.CountOrdersByMechanic(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: mechanic has %d orders, deactivate instead", ErrInUse, n)
	}
	return mustAffect(c.exec(ctx, `DELETE FROM mechanics WHERE id = ?`, id))
}

func (c *conn) CountMechanics(ctx context.Context) (total, active int, err error) {
	err = c.queryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) FROM mechanics`).
		Scan(&total, &active)
	return total, active, err
}
