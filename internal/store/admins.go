package store

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

// GetAdminByUsername returns nil, nil when no such admin exists.
func (c *conn) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `SELECT id, username, password FROM admins WHERE username = ?`
	var a models.Admin
	if err := c.queryRow(ctx, query, username).Scan(&a.ID, &a.Username, &a.Password); err != nil {
		if err = mapErr(err); errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CreateAdmin stores a new admin; hashedPassword must already be a bcrypt hash.
func (c *conn) CreateAdmin(ctx context.Context, username, hashedPassword string) (int64, error) {
	return c.insert(ctx, `INSERT INTO admins (username, password) VALUES (?, ?)`, username, hashedPassword)
}

func (c *conn) SetAdminPassword(ctx context.Context, username, hashedPassword string) error {
	return mustAffect(c.exec(ctx, `UPDATE admins SET password = ? WHERE username = ?`, hashedPassword, username))
}

func (c *conn) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := c.queryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

// SeedAdmin creates the bootstrap admin when the admins table is empty.
// It does nothing if password is empty or an admin already exists.
func (s *Store) SeedAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		return nil
	}
	n, err := s.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.CreateAdmin(ctx, username, string(hash)); err != nil {
		return err
	}
	slog.Info("Seeded admin account", "username", username)
	return nil
}
