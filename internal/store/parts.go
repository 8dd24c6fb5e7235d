package store

import (
	"context"
	"strings"
	"time"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const partColumns = `id, name, name_ru, name_en, name_he, description_ru, description_en, description_he,
	category, is_active, sort_order, created_at, updated_at`

type PartFilter struct {
	ActiveOnly bool
	Category   string
}

func scanPart(row rowScanner) (*models.Part, error) {
	var p models.Part
	err := row.Scan(&p.ID, &p.Name, &p.NameRU, &p.NameEN, &p.NameHE,
		&p.DescriptionRU, &p.DescriptionEN, &p.DescriptionHE,
		&p.Category, &p.IsActive, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *conn) CreatePart(ctx context.Context, p *models.Part) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Name == "" {
		p.Name = p.NameRU
	}
	query := `
		INSERT INTO parts (name, name_ru, name_en, name_he, description_ru, description_en, description_he,
			category, is_active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := c.insert(ctx, query, p.Name, p.NameRU, p.NameEN, p.NameHE,
		p.DescriptionRU, p.DescriptionEN, p.DescriptionHE, p.Category, p.IsActive, p.SortOrder, now, now)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (c *conn) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	p, err := scanPart(c.queryRow(ctx, `SELECT `+partColumns+` FROM parts WHERE id = ?`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// FindPart looks a part up by its Russian name within a category,
// ignoring case.
func (c *conn) FindPart(ctx context.Context, category, nameRU string) (*models.Part, error) {
	parts, err := c.ListParts(ctx, PartFilter{Category: category})
	if err != nil {
		return nil, err
	}
	for i := range parts {
		if strings.EqualFold(parts[i].NameRU, nameRU) {
			return &parts[i], nil
		}
	}
	return nil, ErrNotFound
}

// ListParts returns parts ordered by category, then sort order.
func (c *conn) ListParts(ctx context.Context, f PartFilter) ([]models.Part, error) {
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	query := `SELECT ` + partColumns + ` FROM parts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, sort_order, id"

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parts := []models.Part{}
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, *p)
	}
	return parts, rows.Err()
}

func (c *conn) UpdatePart(ctx context.Context, p *models.Part) error {
	p.UpdatedAt = time.Now().UTC()
	if p.Name == "" {
		p.Name = p.NameRU
	}
	query := `
		UPDATE parts
		SET name = ?, name_ru = ?, name_en = ?, name_he = ?, description_ru = ?, description_en = ?,
			description_he = ?, category = ?, is_active = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`
	return mustAffect(c.exec(ctx, query, p.Name, p.NameRU, p.NameEN, p.NameHE,
		p.DescriptionRU, p.DescriptionEN, p.DescriptionHE, p.Category, p.IsActive, p.SortOrder,
		p.UpdatedAt, p.ID))
}

func (c *conn) TogglePartActive(ctx context.Context, id int64) (bool, error) {
	p, err := c.GetPart(ctx, id)
	if err != nil {
		return false, err
	}
	query := `UPDATE parts SET is_active = ?, updated_at = ? WHERE id = ?`
	if err := mustAffect(c.exec(ctx, query, !p.IsActive, time.Now().UTC(), id)); err != nil {
		return false, err
	}
	return !p.IsActive, nil
}

func (c *conn) DeletePart(ctx context.Context, id int64) error {
	return mustAffect(c.exec(ctx, `DELETE FROM parts WHERE id = ?`, id))
}

func (c *conn) CountParts(ctx context.Context) (int, error) {
	var n int
	err := c.queryRow(ctx, `SELECT COUNT(*) FROM parts`).Scan(&n)
	return n, err
}
