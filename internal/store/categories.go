package store

import (
	"context"
	"fmt"
	"time"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const categorySelect = `
	SELECT c.id, c.name, c.name_ru, c.name_en, c.name_he, c.is_active, c.sort_order,
		(SELECT COUNT(*) FROM parts p WHERE p.category = c.name),
		(SELECT COUNT(*) FROM parts p WHERE p.category = c.name AND p.is_active),
		c.created_at, c.updated_at
	FROM categories c`

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.NameRU, &c.NameEN, &c.NameHE, &c.IsActive, &c.SortOrder,
		&c.PartsCount, &c.ActivePartsCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *conn) CreateCategory(ctx context.Context, cat *models.Category) error {
	now := time.Now().UTC()
	cat.CreatedAt, cat.UpdatedAt = now, now
	if cat.NameRU == "" {
		cat.NameRU = cat.Name
	}
	query := `
		INSERT INTO categories (name, name_ru, name_en, name_he, is_active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := c.insert(ctx, query, cat.Name, cat.NameRU, cat.NameEN, cat.NameHE, cat.IsActive,
		cat.SortOrder, now, now)
	if err != nil {
		return err
	}
	cat.ID = id
	return nil
}

func (c *conn) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	cat, err := scanCategory(c.queryRow(ctx, categorySelect+` WHERE c.id = ?`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return cat, nil
}

func (c *conn) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	cat, err := scanCategory(c.queryRow(ctx, categorySelect+` WHERE c.name = ?`, name))
	if err != nil {
		return nil, mapErr(err)
	}
	return cat, nil
}

// ListCategories returns categories in display order.
func (c *conn) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := categorySelect
	if activeOnly {
		query += ` WHERE c.is_active`
	}
	query += ` ORDER BY c.sort_order, c.name`

	rows, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}

// UpdateCategory saves cat. When the canonical name changes, parts filed
// under the old name move with it; call it inside WithTx.
func (c *conn) UpdateCategory(ctx context.Context, cat *models.Category) error {
	old, err := c.GetCategory(ctx, cat.ID)
	if err != nil {
		return err
	}
	cat.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE categories
		SET name = ?, name_ru = ?, name_en = ?, name_he = ?, is_active = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`
	if err := mustAffect(c.exec(ctx, query, cat.Name, cat.NameRU, cat.NameEN, cat.NameHE, cat.IsActive,
		cat.SortOrder, cat.UpdatedAt, cat.ID)); err != nil {
		return err
	}
	if old.Name != cat.Name {
		if _, err := c.exec(ctx, `UPDATE parts SET category = ?, updated_at = ? WHERE category = ?`,
			cat.Name, cat.UpdatedAt, old.Name); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) ToggleCategoryActive(ctx context.Context, id int64) (bool, error) {
	cat, err := c.GetCategory(ctx, id)
	if err != nil {
		return false, err
	}
	query := `UPDATE categories SET is_active = ?, updated_at = ? WHERE id = ?`
	if err := mustAffect(c.exec(ctx, query, !cat.IsActive, time.Now().UTC(), id)); err != nil {
		return false, err
	}
	return !cat.IsActive, nil
}

// DeleteCategory removes an empty category.
func (c *conn) DeleteCategory(ctx context.Context, id int64) error {
	cat, err := c.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if cat.PartsCount > 0 {
		return fmt.Errorf("%w: category has %d parts", ErrInUse, cat.PartsCount)
	}
	return mustAffect(c.exec(ctx, `DELETE FROM categories WHERE id = ?`, id))
}
