package store

import (
	"context"
	"errors"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

// ImportResult reports what ImportCatalog added.
type ImportResult struct {
	CategoriesAdded int `json:"categories_added"`
	PartsAdded      int `json:"parts_added"`
	PartsSkipped    int `json:"parts_skipped"`
}

// ImportCatalog inserts the categories and parts that are not in the
// database yet. Categories match on canonical name, parts on category and
// Russian name, so running it twice adds nothing.
func (s *Store) ImportCatalog(ctx context.Context, categories []models.Category, parts []models.Part) (ImportResult, error) {
	var res ImportResult
	err := s.WithTx(ctx, func(tx *Tx) error {
		for i := range categories {
			cat := categories[i]
			_, err := tx.GetCategoryByName(ctx, cat.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			if err := tx.CreateCategory(ctx, &cat); err != nil {
				return err
			}
			res.CategoriesAdded++
		}

		for i := range parts {
			p := parts[i]
			_, err := tx.FindPart(ctx, p.Category, p.NameRU)
			if err == nil {
				res.PartsSkipped++
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			if err := tx.CreatePart(ctx, &p); err != nil {
				return err
			}
			res.PartsAdded++
		}
		return nil
	})
	return res, err
}
