package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vorokhovskii-creator/felix-hub/internal/catalog"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

// PublicCatalog returns active categories with their active parts, named
// in lang.
func (s *Service) PublicCatalog(ctx context.Context, lang string) ([]catalog.PublicCategory, error) {
	categories, err := s.store.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	parts, err := s.store.ListParts(ctx, store.PartFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return catalog.Public(categories, parts, lang), nil
}

type PartPatch struct {
	Name          *string `json:"name"`
	NameRU        *string `json:"name_ru"`
	NameEN        *string `json:"name_en"`
	NameHE        *string `json:"name_he"`
	DescriptionRU *string `json:"description_ru"`
	DescriptionEN *string `json:"description_en"`
	DescriptionHE *string `json:"description_he"`
	Category      *string `json:"category"`
	IsActive      *bool   `json:"is_active"`
	SortOrder     *int    `json:"sort_order"`
}

func (p PartPatch) apply(part *models.Part) error {
	oldName, oldRU := part.Name, part.NameRU
	for dst, src := range map[*string]*string{
		&part.Name:          p.Name,
		&part.NameRU:        p.NameRU,
		&part.NameEN:        p.NameEN,
		&part.NameHE:        p.NameHE,
		&part.DescriptionRU: p.DescriptionRU,
		&part.DescriptionEN: p.DescriptionEN,
		&part.DescriptionHE: p.DescriptionHE,
		&part.Category:      p.Category,
	} {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	if p.IsActive != nil {
		part.IsActive = *p.IsActive
	}
	if p.SortOrder != nil {
		part.SortOrder = *p.SortOrder
	}
	// The legacy name and the Russian name move together while they agree.
	if oldName == oldRU {
		switch {
		case p.Name != nil && p.NameRU == nil:
			part.NameRU = part.Name
		case p.NameRU != nil && p.Name == nil:
			part.Name = part.NameRU
		}
	}
	// Older clients only send the single-language name.
	if part.NameRU == "" {
		part.NameRU = part.Name
	}
	if part.NameRU == "" {
		return invalid("", "russian name is required")
	}
	if part.Category == "" {
		return invalid("", "category is required")
	}
	dropStaleTranslations(oldRU, part.NameRU, &part.NameEN, &part.NameHE, p.NameEN, p.NameHE)
	return nil
}

// dropStaleTranslations clears the en/he names that came from the
// dictionary entry of the previous Russian name, so they can be refilled
// for the new one. Values set by the patch are kept.
func dropStaleTranslations(oldRU, newRU string, en, he, patchEN, patchHE *string) {
	if oldRU == "" || strings.EqualFold(oldRU, newRU) {
		return
	}
	tr, ok := catalog.FindTranslation(oldRU)
	if !ok {
		return
	}
	if patchEN == nil && *en == tr.EN {
		*en = ""
	}
	if patchHE == nil && *he == tr.HE {
		*he = ""
	}
}

// CreatePart adds a part, filling missing translations from the dictionary.
func (s *Service) CreatePart(ctx context.Context, p PartPatch) (*models.Part, error) {
	part := &models.Part{IsActive: true}
	if err := p.apply(part); err != nil {
		return nil, err
	}
	catalog.FillTranslations(part)
	if err := s.store.CreatePart(ctx, part); err != nil {
		return nil, err
	}
	return part, nil
}

func (s *Service) UpdatePart(ctx context.Context, id int64, p PartPatch) (*models.Part, error) {
	part, err := s.store.GetPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.apply(part); err != nil {
		return nil, err
	}
	catalog.FillTranslations(part)
	if err := s.store.UpdatePart(ctx, part); err != nil {
		return nil, err
	}
	return part, nil
}

type BulkInput struct {
	Category string     `json:"category"`
	Parts    []BulkPart `json:"parts"`
}

// BulkPart is one bulk entry: a bare Russian name or a part object.
type BulkPart struct {
	Name          string `json:"name"`
	NameRU        string `json:"name_ru"`
	NameEN        string `json:"name_en"`
	NameHE        string `json:"name_he"`
	DescriptionRU string `json:"description_ru"`
	DescriptionEN string `json:"description_en"`
	DescriptionHE string `json:"description_he"`
}

func (b *BulkPart) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*b = BulkPart{NameRU: name}
		return nil
	}
	type plain BulkPart
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = BulkPart(p)
	return nil
}

func (b BulkPart) part(category string) models.Part {
	ru := strings.TrimSpace(b.NameRU)
	if ru == "" {
		ru = strings.TrimSpace(b.Name)
	}
	name := strings.TrimSpace(b.Name)
	if name == "" {
		name = ru
	}
	return models.Part{
		Name:          name,
		NameRU:        ru,
		NameEN:        strings.TrimSpace(b.NameEN),
		NameHE:        strings.TrimSpace(b.NameHE),
		DescriptionRU: strings.TrimSpace(b.DescriptionRU),
		DescriptionEN: strings.TrimSpace(b.DescriptionEN),
		DescriptionHE: strings.TrimSpace(b.DescriptionHE),
		Category:      category,
		IsActive:      true,
	}
}

// BulkCreateParts adds the given parts under a category, creating the
// category when it does not exist and skipping parts it already has.
func (s *Service) BulkCreateParts(ctx context.Context, in BulkInput) (store.ImportResult, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return store.ImportResult{}, invalid("", "category is required")
	}
	existing, err := s.store.ListParts(ctx, store.PartFilter{Category: category})
	if err != nil {
		return store.ImportResult{}, err
	}
	next := 0
	seen := make(map[string]bool, len(existing)+len(in.Parts))
	for _, p := range existing {
		if p.SortOrder >= next {
			next = p.SortOrder + 1
		}
		seen[strings.ToLower(p.NameRU)] = true
	}

	var (
		parts   []models.Part
		skipped int
	)
	for _, b := range in.Parts {
		p := b.part(category)
		if p.NameRU == "" {
			continue
		}
		key := strings.ToLower(p.NameRU)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		p.SortOrder = next
		catalog.FillTranslations(&p)
		parts = append(parts, p)
		next++
	}
	if len(parts) == 0 && skipped == 0 {
		return store.ImportResult{}, invalid("", "no part names given")
	}

	categories, err := s.store.ListCategories(ctx, false)
	if err != nil {
		return store.ImportResult{}, err
	}
	newCategory := models.Category{Name: category, NameRU: category, IsActive: true}
	for _, c := range categories {
		if c.SortOrder >= newCategory.SortOrder {
			newCategory.SortOrder = c.SortOrder + 1
		}
	}
	catalog.FillCategoryTranslations(&newCategory)

	res, err := s.store.ImportCatalog(ctx, []models.Category{newCategory}, parts)
	res.PartsSkipped += skipped
	return res, err
}

// ImportDefaultCatalog adds the built-in categories and parts that are
// missing.
func (s *Service) ImportDefaultCatalog(ctx context.Context) (store.ImportResult, error) {
	categories, parts := catalog.Default()
	res, err := s.store.ImportCatalog(ctx, categories, parts)
	if err != nil {
		return res, err
	}
	slog.Info("Default catalog imported", "categories", res.CategoriesAdded, "parts", res.PartsAdded,
		"skipped", res.PartsSkipped)
	return res, nil
}

type CategoryPatch struct {
	Name      *string `json:"name"`
	NameRU    *string `json:"name_ru"`
	NameEN    *string `json:"name_en"`
	NameHE    *string `json:"name_he"`
	IsActive  *bool   `json:"is_active"`
	SortOrder *int    `json:"sort_order"`
}

func (p CategoryPatch) apply(c *models.Category) error {
	oldName, oldRU := c.Name, c.NameRU
	for dst, src := range map[*string]*string{
		&c.Name:   p.Name,
		&c.NameRU: p.NameRU,
		&c.NameEN: p.NameEN,
		&c.NameHE: p.NameHE,
	} {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.SortOrder != nil {
		c.SortOrder = *p.SortOrder
	}
	if c.Name == "" {
		c.Name = c.NameRU
	}
	if c.Name == "" {
		return invalid("", "category name is required")
	}
	// A rename carries the Russian label along while the two agree.
	if p.Name != nil && p.NameRU == nil && oldName == oldRU {
		c.NameRU = c.Name
	}
	if c.NameRU == "" {
		c.NameRU = c.Name
	}
	dropStaleTranslations(oldRU, c.NameRU, &c.NameEN, &c.NameHE, p.NameEN, p.NameHE)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, p CategoryPatch) (*models.Category, error) {
	c := &models.Category{IsActive: true}
	if err := p.apply(c); err != nil {
		return nil, err
	}
	catalog.FillCategoryTranslations(c)
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory saves the category; a rename carries its parts along.
func (s *Service) UpdateCategory(ctx context.Context, id int64, p CategoryPatch) (*models.Category, error) {
	var out *models.Category
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := p.apply(c); err != nil {
			return err
		}
		catalog.FillCategoryTranslations(c)
		if err := tx.UpdateCategory(ctx, c); err != nil {
			return err
		}
		out, err = tx.GetCategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
