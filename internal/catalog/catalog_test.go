package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestDefault(t *testing.T) {
	cats, parts := Default()
	require.Len(t, cats, 5)
	assert.Equal(t, "Тормоза", cats[0].Name)
	assert.Equal(t, "Brakes", cats[0].NameEN)
	assert.Len(t, parts, 25)
	for _, p := range parts {
		assert.NotEmpty(t, p.NameRU)
		assert.NotEmpty(t, p.NameEN, p.NameRU)
		assert.NotEmpty(t, p.NameHE, p.NameRU)
	}

	// Callers get their own copies.
	cats[0].Name = "changed"
	again, _ := Default()
	assert.Equal(t, "Тормоза", again[0].Name)
}

func TestFindTranslation(t *testing.T) {
	tr, ok := FindTranslation("тормозная жидкость")
	require.True(t, ok)
	assert.Equal(t, "Brake fluid", tr.EN)
	assert.Equal(t, "נוזל בלמים", tr.HE)

	_, ok = FindTranslation("  ТОРМОЗНАЯ ЖИДКОСТЬ ")
	assert.True(t, ok)

	_, ok = FindTranslation("несуществующая запчасть xyz123")
	assert.False(t, ok)
}

func TestFillTranslationsKeepsExplicitValues(t *testing.T) {
	p := &models.Part{NameRU: "Тормозная жидкость", NameEN: "Custom brake fluid"}
	FillTranslations(p)
	assert.Equal(t, "Custom brake fluid", p.NameEN)
	assert.Equal(t, "נוזל בלמים", p.NameHE)

	c := &models.Category{Name: "Типуль"}
	FillCategoryTranslations(c)
	assert.Equal(t, "Maintenance", c.NameEN)
}

func testCatalog() *Catalog {
	parts := []models.Part{
		{ID: 1, NameRU: "Задние колодки", NameEN: "Rear pads", Category: "Тормоза", SortOrder: 2},
		{ID: 2, NameRU: "Передние колодки", NameEN: "Front pads", NameHE: "רפידות קדמיות", Category: "Тормоза", SortOrder: 1},
		{ID: 3, NameRU: "Диски", Category: "Тормоза", SortOrder: 3},
	}
	cats := []models.Category{{ID: 1, Name: "Тормоза", NameRU: "Тормоза", NameEN: "Brakes", IsActive: true}}
	return New(parts, cats)
}

func TestViewResolvesAndSorts(t *testing.T) {
	c := testCatalog()
	o := &models.Order{
		ID:       9,
		Category: "Тормоза",
		Status:   models.StatusReady,
		Items: []models.LineItem{
			{Name: "Unknown bolt", Quantity: 1},
			{PartID: ptr(int64(1)), Name: "old name", Quantity: 2},
			{Name: "передние КОЛОДКИ", Quantity: 1},
			{Name: "Another unknown", Quantity: 3},
			{PartID: ptr(int64(3)), Name: "Диски", Quantity: 1},
		},
		CreatedAt: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
	}

	v := c.View(o, "en")
	assert.Equal(t, []string{"Front pads", "Rear pads", "Диски", "Unknown bolt", "Another unknown"}, v.SelectedParts)
	assert.Equal(t, 2, v.Items[1].Quantity)
	assert.Equal(t, "Brakes", v.CategoryLabel)
	assert.Equal(t, "Ready", v.StatusLabel)
	assert.Equal(t, "2025-03-01 10:30:00", v.CreatedAt)
	assert.Empty(t, v.UpdatedAt)
}

func TestViewDeletedPartFallsBackToStoredName(t *testing.T) {
	c := testCatalog()
	o := &models.Order{Category: "Нет такой", Status: models.StatusNew,
		Items: []models.LineItem{{PartID: ptr(int64(99)), Name: "Снятая деталь", Quantity: 1}}}

	v := c.View(o, "he")
	assert.Equal(t, []string{"Снятая деталь"}, v.SelectedParts)
	assert.Equal(t, "Нет такой", v.CategoryLabel)
}

func TestPublic(t *testing.T) {
	cats := []models.Category{
		{ID: 1, Name: "Тормоза", NameRU: "Тормоза", NameEN: "Brakes", IsActive: true},
		{ID: 2, Name: "Скрытая", NameRU: "Скрытая", IsActive: false},
	}
	parts := []models.Part{
		{ID: 1, NameRU: "Задние колодки", NameEN: "Rear pads", Category: "Тормоза", IsActive: true, SortOrder: 2},
		{ID: 2, NameRU: "Передние колодки", Category: "Тормоза", IsActive: true, SortOrder: 1},
		{ID: 3, NameRU: "Выключенная", Category: "Тормоза", IsActive: false},
		{ID: 4, NameRU: "Сирота", Category: "Скрытая", IsActive: true},
	}

	out := Public(cats, parts, "en")
	require.Len(t, out, 1)
	assert.Equal(t, "Brakes", out[0].Label)
	require.Len(t, out[0].Parts, 2)
	assert.Equal(t, "Передние колодки", out[0].Parts[0].Name, "missing English name falls back to Russian")
	assert.Equal(t, "Rear pads", out[0].Parts[1].Name)

	assert.Empty(t, Public(nil, nil, "ru"))
}
