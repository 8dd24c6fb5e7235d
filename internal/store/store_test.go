package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func createMechanic(t *testing.T, s *Store, username, chatID string) *models.Mechanic {
	t.Helper()
	m := &models.Mechanic{
		Username:      username,
		PasswordHash:  "x",
		FullName:      "Мастер " + username,
		ChatID:        chatID,
		IsActive:      true,
		NotifyOnReady: true,
	}
	require.NoError(t, s.CreateMechanic(context.Background(), m))
	return m
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRebind(t *testing.T) {
	c := &conn{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", c.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	c.dialect = DialectSQLite
	assert.Equal(t, "a = ?", c.rebind("a = ?"))
}

func TestOrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := createMechanic(t, s, "ivan", "1001")

	partID := int64(7)
	o := &models.Order{
		MechanicID:  &m.ID,
		Category:    "Тормоза",
		PlateNumber: "A123BC77",
		Items:       []models.LineItem{{PartID: &partID, Name: "Передние колодки", Quantity: 2}},
		IsOriginal:  true,
	}
	require.NoError(t, s.CreateOrder(ctx, o))
	require.NotZero(t, o.ID)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Equal(t, m.FullName, got.MechanicName)
	assert.Equal(t, "1001", got.ChatID())
	assert.Empty(t, got.GuestName)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, partID, *got.Items[0].PartID)
}

func TestGuestOrderDisplayName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := &models.Order{GuestName: "Гость", GuestChatID: "55", Category: "Двигатель", PlateNumber: "X999XX",
		Items: []models.LineItem{{Name: "Масло", Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MechanicID)
	assert.Equal(t, "Гость", got.MechanicName)
	assert.Equal(t, "55", got.ChatID())
}

func TestOrderDisplayNameFollowsMechanic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := createMechanic(t, s, "petr", "")

	o := &models.Order{MechanicID: &m.ID, Category: "Подвеска", PlateNumber: "B222BB",
		Items: []models.LineItem{{Name: "Пружины", Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, o))

	m.FullName = "Пётр Иванов"
	require.NoError(t, s.UpdateMechanic(ctx, m))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Пётр Иванов", got.MechanicName)
}

func TestListOrdersFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := createMechanic(t, s, "anna", "")

	for _, plate := range []string{"A111AA", "B222BB", "A333CC"} {
		o := &models.Order{MechanicID: &m.ID, Category: "Тормоза", PlateNumber: plate,
			Items: []models.LineItem{{Name: "Диски", Quantity: 1}}}
		require.NoError(t, s.CreateOrder(ctx, o))
	}
	guest := &models.Order{GuestName: "Сергей", Category: "Тормоза", PlateNumber: "C444DD",
		Items: []models.LineItem{{Name: "Диски", Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, guest))
	moved, err := s.UpdateOrderStatus(ctx, guest.ID, models.StatusReady)
	require.NoError(t, err)
	require.True(t, moved)

	all, err := s.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, guest.ID, all[0].ID, "newest first")

	byPlate, err := s.ListOrders(ctx, OrderFilter{PlateNumber: "a"})
	require.NoError(t, err)
	assert.Len(t, byPlate, 2)

	for _, wildcard := range []string{"%", "_", "A_1", `\`} {
		literal, err := s.ListOrders(ctx, OrderFilter{PlateNumber: wildcard})
		require.NoError(t, err)
		assert.Empty(t, literal, "plate filter %q matches literally", wildcard)
	}

	byStatus, err := s.ListOrders(ctx, OrderFilter{Status: models.StatusReady})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, guest.ID, byStatus[0].ID)

	byName, err := s.ListOrders(ctx, OrderFilter{Mechanic: "сергей"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, guest.ID, byName[0].ID)

	mine, err := s.ListOrders(ctx, OrderFilter{MechanicID: &m.ID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	stats, err := s.OrderStats(ctx, &m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStats{Total: 3, New: 3}, stats)
}

func TestUpdateMissingOrder(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateOrderStatus(context.Background(), 404, models.StatusReady)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.MarkOrderPrinted(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetOrder(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConditionalOrderUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	o := &models.Order{GuestName: "Гость", Category: "Тормоза", PlateNumber: "A123BC",
		Items: []models.LineItem{{Name: "Диски", Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, o))

	moved, err := s.UpdateOrderStatus(ctx, o.ID, models.StatusReady)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = s.UpdateOrderStatus(ctx, o.ID, models.StatusReady)
	require.NoError(t, err)
	assert.False(t, moved, "a second writer of the same status sees no change")

	marked, err := s.MarkOrderPrinted(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, marked)
	marked, err = s.MarkOrderPrinted(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, marked)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.True(t, got.Printed)
}

func TestDeleteMechanicWithOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	busy := createMechanic(t, s, "busy", "")
	idle := createMechanic(t, s, "idle", "")

	o := &models.Order{MechanicID: &busy.ID, Category: "Тормоза", PlateNumber: "A123BC",
		Items: []models.LineItem{{Name: "Колодки", Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, o))

	assert.ErrorIs(t, s.DeleteMechanic(ctx, busy.ID), ErrInUse)
	_, err := s.GetMechanic(ctx, busy.ID)
	assert.NoError(t, err)

	require.NoError(t, s.DeleteMechanic(ctx, idle.ID))
	_, err = s.GetMechanic(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMechanicUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createMechanic(t, s, "ivan", "42")

	err := s.CreateMechanic(ctx, &models.Mechanic{Username: "ivan", PasswordHash: "x", FullName: "Dup"})
	assert.ErrorIs(t, err, ErrConflict)

	err = s.CreateMechanic(ctx, &models.Mechanic{Username: "other", PasswordHash: "x", FullName: "Dup", ChatID: "42"})
	assert.ErrorIs(t, err, ErrConflict)

	// Several mechanics without a chat handle are fine.
	createMechanic(t, s, "a", "")
	createMechanic(t, s, "b", "")
}

func TestToggleMechanicActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := createMechanic(t, s, "ivan", "")

	active, err := s.ToggleMechanicActive(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, active)

	total, activeCount, err := s.CountMechanics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, activeCount)
}

func TestCategoryRenameMovesParts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cat := &models.Category{Name: "Тормоза", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, cat))
	p := &models.Part{NameRU: "Колодки", Category: "Тормоза", IsActive: true}
	require.NoError(t, s.CreatePart(ctx, p))

	cat.Name = "Тормозная система"
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.UpdateCategory(ctx, cat) }))

	got, err := s.GetPart(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тормозная система", got.Category)

	reloaded, err := s.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.PartsCount)
	assert.Equal(t, 1, reloaded.ActivePartsCount)

	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), ErrInUse)
	require.NoError(t, s.DeletePart(ctx, p.ID))
	require.NoError(t, s.DeleteCategory(ctx, cat.ID))
}

func TestListPartsOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, name := range []string{"В", "А", "Б"} {
		p := &models.Part{NameRU: name, Category: "Тормоза", IsActive: i != 2, SortOrder: 10 - i}
		require.NoError(t, s.CreatePart(ctx, p))
	}

	all, err := s.ListParts(ctx, PartFilter{Category: "Тормоза"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Б", all[0].NameRU)
	assert.Equal(t, "В", all[2].NameRU)
	assert.Equal(t, "В", all[2].Name, "legacy name defaults to the Russian name")

	active, err := s.ListParts(ctx, PartFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestImportCatalogIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cats := []models.Category{{Name: "Тормоза", NameRU: "Тормоза", NameEN: "Brakes", IsActive: true}}
	parts := []models.Part{
		{NameRU: "Передние колодки", NameEN: "Front pads", Category: "Тормоза", IsActive: true},
		{NameRU: "Задние колодки", NameEN: "Rear pads", Category: "Тормоза", IsActive: true, SortOrder: 1},
	}

	res, err := s.ImportCatalog(ctx, cats, parts)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{CategoriesAdded: 1, PartsAdded: 2}, res)

	res, err = s.ImportCatalog(ctx, cats, parts)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{PartsSkipped: 2}, res)

	found, err := s.FindPart(ctx, "Тормоза", "ПЕРЕДНИЕ КОЛОДКИ")
	require.NoError(t, err)
	assert.Equal(t, "Front pads", found.NameEN)
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SeedAdmin(ctx, "admin", ""))
	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.SeedAdmin(ctx, "admin", "secret"))
	require.NoError(t, s.SeedAdmin(ctx, "admin", "other"))

	a, err := s.GetAdminByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NotEqual(t, "secret", a.Password)

	missing, err := s.GetAdminByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := createMechanic(t, s, "ivan", "")
	o := &models.Order{MechanicID: &m.ID, Category: "Тормоза", PlateNumber: "A123BC",
		Items: []models.LineItem{{Name: "Колодки", Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, o))

	stats, err := s.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Orders.Total)
	assert.Equal(t, 1, stats.Mechanics)
	require.Len(t, stats.TopMechanics, 1)
	assert.Equal(t, 1, stats.TopMechanics[0].OrderCount)
}
