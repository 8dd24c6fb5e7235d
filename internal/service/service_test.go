package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/notify"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

type message struct {
	chatID string
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []message
}

func (f *fakeSender) Send(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, message{chatID, text})
	return nil
}

func (f *fakeSender) to(chatID string) []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []message
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	svc      *Service
	store    *store.Store
	sender   *fakeSender
	receipts *bytes.Buffer
}

func newFixture(t *testing.T, allowAnonymous bool) *fixture {
	t.Helper()
	st, err := store.NewStore(store.DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	f := &fixture{store: st, sender: &fakeSender{}, receipts: &bytes.Buffer{}}
	n := notify.New(f.sender, "admin-chat", "ru", nil)
	f.svc = New(st, n, nil, nil, Options{AllowAnonymous: allowAnonymous, AdminLanguage: "ru", Receipts: f.receipts})
	return f
}

func (f *fixture) mechanic(t *testing.T, username, chatID string) *models.Mechanic {
	t.Helper()
	m, err := f.svc.CreateMechanic(context.Background(), MechanicPatch{
		Username: ptr(username),
		Password: ptr("secret1"),
		FullName: ptr("Мастер " + username),
		ChatID:   ptr(chatID),
	})
	require.NoError(t, err)
	return m
}

func ptr[T any](v T) *T { return &v }

func validInput(mechanicID *int64) SubmitInput {
	return SubmitInput{
		MechanicID:  mechanicID,
		Category:    "Тормоза",
		PlateNumber: " a123bc77 ",
		Items:       []models.LineItem{{Name: "Передние колодки", Quantity: 1}},
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name    string
		plate   string
		want    string
		wantErr string
	}{
		{"latin", "a123bc77", "A123BC77", ""},
		{"cyrillic", " в456ст199 ", "В456СТ199", ""},
		{"dashed digits", "123-45-678", "123-45-678", ""},
		{"empty", "   ", "", "error.plate_required"},
		{"too short", "A12", "", "error.plate_invalid"},
		{"padded short", "  A12  ", "", "error.plate_invalid"},
		{"no alphanumerics", "-----", "", "error.plate_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePlate(tt.plate)
			if tt.wantErr != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "")

	tests := []struct {
		name   string
		mutate func(*SubmitInput)
		key    string
	}{
		{"no items", func(in *SubmitInput) { in.Items = nil }, "error.items_required"},
		{"blank items", func(in *SubmitInput) { in.Items = []models.LineItem{{Name: "  "}} }, "error.items_required"},
		{"negative quantity", func(in *SubmitInput) { in.Items[0].Quantity = -1 }, "error.quantity_invalid"},
		{"bad plate", func(in *SubmitInput) { in.PlateNumber = "AB" }, "error.plate_invalid"},
		{"no category", func(in *SubmitInput) { in.Category = " " }, "error.category_required"},
		{"guest without name", func(in *SubmitInput) { in.MechanicID = nil }, "error.guest_name_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(&m.ID)
			tt.mutate(&in)
			_, err := f.svc.SubmitOrder(ctx, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.key, verr.Key)
		})
	}

	n, err := f.store.CountOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected orders must not be stored")
	assert.Empty(t, f.sender.to("admin-chat"))
}

func TestSubmitAnonymousDisabled(t *testing.T) {
	f := newFixture(t, false)
	in := validInput(nil)
	in.GuestName = "Гость"
	_, err := f.svc.SubmitOrder(context.Background(), in)
	assert.ErrorIs(t, err, ErrAnonymousDisabled)
}

func TestSubmitOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "")

	in := validInput(&m.ID)
	in.Items = append(in.Items, models.LineItem{Name: "Диски", Quantity: 0})
	in.Comment = "  срочно "
	o, err := f.svc.SubmitOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "A123BC77", o.PlateNumber)
	assert.Equal(t, models.StatusNew, o.Status)
	assert.Equal(t, "Мастер ivan", o.MechanicName)
	assert.Equal(t, "срочно", o.Comment)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 1, o.Items[1].Quantity, "missing quantity defaults to 1")

	admin := f.sender.to("admin-chat")
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].text, "A123BC77")
}

func TestSubmitResolvesPartByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	p, err := f.svc.CreatePart(ctx, PartPatch{NameRU: ptr("Тормозная жидкость"), Category: ptr("Тормоза")})
	require.NoError(t, err)

	in := validInput(nil)
	in.GuestName = "Гость"
	in.Items = []models.LineItem{{PartID: &p.ID}}
	o, err := f.svc.SubmitOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "Тормозная жидкость", o.Items[0].Name)

	in.Items = []models.LineItem{{PartID: ptr(int64(999))}}
	_, err = f.svc.SubmitOrder(ctx, in)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReadyTransitionNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "777")

	o, err := f.svc.SubmitOrder(ctx, validInput(&m.ID))
	require.NoError(t, err)

	ready := models.StatusReady
	updated, err := f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &ready})
	require.NoError(t, err)
	assert.True(t, updated.Printed)

	// Repeated no-op updates change nothing.
	for i := 0; i < 3; i++ {
		_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &ready})
		require.NoError(t, err)
	}
	_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &ready, Printed: ptr(true)})
	require.NoError(t, err)

	msgs := f.sender.to("777")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "готов")
	assert.Equal(t, 1, strings.Count(f.receipts.String(), "СТО Felix"))

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Printed)
	assert.Equal(t, models.StatusReady, stored.Status)
}

func TestReadyWithoutChatHandle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "")

	o, err := f.svc.SubmitOrder(ctx, validInput(&m.ID))
	require.NoError(t, err)

	ready := models.StatusReady
	updated, err := f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &ready})
	require.NoError(t, err)
	assert.True(t, updated.Printed)
	assert.Len(t, f.sender.sent, 1, "only the admin new-order message")
}

func TestAlreadyPrintedOrderIsNotReprinted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "777")
	o, err := f.svc.SubmitOrder(ctx, validInput(&m.ID))
	require.NoError(t, err)

	_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Printed: ptr(true)})
	require.NoError(t, err)

	ready := models.StatusReady
	_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &ready})
	require.NoError(t, err)
	assert.Empty(t, f.receipts.String())
	assert.Len(t, f.sender.to("777"), 1)
}

func TestStatusPreferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "777")
	o, err := f.svc.SubmitOrder(ctx, validInput(&m.ID))
	require.NoError(t, err)

	processing := models.StatusProcessing
	_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &processing})
	require.NoError(t, err)
	assert.Empty(t, f.sender.to("777"), "processing is off by default")

	_, err = f.svc.UpdateMechanic(ctx, m.ID, MechanicPatch{NotifyOnCancelled: ptr(true)})
	require.NoError(t, err)
	cancelled := models.StatusCancelled
	_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Len(t, f.sender.to("777"), 1)
}

func TestGuestReadyNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	in := validInput(nil)
	in.GuestName = "Гость"
	in.GuestChatID = "guest-chat"
	o, err := f.svc.SubmitOrder(ctx, in)
	require.NoError(t, err)

	ready := models.StatusReady
	_, err = f.svc.UpdateOrder(ctx, o.ID, UpdateInput{Status: &ready})
	require.NoError(t, err)
	assert.Len(t, f.sender.to("guest-chat"), 1)
}

func TestUpdateOrderErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	bogus := models.Status("готово")
	_, err := f.svc.UpdateOrder(ctx, 1, UpdateInput{Status: &bogus})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	ready := models.StatusReady
	_, err = f.svc.UpdateOrder(ctx, 404, UpdateInput{Status: &ready})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrintOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "")
	in := validInput(&m.ID)
	in.Items = []models.LineItem{{Name: "Колодки", Quantity: 4}}
	o, err := f.svc.SubmitOrder(ctx, in)
	require.NoError(t, err)

	text, err := f.svc.PrintOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "Механик: Мастер ivan")
	assert.Contains(t, text, "- Колодки x4")
	assert.Contains(t, text, "Статус: Новый")

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Printed)
}

func TestAuthenticateMechanic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "")

	got, err := f.svc.AuthenticateMechanic(ctx, "ivan", "secret1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	stored, err := f.store.GetMechanic(ctx, m.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	_, err = f.svc.AuthenticateMechanic(ctx, "ivan", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.AuthenticateMechanic(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.store.ToggleMechanicActive(ctx, m.ID)
	require.NoError(t, err)
	_, err = f.svc.AuthenticateMechanic(ctx, "ivan", "secret1")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestAuthenticateAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	require.NoError(t, f.store.SeedAdmin(ctx, "admin", "felix2025"))

	_, err := f.svc.AuthenticateAdmin(ctx, "admin", "felix2025")
	assert.NoError(t, err)
	_, err = f.svc.AuthenticateAdmin(ctx, "admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.AuthenticateAdmin(ctx, "ghost", "felix2025")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	m := f.mechanic(t, "ivan", "")

	var verr *ValidationError
	assert.ErrorAs(t, f.svc.ChangePassword(ctx, m.ID, "wrong", "newpass"), &verr)
	assert.ErrorAs(t, f.svc.ChangePassword(ctx, m.ID, "secret1", "123"), &verr)
	require.NoError(t, f.svc.ChangePassword(ctx, m.ID, "secret1", "newpass"))

	_, err := f.svc.AuthenticateMechanic(ctx, "ivan", "newpass")
	assert.NoError(t, err)
}

func TestCreateMechanicValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.mechanic(t, "ivan", "42")

	var verr *ValidationError
	_, err := f.svc.CreateMechanic(ctx, MechanicPatch{Username: ptr("x"), FullName: ptr("X")})
	assert.ErrorAs(t, err, &verr, "password required")
	_, err = f.svc.CreateMechanic(ctx, MechanicPatch{Username: ptr("x"), FullName: ptr("X"), Password: ptr("secret1"), Language: ptr("de")})
	assert.ErrorAs(t, err, &verr)
	_, err = f.svc.CreateMechanic(ctx, MechanicPatch{Username: ptr("ivan"), FullName: ptr("X"), Password: ptr("secret1")})
	assert.ErrorIs(t, err, store.ErrConflict)

	m, err := f.svc.CreateMechanic(ctx, MechanicPatch{Username: ptr("new"), FullName: ptr("New"), Password: ptr("secret1")})
	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.True(t, m.NotifyOnReady)
	assert.False(t, m.NotifyOnProcessing)
	assert.Equal(t, "ru", m.Language)
}

func TestSelfServicePatch(t *testing.T) {
	p := MechanicPatch{Username: ptr("x"), Password: ptr("y"), IsActive: ptr(false), Phone: ptr("1")}.SelfService()
	assert.Nil(t, p.Username)
	assert.Nil(t, p.Password)
	assert.Nil(t, p.IsActive)
	assert.Equal(t, "1", *p.Phone)

	s := MechanicPatch{Phone: ptr("1"), NotifyOnReady: ptr(false)}.Settings()
	assert.Nil(t, s.Phone)
	assert.False(t, *s.NotifyOnReady)
}

func TestCreatePartFillsTranslations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	p, err := f.svc.CreatePart(ctx, PartPatch{NameRU: ptr("Тормозная жидкость"), NameEN: ptr("Custom fluid"), Category: ptr("Типуль")})
	require.NoError(t, err)
	assert.Equal(t, "Custom fluid", p.NameEN)
	assert.Equal(t, "נוזל בלמים", p.NameHE)

	legacy, err := f.svc.CreatePart(ctx, PartPatch{Name: ptr("Свечи зажигания"), Category: ptr("Двигатель")})
	require.NoError(t, err)
	assert.Equal(t, "Свечи зажигания", legacy.NameRU)
	assert.Equal(t, "Spark plugs", legacy.NameEN)

	_, err = f.svc.CreatePart(ctx, PartPatch{Category: ptr("Двигатель")})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBulkCreateParts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	res, err := f.svc.BulkCreateParts(ctx, BulkInput{Category: "Тормоза", Parts: []BulkPart{{NameRU: "Колодки"}, {NameRU: " "}, {NameRU: "Диски"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PartsAdded)
	assert.Equal(t, 1, res.CategoriesAdded)

	res, err = f.svc.BulkCreateParts(ctx, BulkInput{Category: "Тормоза", Parts: []BulkPart{{NameRU: "колодки"}, {NameRU: "Суппорт"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.PartsAdded)
	assert.Equal(t, 1, res.PartsSkipped)

	parts, err := f.store.ListParts(ctx, store.PartFilter{Category: "Тормоза"})
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "Суппорт", parts[2].NameRU)
	assert.Equal(t, 2, parts[2].SortOrder)
	assert.Zero(t, res.CategoriesAdded)
}

func TestBulkCreatePartsShowsInCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	var in BulkInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"category": "Добавки",
		"parts": ["Присадка в масло", {"name_ru": "Очиститель", "name_en": "Cleaner"}]
	}`), &in))
	res, err := f.svc.BulkCreateParts(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, store.ImportResult{CategoriesAdded: 1, PartsAdded: 2}, res)

	cats, err := f.svc.PublicCatalog(ctx, "en")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Additives", cats[0].Label)
	require.Len(t, cats[0].Parts, 2)
	assert.Equal(t, "Oil additive", cats[0].Parts[0].Name)
	assert.Equal(t, "Cleaner", cats[0].Parts[1].Name)
}

func TestPublicCatalogLanguage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	empty, err := f.svc.PublicCatalog(ctx, "en")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.svc.ImportDefaultCatalog(ctx)
	require.NoError(t, err)
	_, err = f.svc.CreatePart(ctx, PartPatch{NameRU: ptr("Особая деталь"), Category: ptr("Тормоза"), SortOrder: ptr(99)})
	require.NoError(t, err)

	cats, err := f.svc.PublicCatalog(ctx, "en")
	require.NoError(t, err)
	require.Len(t, cats, 5)
	assert.Equal(t, "Brakes", cats[0].Label)
	assert.Equal(t, "Front brake pads", cats[0].Parts[0].Name)
	last := cats[0].Parts[len(cats[0].Parts)-1]
	assert.Equal(t, "Особая деталь", last.Name, "untranslated part falls back to Russian")

	he, err := f.svc.PublicCatalog(ctx, "he")
	require.NoError(t, err)
	assert.Equal(t, "בלמים", he[0].Label)
}

func TestPartRenameByLegacyName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	p, err := f.svc.CreatePart(ctx, PartPatch{Name: ptr("Топливный фильтр"), Category: ptr("Двигатель")})
	require.NoError(t, err)
	assert.Equal(t, "Fuel filter", p.NameEN)

	p, err = f.svc.UpdatePart(ctx, p.ID, PartPatch{Name: ptr("Ремень генератора")})
	require.NoError(t, err)
	assert.Equal(t, "Ремень генератора", p.NameRU)
	assert.Equal(t, "Alternator belt", p.NameEN)

	p, err = f.svc.UpdatePart(ctx, p.ID, PartPatch{NameRU: ptr("Ремень ГРМ"), NameEN: ptr("Timing belt")})
	require.NoError(t, err)
	assert.Equal(t, "Ремень ГРМ", p.Name)
	assert.Equal(t, "Timing belt", p.NameEN)
}

func TestCategoryRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	c, err := f.svc.CreateCategory(ctx, CategoryPatch{Name: ptr("Добавки")})
	require.NoError(t, err)
	assert.Equal(t, "Additives", c.NameEN)
	_, err = f.svc.CreatePart(ctx, PartPatch{NameRU: ptr("Присадка"), Category: ptr("Добавки")})
	require.NoError(t, err)

	renamed, err := f.svc.UpdateCategory(ctx, c.ID, CategoryPatch{Name: ptr("Присадки")})
	require.NoError(t, err)
	assert.Equal(t, 1, renamed.PartsCount)
	assert.Equal(t, "Присадки", renamed.NameIn("ru"))
	assert.Equal(t, "Присадки", renamed.NameIn("en"), "the old dictionary translation is dropped")

	cats, err := f.svc.PublicCatalog(ctx, "ru")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Присадки", cats[0].Label)
	require.Len(t, cats[0].Parts, 1)

	// An explicit Russian label survives a later rename.
	renamed, err = f.svc.UpdateCategory(ctx, c.ID, CategoryPatch{NameRU: ptr("Присадки и добавки")})
	require.NoError(t, err)
	renamed, err = f.svc.UpdateCategory(ctx, c.ID, CategoryPatch{Name: ptr("Химия")})
	require.NoError(t, err)
	assert.Equal(t, "Присадки и добавки", renamed.NameIn("ru"))

	_, err = f.svc.CreateCategory(ctx, CategoryPatch{Name: ptr("Химия")})
	assert.ErrorIs(t, err, store.ErrConflict)
}
