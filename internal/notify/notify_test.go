package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorokhovskii-creator/felix-hub/internal/catalog"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

func TestTelegramSend(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL+"/", "TOKEN")
	require.NoError(t, tg.Send(context.Background(), "123", "<b>hi</b>"))
	assert.Equal(t, sendMessageRequest{ChatID: "123", Text: "<b>hi</b>", ParseMode: "HTML"}, got)
}

func TestTelegramSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, "TOKEN").Send(context.Background(), "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramErrorHidesToken(t *testing.T) {
	err := NewTelegram("http://127.0.0.1:1", "SECRET").Send(context.Background(), "1", "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}

type recorder struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recorder) Send(_ context.Context, chatID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, chatID+"|"+text)
	return r.err
}

func sampleView(status models.Status) catalog.OrderView {
	return catalog.OrderView{
		ID:            7,
		MechanicName:  "Иван <script>",
		PlateNumber:   "A123BC77",
		CategoryLabel: "Тормоза",
		Status:        status,
		Items:         []catalog.ItemView{{Name: "Колодки", Quantity: 2}, {Name: "Диски & болты", Quantity: 1}},
		Comment:       "срочно",
		CreatedAt:     "2025-03-01 10:30:00",
	}
}

func TestNewOrderText(t *testing.T) {
	text := NewOrderText(sampleView(models.StatusNew), "ru")
	assert.Contains(t, text, "Новый заказ от Иван &lt;script&gt;")
	assert.Contains(t, text, "Заказ №7")
	assert.Contains(t, text, "• Колодки × 2")
	assert.Contains(t, text, "• Диски &amp; болты\n")
	assert.Contains(t, text, "Аналог")
	assert.Contains(t, text, "Комментарий: срочно")
}

func TestStatusText(t *testing.T) {
	assert.Contains(t, StatusText(sampleView(models.StatusReady), "en"), "Order #7 is ready!")
	assert.Contains(t, StatusText(sampleView(models.StatusCancelled), "he"), "בוטלה")
	assert.Empty(t, StatusText(sampleView(models.StatusIssued), "ru"))
}

func TestNotifierDelivery(t *testing.T) {
	rec := &recorder{}
	n := New(rec, "admin-chat", "ru", nil)

	n.NewOrder(context.Background(), sampleView(models.StatusNew))
	assert.True(t, n.StatusChanged(context.Background(), sampleView(models.StatusReady), "555", "en"))
	assert.False(t, n.StatusChanged(context.Background(), sampleView(models.StatusReady), "", "en"))
	assert.False(t, n.StatusChanged(context.Background(), sampleView(models.StatusIssued), "555", "en"))

	require.Len(t, rec.sent, 2)
	assert.Contains(t, rec.sent[0], "admin-chat|")
	assert.Contains(t, rec.sent[1], "555|")
}

func TestNotifierSwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	n := New(rec, "admin", "ru", nil)
	assert.True(t, n.StatusChanged(context.Background(), sampleView(models.StatusReady), "1", "ru"))
}

func TestDisabledNotifier(t *testing.T) {
	n := New(nil, "admin", "ru", nil)
	n.NewOrder(context.Background(), sampleView(models.StatusNew))
	assert.False(t, n.StatusChanged(context.Background(), sampleView(models.StatusReady), "1", "ru"))
}
