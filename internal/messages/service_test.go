package messages

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/testutil"
	"github.com/gurman-sys/rentbuddy/internal/wallet"
	pkgcatalog "github.com/gurman-sys/rentbuddy/pkg/catalog"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

const testCatalog = `
items:
  - id: "1"
    title: Canon EOS R5 Camera
    category: Photography
    price: 50
    security_deposit: 200
    owner:
      name: Rahul Sharma
      rating: 4.8
    is_available: true
  - id: "2"
    title: Power Drill Set
    category: Tools
    price: 30
    owner:
      name: Priya Patel
      rating: 4.6
    is_available: true
`

type fixture struct {
	svc    *Service
	wallet *wallet.Service
	bus    *testutil.MockBus
	clock  *testutil.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := testutil.NewStore(t)
	kv, err := services.NewSQLiteKeyValueRepository(ctx, st)
	require.NoError(t, err)
	ws, err := wallet.NewService(ctx, st, kv, nil, testutil.Logger())
	require.NoError(t, err)

	bus := testutil.NewMockBus()
	svc, err := NewService(ctx, st, pkgcatalog.FromYAML([]byte(testCatalog)), ws, bus, testutil.Logger())
	require.NoError(t, err)
	clock := testutil.NewClock()
	svc.SetClock(clock.Now)
	return &fixture{svc: svc, wallet: ws, bus: bus, clock: clock}
}

func (f *fixture) balance(t *testing.T, userID string) float64 {
	t.Helper()
	w, err := f.wallet.Wallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, created, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Rahul Sharma", c.OtherName)
	assert.Equal(t, "Canon EOS R5 Camera", c.ItemTitle)

	again, created, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, again.ID)

	_, _, err = f.svc.Open(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSendAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, "u1", c.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.svc.Send(ctx, "u1", c.ID, "Is it available on Saturday?")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Receive(ctx, "u1", c.ID, "Yes, it's available!")
	require.NoError(t, err)

	th, err := f.svc.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, "u1", th.Messages[0].SenderID)
	assert.Equal(t, OwnerSender, th.Messages[1].SenderID)
	require.NotNil(t, th.Conversation.LastMessage)
	assert.Equal(t, "Yes, it's available!", th.Conversation.LastMessage.Body)
	assert.Equal(t, 1, th.Conversation.UnreadCount)

	_, err = f.svc.Get(ctx, "u2", c.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = f.svc.Send(ctx, "u2", c.ID, "hello")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestReceive_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _, err := f.svc.Open(ctx, "u1", "2")
	require.NoError(t, err)

	_, err = f.svc.Receive(ctx, "u1", c.ID, "The drill is in excellent condition.")
	require.NoError(t, err)

	events := f.bus.Events()
	require.Len(t, events, 1)
	assert.Equal(t, TopicReceived, events[0].Topic)
	ev, ok := events[0].Payload.(ReceivedEvent)
	require.True(t, ok)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, "Priya Patel", ev.From)
}

func TestUnreadAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, _, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)
	c2, _, err := f.svc.Open(ctx, "u1", "2")
	require.NoError(t, err)

	for _, body := range []string{"Hi", "Still interested?"} {
		_, err = f.svc.Receive(ctx, "u1", c1.ID, body)
		require.NoError(t, err)
	}
	_, err = f.svc.Receive(ctx, "u1", c2.ID, "Hello")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, "u1", c2.ID, "Hi there")
	require.NoError(t, err)

	n, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "own messages are never unread")

	marked, err := f.svc.MarkRead(ctx, "u1", c1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	n, err = f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.MarkRead(ctx, "u2", c1.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestList_OrderAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, _, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	c2, _, err := f.svc.Open(ctx, "u1", "2")
	require.NoError(t, err)

	convs, err := f.svc.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, c2.ID, convs[0].ID)
	assert.Nil(t, convs[0].LastMessage)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Send(ctx, "u1", c1.ID, "Can we meet in Connaught Place?")
	require.NoError(t, err)

	convs, err = f.svc.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, convs[0].ID, "new activity moves a conversation to the top")
	require.NotNil(t, convs[0].LastMessage)

	tests := []struct {
		q    string
		want []string
	}{
		{"priya", []string{c2.ID}},
		{"CANON", []string{c1.ID}},
		{"connaught", []string{c1.ID}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			convs, err := f.svc.List(ctx, "u1", tt.q)
			require.NoError(t, err)
			var ids []string
			for _, c := range convs {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	other, err := f.svc.List(ctx, "u2", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wallet.Credit(ctx, "u1", 100, "seed")
	require.NoError(t, err)
	c, _, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)

	res, err := f.svc.Pay(ctx, "u1", c.ID, PaymentRent)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Transaction.Amount)
	assert.Equal(t, "Payment of ₹50 for rent completed successfully!", res.Message.Body)
	assert.Equal(t, 50.0, f.balance(t, "u1"))

	th, err := f.svc.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	require.Len(t, th.Messages, 1)
	assert.Equal(t, res.Message.ID, th.Messages[0].ID)
}

func TestPay_InsufficientBalanceChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wallet.Credit(ctx, "u1", 50, "seed")
	require.NoError(t, err)
	c, _, err := f.svc.Open(ctx, "u1", "1")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, "u1", c.ID, PaymentDeposit)
	var ib *wallet.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, 150.0, ib.Shortfall())

	assert.Equal(t, 50.0, f.balance(t, "u1"))
	th, err := f.svc.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Empty(t, th.Messages, "payment message rolled back")
}

func TestPay_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _, err := f.svc.Open(ctx, "u1", "2")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, "u1", c.ID, PaymentDeposit)
	assert.ErrorIs(t, err, ErrNothingToPay, "drill has no deposit")

	_, err = f.svc.Pay(ctx, "u1", c.ID, "tip")
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = f.svc.Pay(ctx, "u1", "missing", PaymentRent)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestSeedDemo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.SeedDemo(ctx, "1", "1", "Hi, is the camera still available?")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.SeedDemo(ctx, "1", "1", "Hi again")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := f.svc.UnreadCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func newTestMux(t *testing.T, f *fixture) *http.ServeMux {
	t.Helper()
	m := New(f.svc)
	require.NoError(t, m.Init(testutil.Viper(map[string]any{"seed": map[string]any{"enabled": false}}), testutil.Logger()))
	require.NoError(t, m.Start(context.Background()))

	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" /api/v1/messages"+r.Path, r.Handler)
	}
	return mux
}

func do(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r = r.WithContext(auth.WithUserID(r.Context(), "u1"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestHandlers(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f)

	w := do(t, mux, http.MethodGet, "/api/v1/messages/conversations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String(), "seeding disabled")

	w = do(t, mux, http.MethodPost, "/api/v1/messages/conversations", `{"item_id": "1", "message": "Hello!"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c models.Conversation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	base := "/api/v1/messages/conversations/" + c.ID

	w = do(t, mux, http.MethodPost, "/api/v1/messages/conversations", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, mux, http.MethodPost, base+"/messages", `{"message": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, mux, http.MethodPost, base+"/messages", `{"message": "What time works?"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, mux, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var th Thread
	require.NoError(t, json.NewDecoder(w.Body).Decode(&th))
	assert.Len(t, th.Messages, 2)

	w = do(t, mux, http.MethodPost, base+"/payments", `{"kind": "rent"}`)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	var p server.Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "Insufficient balance! You need ₹50 more.", p.Detail)
	assert.Equal(t, 50.0, p.Shortfall)

	w = do(t, mux, http.MethodPost, base+"/read", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, mux, http.MethodGet, "/api/v1/messages/unread", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread": 0}`, w.Body.String())

	w = do(t, mux, http.MethodGet, "/api/v1/messages/conversations/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
