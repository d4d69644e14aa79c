package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/booking"
	"github.com/gurman-sys/rentbuddy/internal/event"
	"github.com/gurman-sys/rentbuddy/internal/messages"
	"github.com/gurman-sys/rentbuddy/internal/rewards"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/testutil"
	"github.com/gurman-sys/rentbuddy/internal/wallet"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

func newService(t *testing.T) (*Service, *testutil.Clock) {
	t.Helper()
	svc, err := NewService(context.Background(), testutil.NewStore(t), testutil.Logger())
	require.NoError(t, err)
	clock := testutil.NewClock()
	svc.SetClock(clock.Now)
	return svc, clock
}

func TestDescribe(t *testing.T) {
	req := models.BookingRequest{RenterID: "u1", ItemTitle: "Canon EOS R5 Camera", Days: 2, TotalAmount: 3000, Status: models.BookingAccepted}
	paid := func(amount float64) models.BookingRequest {
		b := req
		b.Paid = true
		b.AmountPaid = amount
		return b
	}

	tests := []struct {
		name      string
		event     plugin.Event
		wantOK    bool
		wantTitle string
		wantMsg   string
	}{
		{
			name:      "booking created",
			event:     plugin.Event{Topic: booking.TopicCreated, Payload: req},
			wantOK:    true,
			wantTitle: "Booking request sent",
			wantMsg:   "Your request for Canon EOS R5 Camera (2 days) is awaiting the owner.",
		},
		{
			name:      "booking paid",
			event:     plugin.Event{Topic: booking.TopicPaid, Payload: paid(2400)},
			wantOK:    true,
			wantTitle: "Payment confirmed",
			wantMsg:   "₹2400 paid for Canon EOS R5 Camera.",
		},
		{
			name:      "booking paid by coupon",
			event:     plugin.Event{Topic: booking.TopicPaid, Payload: paid(0)},
			wantOK:    true,
			wantTitle: "Payment confirmed",
			wantMsg:   "Canon EOS R5 Camera is fully covered by your coupon.",
		},
		{
			name:      "booking status",
			event:     plugin.Event{Topic: booking.TopicStatusChanged, Payload: req},
			wantOK:    true,
			wantTitle: "Booking accepted",
			wantMsg:   "Your booking for Canon EOS R5 Camera is now accepted.",
		},
		{
			name:      "reward won",
			event:     plugin.Event{Topic: rewards.TopicWon, Payload: rewards.WonEvent{UserID: "u1", Reward: models.Reward{Label: "₹50 Coins"}}},
			wantOK:    true,
			wantTitle: "You won ₹50 Coins!",
			wantMsg:   "Come back tomorrow for another spin.",
		},
		{
			name:      "wallet credited",
			event:     plugin.Event{Topic: wallet.TopicCredited, Payload: models.Transaction{UserID: "u1", Type: models.TransactionCredit, Amount: 100, Description: "Verification Bonus"}},
			wantOK:    true,
			wantTitle: "Wallet credited",
			wantMsg:   "₹100 added: Verification Bonus.",
		},
		{
			name:      "message received",
			event:     plugin.Event{Topic: messages.TopicReceived, Payload: messages.ReceivedEvent{UserID: "u1", From: "Rahul Sharma", Body: "Hi!"}},
			wantOK:    true,
			wantTitle: "New message from Rahul Sharma",
			wantMsg:   "Hi!",
		},
		{
			name:   "debit ignored",
			event:  plugin.Event{Topic: wallet.TopicDebited, Payload: models.Transaction{UserID: "u1", Type: models.TransactionDebit, Amount: 80}},
			wantOK: false,
		},
		{
			name:   "unknown payload",
			event:  plugin.Event{Topic: "something.else", Payload: "text"},
			wantOK: false,
		},
		{
			name:   "no user",
			event:  plugin.Event{Topic: rewards.TopicWon, Payload: rewards.WonEvent{Reward: models.Reward{Label: "₹5 Coins"}}},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Describe(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, "u1", n.UserID)
			assert.Equal(t, tt.wantTitle, n.Title)
			assert.Equal(t, tt.wantMsg, n.Message)
		})
	}
}

func TestHandleEvent_ListAndMarkRead(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, plugin.Event{Topic: rewards.TopicWon, Payload: rewards.WonEvent{UserID: "u1", Reward: models.Reward{Label: "₹5 Coins"}}})
	clock.Advance(time.Minute)
	svc.HandleEvent(ctx, plugin.Event{Topic: messages.TopicReceived, Payload: messages.ReceivedEvent{UserID: "u1", From: "Priya Patel", Body: "Sure!"}})
	svc.HandleEvent(ctx, plugin.Event{Topic: wallet.TopicDebited, Payload: models.Transaction{UserID: "u1", Type: models.TransactionDebit}})

	inbox, err := svc.List(ctx, "u1", services.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, inbox.Unread)
	require.Len(t, inbox.Items, 2)
	assert.Equal(t, "New message from Priya Patel", inbox.Items[0].Title, "newest first")

	n, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	inbox, err = svc.List(ctx, "u1", services.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, inbox.Unread)
	require.Len(t, inbox.Items, 1)
	assert.True(t, inbox.Items[0].Read)

	other, err := svc.List(ctx, "u2", services.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestModule_SubscribesThroughBus(t *testing.T) {
	svc, _ := newService(t)
	m := New(svc)
	require.NoError(t, m.Init(nil, testutil.Logger()))

	bus := event.NewBus(testutil.Logger())
	for _, s := range m.Subscriptions() {
		bus.Subscribe(s.Topic, s.Handler)
	}
	assert.Len(t, m.Subscriptions(), len(Topics))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, plugin.Event{
		Topic:   wallet.TopicCredited,
		Payload: models.Transaction{UserID: "u1", Type: models.TransactionCredit, Amount: 100, Description: "Welcome Bonus"},
	}))

	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" /api/v1/notifications"+r.Path, r.Handler)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox Inbox
	require.NoError(t, json.NewDecoder(w.Body).Decode(&inbox))
	assert.Equal(t, 1, inbox.Unread)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, "₹100 added: Welcome Bonus.", inbox.Items[0].Message)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"marked": 1}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=abc", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
