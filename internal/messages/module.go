package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/wallet"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

// OpenBody is the request body of POST /conversations.
type OpenBody struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message,omitempty"`
}

// SendBody is the request body of POST /conversations/{id}/messages.
type SendBody struct {
	Message string `json:"message"`
}

// PayBody is the request body of POST /conversations/{id}/payments.
type PayBody struct {
	Kind PaymentKind `json:"kind"`
}

// demoSeed describes the conversation created for the demo user.
type demoSeed struct {
	Enabled  bool   `mapstructure:"enabled"`
	UserID   string `mapstructure:"user_id"`
	ItemID   string `mapstructure:"item_id"`
	Greeting string `mapstructure:"greeting"`
}

// Module exposes conversations over HTTP.
type Module struct {
	svc    *Service
	seed   demoSeed
	logger *zap.Logger
}

// New creates the messages module.
func New(svc *Service) *Module {
	return &Module{
		svc: svc,
		seed: demoSeed{
			Enabled:  true,
			UserID:   "1",
			ItemID:   "1",
			Greeting: "Hi, is the camera still available for this weekend?",
		},
		logger: zap.NewNop(),
	}
}

func (m *Module) Name() string    { return "messages" }
func (m *Module) Version() string { return "0.1.0" }

// Init reads the optional demo seed settings under seed.
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	if config != nil && config.IsSet("seed") {
		if err := config.UnmarshalKey("seed", &m.seed); err != nil {
			return fmt.Errorf("messages seed config: %w", err)
		}
	}
	return nil
}

// Start seeds the demo conversation. A missing demo item only logs a warning.
func (m *Module) Start(ctx context.Context) error {
	if !m.seed.Enabled || m.seed.UserID == "" {
		return nil
	}
	created, err := m.svc.SeedDemo(ctx, m.seed.UserID, m.seed.ItemID, m.seed.Greeting)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			m.logger.Warn("demo conversation not seeded", zap.String("item_id", m.seed.ItemID))
			return nil
		}
		return fmt.Errorf("seed demo conversation: %w", err)
	}
	if created {
		m.logger.Info("seeded demo conversation", zap.String("user_id", m.seed.UserID))
	}
	return nil
}

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/conversations", Handler: m.handleList},
		{Method: "POST", Path: "/conversations", Handler: m.handleOpen},
		{Method: "GET", Path: "/unread", Handler: m.handleUnread},
		{Method: "GET", Path: "/conversations/{id}", Handler: m.handleGet},
		{Method: "POST", Path: "/conversations/{id}/messages", Handler: m.handleSend},
		{Method: "POST", Path: "/conversations/{id}/read", Handler: m.handleRead},
		{Method: "POST", Path: "/conversations/{id}/payments", Handler: m.handlePay},
	}
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	convs, err := m.svc.List(r.Context(), auth.UserID(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, convs)
}

func (m *Module) handleOpen(w http.ResponseWriter, r *http.Request) {
	var body OpenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ItemID == "" {
		server.BadRequest(w, "item_id is required", r.URL.Path)
		return
	}
	userID := auth.UserID(r.Context())
	c, created, err := m.svc.Open(r.Context(), userID, body.ItemID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	if body.Message != "" {
		if _, err := m.svc.Send(r.Context(), userID, c.ID, body.Message); err != nil {
			m.writeError(w, r, err)
			return
		}
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	server.WriteJSON(w, status, c)
}

func (m *Module) handleUnread(w http.ResponseWriter, r *http.Request) {
	n, err := m.svc.UnreadCount(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := m.svc.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, t)
}

func (m *Module) handleSend(w http.ResponseWriter, r *http.Request) {
	var body SendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	msg, err := m.svc.Send(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), body.Message)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, msg)
}

func (m *Module) handleRead(w http.ResponseWriter, r *http.Request) {
	n, err := m.svc.MarkRead(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

func (m *Module) handlePay(w http.ResponseWriter, r *http.Request) {
	var body PayBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	res, err := m.svc.Pay(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), body.Kind)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ib *wallet.InsufficientBalanceError
	switch {
	case errors.As(err, &ib):
		detail := fmt.Sprintf("Insufficient balance! You need ₹%s more.", FormatRupees(ib.Shortfall()))
		server.PaymentRequired(w, detail, r.URL.Path, ib.Shortfall())
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrInvalidPayment):
		server.BadRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrItemNotFound), errors.Is(err, services.ErrNotFound):
		server.NotFound(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrNothingToPay):
		server.Conflict(w, err.Error(), r.URL.Path)
	default:
		m.logger.Error("messages operation failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "messages operation failed", r.URL.Path)
	}
}
