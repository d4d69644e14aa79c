package notifications

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "notifications",
	Name:      "recorded_total",
	Help:      "Notifications recorded, by source topic.",
}, []string{"topic"})

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
)

// Module exposes the notification bell.
type Module struct {
	svc    *Service
	logger *zap.Logger
}

// New creates the notifications module.
func New(svc *Service) *Module {
	return &Module{svc: svc, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "notifications" }
func (m *Module) Version() string { return "0.1.0" }

func (m *Module) Init(_ *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	m.svc.logger = logger
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

// Subscriptions routes every notifying topic to the service.
func (m *Module) Subscriptions() []plugin.Subscription {
	subs := make([]plugin.Subscription, 0, len(Topics))
	for _, t := range Topics {
		subs = append(subs, plugin.Subscription{Topic: t, Handler: m.svc.HandleEvent})
	}
	return subs
}

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "POST", Path: "/read", Handler: m.handleRead},
	}
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := server.ListOptions(r)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	inbox, err := m.svc.List(r.Context(), auth.UserID(r.Context()), opts)
	if err != nil {
		m.logger.Error("failed to list notifications", zap.Error(err))
		server.InternalError(w, "failed to list notifications", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, inbox)
}

func (m *Module) handleRead(w http.ResponseWriter, r *http.Request) {
	n, err := m.svc.MarkAllRead(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		m.logger.Error("failed to mark notifications read", zap.Error(err))
		server.InternalError(w, "failed to mark notifications read", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

