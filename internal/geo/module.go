package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var locateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "geo",
	Name:      "locate_total",
	Help:      "Location resolutions by outcome code.",
}, []string{"outcome"})

// Module exposes location resolution over HTTP.
type Module struct {
	geocoder Geocoder
	resolver *Resolver
	logger   *zap.Logger
}

// New creates the geo module around g.
func New(g Geocoder) *Module {
	return &Module{geocoder: g, resolver: NewResolver(g, DefaultTimeout), logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "geo" }
func (m *Module) Version() string { return "0.1.0" }

// Init reads timeout (default 10s).
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	if config != nil && config.IsSet("timeout") {
		m.resolver = NewResolver(m.geocoder, config.GetDuration("timeout"))
	}
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/locate", Handler: m.handleLocate},
	}
}

func (m *Module) handleLocate(w http.ResponseWriter, r *http.Request) {
	var rd Reading
	if err := json.NewDecoder(r.Body).Decode(&rd); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}

	loc, err := m.resolver.Resolve(r.Context(), rd)
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			locateTotal.WithLabelValues(string(ge.Code)).Inc()
			m.logger.Debug("location not resolved", zap.String("code", string(ge.Code)), zap.Error(err))
			server.Unprocessable(w, string(ge.Code), ge.Message, r.URL.Path)
			return
		}
		m.logger.Error("failed to resolve location", zap.Error(err))
		server.InternalError(w, "failed to resolve location", r.URL.Path)
		return
	}
	locateTotal.WithLabelValues("ok").Inc()
	server.WriteJSON(w, http.StatusOK, loc)
}
