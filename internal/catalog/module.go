package catalog

import (
	"context"

	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "catalog",
	Name:      "searches_total",
	Help:      "Catalog searches served, by sort order.",
}, []string{"sort"})

// Module exposes catalog search over HTTP.
type Module struct {
	engine *Engine
	logger *zap.Logger
	config *viper.Viper
}

// New creates the catalog module.
func New(engine *Engine) *Module {
	return &Module{engine: engine, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "catalog" }
func (m *Module) Version() string { return "0.1.0" }

func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.config = config
	m.logger = logger

	items, err := m.engine.Items()
	if err != nil {
		return err
	}
	m.logger.Info("catalog module initialized", zap.Int("items", len(items)))
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/items", Handler: m.handleSearch},
		{Method: "GET", Path: "/items/{id}", Handler: m.handleGetItem},
		{Method: "GET", Path: "/categories", Handler: m.handleCategories},
		{Method: "GET", Path: "/export", Handler: m.handleExport},
	}
}
