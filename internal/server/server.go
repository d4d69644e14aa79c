// Package server hosts the RentBuddy HTTP API: core endpoints, module routes
// and the middleware every request passes through.
package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/version"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method and status code.",
}, []string{"method", "code"})

// Modules is the view of the module registry the server needs.
type Modules interface {
	All() []plugin.Plugin
	Enabled(name string) bool
	AllRoutes() map[string][]plugin.Route
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Server is the RentBuddy HTTP server.
type Server struct {
	httpServer *http.Server
	modules    Modules
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server on addr. The middleware wraps the module routes and
// runs in the given order, after request logging and rate limiting.
func New(addr string, modules Modules, limiter *RateLimiter, logger *zap.Logger, middleware ...Middleware) *Server {
	mux := http.NewServeMux()

	s := &Server{
		modules: modules,
		logger:  logger,
		mux:     mux,
	}

	s.registerCoreRoutes()
	s.mountModuleRoutes()

	var h http.Handler = mux
	for _, mw := range slices.Backward(middleware) {
		h = mw(h)
	}
	if limiter != nil {
		h = limiter.Middleware(h)
	}
	h = promhttp.InstrumentHandlerCounter(requestsTotal, h)
	h = s.logRequests(h)
	h = s.recoverPanics(h)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/modules", s.handleModules)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// mountModuleRoutes registers all module routes under /api/v1/{module}.
func (s *Server) mountModuleRoutes() {
	allRoutes := s.modules.AllRoutes()
	names := make([]string, 0, len(allRoutes))
	for name := range allRoutes {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, route := range allRoutes[name] {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, name, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("module", name),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("X-RentBuddy-Version", version.Short())
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rentbuddy",
		"version": version.Current(),
	})
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`
}

// handleModules returns the registered modules.
func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	mods := s.modules.All()
	info := make([]ModuleInfo, 0, len(mods))
	for _, p := range mods {
		info = append(info, ModuleInfo{
			Name:    p.Name(),
			Version: p.Version(),
			Enabled: s.modules.Enabled(p.Name()),
		})
	}
	w.Header().Set("X-RentBuddy-Version", version.Short())
	WriteJSON(w, http.StatusOK, info)
}
