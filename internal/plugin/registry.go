// Package plugin manages the lifecycle of the RentBuddy modules composed into
// the server binary.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Registry manages the lifecycle of all registered modules.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]plugin.Plugin
	order   []string
	enabled map[string]bool
	unsubs  []func()
	bus     plugin.EventBus
	logger  *zap.Logger
}

// NewRegistry creates a new module registry. The bus may be nil when no module
// declares subscriptions.
func NewRegistry(bus plugin.EventBus, logger *zap.Logger) *Registry {
	return &Registry{
		plugins: make(map[string]plugin.Plugin),
		enabled: make(map[string]bool),
		bus:     bus,
		logger:  logger,
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(p plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.plugins[name] = p
	r.order = append(r.order, name)
	r.logger.Info("module registered", zap.String("name", name), zap.String("version", p.Version()))
	return nil
}

// InitAll initializes all enabled modules with their configuration subtree.
// Modules are enabled unless plugins.<name>.enabled is explicitly false.
func (r *Registry) InitAll(config *viper.Viper) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		p := r.plugins[name]

		key := "plugins." + name + ".enabled"
		if config.IsSet(key) && !config.GetBool(key) {
			r.logger.Info("module disabled, skipping", zap.String("name", name))
			continue
		}

		moduleConfig := config.Sub("plugins." + name)
		if moduleConfig == nil {
			moduleConfig = viper.New()
		}

		r.logger.Info("initializing module", zap.String("name", name))
		if err := p.Init(moduleConfig, r.logger.Named(name)); err != nil {
			return fmt.Errorf("failed to initialize module %q: %w", name, err)
		}

		if v, ok := p.(plugin.Validator); ok {
			if err := v.ValidateConfig(); err != nil {
				return fmt.Errorf("invalid config for module %q: %w", name, err)
			}
		}

		if s, ok := p.(plugin.EventSubscriber); ok && r.bus != nil {
			for _, sub := range s.Subscriptions() {
				r.unsubs = append(r.unsubs, r.bus.Subscribe(sub.Topic, sub.Handler))
			}
		}

		r.enabled[name] = true
	}
	return nil
}

// StartAll starts all initialized modules.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if !r.enabled[name] {
			continue
		}
		r.logger.Info("starting module", zap.String("name", name))
		if err := r.plugins[name].Start(ctx); err != nil {
			return fmt.Errorf("failed to start module %q: %w", name, err)
		}
	}
	return nil
}

// StopAll stops all modules in reverse order and drops their subscriptions.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if !r.enabled[name] {
			continue
		}
		r.logger.Info("stopping module", zap.String("name", name))
		if err := r.plugins[name].Stop(); err != nil {
			r.logger.Error("failed to stop module", zap.String("name", name), zap.Error(err))
		}
	}
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Enabled reports whether the named module was initialized.
func (r *Registry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[name]
}

// All returns all registered modules in registration order.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// AllRoutes returns the routes of every enabled module keyed by module name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		if !r.enabled[name] {
			continue
		}
		if pr := r.plugins[name].Routes(); len(pr) > 0 {
			routes[name] = pr
		}
	}
	return routes
}
