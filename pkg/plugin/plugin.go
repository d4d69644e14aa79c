// Package plugin defines the contracts shared by RentBuddy modules: the module
// lifecycle, HTTP routes, the persistence store and the in-process event bus.
package plugin

import (
	"context"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Route represents an HTTP route exposed by a module.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Plugin defines the interface that all RentBuddy modules must implement.
type Plugin interface {
	// Name returns the module's unique identifier (e.g., "catalog", "wallet").
	Name() string

	// Version returns the module's semantic version.
	Version() string

	// Init initializes the module with its configuration subtree and logger.
	Init(config *viper.Viper, logger *zap.Logger) error

	// Start begins the module's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the module.
	Stop() error

	// Routes returns the HTTP routes this module exposes.
	Routes() []Route
}
