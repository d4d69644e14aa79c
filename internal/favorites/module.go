package favorites

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ItemSource resolves listings.
type ItemSource interface {
	Item(id string) (models.Item, bool)
}

// Module exposes favorites over HTTP.
type Module struct {
	store  *Store
	items  ItemSource
	logger *zap.Logger
}

// New creates the favorites module.
func New(store *Store, items ItemSource) *Module {
	return &Module{store: store, items: items, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "favorites" }
func (m *Module) Version() string { return "0.1.0" }

func (m *Module) Init(_ *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "PUT", Path: "/{id}", Handler: m.handleAdd},
		{Method: "DELETE", Path: "/{id}", Handler: m.handleRemove},
	}
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	favs, err := m.store.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		m.logger.Error("failed to list favorites", zap.Error(err))
		server.InternalError(w, "failed to list favorites", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, favs)
}

// handleAdd saves a catalog item. Repeating the call is a no-op returning 200.
func (m *Module) handleAdd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	it, ok := m.items.Item(id)
	if !ok {
		server.NotFound(w, fmt.Sprintf("item %q not found", id), r.URL.Path)
		return
	}
	fav := models.Favorite{ID: it.ID, Title: it.Title, Price: it.Price}
	if len(it.Images) > 0 {
		fav.Image = it.Images[0]
	}

	saved, added, err := m.store.Add(r.Context(), auth.UserID(r.Context()), fav)
	if err != nil {
		m.logger.Error("failed to add favorite", zap.Error(err))
		server.InternalError(w, "failed to save favorite", r.URL.Path)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	server.WriteJSON(w, status, saved)
}

func (m *Module) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := m.store.Remove(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		m.logger.Error("failed to remove favorite", zap.Error(err))
		server.InternalError(w, "failed to remove favorite", r.URL.Path)
		return
	}
	if !removed {
		server.NotFound(w, fmt.Sprintf("item %q is not a favorite", id), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
