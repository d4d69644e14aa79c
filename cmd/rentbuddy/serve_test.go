package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/catalog"
	"github.com/gurman-sys/rentbuddy/internal/config"
	"github.com/gurman-sys/rentbuddy/internal/event"
	"github.com/gurman-sys/rentbuddy/internal/plugin"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/testutil"
	pkgcatalog "github.com/gurman-sys/rentbuddy/pkg/catalog"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewStore(t)
	bus := event.NewBus(zap.NewNop())

	modules, err := buildModules(ctx, db, pkgcatalog.NewCatalog(), bus, zap.NewNop())
	require.NoError(t, err)

	v, err := config.Load("")
	require.NoError(t, err)
	v.Set("plugins.messages.seed.enabled", false)

	reg := plugin.NewRegistry(bus, zap.NewNop())
	for _, m := range modules {
		require.NoError(t, reg.Register(m))
	}
	require.NoError(t, reg.InitAll(v))
	require.NoError(t, reg.StartAll(ctx))
	t.Cleanup(reg.StopAll)

	authn := auth.New("", "1", zap.NewNop())
	return server.New(":0", reg, nil, zap.NewNop(), authn.Middleware).Handler()
}

func call(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServe_AllModulesMounted(t *testing.T) {
	h := newTestHandler(t)

	w := call(h, http.MethodGet, "/api/v1/modules", "")
	require.Equal(t, http.StatusOK, w.Code)
	var mods []server.ModuleInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&mods))
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		assert.True(t, m.Enabled, m.Name)
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{
		"catalog", "wallet", "rewards", "booking", "favorites",
		"profile", "geo", "notifications", "messages",
	}, names)

	for _, target := range []string{
		"/api/v1/catalog/items",
		"/api/v1/wallet",
		"/api/v1/rewards/status",
		"/api/v1/booking/requests",
		"/api/v1/favorites",
		"/api/v1/profile",
		"/api/v1/notifications",
		"/api/v1/messages/conversations",
	} {
		w := call(h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, w.Code, target)
	}
}

func TestLoadCatalog(t *testing.T) {
	v, err := config.Load("")
	require.NoError(t, err)

	cat, err := loadCatalog(config.New(v), zap.NewNop())
	require.NoError(t, err)
	_, ok := cat.Item("1")
	assert.True(t, ok, "embedded catalog")

	path := filepath.Join(t.TempDir(), "catalog.csv")
	var sb strings.Builder
	require.NoError(t, catalog.WriteCSV(&sb, []models.Item{
		testutil.NewItem(testutil.WithID("k1"), testutil.WithTitle("Kayak"), testutil.WithPrice(300)),
	}))
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))

	v.Set("catalog.csv", path)
	cat, err = loadCatalog(config.New(v), zap.NewNop())
	require.NoError(t, err)
	_, ok = cat.Item("1")
	assert.False(t, ok)
	it, ok := cat.Item("k1")
	require.True(t, ok)
	assert.Equal(t, "Kayak", it.Title)

	v.Set("catalog.csv", filepath.Join(t.TempDir(), "missing.csv"))
	_, err = loadCatalog(config.New(v), zap.NewNop())
	assert.Error(t, err)
}

func TestServe_DemoUserFlow(t *testing.T) {
	h := newTestHandler(t)

	w := call(h, http.MethodGet, "/api/v1/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Profile
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "John Doe", p.Name)

	w = call(h, http.MethodPost, "/api/v1/wallet/verify", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(h, http.MethodPut, "/api/v1/favorites/1", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(h, http.MethodPost, "/api/v1/geo/locate", `{"error": "timeout"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
