package geo

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/testutil"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

func fixedGeocoder(i int) *MockGeocoder {
	return &MockGeocoder{Labels: Labels, IntN: func(int) int { return i }}
}

// slowGeocoder blocks until the context ends.
type slowGeocoder struct{}

func (slowGeocoder) Address(ctx context.Context, _ models.Coordinates) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestResolve_Coordinates(t *testing.T) {
	r := NewResolver(fixedGeocoder(2), 0)
	assert.Equal(t, DefaultTimeout, r.Timeout())

	loc, err := r.Resolve(context.Background(), Reading{Coords: &models.Coordinates{Latitude: 28.6315, Longitude: 77.2167}})
	require.NoError(t, err)
	assert.Equal(t, "Lajpat Nagar, New Delhi", loc.Address)
	assert.Equal(t, 28.6315, loc.Coords.Latitude)
}

func TestResolve_PlatformErrors(t *testing.T) {
	r := NewResolver(fixedGeocoder(0), time.Second)

	tests := []struct {
		code    Code
		wantMsg string
		wantIs  error
	}{
		{CodePermissionDenied, "Location permission denied", ErrPermissionDenied},
		{CodePositionUnavailable, "Location information unavailable", ErrPositionUnavailable},
		{CodeTimeout, "Location request timed out", ErrTimeout},
		{CodeUnsupported, "Geolocation is not supported by this browser", ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			_, err := r.Resolve(context.Background(), Reading{Error: tt.code})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestResolve_UnknownCode(t *testing.T) {
	r := NewResolver(fixedGeocoder(0), time.Second)
	_, err := r.Resolve(context.Background(), Reading{Error: "flux_capacitor"})

	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, CodeUnknown, ge.Code)
	assert.Equal(t, "Failed to get location", ge.Message)
}

func TestResolve_InvalidReadings(t *testing.T) {
	r := NewResolver(fixedGeocoder(0), time.Second)

	_, err := r.Resolve(context.Background(), Reading{})
	assert.ErrorIs(t, err, ErrUnsupported, "no coordinates and no code")

	for _, c := range []models.Coordinates{
		{Latitude: 91, Longitude: 0},
		{Latitude: 0, Longitude: -181},
		{Latitude: math.NaN(), Longitude: 77},
	} {
		_, err := r.Resolve(context.Background(), Reading{Coords: &c})
		assert.ErrorIs(t, err, ErrPositionUnavailable)
	}
}

func TestResolve_DeadlineIsTimeout(t *testing.T) {
	r := NewResolver(slowGeocoder{}, 10*time.Millisecond)
	_, err := r.Resolve(context.Background(), Reading{Coords: &models.Coordinates{Latitude: 28.6, Longitude: 77.2}})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMockGeocoder_PicksFromLabels(t *testing.T) {
	g := NewMockGeocoder()
	for range 20 {
		addr, err := g.Address(context.Background(), models.Coordinates{})
		require.NoError(t, err)
		assert.Contains(t, Labels, addr)
	}

	empty := &MockGeocoder{IntN: func(int) int { return 0 }}
	_, err := empty.Address(context.Background(), models.Coordinates{})
	assert.Error(t, err)
}

func newTestMux(t *testing.T, m *Module) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" /api/v1/geo"+r.Path, r.Handler)
	}
	return mux
}

func post(mux http.Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/geo/locate", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestHandleLocate(t *testing.T) {
	m := New(fixedGeocoder(4))
	require.NoError(t, m.Init(testutil.Viper(map[string]any{"timeout": "2s"}), testutil.Logger()))
	assert.Equal(t, 2*time.Second, m.resolver.Timeout())
	mux := newTestMux(t, m)

	w := post(mux, `{"coords": {"latitude": 28.6, "longitude": 77.2}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var loc Location
	require.NoError(t, json.NewDecoder(w.Body).Decode(&loc))
	assert.Equal(t, "Khan Market, New Delhi", loc.Address)

	w = post(mux, `{"error": "permission_denied"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var p server.Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "permission_denied", p.Code)
	assert.Equal(t, "Location permission denied", p.Detail)

	w = post(mux, `{"coords":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
