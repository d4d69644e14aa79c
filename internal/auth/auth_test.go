package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurman-sys/rentbuddy/internal/testutil"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserID(r.Context())))
	})
}

func TestIssueAndVerify(t *testing.T) {
	a := New("s3cret", "1", testutil.Logger())

	tok, err := a.Issue("42", time.Hour)
	require.NoError(t, err)

	sub, err := a.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
}

func TestVerify_Rejects(t *testing.T) {
	a := New("s3cret", "1", testutil.Logger())
	clock := testutil.NewClock()
	a.now = clock.Now

	expired, err := a.Issue("42", time.Minute)
	require.NoError(t, err)

	other := New("different", "1", testutil.Logger())
	other.now = clock.Now
	foreign, err := other.Issue("42", time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	for name, tok := range map[string]string{
		"expired": expired,
		"foreign": foreign,
		"garbage": "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssue_DemoModeRefuses(t *testing.T) {
	a := New("", "1", testutil.Logger())
	assert.True(t, a.DemoMode())
	_, err := a.Issue("1", time.Hour)
	assert.Error(t, err)
}

func TestMiddleware_DemoModeUsesDefaultUser(t *testing.T) {
	h := New("", "1", testutil.Logger()).Middleware(echoUser())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Body.String())
}

func TestMiddleware_Bearer(t *testing.T) {
	a := New("s3cret", "1", testutil.Logger())
	h := a.Middleware(echoUser())
	tok, err := a.Issue("7", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid", "/api/v1/wallet", "Bearer " + tok, http.StatusOK, "7"},
		{"missing", "/api/v1/wallet", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/v1/wallet", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "/api/v1/wallet", "Bearer abc", http.StatusUnauthorized, ""},
		{"public path", "/api/v1/health", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else {
				assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			}
		})
	}
}
