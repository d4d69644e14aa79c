// Package auth resolves the calling user from an HS256 bearer token. Without a
// signing secret every request runs as the configured default user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

type contextKey struct{}

// WithUserID returns a copy of ctx carrying the user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the user id stored in ctx, or "" when there is none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Authenticator issues and verifies bearer tokens.
type Authenticator struct {
	secret      []byte
	defaultUser string
	public      map[string]bool
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an Authenticator. An empty secret enables demo mode, in which
// every request is attributed to defaultUser.
func New(secret, defaultUser string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret:      []byte(secret),
		defaultUser: defaultUser,
		public: map[string]bool{
			"/api/v1/health":  true,
			"/api/v1/modules": true,
			"/metrics":        true,
		},
		logger: logger,
		now:    time.Now,
	}
}

// DemoMode reports whether tokens are ignored.
func (a *Authenticator) DemoMode() bool { return len(a.secret) == 0 }

// Issue mints a token for userID that expires after ttl.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	if a.DemoMode() {
		return "", errors.New("auth: no signing secret configured")
	}
	if userID == "" {
		return "", errors.New("auth: empty user id")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "rentbuddy",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks a token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("rentbuddy"),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware attaches the calling user to the request context and rejects
// requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.public[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if a.DemoMode() {
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), a.defaultUser)))
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			server.Unauthorized(w, "missing bearer token", r.URL.Path)
			return
		}
		userID, err := a.Verify(token)
		if err != nil {
			a.logger.Debug("rejected token", zap.Error(err))
			server.Unauthorized(w, "invalid or expired token", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
