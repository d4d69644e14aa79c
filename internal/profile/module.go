// Package profile serves the signed-in user's account profile.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DemoProfile is created for the demo user when no profile exists yet.
var DemoProfile = models.Profile{
	ID:          "1",
	Name:        "John Doe",
	Email:       "john@example.com",
	Phone:       "+91 98765 43210",
	AvatarURL:   "/placeholder.svg",
	City:        "Mumbai",
	Bio:         "Photography enthusiast and weekend trekker.",
	Rating:      4.8,
	ReviewCount: 24,
	ItemsListed: 5,
	ItemsRented: 12,
	JoinedDate:  time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
}

// Module exposes the profile collaborator over HTTP.
type Module struct {
	repo   services.ProfileRepository
	seed   bool
	logger *zap.Logger
}

// New creates the profile module.
func New(repo services.ProfileRepository) *Module {
	return &Module{repo: repo, seed: true, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "profile" }
func (m *Module) Version() string { return "0.1.0" }

// Init reads seed_demo (default true).
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	if config != nil && config.IsSet("seed_demo") {
		m.seed = config.GetBool("seed_demo")
	}
	return nil
}

// Start seeds the demo profile when enabled and absent.
func (m *Module) Start(ctx context.Context) error {
	if !m.seed {
		return nil
	}
	created, err := Seed(ctx, m.repo, DemoProfile)
	if err != nil {
		return err
	}
	if created {
		m.logger.Info("seeded demo profile", zap.String("user_id", DemoProfile.ID))
	}
	return nil
}

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleGet},
		{Method: "PATCH", Path: "", Handler: m.handleUpdate},
	}
}

// Seed creates p unless a profile with its id already exists.
func Seed(ctx context.Context, repo services.ProfileRepository, p models.Profile) (bool, error) {
	if _, err := repo.Get(ctx, p.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, services.ErrNotFound) {
		return false, err
	}
	if err := repo.Create(ctx, &p); err != nil {
		if errors.Is(err, services.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := m.repo.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			server.NotFound(w, "profile not found", r.URL.Path)
			return
		}
		m.logger.Error("failed to get profile", zap.Error(err))
		server.InternalError(w, "failed to load profile", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, p)
}

func (m *Module) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var u services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			server.BadRequest(w, "name must not be empty", r.URL.Path)
			return
		}
		u.Name = &name
	}

	userID := auth.UserID(r.Context())
	if err := m.repo.Update(r.Context(), userID, u); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			server.NotFound(w, "profile not found", r.URL.Path)
			return
		}
		m.logger.Error("failed to update profile", zap.String("user_id", userID), zap.Error(err))
		server.InternalError(w, "failed to update profile", r.URL.Path)
		return
	}
	m.handleGet(w, r)
}
