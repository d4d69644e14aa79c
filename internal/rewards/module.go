package rewards

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Module exposes the spin wheel over HTTP.
type Module struct {
	spinner *Spinner
	logger  *zap.Logger
}

// New creates the rewards module.
func New(spinner *Spinner) *Module {
	return &Module{spinner: spinner, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "rewards" }
func (m *Module) Version() string { return "0.1.0" }

func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger

	cooldown := DefaultCooldown
	recent := DefaultRecentWins
	if config != nil {
		if config.IsSet("cooldown") {
			cooldown = config.GetDuration("cooldown")
		}
		if config.IsSet("recent_wins") {
			recent = config.GetInt("recent_wins")
		}
	}
	table := m.spinner.Table()
	if err := m.spinner.Configure(table, cooldown, recent); err != nil {
		return err
	}
	if sumOK, _ := ValidateTable(table); !sumOK {
		m.logger.Warn("reward weights do not sum to 1; overflow draws select the first reward")
	}
	m.logger.Info("rewards module initialized", zap.Duration("cooldown", cooldown))
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/table", Handler: m.handleTable},
		{Method: "GET", Path: "/status", Handler: m.handleStatus},
		{Method: "POST", Path: "/spin", Handler: m.handleSpin},
	}
}

func (m *Module) handleTable(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, m.spinner.Table())
}

func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := m.spinner.Status(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		m.logger.Error("failed to read spin status", zap.Error(err))
		server.InternalError(w, "failed to read spin status", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, st)
}

// handleSpin draws a reward for the caller.
//
//	@Summary		Spin the wheel
//	@Description	Draws a weighted reward once per cooldown window and delivers it to the wallet.
//	@Tags			rewards
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} SpinResult
//	@Failure		429 {object} server.Problem
//	@Router			/rewards/spin [post]
func (m *Module) handleSpin(w http.ResponseWriter, r *http.Request) {
	res, err := m.spinner.Spin(r.Context(), auth.UserID(r.Context()))
	var cd *CooldownError
	switch {
	case errors.As(err, &cd):
		w.Header().Set("Retry-After", strconv.FormatInt(int64(cd.Remaining.Seconds()), 10))
		server.WriteProblem(w, server.Problem{
			Type:              server.ProblemTypeRateLimited,
			Title:             "Too Many Requests",
			Status:            http.StatusTooManyRequests,
			Detail:            cd.Error(),
			Instance:          r.URL.Path,
			RetryAfterSeconds: int64(cd.Remaining.Seconds()),
		})
	case err != nil:
		m.logger.Error("spin failed", zap.Error(err))
		server.InternalError(w, "spin failed", r.URL.Path)
	default:
		server.WriteJSON(w, http.StatusOK, res)
	}
}
