package rewards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"go.uber.org/zap"
)

// TopicWon is published after a prize has been delivered. The payload is a
// WonEvent.
const TopicWon = "rewards.won"

// DefaultCooldown is the time between two spins of the same user.
const DefaultCooldown = 24 * time.Hour

// DefaultRecentWins is how many past wins are kept per user.
const DefaultRecentWins = 5

// ErrCoolingDown is matched by every *CooldownError.
var ErrCoolingDown = errors.New("spin not available yet")

// CooldownError reports when the next spin becomes available.
type CooldownError struct {
	NextSpinAt time.Time
	Remaining  time.Duration
}

func (e *CooldownError) Error() string {
	h := int(e.Remaining.Hours())
	m := int(e.Remaining.Minutes()) % 60
	return fmt.Sprintf("you can spin once every day; next spin in %dh %dm", h, m)
}

func (e *CooldownError) Is(target error) bool { return target == ErrCoolingDown }

// Wallet is the part of the wallet service that receives prizes. record runs
// in the transaction that delivers the prize.
type Wallet interface {
	CreditWith(ctx context.Context, userID string, amount float64, description string, record func(tx *sql.Tx) error) (models.Transaction, error)
	AddCouponWith(ctx context.Context, userID string, percent float64, label string, record func(tx *sql.Tx) error) (models.Coupon, error)
}

// Status describes a user's spin availability.
type Status struct {
	CanSpin          bool         `json:"can_spin"`
	NextSpinAt       *time.Time   `json:"next_spin_at,omitempty"`
	RemainingSeconds int64        `json:"remaining_seconds"`
	RecentWins       []models.Win `json:"recent_wins"`
}

// SpinResult is the outcome of a successful spin.
type SpinResult struct {
	Reward      models.Reward       `json:"reward"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Coupon      *models.Coupon      `json:"coupon,omitempty"`
	NextSpinAt  time.Time           `json:"next_spin_at"`
}

// WonEvent is the payload of TopicWon.
type WonEvent struct {
	UserID string        `json:"user_id"`
	Reward models.Reward `json:"reward"`
}

// Spinner runs spins and applies their prizes.
type Spinner struct {
	wallet Wallet
	kv     services.KeyValueRepository
	bus    plugin.EventBus
	logger *zap.Logger

	mu         sync.Mutex // serializes spins; guards the fields below
	table      []models.Reward
	cooldown   time.Duration
	recentWins int
	draw       func() float64
	now        func() time.Time
}

// NewSpinner creates a Spinner over the default table. bus may be nil.
func NewSpinner(w Wallet, kv services.KeyValueRepository, bus plugin.EventBus, logger *zap.Logger) *Spinner {
	return &Spinner{
		wallet:     w,
		kv:         kv,
		bus:        bus,
		logger:     logger,
		table:      DefaultTable(),
		cooldown:   DefaultCooldown,
		recentWins: DefaultRecentWins,
		draw:       rand.Float64,
		now:        time.Now,
	}
}

// SetDraw replaces the random source. draw must return values in [0, 1).
func (s *Spinner) SetDraw(draw func() float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draw = draw
}

// SetClock replaces the time source.
func (s *Spinner) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Configure replaces the table, the cooldown and the number of kept wins.
func (s *Spinner) Configure(table []models.Reward, cooldown time.Duration, recentWins int) error {
	if _, err := ValidateTable(table); err != nil {
		return err
	}
	if cooldown < 0 {
		return fmt.Errorf("cooldown %v is negative", cooldown)
	}
	if recentWins < 1 {
		return fmt.Errorf("recent wins %d must be at least 1", recentWins)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = append([]models.Reward(nil), table...)
	s.cooldown = cooldown
	s.recentWins = recentWins
	return nil
}

// Table returns a copy of the reward table.
func (s *Spinner) Table() []models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Reward(nil), s.table...)
}

// Status reports whether the user can spin and lists their recent wins.
func (s *Spinner) Status(ctx context.Context, userID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{CanSpin: true}
	next, err := s.nextSpin(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if now := s.now(); next.After(now) {
		st.CanSpin = false
		st.NextSpinAt = &next
		st.RemainingSeconds = int64(next.Sub(now).Seconds())
	}

	st.RecentWins, err = s.wins(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

// Spin draws a reward for the user and delivers it: coins are credited to the
// wallet, discounts become coupons. The prize, the spin time and the recent
// wins are committed together. A spin inside the cooldown window fails with
// *CooldownError.
func (s *Spinner) Spin(ctx context.Context, userID string) (SpinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next, err := s.nextSpin(ctx, userID)
	if err != nil {
		return SpinResult{}, err
	}
	if next.After(now) {
		spinsTotal.WithLabelValues("cooling_down").Inc()
		return SpinResult{}, &CooldownError{NextSpinAt: next, Remaining: next.Sub(now)}
	}

	reward, ok := Select(s.table, s.draw())
	if !ok {
		return SpinResult{}, errors.New("reward table is empty")
	}

	wins, err := s.wins(ctx, userID)
	if err != nil {
		return SpinResult{}, err
	}
	wins = append([]models.Win{{Label: reward.Label, Kind: reward.Kind, WonAt: now.UTC()}}, wins...)
	if len(wins) > s.recentWins {
		wins = wins[:s.recentWins]
	}
	record := func(tx *sql.Tx) error {
		if err := services.SetJSONTx(ctx, s.kv, tx, userID, services.KeyLastSpin, now.UTC()); err != nil {
			return fmt.Errorf("record spin: %w", err)
		}
		if err := services.SetJSONTx(ctx, s.kv, tx, userID, services.KeyRecentWins, wins); err != nil {
			return fmt.Errorf("record win: %w", err)
		}
		return nil
	}

	res := SpinResult{Reward: reward, NextSpinAt: now.Add(s.cooldown).UTC()}
	switch reward.Kind {
	case models.RewardCoins:
		t, err := s.wallet.CreditWith(ctx, userID, reward.Amount, "Spin Wheel: "+reward.Label, record)
		if err != nil {
			return SpinResult{}, fmt.Errorf("credit reward: %w", err)
		}
		res.Transaction = &t
	case models.RewardDiscount:
		c, err := s.wallet.AddCouponWith(ctx, userID, reward.Amount, reward.Label, record)
		if err != nil {
			return SpinResult{}, fmt.Errorf("issue coupon: %w", err)
		}
		res.Coupon = &c
	default:
		return SpinResult{}, fmt.Errorf("unknown reward kind %q", reward.Kind)
	}

	spinsTotal.WithLabelValues(string(reward.Kind)).Inc()
	s.logger.Info("spin won",
		zap.String("user_id", userID),
		zap.String("reward", reward.Label),
	)
	if s.bus != nil {
		s.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
			Topic:     TopicWon,
			Source:    "rewards",
			Timestamp: now,
			Payload:   WonEvent{UserID: userID, Reward: reward},
		})
	}
	return res, nil
}

// nextSpin returns when the user may spin next; the zero time if never spun.
func (s *Spinner) nextSpin(ctx context.Context, userID string) (time.Time, error) {
	var last time.Time
	found, err := services.GetJSON(ctx, s.kv, userID, services.KeyLastSpin, &last)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, nil
	}
	return last.Add(s.cooldown), nil
}

func (s *Spinner) wins(ctx context.Context, userID string) ([]models.Win, error) {
	wins := []models.Win{}
	if _, err := services.GetJSON(ctx, s.kv, userID, services.KeyRecentWins, &wins); err != nil {
		return nil, err
	}
	return wins, nil
}
