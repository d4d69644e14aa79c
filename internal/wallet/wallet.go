// Package wallet keeps each user's virtual balance, its transaction ledger and
// the discount coupons won on the spin wheel.
package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Event topics published after a committed balance change. The payload is
// the models.Transaction.
const (
	TopicCredited = "wallet.credited"
	TopicDebited  = "wallet.debited"
)

// Limits holds the money rules of the wallet.
type Limits struct {
	MinTopUp          float64 `mapstructure:"min_topup"`
	MaxTopUp          float64 `mapstructure:"max_topup"`
	VerificationBonus float64 `mapstructure:"verification_bonus"`
	WelcomeBonus      float64 `mapstructure:"welcome_bonus"`
	MinRentBalance    float64 `mapstructure:"min_rent_balance"`
}

// DefaultLimits returns the stock wallet rules.
func DefaultLimits() Limits {
	return Limits{
		MinTopUp:          10,
		MaxTopUp:          10000,
		VerificationBonus: 100,
		WelcomeBonus:      100,
		MinRentBalance:    10,
	}
}

// Service implements wallet operations on the shared store.
type Service struct {
	store  plugin.Store
	kv     services.KeyValueRepository
	bus    plugin.EventBus
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex // guards limits; held across welcome bonus claims
	limits Limits
}

// NewService creates a wallet service and runs its migrations. bus may be nil.
func NewService(ctx context.Context, store plugin.Store, kv services.KeyValueRepository, bus plugin.EventBus, logger *zap.Logger) (*Service, error) {
	if err := store.Migrate(ctx, "wallet", migrations); err != nil {
		return nil, fmt.Errorf("wallet migrations: %w", err)
	}
	return &Service{
		store:  store,
		kv:     kv,
		bus:    bus,
		logger: logger,
		now:    time.Now,
		limits: DefaultLimits(),
	}, nil
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetLimits replaces the wallet rules.
func (s *Service) SetLimits(l Limits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = l
}

// Limits returns the wallet rules in effect.
func (s *Service) Limits() Limits {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limits
}

// ParseAmount converts a boundary value (JSON number or numeric string) into
// a positive amount.
func ParseAmount(v any) (float64, error) {
	if _, ok := v.(bool); ok {
		return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidAmount, v)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidAmount, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	return f, nil
}

// Wallet returns the user's wallet. Users without one have an empty wallet.
func (s *Service) Wallet(ctx context.Context, userID string) (models.Wallet, error) {
	var w models.Wallet
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		w, err = walletRow(ctx, tx, userID)
		return err
	})
	if err != nil {
		return models.Wallet{}, err
	}
	w.CanRent = w.Balance >= s.Limits().MinRentBalance
	return w, nil
}

// Transactions lists the user's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, opts services.ListOptions) (*services.ListResult[models.Transaction], error) {
	opts = services.NormalizeListOptions(opts)
	db := s.store.DB()

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, description, created_at
		FROM wallet_transactions WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return &services.ListResult[models.Transaction]{Items: txs, Total: total}, nil
}

// Credit adds amount to the user's balance.
func (s *Service) Credit(ctx context.Context, userID string, amount float64, description string) (models.Transaction, error) {
	return s.apply(ctx, userID, models.TransactionCredit, amount, description, nil)
}

// CreditWith credits amount and runs record in the same transaction. An error
// from record rolls the credit back.
func (s *Service) CreditWith(ctx context.Context, userID string, amount float64, description string, record func(tx *sql.Tx) error) (models.Transaction, error) {
	return s.apply(ctx, userID, models.TransactionCredit, amount, description, record)
}

// Debit removes amount from the user's balance. A debit larger than the
// balance fails with *InsufficientBalanceError and changes nothing.
func (s *Service) Debit(ctx context.Context, userID string, amount float64, description string) (models.Transaction, error) {
	return s.apply(ctx, userID, models.TransactionDebit, amount, description, nil)
}

// Charge runs prepare and debits the amount it returns, all in one
// transaction. prepare applies the caller's own writes and must only use tx;
// an error from prepare or an insufficient balance rolls everything back.
// A zero amount commits prepare's writes without a debit and returns the zero
// Transaction.
func (s *Service) Charge(ctx context.Context, userID, description string, prepare func(tx *sql.Tx) (float64, error)) (models.Transaction, error) {
	var t models.Transaction
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		amount, err := prepare(tx)
		if err != nil {
			return err
		}
		if amount == 0 {
			return nil
		}
		if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
		}
		w, err := walletRow(ctx, tx, userID)
		if err != nil {
			return err
		}
		t, err = s.move(ctx, tx, w, models.TransactionDebit, amount, description)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	if t.ID != "" {
		s.committed(ctx, t)
	}
	return t, nil
}

// RedeemCoupon marks an unused coupon as used inside the caller's transaction.
func (s *Service) RedeemCoupon(ctx context.Context, tx *sql.Tx, userID, couponID string) (models.Coupon, error) {
	return redeemCoupon(ctx, tx, userID, couponID)
}

// TopUp adds money to a verified wallet. raw is the amount as received from
// the client.
func (s *Service) TopUp(ctx context.Context, userID string, raw any) (models.Transaction, error) {
	amount, err := ParseAmount(raw)
	if err != nil {
		return models.Transaction{}, err
	}
	l := s.Limits()
	if amount < l.MinTopUp {
		return models.Transaction{}, fmt.Errorf("%w: minimum amount is %.0f", ErrInvalidAmount, l.MinTopUp)
	}
	if amount > l.MaxTopUp {
		return models.Transaction{}, fmt.Errorf("%w: maximum amount is %.0f per transaction", ErrInvalidAmount, l.MaxTopUp)
	}

	var t models.Transaction
	err = s.store.Tx(ctx, func(tx *sql.Tx) error {
		w, err := walletRow(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !w.Verified {
			return ErrNotVerified
		}
		t, err = s.move(ctx, tx, w, models.TransactionCredit, amount, "Wallet Top-up")
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.committed(ctx, t)
	return t, nil
}

// Verify marks the wallet verified and credits the verification bonus.
func (s *Service) Verify(ctx context.Context, userID string) (models.Transaction, error) {
	bonus := s.Limits().VerificationBonus

	var t models.Transaction
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		w, err := walletRow(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Verified {
			return ErrAlreadyVerified
		}
		w.Verified = true
		t, err = s.move(ctx, tx, w, models.TransactionCredit, bonus, "Verification Bonus")
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.committed(ctx, t)
	return t, nil
}

// ClaimWelcomeBonus credits the one-time welcome bonus. The claim is recorded
// under the welcomeBonusReceived key of the user's key-value store, in the
// same transaction as the credit.
func (s *Service) ClaimWelcomeBonus(ctx context.Context, userID string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var received bool
	if _, err := services.GetJSON(ctx, s.kv, userID, services.KeyWelcomeBonusReceived, &received); err != nil {
		return models.Transaction{}, err
	}
	if received {
		return models.Transaction{}, ErrBonusClaimed
	}

	return s.apply(ctx, userID, models.TransactionCredit, s.limits.WelcomeBonus, "Welcome Bonus", func(tx *sql.Tx) error {
		if err := services.SetJSONTx(ctx, s.kv, tx, userID, services.KeyWelcomeBonusReceived, true); err != nil {
			return fmt.Errorf("record welcome bonus: %w", err)
		}
		return nil
	})
}

// AddCoupon stores an unused discount coupon for the user.
func (s *Service) AddCoupon(ctx context.Context, userID string, percent float64, label string) (models.Coupon, error) {
	return s.AddCouponWith(ctx, userID, percent, label, nil)
}

// AddCouponWith stores the coupon and runs record in the same transaction.
func (s *Service) AddCouponWith(ctx context.Context, userID string, percent float64, label string, record func(tx *sql.Tx) error) (models.Coupon, error) {
	if percent <= 0 || percent > 100 {
		return models.Coupon{}, fmt.Errorf("%w: discount must be in (0, 100]", ErrInvalidAmount)
	}
	c := models.Coupon{
		ID:        uuid.New().String(),
		UserID:    userID,
		Percent:   percent,
		Label:     label,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := insertCoupon(ctx, tx, c); err != nil {
			return err
		}
		if record != nil {
			return record(tx)
		}
		return nil
	})
	if err != nil {
		return models.Coupon{}, err
	}
	couponsIssued.Inc()
	return c, nil
}

// Coupons lists the user's coupons, unused first.
func (s *Service) Coupons(ctx context.Context, userID string) ([]models.Coupon, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, user_id, percent, label, used, created_at
		FROM coupons WHERE user_id = ?
		ORDER BY used, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	out, err := scanCoupons(rows)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Coupon{}
	}
	return out, nil
}

func (s *Service) apply(ctx context.Context, userID string, typ models.TransactionType, amount float64, description string, record func(tx *sql.Tx) error) (models.Transaction, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return models.Transaction{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}

	var t models.Transaction
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		w, err := walletRow(ctx, tx, userID)
		if err != nil {
			return err
		}
		t, err = s.move(ctx, tx, w, typ, amount, description)
		if err != nil || record == nil {
			return err
		}
		return record(tx)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.committed(ctx, t)
	return t, nil
}

// move applies a balance change to w and records it in the ledger.
func (s *Service) move(ctx context.Context, tx *sql.Tx, w models.Wallet, typ models.TransactionType, amount float64, description string) (models.Transaction, error) {
	switch typ {
	case models.TransactionCredit:
		w.Balance += amount
	case models.TransactionDebit:
		if w.Balance < amount {
			return models.Transaction{}, &InsufficientBalanceError{Balance: w.Balance, Required: amount}
		}
		w.Balance -= amount
	default:
		return models.Transaction{}, fmt.Errorf("unknown transaction type %q", typ)
	}

	now := s.now().UTC()
	w.UpdatedAt = now
	if err := saveWallet(ctx, tx, w); err != nil {
		return models.Transaction{}, err
	}

	t := models.Transaction{
		ID:          uuid.New().String(),
		UserID:      w.UserID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	}
	if err := insertTransaction(ctx, tx, t); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

func (s *Service) committed(ctx context.Context, t models.Transaction) {
	transactionsTotal.WithLabelValues(string(t.Type)).Inc()

	s.logger.Info("wallet transaction",
		zap.String("user_id", t.UserID),
		zap.String("type", string(t.Type)),
		zap.Float64("amount", t.Amount),
		zap.String("description", t.Description),
	)
	if s.bus == nil {
		return
	}
	topic := TopicCredited
	if t.Type == models.TransactionDebit {
		topic = TopicDebited
	}
	s.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
		Topic:     topic,
		Source:    "wallet",
		Timestamp: t.CreatedAt,
		Payload:   t,
	})
}
