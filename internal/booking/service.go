package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"go.uber.org/zap"
)

// Event topics. Payloads are models.BookingRequest; on TopicPaid its
// AmountPaid is what the wallet was charged.
const (
	TopicCreated       = "booking.request.created"
	TopicPaid          = "booking.request.paid"
	TopicStatusChanged = "booking.request.status"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemUnavailable   = errors.New("item is currently rented")
	ErrAlreadyPaid       = errors.New("booking is already paid")
	ErrNotPayable        = errors.New("booking cannot be paid in its current status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions lists the statuses reachable from each status.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:  {models.BookingAccepted, models.BookingRejected},
	models.BookingAccepted: {models.BookingCompleted},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ItemSource resolves listings.
type ItemSource interface {
	Item(id string) (models.Item, bool)
}

// Payer charges the renter's wallet.
type Payer interface {
	Charge(ctx context.Context, userID, description string, prepare func(tx *sql.Tx) (float64, error)) (models.Transaction, error)
	RedeemCoupon(ctx context.Context, tx *sql.Tx, userID, couponID string) (models.Coupon, error)
}

// CreateRequest is the input of Service.Create.
type CreateRequest struct {
	ItemID  string
	Range   models.BookingRange
	Message string
}

// PayResult is the outcome of a successful payment. Transaction is nil when a
// coupon covered the whole total.
type PayResult struct {
	Request     models.BookingRequest `json:"request"`
	Transaction *models.Transaction   `json:"transaction,omitempty"`
	Discount    float64               `json:"discount"`
}

// Service manages booking requests.
type Service struct {
	store  plugin.Store
	items  ItemSource
	payer  Payer
	bus    plugin.EventBus
	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewService creates a booking service and runs its migrations. bus may be nil.
func NewService(ctx context.Context, store plugin.Store, items ItemSource, payer Payer, bus plugin.EventBus, logger *zap.Logger) (*Service, error) {
	if err := store.Migrate(ctx, "booking", migrations); err != nil {
		return nil, fmt.Errorf("booking migrations: %w", err)
	}
	return &Service{
		store:  store,
		items:  items,
		payer:  payer,
		bus:    bus,
		logger: logger,
		now:    time.Now,
		loc:    time.UTC,
	}, nil
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetLocation sets the time zone whose calendar days bookings are counted in.
func (s *Service) SetLocation(loc *time.Location) { s.loc = loc }

// Location returns the booking time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Quote prices renting itemID over r.
func (s *Service) Quote(itemID string, r models.BookingRange) (Quote, error) {
	it, ok := s.items.Item(itemID)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return NewQuote(it, r), nil
}

// Create records a pending booking request for an available item. The start
// date must not lie before today in the booking time zone.
func (s *Service) Create(ctx context.Context, renterID string, req CreateRequest) (models.BookingRequest, error) {
	it, ok := s.items.Item(req.ItemID)
	if !ok {
		return models.BookingRequest{}, fmt.Errorf("%w: %s", ErrItemNotFound, req.ItemID)
	}
	if !it.IsAvailable {
		return models.BookingRequest{}, ErrItemUnavailable
	}

	now := s.now().UTC()
	y, mo, d := now.In(s.loc).Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, s.loc)
	if req.Range.Start.Before(today) {
		return models.BookingRequest{}, fmt.Errorf("%w: start date is in the past", ErrInvalidRange)
	}

	q := NewQuote(it, req.Range)
	b := models.BookingRequest{
		ID:          uuid.New().String(),
		ItemID:      it.ID,
		ItemTitle:   it.Title,
		RenterID:    renterID,
		Start:       req.Range.Start,
		End:         req.Range.End,
		Days:        q.Days,
		DailyRate:   q.DailyRate,
		TotalAmount: q.TotalAmount,
		Status:      models.BookingPending,
		Message:     req.Message,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := insertRequest(ctx, s.store.DB(), b); err != nil {
		return models.BookingRequest{}, err
	}

	requestsTotal.WithLabelValues("created").Inc()
	s.logger.Info("booking requested",
		zap.String("id", b.ID),
		zap.String("item_id", b.ItemID),
		zap.Int("days", b.Days),
		zap.Float64("total", b.TotalAmount),
	)
	s.publish(ctx, TopicCreated, b)
	return b, nil
}

// Get returns one of the renter's requests.
func (s *Service) Get(ctx context.Context, renterID, id string) (models.BookingRequest, error) {
	return getRequest(ctx, s.store.DB(), renterID, id)
}

// List returns the renter's requests, newest first, optionally filtered by
// status.
func (s *Service) List(ctx context.Context, renterID string, status models.BookingStatus, opts services.ListOptions) (*services.ListResult[models.BookingRequest], error) {
	opts = services.NormalizeListOptions(opts)
	where := `WHERE renter_id = ?`
	args := []any{renterID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := s.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_requests `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT `+selectColumns+` FROM booking_requests `+where+
			` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []models.BookingRequest{}
	for rows.Next() {
		b, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &services.ListResult[models.BookingRequest]{Items: out, Total: total}, nil
}

// Pay charges the booking total to the renter's wallet and marks the request
// paid. An optional coupon reduces the amount by its percentage; a 100% coupon
// pays the booking without a debit. With an insufficient balance nothing
// changes, the coupon included.
func (s *Service) Pay(ctx context.Context, renterID, id, couponID string) (PayResult, error) {
	var res PayResult
	now := s.now().UTC()

	t, err := s.payer.Charge(ctx, renterID, "Booking payment", func(tx *sql.Tx) (float64, error) {
		b, err := getRequest(ctx, tx, renterID, id)
		if err != nil {
			return 0, err
		}
		if b.Paid {
			return 0, ErrAlreadyPaid
		}
		if b.Status != models.BookingPending && b.Status != models.BookingAccepted {
			return 0, fmt.Errorf("%w: %s", ErrNotPayable, b.Status)
		}

		amount := b.TotalAmount
		if couponID != "" {
			c, err := s.payer.RedeemCoupon(ctx, tx, renterID, couponID)
			if err != nil {
				return 0, err
			}
			res.Discount = amount
			if c.Percent < 100 {
				res.Discount = amount * c.Percent / 100
			}
			amount -= res.Discount
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE booking_requests SET paid = 1, amount_paid = ?, updated_at = ? WHERE id = ?`, amount, now, id); err != nil {
			return 0, fmt.Errorf("mark booking paid: %w", err)
		}
		return amount, nil
	})
	if err != nil {
		return PayResult{}, err
	}

	b, err := s.Get(ctx, renterID, id)
	if err != nil {
		return PayResult{}, err
	}
	res.Request = b
	if t.ID != "" {
		res.Transaction = &t
	}

	requestsTotal.WithLabelValues("paid").Inc()
	s.publish(ctx, TopicPaid, b)
	return res, nil
}

// SetStatus moves a request along its lifecycle. Listings carry no owner
// account, so the renter drives every transition.
func (s *Service) SetStatus(ctx context.Context, renterID, id string, to models.BookingStatus) (models.BookingRequest, error) {
	now := s.now().UTC()
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		b, err := getRequest(ctx, tx, renterID, id)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, to)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE booking_requests SET status = ?, updated_at = ? WHERE id = ?`, string(to), now, id)
		return err
	})
	if err != nil {
		return models.BookingRequest{}, err
	}

	b, err := s.Get(ctx, renterID, id)
	if err != nil {
		return models.BookingRequest{}, err
	}
	requestsTotal.WithLabelValues(string(to)).Inc()
	s.publish(ctx, TopicStatusChanged, b)
	return b, nil
}

func (s *Service) publish(ctx context.Context, topic string, b models.BookingRequest) {
	if s.bus == nil {
		return
	}
	s.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
		Topic:     topic,
		Source:    "booking",
		Timestamp: b.UpdatedAt,
		Payload:   b,
	})
}
