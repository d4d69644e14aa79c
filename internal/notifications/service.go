// Package notifications records per-user notifications from domain events.
package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/booking"
	"github.com/gurman-sys/rentbuddy/internal/messages"
	"github.com/gurman-sys/rentbuddy/internal/rewards"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/wallet"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create notifications table",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE notifications (
					id         TEXT     PRIMARY KEY,
					user_id    TEXT     NOT NULL,
					topic      TEXT     NOT NULL,
					title      TEXT     NOT NULL,
					message    TEXT     NOT NULL,
					read       INTEGER  NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_notifications_user ON notifications(user_id, created_at)`,
			}
			for _, s := range stmts {
				if _, err := tx.Exec(s); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// Topics lists the events that produce notifications.
var Topics = []string{
	booking.TopicCreated,
	booking.TopicPaid,
	booking.TopicStatusChanged,
	rewards.TopicWon,
	wallet.TopicCredited,
	messages.TopicReceived,
}

// Inbox is a page of a user's notifications with the unread total.
type Inbox struct {
	Unread int                   `json:"unread"`
	Items  []models.Notification `json:"items"`
}

// Service stores notifications.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a notifications service and runs its migrations.
func NewService(ctx context.Context, store plugin.Store, logger *zap.Logger) (*Service, error) {
	if err := store.Migrate(ctx, "notifications", migrations); err != nil {
		return nil, fmt.Errorf("notifications migrations: %w", err)
	}
	return &Service{db: store.DB(), logger: logger, now: time.Now}, nil
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// HandleEvent records the notification an event describes. Events that
// describe nothing for a user are ignored.
func (s *Service) HandleEvent(ctx context.Context, e plugin.Event) {
	n, ok := Describe(e)
	if !ok {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.add(ctx, e.Topic, n); err != nil {
		s.logger.Error("failed to record notification", zap.String("topic", e.Topic), zap.Error(err))
		return
	}
	notificationsTotal.WithLabelValues(e.Topic).Inc()
}

// Describe turns an event into a notification for the affected user.
func Describe(e plugin.Event) (models.Notification, bool) {
	n := models.Notification{CreatedAt: e.Timestamp.UTC()}
	switch p := e.Payload.(type) {
	case models.BookingRequest:
		n.UserID = p.RenterID
		switch e.Topic {
		case booking.TopicCreated:
			n.Title = "Booking request sent"
			n.Message = fmt.Sprintf("Your request for %s (%s) is awaiting the owner.", p.ItemTitle, days(p.Days))
		case booking.TopicPaid:
			n.Title = "Payment confirmed"
			n.Message = fmt.Sprintf("₹%s paid for %s.", messages.FormatRupees(p.AmountPaid), p.ItemTitle)
			if p.AmountPaid == 0 {
				n.Message = fmt.Sprintf("%s is fully covered by your coupon.", p.ItemTitle)
			}
		case booking.TopicStatusChanged:
			n.Title = "Booking " + string(p.Status)
			n.Message = fmt.Sprintf("Your booking for %s is now %s.", p.ItemTitle, p.Status)
		default:
			return models.Notification{}, false
		}
	case rewards.WonEvent:
		n.UserID = p.UserID
		n.Title = "You won " + p.Reward.Label + "!"
		n.Message = "Come back tomorrow for another spin."
	case models.Transaction:
		if p.Type != models.TransactionCredit {
			return models.Notification{}, false
		}
		n.UserID = p.UserID
		n.Title = "Wallet credited"
		n.Message = fmt.Sprintf("₹%s added: %s.", messages.FormatRupees(p.Amount), p.Description)
	case messages.ReceivedEvent:
		n.UserID = p.UserID
		n.Title = "New message from " + p.From
		n.Message = p.Body
	default:
		return models.Notification{}, false
	}
	return n, n.UserID != ""
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}

func (s *Service) add(ctx context.Context, topic string, n models.Notification) error {
	n.ID = uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, topic, title, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, topic, n.Title, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, opts services.ListOptions) (Inbox, error) {
	opts = services.NormalizeListOptions(opts)
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return Inbox{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, read, created_at FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, userID, opts.Limit, opts.Offset)
	if err != nil {
		return Inbox{}, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	inbox := Inbox{Unread: unread, Items: []models.Notification{}}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return Inbox{}, fmt.Errorf("scan notification: %w", err)
		}
		inbox.Items = append(inbox.Items, n)
	}
	return inbox, rows.Err()
}

// UnreadCount returns the number of unread notifications of a user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.RowsAffected()
}
