// Package messages implements renter-to-owner conversations, including paying
// the owner from the wallet inside a chat.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

// TopicReceived is published when the other party writes to a user. The
// payload is ReceivedEvent.
const TopicReceived = "messages.received"

// OwnerSender is the sender id of messages written by an item's owner.
const OwnerSender = "owner"

var (
	ErrEmptyMessage   = errors.New("message text must not be empty")
	ErrItemNotFound   = errors.New("item not found")
	ErrNothingToPay   = errors.New("nothing to pay for this item")
	ErrInvalidPayment = errors.New("payment kind must be rent or deposit")
)

// PaymentKind selects what an in-chat payment covers.
type PaymentKind string

const (
	PaymentRent    PaymentKind = "rent"
	PaymentDeposit PaymentKind = "deposit"
)

// ItemSource resolves listings.
type ItemSource interface {
	Item(id string) (models.Item, bool)
}

// Payer charges the user's wallet.
type Payer interface {
	Charge(ctx context.Context, userID, description string, prepare func(tx *sql.Tx) (float64, error)) (models.Transaction, error)
}

// Thread is a conversation with its messages, oldest first.
type Thread struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
}

// PaymentResult is the outcome of a successful in-chat payment.
type PaymentResult struct {
	Transaction models.Transaction `json:"transaction"`
	Message     models.Message     `json:"message"`
}

// ReceivedEvent is the payload of TopicReceived.
type ReceivedEvent struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	From           string `json:"from"`
	Body           string `json:"message"`
}

// Service manages conversations.
type Service struct {
	store  plugin.Store
	items  ItemSource
	payer  Payer
	bus    plugin.EventBus
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a messages service and runs its migrations. bus may be
// nil.
func NewService(ctx context.Context, store plugin.Store, items ItemSource, payer Payer, bus plugin.EventBus, logger *zap.Logger) (*Service, error) {
	if err := store.Migrate(ctx, "messages", migrations); err != nil {
		return nil, fmt.Errorf("messages migrations: %w", err)
	}
	return &Service{
		store:  store,
		items:  items,
		payer:  payer,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Open opens a conversation with the owner of itemID. A user has at most one
// conversation per item; created is false when it already existed.
func (s *Service) Open(ctx context.Context, userID, itemID string) (c models.Conversation, created bool, err error) {
	it, ok := s.items.Item(itemID)
	if !ok {
		return models.Conversation{}, false, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	err = s.store.Tx(ctx, func(tx *sql.Tx) error {
		existing, found, err := findConversation(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if found {
			c = existing
			return nil
		}
		c = models.Conversation{
			ID:        uuid.New().String(),
			UserID:    userID,
			OtherName: it.Owner.Name,
			ItemID:    it.ID,
			ItemTitle: it.Title,
			CreatedAt: s.now().UTC(),
		}
		created = true
		return insertConversation(ctx, tx, c)
	})
	if err != nil {
		return models.Conversation{}, false, err
	}
	if created {
		s.logger.Info("conversation started", zap.String("user_id", userID), zap.String("item_id", itemID))
	}
	return c, created, nil
}

// List returns the user's conversations, most recently active first. A
// non-empty query keeps conversations whose other party, item title or last
// message contains it, ignoring case.
func (s *Service) List(ctx context.Context, userID, query string) ([]models.Conversation, error) {
	db := s.store.DB()
	rows, err := db.QueryContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC, c.rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	var convs []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows must be closed first: the store has a single connection.
	out := []models.Conversation{}
	q := strings.ToLower(strings.TrimSpace(query))
	for _, c := range convs {
		if c.LastMessage, err = lastMessage(ctx, db, c.ID); err != nil {
			return nil, err
		}
		if q != "" && !matches(c, q) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matches(c models.Conversation, q string) bool {
	if strings.Contains(strings.ToLower(c.OtherName), q) || strings.Contains(strings.ToLower(c.ItemTitle), q) {
		return true
	}
	return c.LastMessage != nil && strings.Contains(strings.ToLower(c.LastMessage.Body), q)
}

// Get returns a conversation and its messages.
func (s *Service) Get(ctx context.Context, userID, id string) (Thread, error) {
	db := s.store.DB()
	c, err := getConversation(ctx, db, userID, id)
	if err != nil {
		return Thread{}, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at, rowid`, id)
	if err != nil {
		return Thread{}, fmt.Errorf("list messages: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return Thread{}, err
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		c.LastMessage = &last
	}
	return Thread{Conversation: c, Messages: msgs}, nil
}

// Send appends a message from the user. Blank text is rejected.
func (s *Service) Send(ctx context.Context, userID, conversationID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	var msg models.Message
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getConversation(ctx, tx, userID, conversationID); err != nil {
			return err
		}
		msg = newMessage(uuid.New().String(), conversationID, userID, text, s.now().UTC())
		return insertMessage(ctx, tx, msg)
	})
	if err != nil {
		return models.Message{}, err
	}
	messagesTotal.WithLabelValues("sent").Inc()
	return msg, nil
}

// Receive appends a message from the item's owner to the user's conversation
// and publishes TopicReceived.
func (s *Service) Receive(ctx context.Context, userID, conversationID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	var (
		msg models.Message
		c   models.Conversation
	)
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		if c, err = getConversation(ctx, tx, userID, conversationID); err != nil {
			return err
		}
		msg = newMessage(uuid.New().String(), conversationID, OwnerSender, text, s.now().UTC())
		return insertMessage(ctx, tx, msg)
	})
	if err != nil {
		return models.Message{}, err
	}
	messagesTotal.WithLabelValues("received").Inc()
	if s.bus != nil {
		s.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
			Topic:  TopicReceived,
			Source: "messages",
			Payload: ReceivedEvent{
				UserID:         userID,
				ConversationID: conversationID,
				From:           c.OtherName,
				Body:           text,
			},
		})
	}
	return msg, nil
}

// MarkRead marks the other party's messages in the conversation as read and
// returns how many changed.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID string) (int64, error) {
	var n int64
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getConversation(ctx, tx, userID, conversationID); err != nil {
			return err
		}
		var err error
		n, err = markRead(ctx, tx, conversationID, userID)
		return err
	})
	return n, err
}

// UnreadCount returns the number of unread messages across the user's
// conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = ? AND m.sender_id <> c.user_id AND m.is_read = 0`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// Pay debits the rent or the security deposit of the conversation's item from
// the user's wallet and records a payment message. On insufficient balance
// nothing changes.
func (s *Service) Pay(ctx context.Context, userID, conversationID string, kind PaymentKind) (PaymentResult, error) {
	c, err := getConversation(ctx, s.store.DB(), userID, conversationID)
	if err != nil {
		return PaymentResult{}, err
	}
	it, ok := s.items.Item(c.ItemID)
	if !ok {
		return PaymentResult{}, fmt.Errorf("%w: %s", ErrItemNotFound, c.ItemID)
	}

	var amount float64
	var description string
	switch kind {
	case PaymentRent:
		amount, description = it.Price, "Rent payment: "+it.Title
	case PaymentDeposit:
		amount, description = it.SecurityDeposit, "Security deposit: "+it.Title
	default:
		return PaymentResult{}, ErrInvalidPayment
	}
	if amount <= 0 {
		return PaymentResult{}, ErrNothingToPay
	}

	var msg models.Message
	txn, err := s.payer.Charge(ctx, userID, description, func(tx *sql.Tx) (float64, error) {
		body := fmt.Sprintf("Payment of ₹%s for %s completed successfully!", FormatRupees(amount), kind)
		msg = newMessage(uuid.New().String(), conversationID, userID, body, s.now().UTC())
		return amount, insertMessage(ctx, tx, msg)
	})
	if err != nil {
		return PaymentResult{}, err
	}
	messagesTotal.WithLabelValues("payment").Inc()
	s.logger.Info("in-chat payment",
		zap.String("user_id", userID),
		zap.String("conversation_id", conversationID),
		zap.String("kind", string(kind)),
		zap.Float64("amount", amount),
	)
	return PaymentResult{Transaction: txn, Message: msg}, nil
}

// FormatRupees renders an amount without trailing zeros.
func FormatRupees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SeedDemo opens a conversation about itemID with a greeting from the owner,
// unless the user already has conversations.
func (s *Service) SeedDemo(ctx context.Context, userID, itemID, greeting string) (bool, error) {
	existing, err := s.List(ctx, userID, "")
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	c, _, err := s.Open(ctx, userID, itemID)
	if err != nil {
		return false, err
	}
	if _, err := s.Receive(ctx, userID, c.ID, greeting); err != nil {
		return false, err
	}
	return true, nil
}
