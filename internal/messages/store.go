package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create conversations and messages tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE conversations (
					id         TEXT     PRIMARY KEY,
					user_id    TEXT     NOT NULL,
					other_name TEXT     NOT NULL,
					item_id    TEXT     NOT NULL,
					item_title TEXT     NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					UNIQUE (user_id, item_id)
				)`,
				`CREATE TABLE messages (
					id              TEXT     PRIMARY KEY,
					conversation_id TEXT     NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
					sender_id       TEXT     NOT NULL,
					body            TEXT     NOT NULL,
					is_read         INTEGER  NOT NULL DEFAULT 0,
					created_at      DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_messages_conversation ON messages(conversation_id, created_at)`,
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

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const conversationColumns = `c.id, c.user_id, c.other_name, c.item_id, c.item_title, c.created_at,
	(SELECT COUNT(*) FROM messages m
		WHERE m.conversation_id = c.id AND m.sender_id <> c.user_id AND m.is_read = 0)`

func scanConversation(row rowScanner) (models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.OtherName, &c.ItemID, &c.ItemTitle, &c.CreatedAt, &c.UnreadCount)
	return c, err
}

// getConversation returns the conversation id owned by userID, or
// services.ErrNotFound.
func getConversation(ctx context.Context, q queryRower, userID, id string) (models.Conversation, error) {
	c, err := scanConversation(q.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.id = ? AND c.user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Conversation{}, fmt.Errorf("conversation %s: %w", id, services.ErrNotFound)
		}
		return models.Conversation{}, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return c, nil
}

func findConversation(ctx context.Context, q queryRower, userID, itemID string) (models.Conversation, bool, error) {
	c, err := scanConversation(q.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.user_id = ? AND c.item_id = ?`, userID, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, nil
	}
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("find conversation: %w", err)
	}
	return c, true, nil
}

func insertConversation(ctx context.Context, tx *sql.Tx, c models.Conversation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, other_name, item_id, item_title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.OtherName, c.ItemID, c.ItemTitle, c.CreatedAt, c.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return services.ErrAlreadyExists
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// insertMessage appends msg and bumps the conversation's activity time.
func insertMessage(ctx context.Context, tx *sql.Tx, msg models.Message) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Body, msg.IsRead, msg.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, msg.CreatedAt, msg.ConversationID,
	); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func markRead(ctx context.Context, tx *sql.Tx, conversationID, readerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND sender_id <> ? AND is_read = 0`,
		conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()
	out := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const messageColumns = `id, conversation_id, sender_id, body, is_read, created_at`

func lastMessage(ctx context.Context, db *sql.DB, conversationID string) (*models.Message, error) {
	var m models.Message
	err := db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, conversationID,
	).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.IsRead, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last message of %s: %w", conversationID, err)
	}
	return &m, nil
}

func newMessage(id, conversationID, senderID, body string, now time.Time) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		IsRead:         false,
		CreatedAt:      now,
	}
}
