package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create booking_requests table",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE booking_requests (
					id           TEXT     PRIMARY KEY,
					item_id      TEXT     NOT NULL,
					item_title   TEXT     NOT NULL,
					renter_id    TEXT     NOT NULL,
					start_at     DATETIME NOT NULL,
					end_at       DATETIME NOT NULL,
					days         INTEGER  NOT NULL,
					daily_rate   REAL     NOT NULL,
					total_amount REAL     NOT NULL,
					status       TEXT     NOT NULL DEFAULT 'pending',
					paid         INTEGER  NOT NULL DEFAULT 0,
					message      TEXT     NOT NULL DEFAULT '',
					created_at   DATETIME NOT NULL,
					updated_at   DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_booking_requests_renter ON booking_requests(renter_id, created_at)`,
			}
			for _, s := range stmts {
				if _, err := tx.Exec(s); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "record the amount charged",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE booking_requests ADD COLUMN amount_paid REAL NOT NULL DEFAULT 0`)
			return err
		},
	},
}

const selectColumns = `id, item_id, item_title, renter_id, start_at, end_at, days,
	daily_rate, total_amount, status, paid, amount_paid, message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (models.BookingRequest, error) {
	var b models.BookingRequest
	var status string
	err := row.Scan(&b.ID, &b.ItemID, &b.ItemTitle, &b.RenterID, &b.Start, &b.End, &b.Days,
		&b.DailyRate, &b.TotalAmount, &status, &b.Paid, &b.AmountPaid, &b.Message, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return models.BookingRequest{}, err
	}
	b.Status = models.BookingStatus(status)
	return b, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRequest(ctx context.Context, q queryRower, renterID, id string) (models.BookingRequest, error) {
	b, err := scanRequest(q.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM booking_requests WHERE id = ? AND renter_id = ?`, id, renterID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.BookingRequest{}, services.ErrNotFound
	}
	if err != nil {
		return models.BookingRequest{}, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

func insertRequest(ctx context.Context, db *sql.DB, b models.BookingRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO booking_requests (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ItemID, b.ItemTitle, b.RenterID, b.Start, b.End, b.Days,
		b.DailyRate, b.TotalAmount, string(b.Status), b.Paid, b.AmountPaid, b.Message, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}
