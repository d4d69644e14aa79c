package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create wallets and wallet_transactions tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE wallets (
					user_id    TEXT     PRIMARY KEY,
					balance    REAL     NOT NULL DEFAULT 0,
					verified   INTEGER  NOT NULL DEFAULT 0,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE TABLE wallet_transactions (
					id          TEXT     PRIMARY KEY,
					user_id     TEXT     NOT NULL,
					type        TEXT     NOT NULL,
					amount      REAL     NOT NULL,
					description TEXT     NOT NULL DEFAULT '',
					created_at  DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_wallet_transactions_user ON wallet_transactions(user_id, created_at)`,
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
		Description: "create coupons table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE coupons (
					id         TEXT     PRIMARY KEY,
					user_id    TEXT     NOT NULL,
					percent    REAL     NOT NULL,
					label      TEXT     NOT NULL,
					used       INTEGER  NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`)
			return err
		},
	},
}

// walletRow reads a wallet inside tx. A missing row is an empty, unverified
// wallet.
func walletRow(ctx context.Context, tx *sql.Tx, userID string) (models.Wallet, error) {
	w := models.Wallet{UserID: userID}
	err := tx.QueryRowContext(ctx,
		`SELECT balance, verified, updated_at FROM wallets WHERE user_id = ?`, userID,
	).Scan(&w.Balance, &w.Verified, &w.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, fmt.Errorf("get wallet %s: %w", userID, err)
	}
	return w, nil
}

func saveWallet(ctx context.Context, tx *sql.Tx, w models.Wallet) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, verified, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = excluded.balance,
			verified = excluded.verified,
			updated_at = excluded.updated_at`,
		w.UserID, w.Balance, w.Verified, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save wallet %s: %w", w.UserID, err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Type), t.Amount, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func insertCoupon(ctx context.Context, tx *sql.Tx, c models.Coupon) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coupons (id, user_id, percent, label, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Percent, c.Label, c.Used, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// redeemCoupon marks an unused coupon of userID as used and returns it.
func redeemCoupon(ctx context.Context, tx *sql.Tx, userID, couponID string) (models.Coupon, error) {
	c := models.Coupon{ID: couponID, UserID: userID}
	err := tx.QueryRowContext(ctx,
		`SELECT percent, label, created_at FROM coupons WHERE id = ? AND user_id = ? AND used = 0`,
		couponID, userID,
	).Scan(&c.Percent, &c.Label, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Coupon{}, ErrCouponUnavailable
	}
	if err != nil {
		return models.Coupon{}, fmt.Errorf("get coupon %s: %w", couponID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE coupons SET used = 1 WHERE id = ?`, couponID); err != nil {
		return models.Coupon{}, fmt.Errorf("redeem coupon %s: %w", couponID, err)
	}
	c.Used = true
	return c, nil
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Type = models.TransactionType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanCoupons(rows *sql.Rows) ([]models.Coupon, error) {
	defer rows.Close()
	var out []models.Coupon
	for rows.Next() {
		var c models.Coupon
		if err := rows.Scan(&c.ID, &c.UserID, &c.Percent, &c.Label, &c.Used, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coupon row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
