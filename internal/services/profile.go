package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

// ProfileUpdate carries the fields a user may change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	City      *string `json:"city,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.City == nil && u.Bio == nil && u.AvatarURL == nil
}

// ProfileRepository is the profile collaborator: read a profile and apply a
// partial update.
type ProfileRepository interface {
	// Get returns the profile of userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (*models.Profile, error)

	// Create inserts a profile. ErrAlreadyExists is returned for a taken id.
	Create(ctx context.Context, p *models.Profile) error

	// Update applies the non-nil fields of u to the profile of userID.
	Update(ctx context.Context, userID string, u ProfileUpdate) error
}

// Compile-time interface guard.
var _ ProfileRepository = (*SQLiteProfileRepository)(nil)

// SQLiteProfileRepository implements ProfileRepository with a local SQLite
// table standing in for the hosted profile service.
type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewSQLiteProfileRepository creates a ProfileRepository and runs the
// profiles migration.
func NewSQLiteProfileRepository(ctx context.Context, store plugin.Store) (*SQLiteProfileRepository, error) {
	if err := store.Migrate(ctx, "profiles", profileMigrations); err != nil {
		return nil, fmt.Errorf("profile migrations: %w", err)
	}
	return &SQLiteProfileRepository{db: store.DB()}, nil
}

const profileColumns = `id, name, email, phone, avatar_url, city, bio, rating,
	review_count, items_listed, items_rented, joined_date`

func (r *SQLiteProfileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.AvatarURL, &p.City, &p.Bio,
		&p.Rating, &p.ReviewCount, &p.ItemsListed, &p.ItemsRented, &p.JoinedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile %q: %w", userID, err)
	}
	return &p, nil
}

func (r *SQLiteProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	if p.JoinedDate.IsZero() {
		p.JoinedDate = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.Phone, p.AvatarURL, p.City, p.Bio,
		p.Rating, p.ReviewCount, p.ItemsListed, p.ItemsRented, p.JoinedDate,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *SQLiteProfileRepository) Update(ctx context.Context, userID string, u ProfileUpdate) error {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("name", u.Name)
	add("phone", u.Phone)
	add("city", u.City)
	add("bio", u.Bio)
	add("avatar_url", u.AvatarURL)

	if len(sets) == 0 {
		// Nothing to write, but the profile must still exist.
		_, err := r.Get(ctx, userID)
		return err
	}

	args = append(args, userID)
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update profile %q: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var profileMigrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create profiles table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE profiles (
					id           TEXT PRIMARY KEY,
					name         TEXT NOT NULL,
					email        TEXT NOT NULL,
					phone        TEXT NOT NULL DEFAULT '',
					avatar_url   TEXT NOT NULL DEFAULT '',
					city         TEXT NOT NULL DEFAULT '',
					bio          TEXT NOT NULL DEFAULT '',
					rating       REAL NOT NULL DEFAULT 0,
					review_count INTEGER NOT NULL DEFAULT 0,
					items_listed INTEGER NOT NULL DEFAULT 0,
					items_rented INTEGER NOT NULL DEFAULT 0,
					joined_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}
