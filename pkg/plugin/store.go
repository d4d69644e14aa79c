package plugin

import (
	"context"
	"database/sql"
)

// Migration is a single schema change owned by a module.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the persistence handle shared by modules.
type Store interface {
	// DB returns the underlying database handle.
	DB() *sql.DB

	// Tx runs fn in a transaction, committing when fn returns nil.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Migrate applies the named module's pending migrations in order.
	Migrate(ctx context.Context, module string, migrations []Migration) error
}
