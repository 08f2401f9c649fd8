// Package catalog opens the agent's local SQLite database and wires the
// repositories on top of it. The database is an optimization for smooth
// progress reporting and offline catalog lookups, not a durable ledger; the
// queue service remains the source of truth.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/refsync/refsync/internal/client/migrations"
	"github.com/refsync/refsync/internal/client/repositories/attachments"
	"github.com/refsync/refsync/internal/client/repositories/metadata"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Metadata    metadata.Repository
	Attachments attachments.Repository
	DB          *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the catalog at dsn, applies
// pending migrations, and returns the wired repositories. The caller owns
// closing Repositories.DB.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Metadata:    metadata.NewSQLiteRepository(db),
		Attachments: attachments.NewSQLiteRepository(db),
		DB:          db,
	}, nil
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}
