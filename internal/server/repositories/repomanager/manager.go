// Package repomanager wires repository implementations to a database
// backend and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/refsync/refsync/internal/dbx"
	"github.com/refsync/refsync/internal/server/repositories/queue"
	"github.com/refsync/refsync/internal/server/repositories/refreshtokens"
	"github.com/refsync/refsync/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Queue(db dbx.DBTX) queue.Repository
}
