package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/refsync/refsync/internal/client/models"
	"github.com/stretchr/testify/require"
)

func TestInitDatabase_MigratesAndWiresRepositories(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	repos, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	require.NoError(t, repos.Metadata.Set(ctx, "access_token", []byte("at")))
	v, err := repos.Metadata.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, []byte("at"), v)

	a := &models.Attachment{LibraryID: 1, Key: "K1", LocalPath: "/p", ContentType: "application/pdf"}
	require.NoError(t, repos.Attachments.Upsert(ctx, a))
	got, err := repos.Attachments.Get(ctx, 1, "K1")
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestInitDatabase_IsIdempotentAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	repos, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, repos.Metadata.Set(ctx, "k", []byte("v")))
	require.NoError(t, repos.Close())

	// Reopening must not fail on already-applied migrations or lose data.
	repos, err = InitDatabase(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	v, err := repos.Metadata.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}
