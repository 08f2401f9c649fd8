package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/common"
	"github.com/refsync/refsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, libraryID int64, key string) (*models.Attachment, error) {
	var a models.Attachment
	err := r.db.QueryRowContext(ctx, `
		SELECT library_id, key, local_path, content_type, file_hash
		FROM attachments WHERE library_id = ? AND key = ?
	`, libraryID, key).Scan(&a.LibraryID, &a.Key, &a.LocalPath, &a.ContentType, &a.FileHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %d/%s: %w", libraryID, key, err)
	}
	return &a, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a *models.Attachment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attachments (library_id, key, local_path, content_type, file_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(library_id, key) DO UPDATE SET
			local_path = excluded.local_path,
			content_type = excluded.content_type,
			file_hash = excluded.file_hash
	`, a.LibraryID, a.Key, a.LocalPath, a.ContentType, a.FileHash)
	if err != nil {
		return fmt.Errorf("failed to upsert attachment %d/%s: %w", a.LibraryID, a.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, libraryID int64, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE library_id = ? AND key = ?`, libraryID, key)
	if err != nil {
		return fmt.Errorf("failed to delete attachment %d/%s: %w", libraryID, key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT library_id, key, local_path, content_type, file_hash
		FROM attachments ORDER BY library_id, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var result []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.LibraryID, &a.Key, &a.LocalPath, &a.ContentType, &a.FileHash); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachment rows: %w", err)
	}
	return result, nil
}
