package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/refsync/refsync/internal/common"
	"github.com/refsync/refsync/internal/dbx"
	"github.com/refsync/refsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, item *models.QueueItem) error {
	query := `
		INSERT INTO queue_items (user_id, library_id, attachment_key, storage_key, file_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, library_id, attachment_key) DO UPDATE SET
			storage_key = excluded.storage_key,
			file_hash = excluded.file_hash,
			status = 'pending',
			attempts = 0,
			page_count = 0,
			claimed_at = NULL
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		item.UserID, item.LibraryID, item.AttachmentKey, item.StorageKey, item.FileHash).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Claim(ctx context.Context, userID string, max int) ([]models.QueueItem, error) {
	// SKIP LOCKED keeps concurrent claimers from blocking on or double
	// claiming the same rows.
	query := `
		UPDATE queue_items SET status = 'in_progress', claimed_at = now()
		WHERE id IN (
			SELECT id FROM queue_items
			WHERE user_id = $1 AND status = 'pending'
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, library_id, attachment_key, storage_key, file_hash, attempts
	`
	rows, err := r.db.QueryContext(ctx, query, userID, max)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var it models.QueueItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.LibraryID, &it.AttachmentKey,
			&it.StorageKey, &it.FileHash, &it.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		it.Status = models.QueueStatusInProgress
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Complete(ctx context.Context, userID, id string, pageCount int) error {
	query := `
		UPDATE queue_items SET status = 'completed', page_count = $3, claimed_at = NULL
		WHERE id = $1 AND user_id = $2 AND status = 'in_progress'
	`
	return r.execClaimed(ctx, query, id, userID, pageCount)
}

func (r *PostgresRepository) Fail(ctx context.Context, userID, id, fileHash string) error {
	query := `
		UPDATE queue_items SET status = 'failed', file_hash = $3, claimed_at = NULL
		WHERE id = $1 AND user_id = $2 AND status = 'in_progress'
	`
	return r.execClaimed(ctx, query, id, userID, fileHash)
}

func (r *PostgresRepository) Reset(ctx context.Context, userID, id string) error {
	query := `
		UPDATE queue_items SET status = 'pending', attempts = attempts + 1, claimed_at = NULL
		WHERE id = $1 AND user_id = $2 AND status = 'in_progress'
	`
	return r.execClaimed(ctx, query, id, userID)
}

// execClaimed runs an outcome update that only applies to claimed rows and
// maps "nothing updated" to common.ErrorItemNotClaimed.
func (r *PostgresRepository) execClaimed(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorItemNotClaimed
	}
	return nil
}

func (r *PostgresRepository) Counts(ctx context.Context, userID string) (models.QueueCounts, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'in_progress'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			count(*)
		FROM queue_items
		WHERE user_id = $1
	`
	var c models.QueueCounts
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&c.Pending, &c.InProgress, &c.Completed, &c.Failed, &c.Total)
	if err != nil {
		return models.QueueCounts{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ReleaseStale(ctx context.Context, timeout time.Duration) (int64, error) {
	query := `
		UPDATE queue_items SET status = 'pending', attempts = attempts + 1, claimed_at = NULL
		WHERE status = 'in_progress' AND claimed_at < now() - $1::interval
	`
	res, err := r.db.ExecContext(ctx, query, fmt.Sprintf("%d seconds", int(timeout.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
