// Package queue provides the PostgreSQL-backed upload queue repository.
package queue

import (
	"context"
	"time"

	"github.com/refsync/refsync/internal/server/models"
)

type Repository interface {
	// Enqueue inserts the item, or returns an existing (user, library,
	// attachment) row to pending with a fresh hash and attempt counter.
	// The item's ID is filled in on return.
	Enqueue(ctx context.Context, item *models.QueueItem) error

	// Claim moves up to max of the user's oldest pending items to
	// in_progress and returns them. Concurrent claimers never receive the
	// same item.
	Claim(ctx context.Context, userID string, max int) ([]models.QueueItem, error)

	// Complete marks a claimed item completed. If the item is not currently
	// claimed it returns common.ErrorItemNotClaimed.
	Complete(ctx context.Context, userID, id string, pageCount int) error

	// Fail marks an item failed terminally, recording the reported hash.
	Fail(ctx context.Context, userID, id, fileHash string) error

	// Reset returns a claimed item to pending and increments its attempt
	// counter.
	Reset(ctx context.Context, userID, id string) error

	// Counts returns the aggregate queue snapshot for the user.
	Counts(ctx context.Context, userID string) (models.QueueCounts, error)

	// ReleaseStale returns items claimed longer than timeout ago to
	// pending, counting the release as an attempt. It reports how many
	// rows it touched.
	ReleaseStale(ctx context.Context, timeout time.Duration) (int64, error)
}
