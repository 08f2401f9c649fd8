package services

import (
	"context"

	"github.com/refsync/refsync/internal/client/api"
	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/client/repositories/attachments"
	"github.com/refsync/refsync/internal/client/uploader"
	"github.com/refsync/refsync/internal/logging"
)

// queueAdapter bridges the API client to the upload engine's queue surface.
type queueAdapter struct {
	client api.Client
}

func (q *queueAdapter) PopQueueItems(ctx context.Context, max int) ([]models.UploadQueueItem, models.QueueStatus, error) {
	return q.client.Pop(ctx, max)
}

func (q *queueAdapter) CompleteUpload(ctx context.Context, id string, pageCount int) error {
	return q.client.Complete(ctx, id, pageCount)
}

func (q *queueAdapter) MarkUploadFailed(ctx context.Context, id string, fileHash string) error {
	return q.client.Fail(ctx, id, fileHash)
}

func (q *queueAdapter) ResetUpload(ctx context.Context, id string) error {
	return q.client.Reset(ctx, id)
}

// catalogStore adapts the attachment repository to the upload engine's
// resolver surface.
type catalogStore struct {
	repo attachments.Repository
}

func (s *catalogStore) Resolve(ctx context.Context, libraryID int64, key string) (*models.Attachment, error) {
	return s.repo.Get(ctx, libraryID, key)
}

// NewUploader wires an upload engine from the agent's API client, catalog,
// and session. concurrency <= 0 means the engine default.
func NewUploader(client api.Client, repo attachments.Repository, session *SessionService, logger logging.Logger, concurrency int) *uploader.Uploader {
	return uploader.New(uploader.Config{
		Queue:       &queueAdapter{client: client},
		Store:       &catalogStore{repo: repo},
		Session:     session,
		Logger:      logger,
		Concurrency: concurrency,
	})
}
