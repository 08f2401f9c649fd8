package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/refsync/refsync/internal/logging"
	"github.com/refsync/refsync/internal/server/config"
	"github.com/refsync/refsync/internal/server/models"
	"github.com/refsync/refsync/internal/server/repositories/repomanager"
)

// Seams for the AWS SDK so presigning can be exercised in tests without
// talking to a real endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// presignExpiry bounds how long a popped item's upload URL stays valid. It
// must comfortably exceed a single upload attempt but stay under the queue
// visibility timeout so stale URLs die with their claims.
const presignExpiry = 15 * time.Minute

// PoppedItem is a claimed queue item together with the presigned PUT URL
// the client uploads the file body to.
type PoppedItem struct {
	models.QueueItem
	UploadURL string
}

// QueueService owns the upload queue workflow: registering attachments,
// handing out claims with fresh presigned URLs, recording outcomes, and
// returning stale claims to the pool.
type QueueService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	logger      logging.Logger
}

func NewQueueService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *QueueService {
	return &QueueService{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      logger.With("component", "queue_service"),
	}
}

// GetRandomStorageKey returns a date-partitioned object key for a new
// attachment upload.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("users/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *QueueService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *QueueService) getPresignedPutURL(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Enqueue registers an attachment for upload and returns the queue item id.
// Re-enqueueing the same (library, attachment) pair for the user resets the
// existing item to pending with the new hash.
func (s *QueueService) Enqueue(ctx context.Context, userID string, libraryID int64, attachmentKey, fileHash string) (string, error) {
	item := &models.QueueItem{
		UserID:        userID,
		LibraryID:     libraryID,
		AttachmentKey: attachmentKey,
		StorageKey:    GetRandomStorageKey(),
		FileHash:      fileHash,
	}
	repo := s.repomanager.Queue(s.db)
	if err := repo.Enqueue(ctx, item); err != nil {
		return "", fmt.Errorf("error enqueueing item: %v", err)
	}
	return item.ID, nil
}

// Pop claims up to max pending items for the user, attaches a fresh
// presigned upload URL to each, and returns them with the post-claim queue
// snapshot. URLs are minted at claim time so retried items never reuse an
// expired link.
func (s *QueueService) Pop(ctx context.Context, userID string, max int) ([]PoppedItem, models.QueueCounts, error) {
	repo := s.repomanager.Queue(s.db)

	claimed, err := repo.Claim(ctx, userID, max)
	if err != nil {
		return nil, models.QueueCounts{}, fmt.Errorf("error claiming items: %v", err)
	}

	items := make([]PoppedItem, 0, len(claimed))
	for _, it := range claimed {
		url, err := s.getPresignedPutURL(ctx, it.StorageKey)
		if err != nil {
			return nil, models.QueueCounts{}, fmt.Errorf("error presigning upload url: %v", err)
		}
		items = append(items, PoppedItem{QueueItem: it, UploadURL: url})
	}

	counts, err := repo.Counts(ctx, userID)
	if err != nil {
		return nil, models.QueueCounts{}, fmt.Errorf("error counting items: %v", err)
	}

	return items, counts, nil
}

// Complete marks a claimed item completed, recording the page count the
// client extracted.
func (s *QueueService) Complete(ctx context.Context, userID, id string, pageCount int) error {
	repo := s.repomanager.Queue(s.db)
	return repo.Complete(ctx, userID, id, pageCount)
}

// Fail marks a claimed item failed terminally.
func (s *QueueService) Fail(ctx context.Context, userID, id, fileHash string) error {
	repo := s.repomanager.Queue(s.db)
	return repo.Fail(ctx, userID, id, fileHash)
}

// Reset returns a claimed item to pending for a later attempt.
func (s *QueueService) Reset(ctx context.Context, userID, id string) error {
	repo := s.repomanager.Queue(s.db)
	return repo.Reset(ctx, userID, id)
}

// Status returns the aggregate queue snapshot for the user.
func (s *QueueService) Status(ctx context.Context, userID string) (models.QueueCounts, error) {
	repo := s.repomanager.Queue(s.db)
	return repo.Counts(ctx, userID)
}

// RunReaper periodically returns items stuck in_progress longer than the
// visibility timeout to pending. It blocks until ctx is cancelled.
func (s *QueueService) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(s.config.ReaperInterval)
	defer ticker.Stop()

	s.logger.Info(ctx, "reaper started",
		"interval", s.config.ReaperInterval.String(),
		"visibility_timeout", s.config.VisibilityTimeout.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "reaper stopped")
			return
		case <-ticker.C:
			repo := s.repomanager.Queue(s.db)
			released, err := repo.ReleaseStale(ctx, s.config.VisibilityTimeout)
			if err != nil {
				s.logger.Error(ctx, "error releasing stale claims", "error", err)
				continue
			}
			if released > 0 {
				s.logger.Warn(ctx, "released stale claims", "count", released)
			}
		}
	}
}
