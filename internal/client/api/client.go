// Package api defines the queue-service client used by the agent: the
// operation surface, its sentinel errors, and an HTTP implementation with
// transparent access-token refresh.
package api

import (
	"context"

	"github.com/refsync/refsync/internal/client/models"
)

// TokenPair carries the access/refresh token pair issued on login and
// rotated on every refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client is the queue-service operation surface.
//
// Contract:
//   - Pop atomically claims up to max pending items and returns the
//     aggregate status snapshot taken after the claim.
//   - Complete/Fail/Reset report one item's terminal outcome.
//   - Enqueue registers an attachment for upload and returns the item id.
//
// All methods honor context cancellation.
type Client interface {
	Register(ctx context.Context, username string, password []byte) error
	Login(ctx context.Context, username string, password []byte) (TokenPair, error)

	Pop(ctx context.Context, max int) ([]models.UploadQueueItem, models.QueueStatus, error)
	Complete(ctx context.Context, id string, pageCount int) error
	Fail(ctx context.Context, id string, fileHash string) error
	Reset(ctx context.Context, id string) error
	Enqueue(ctx context.Context, libraryID int64, attachmentKey, fileHash string) (string, error)
	Status(ctx context.Context) (models.QueueStatus, error)
}
