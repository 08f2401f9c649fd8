// Package refreshtokens provides a PostgreSQL-backed repository for the
// refresh tokens used in the queue service's authentication flow.
package refreshtokens

import (
	"context"
	"time"

	"github.com/refsync/refsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	// Find returns the token row or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
}
