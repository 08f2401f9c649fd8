// Package attachments is the local attachment catalog: it maps a host item
// reference (libraryID, key) to the file on disk that should be uploaded.
package attachments

import (
	"context"

	"github.com/refsync/refsync/internal/client/models"
)

type Repository interface {
	// Get returns the catalog row or common.ErrorNotFound.
	Get(ctx context.Context, libraryID int64, key string) (*models.Attachment, error)
	Upsert(ctx context.Context, a *models.Attachment) error
	Delete(ctx context.Context, libraryID int64, key string) error
	List(ctx context.Context) ([]models.Attachment, error)
}
