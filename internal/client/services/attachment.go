package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/refsync/refsync/internal/client/api"
	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/client/repositories/attachments"
	"github.com/refsync/refsync/internal/filex"
)

// AttachmentService registers local files in the catalog and enqueues them
// for upload.
type AttachmentService struct {
	client api.Client
	repo   attachments.Repository
}

func NewAttachmentService(client api.Client, repo attachments.Repository) *AttachmentService {
	return &AttachmentService{client: client, repo: repo}
}

// Add records the file at path under (libraryID, key) and enqueues it on
// the server. It returns the queue item id.
func (s *AttachmentService) Add(ctx context.Context, libraryID int64, key, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	a := &models.Attachment{
		LibraryID:   libraryID,
		Key:         key,
		LocalPath:   abs,
		ContentType: filex.DetectContentType(abs, data),
		FileHash:    hash,
	}
	if err := s.repo.Upsert(ctx, a); err != nil {
		return "", err
	}

	id, err := s.client.Enqueue(ctx, libraryID, key, hash)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

// List returns all catalog rows.
func (s *AttachmentService) List(ctx context.Context) ([]models.Attachment, error) {
	return s.repo.List(ctx)
}
