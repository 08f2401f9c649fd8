// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"

	"github.com/refsync/refsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
