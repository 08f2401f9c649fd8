// Package httpapi exposes the queue service over JSON/HTTP: auth endpoints
// for token issuance and the authenticated queue workflow used by agents.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/refsync/refsync/internal/common"
	"github.com/refsync/refsync/internal/logging"
	"github.com/refsync/refsync/internal/server/models"
	"github.com/refsync/refsync/internal/server/services"
)

// UserProvider is the slice of UserService the auth endpoints need.
type UserProvider interface {
	Register(ctx context.Context, username string, password []byte) (*models.User, error)
	Login(ctx context.Context, username string, password []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// QueueProvider is the slice of QueueService the queue endpoints need.
type QueueProvider interface {
	Enqueue(ctx context.Context, userID string, libraryID int64, attachmentKey, fileHash string) (string, error)
	Pop(ctx context.Context, userID string, max int) ([]services.PoppedItem, models.QueueCounts, error)
	Complete(ctx context.Context, userID, id string, pageCount int) error
	Fail(ctx context.Context, userID, id, fileHash string) error
	Reset(ctx context.Context, userID, id string) error
	Status(ctx context.Context, userID string) (models.QueueCounts, error)
}

// API holds handler dependencies.
type API struct {
	users     UserProvider
	queue     QueueProvider
	jwtSecret []byte
	logger    logging.Logger
}

func NewAPI(users UserProvider, queue QueueProvider, jwtSecret []byte, logger logging.Logger) *API {
	return &API{
		users:     users,
		queue:     queue,
		jwtSecret: jwtSecret,
		logger:    logger.With("component", "httpapi"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service-level sentinel errors onto HTTP statuses.
// The expired-token message is part of the wire contract: agents use it to
// decide whether to refresh and retry.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrorItemNotClaimed):
		writeError(w, http.StatusNotFound, common.ErrorItemNotClaimed.Error())
	default:
		a.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
