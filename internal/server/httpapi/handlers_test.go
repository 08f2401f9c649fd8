package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refsync/refsync/internal/common"
	"github.com/refsync/refsync/internal/logging"
	"github.com/refsync/refsync/internal/server/auth"
	"github.com/refsync/refsync/internal/server/models"
	"github.com/refsync/refsync/internal/server/services"
)

var testSecret = []byte("test-secret")

type fakeUsers struct {
	registerErr error
	loginPair   *services.TokenPair
	loginErr    error
	refreshPair *services.TokenPair
	refreshErr  error
}

func (f *fakeUsers) Register(ctx context.Context, username string, password []byte) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u1", UserName: username}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username string, password []byte) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginPair, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshPair, nil
}

type fakeQueue struct {
	popItems  []services.PoppedItem
	popCounts models.QueueCounts
	popErr    error

	outcomeErr error
	lastUserID string
	lastID     string
	pageCount  int
	fileHash   string

	enqueueID  string
	enqueueErr error

	statusCounts models.QueueCounts
	statusErr    error
}

func (f *fakeQueue) Enqueue(ctx context.Context, userID string, libraryID int64, attachmentKey, fileHash string) (string, error) {
	f.lastUserID = userID
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	return f.enqueueID, nil
}

func (f *fakeQueue) Pop(ctx context.Context, userID string, max int) ([]services.PoppedItem, models.QueueCounts, error) {
	f.lastUserID = userID
	if f.popErr != nil {
		return nil, models.QueueCounts{}, f.popErr
	}
	return f.popItems, f.popCounts, nil
}

func (f *fakeQueue) Complete(ctx context.Context, userID, id string, pageCount int) error {
	f.lastUserID, f.lastID, f.pageCount = userID, id, pageCount
	return f.outcomeErr
}

func (f *fakeQueue) Fail(ctx context.Context, userID, id, fileHash string) error {
	f.lastUserID, f.lastID, f.fileHash = userID, id, fileHash
	return f.outcomeErr
}

func (f *fakeQueue) Reset(ctx context.Context, userID, id string) error {
	f.lastUserID, f.lastID = userID, id
	return f.outcomeErr
}

func (f *fakeQueue) Status(ctx context.Context, userID string) (models.QueueCounts, error) {
	f.lastUserID = userID
	if f.statusErr != nil {
		return models.QueueCounts{}, f.statusErr
	}
	return f.statusCounts, nil
}

func newTestServer(t *testing.T, users *fakeUsers, queue *fakeQueue) *httptest.Server {
	t.Helper()
	if users == nil {
		users = &fakeUsers{}
	}
	if queue == nil {
		queue = &fakeQueue{}
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	api := NewAPI(users, queue, testSecret, logger)
	srv := httptest.NewServer(NewRouter(api))
	t.Cleanup(srv.Close)
	return srv
}

func validToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, testSecret, time.Minute)
	require.NoError(t, err)
	return token
}

func expiredToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, testSecret, -time.Minute)
	require.NoError(t, err)
	return token
}

func doPost(t *testing.T, srv *httptest.Server, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := newTestServer(t, &fakeUsers{}, nil)
		resp, _ := doPost(t, srv, "/api/v1/auth/register", "", map[string]string{"username": "alice", "password": "pw"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		srv := newTestServer(t, &fakeUsers{}, nil)
		resp, body := doPost(t, srv, "/api/v1/auth/register", "", map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, body["error"])
	})
}

func TestLogin(t *testing.T) {
	t.Run("success returns token pair", func(t *testing.T) {
		users := &fakeUsers{loginPair: &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}}
		srv := newTestServer(t, users, nil)

		resp, body := doPost(t, srv, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "pw"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "acc", body["accessToken"])
		assert.Equal(t, "ref", body["refreshToken"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		users := &fakeUsers{loginErr: common.ErrorUnauthorized}
		srv := newTestServer(t, users, nil)

		resp, body := doPost(t, srv, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "pw"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "unauthorized", body["error"])
	})
}

func TestRefresh(t *testing.T) {
	t.Run("rotates pair", func(t *testing.T) {
		users := &fakeUsers{refreshPair: &services.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}}
		srv := newTestServer(t, users, nil)

		resp, body := doPost(t, srv, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": "ref1"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "acc2", body["accessToken"])
		assert.Equal(t, "ref2", body["refreshToken"])
	})

	t.Run("expired refresh token", func(t *testing.T) {
		users := &fakeUsers{refreshErr: common.ErrRefreshTokenExpired}
		srv := newTestServer(t, users, nil)

		resp, body := doPost(t, srv, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": "ref1"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, common.ErrRefreshTokenExpired.Error(), body["error"])
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		resp, _ := doPost(t, srv, "/api/v1/queue/status", "", struct{}{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token reports exact message", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		resp, body := doPost(t, srv, "/api/v1/queue/status", expiredToken(t, "u1"), struct{}{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, common.ErrTokenExpired.Error(), body["error"])
	})

	t.Run("garbage token", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		resp, body := doPost(t, srv, "/api/v1/queue/status", "not-a-jwt", struct{}{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, common.ErrInvalidToken.Error(), body["error"])
	})
}

func TestPop(t *testing.T) {
	queue := &fakeQueue{
		popItems: []services.PoppedItem{
			{
				QueueItem: models.QueueItem{
					ID:            "item-1",
					LibraryID:     7,
					AttachmentKey: "ABCD1234",
					FileHash:      "hash-1",
					Attempts:      1,
				},
				UploadURL: "https://s3.local/k1?signed",
			},
		},
		popCounts: models.QueueCounts{Pending: 0, InProgress: 1, Total: 1},
	}
	srv := newTestServer(t, nil, queue)

	resp, body := doPost(t, srv, "/api/v1/queue/pop", validToken(t, "u1"), map[string]int{"max": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", queue.lastUserID)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "item-1", item["id"])
	assert.Equal(t, float64(7), item["libraryId"])
	assert.Equal(t, "ABCD1234", item["attachmentKey"])
	assert.Equal(t, "https://s3.local/k1?signed", item["uploadUrl"])
	assert.Equal(t, "hash-1", item["fileHash"])
	assert.Equal(t, float64(1), item["attempts"])

	status := body["status"].(map[string]any)
	assert.Equal(t, float64(1), status["inProgress"])
	assert.Equal(t, float64(1), status["total"])
}

func TestPop_BadMax(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	resp, _ := doPost(t, srv, "/api/v1/queue/pop", validToken(t, "u1"), map[string]int{"max": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOutcomes(t *testing.T) {
	t.Run("complete passes page count", func(t *testing.T) {
		queue := &fakeQueue{}
		srv := newTestServer(t, nil, queue)

		resp, _ := doPost(t, srv, "/api/v1/queue/complete", validToken(t, "u1"), map[string]any{"id": "item-1", "pageCount": 12})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "item-1", queue.lastID)
		assert.Equal(t, 12, queue.pageCount)
	})

	t.Run("fail passes file hash", func(t *testing.T) {
		queue := &fakeQueue{}
		srv := newTestServer(t, nil, queue)

		resp, _ := doPost(t, srv, "/api/v1/queue/fail", validToken(t, "u1"), map[string]any{"id": "item-1", "fileHash": "h"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "h", queue.fileHash)
	})

	t.Run("unclaimed item → 404", func(t *testing.T) {
		queue := &fakeQueue{outcomeErr: common.ErrorItemNotClaimed}
		srv := newTestServer(t, nil, queue)

		resp, body := doPost(t, srv, "/api/v1/queue/reset", validToken(t, "u1"), map[string]string{"id": "item-1"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, common.ErrorItemNotClaimed.Error(), body["error"])
	})
}

func TestEnqueue(t *testing.T) {
	queue := &fakeQueue{enqueueID: "item-9"}
	srv := newTestServer(t, nil, queue)

	resp, body := doPost(t, srv, "/api/v1/queue/enqueue", validToken(t, "u1"),
		map[string]any{"libraryId": 7, "attachmentKey": "ABCD1234", "fileHash": "h"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "item-9", body["id"])

	resp, _ = doPost(t, srv, "/api/v1/queue/enqueue", validToken(t, "u1"),
		map[string]any{"libraryId": 0, "attachmentKey": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	queue := &fakeQueue{statusCounts: models.QueueCounts{Completed: 3, Total: 5}}
	srv := newTestServer(t, nil, queue)

	resp, body := doPost(t, srv, "/api/v1/queue/status", validToken(t, "u1"), struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["completed"])
	assert.Equal(t, float64(5), body["total"])
}
