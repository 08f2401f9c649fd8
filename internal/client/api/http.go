package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/common"
)

const requestTimeout = 15 * time.Second

// HTTPClient talks JSON over HTTP to the queue service. It injects the
// access token into every authenticated request and, when the server
// reports the token as expired, refreshes the pair and retries the request
// once.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client

	mu       sync.Mutex
	tokens   TokenPair
	onTokens func(TokenPair)
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

// SetTokens installs a previously persisted token pair, e.g. on agent start.
func (c *HTTPClient) SetTokens(t TokenPair) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// OnTokenRefresh registers a hook invoked with every new token pair the
// client obtains, so the caller can persist it.
func (c *HTTPClient) OnTokenRefresh(fn func(TokenPair)) {
	c.mu.Lock()
	c.onTokens = fn
	c.mu.Unlock()
}

func (c *HTTPClient) currentTokens() TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *HTTPClient) storeTokens(t TokenPair) {
	c.mu.Lock()
	c.tokens = t
	fn := c.onTokens
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// do posts in as JSON to path and decodes the response into out (out may be
// nil). When authed, the access token is attached; an expired-token 401
// triggers one refresh-and-retry cycle.
func (c *HTTPClient) do(ctx context.Context, path string, in, out any, authed bool) error {
	err := c.doOnce(ctx, path, in, out, authed)
	if err == nil || !authed {
		return mapRemote(err)
	}

	re, ok := err.(*remoteError)
	if !ok || re.status != http.StatusUnauthorized || re.message != common.ErrTokenExpired.Error() {
		return mapRemote(err)
	}

	refresh := c.currentTokens().RefreshToken
	if refresh == "" {
		return ErrUnauthorized
	}

	var pair TokenPair
	if err := c.doOnce(ctx, "/api/v1/auth/refresh", map[string]string{"refreshToken": refresh}, &pair, false); err != nil {
		return mapRemote(err)
	}
	c.storeTokens(pair)

	return mapRemote(c.doOnce(ctx, path, in, out, authed))
}

// remoteError is the pre-mapping form of a non-2xx response; do uses the
// status/message split to recognize the expired-token case before the error
// is collapsed into a sentinel.
type remoteError struct {
	status  int
	message string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, e.message)
}

func mapRemote(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*remoteError); ok {
		switch re.status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, re.message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, re.message)
		}
	}
	return err
}

func (c *HTTPClient) doOnce(ctx context.Context, path string, in, out any, authed bool) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.currentTokens().AccessToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if err := json.Unmarshal(data, &er); err != nil || er.Error == "" {
			er.Error = strings.TrimSpace(string(data))
		}
		return &remoteError{status: resp.StatusCode, message: er.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, username string, password []byte) error {
	in := map[string]string{"username": username, "password": string(password)}
	return c.do(ctx, "/api/v1/auth/register", in, nil, false)
}

func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (TokenPair, error) {
	in := map[string]string{"username": username, "password": string(password)}
	var pair TokenPair
	if err := c.do(ctx, "/api/v1/auth/login", in, &pair, false); err != nil {
		return TokenPair{}, err
	}
	c.storeTokens(pair)
	return pair, nil
}

type popResponse struct {
	Items  []models.UploadQueueItem `json:"items"`
	Status models.QueueStatus       `json:"status"`
}

func (c *HTTPClient) Pop(ctx context.Context, max int) ([]models.UploadQueueItem, models.QueueStatus, error) {
	var resp popResponse
	err := c.do(ctx, "/api/v1/queue/pop", map[string]int{"max": max}, &resp, true)
	if err != nil {
		return nil, models.QueueStatus{}, err
	}
	return resp.Items, resp.Status, nil
}

func (c *HTTPClient) Complete(ctx context.Context, id string, pageCount int) error {
	in := map[string]any{"id": id, "pageCount": pageCount}
	return c.do(ctx, "/api/v1/queue/complete", in, nil, true)
}

func (c *HTTPClient) Fail(ctx context.Context, id string, fileHash string) error {
	in := map[string]any{"id": id, "fileHash": fileHash}
	return c.do(ctx, "/api/v1/queue/fail", in, nil, true)
}

func (c *HTTPClient) Reset(ctx context.Context, id string) error {
	return c.do(ctx, "/api/v1/queue/reset", map[string]string{"id": id}, nil, true)
}

type enqueueResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) Enqueue(ctx context.Context, libraryID int64, attachmentKey, fileHash string) (string, error) {
	in := map[string]any{"libraryId": libraryID, "attachmentKey": attachmentKey, "fileHash": fileHash}
	var resp enqueueResponse
	if err := c.do(ctx, "/api/v1/queue/enqueue", in, &resp, true); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPClient) Status(ctx context.Context) (models.QueueStatus, error) {
	var status models.QueueStatus
	err := c.do(ctx, "/api/v1/queue/status", struct{}{}, &status, true)
	return status, err
}
