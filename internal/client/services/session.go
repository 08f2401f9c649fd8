// Package services contains the agent's application services: session and
// token management, attachment registration, and the glue between the API
// client, the local catalog, and the upload engine.
package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/refsync/refsync/internal/client/api"
	"github.com/refsync/refsync/internal/client/repositories/metadata"
	"github.com/refsync/refsync/internal/logging"
)

// Metadata keys under which session state is persisted.
const (
	metaUsername     = "username"
	metaAccessToken  = "access_token"
	metaRefreshToken = "refresh_token"
)

// SessionClient is the API-client surface the session service needs:
// login plus token installation and the refresh notification hook.
type SessionClient interface {
	Login(ctx context.Context, username string, password []byte) (api.TokenPair, error)
	SetTokens(api.TokenPair)
	OnTokenRefresh(func(api.TokenPair))
}

// SessionService owns authentication state: it logs in, persists the token
// pair in the local metadata store, restores it on agent start, and answers
// the "are we authenticated" question for the upload engine.
type SessionService struct {
	client SessionClient
	meta   metadata.Repository
	logger logging.Logger

	now func() time.Time
}

func NewSessionService(client SessionClient, meta metadata.Repository, logger logging.Logger) *SessionService {
	s := &SessionService{
		client: client,
		meta:   meta,
		logger: logger.With("module", "session"),
		now:    time.Now,
	}
	// Rotated pairs must survive agent restarts.
	client.OnTokenRefresh(func(p api.TokenPair) {
		s.persistTokens(context.Background(), p)
	})
	return s
}

// Restore installs a previously persisted token pair into the API client.
// A missing pair is not an error; the agent simply starts unauthenticated.
func (s *SessionService) Restore(ctx context.Context) error {
	access, err := s.meta.Get(ctx, metaAccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.meta.Get(ctx, metaRefreshToken)
	if err != nil {
		return err
	}
	if access == nil && refresh == nil {
		return nil
	}
	s.client.SetTokens(api.TokenPair{AccessToken: string(access), RefreshToken: string(refresh)})
	return nil
}

// Login authenticates against the queue service and persists the session.
func (s *SessionService) Login(ctx context.Context, username string, password []byte) error {
	pair, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.meta.Set(ctx, metaUsername, []byte(username)); err != nil {
		return err
	}
	s.persistTokens(ctx, pair)
	return nil
}

// Logout drops the persisted session.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.meta.Delete(ctx, metaAccessToken); err != nil {
		return err
	}
	if err := s.meta.Delete(ctx, metaRefreshToken); err != nil {
		return err
	}
	s.client.SetTokens(api.TokenPair{})
	return nil
}

// Username returns the persisted login name, or "" when not logged in.
func (s *SessionService) Username(ctx context.Context) string {
	v, err := s.meta.Get(ctx, metaUsername)
	if err != nil {
		return ""
	}
	return string(v)
}

// Authenticated reports whether the agent holds a usable session: an
// unexpired access token, or an unexpired refresh token the API client can
// trade for a new pair. Signature verification is the server's job; only
// the expiry claim is inspected here.
func (s *SessionService) Authenticated(ctx context.Context) bool {
	access, err := s.meta.Get(ctx, metaAccessToken)
	if err == nil && s.tokenAlive(string(access)) {
		return true
	}
	refresh, err := s.meta.Get(ctx, metaRefreshToken)
	if err == nil && s.tokenAlive(string(refresh)) {
		return true
	}
	return false
}

func (s *SessionService) tokenAlive(token string) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(s.now())
}

func (s *SessionService) persistTokens(ctx context.Context, p api.TokenPair) {
	if err := s.meta.Set(ctx, metaAccessToken, []byte(p.AccessToken)); err != nil {
		s.logger.Error(ctx, "failed to persist access token", "error", err)
	}
	if err := s.meta.Set(ctx, metaRefreshToken, []byte(p.RefreshToken)); err != nil {
		s.logger.Error(ctx, "failed to persist refresh token", "error", err)
	}
}
