package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/iliyamo/minimal-calendar/internal/client"
	"github.com/iliyamo/minimal-calendar/internal/kv"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

// RemoteBackend signs in against calendar-server and keeps the token
// pair in the local kv store so the session survives restarts.
type RemoteBackend struct {
	api *client.Client
	kv  kv.Store

	mu     sync.RWMutex
	tokens model.Tokens
}

// NewRemoteBackend returns a backend for the given API client.
func NewRemoteBackend(api *client.Client, s kv.Store) *RemoteBackend {
	return &RemoteBackend{api: api, kv: s}
}

// AccessToken is the bearer for row-store calls. Empty when signed out.
func (b *RemoteBackend) AccessToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tokens.Access
}

func (b *RemoteBackend) persist(ctx context.Context, res client.AuthResult) (*model.Identity, error) {
	b.mu.Lock()
	b.tokens = res.Tokens
	b.mu.Unlock()

	raw, err := json.Marshal(res.Tokens)
	if err != nil {
		return nil, err
	}
	if err := b.kv.Set(ctx, kv.KeySession, string(raw)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	user := res.User
	rawUser, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	if err := b.kv.Set(ctx, kv.KeyUser, string(rawUser)); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}
	return &user, nil
}

func (b *RemoteBackend) clear(ctx context.Context) error {
	b.mu.Lock()
	b.tokens = model.Tokens{}
	b.mu.Unlock()
	return errors.Join(b.kv.Delete(ctx, kv.KeySession), b.kv.Delete(ctx, kv.KeyUser))
}

func (b *RemoteBackend) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	res, err := b.api.Login(ctx, email, password)
	if err != nil {
		switch client.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, err
	}
	return b.persist(ctx, res)
}

func (b *RemoteBackend) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	res, err := b.api.Register(ctx, email, password)
	if err != nil {
		switch client.StatusOf(err) {
		case http.StatusConflict:
			return nil, fmt.Errorf("%w: %v", ErrAlreadyRegistered, err)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, err
	}
	return b.persist(ctx, res)
}

// SignOut revokes the refresh token on the server, then forgets the
// local copy regardless of the outcome.
func (b *RemoteBackend) SignOut(ctx context.Context) error {
	b.mu.RLock()
	tok := b.tokens
	b.mu.RUnlock()

	var remoteErr error
	if tok.Refresh != "" {
		remoteErr = b.api.Logout(ctx, tok.Access, tok.Refresh)
	}
	return errors.Join(remoteErr, b.clear(ctx))
}

// GetSession loads the persisted tokens and validates them with the
// server, refreshing once when the access token is rejected.
func (b *RemoteBackend) GetSession(ctx context.Context) (*model.Identity, error) {
	raw, ok, err := b.kv.Get(ctx, kv.KeySession)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var tok model.Tokens
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.Access == "" {
		_ = b.clear(ctx)
		return nil, nil
	}
	b.mu.Lock()
	b.tokens = tok
	b.mu.Unlock()

	user, err := b.api.Session(ctx, tok.Access)
	if err == nil {
		return &user, nil
	}
	if client.StatusOf(err) != http.StatusUnauthorized {
		return nil, err
	}
	if tok.Refresh == "" {
		_ = b.clear(ctx)
		return nil, nil
	}
	res, err := b.api.Refresh(ctx, tok.Refresh)
	if err != nil {
		if client.StatusOf(err) == http.StatusUnauthorized {
			_ = b.clear(ctx)
			return nil, nil
		}
		return nil, err
	}
	return b.persist(ctx, res)
}
