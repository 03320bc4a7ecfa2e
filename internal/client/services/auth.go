package services

import (
	"context"
	"fmt"

	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/logging"
)

// MetadataKeyAPIToken is where the session token is cached between runs.
const MetadataKeyAPIToken = "api_token"

// AuthService manages the session: token storage, viewer identity, and
// the full local wipe on logout.
type AuthService struct {
	store  *store.Store
	client *remote.Client
	log    logging.Logger
}

func NewAuthService(st *store.Store, client *remote.Client, log logging.Logger) *AuthService {
	return &AuthService{store: st, client: client, log: log}
}

// Login validates the token against the remote service, then persists
// it together with the viewer's username.
func (a *AuthService) Login(ctx context.Context, token string) (string, error) {
	a.client.SetToken(token)

	username, err := a.client.Viewer(ctx)
	if err != nil {
		a.client.SetToken("")
		return "", fmt.Errorf("login failed: %w", err)
	}

	meta := a.store.Metadata()
	if err := meta.Set(ctx, MetadataKeyAPIToken, []byte(token)); err != nil {
		return "", err
	}
	if err := meta.Set(ctx, syncx.MetadataKeyUsername, []byte(username)); err != nil {
		return "", err
	}
	return username, nil
}

// Restore loads a previously stored token into the client. Returns the
// cached username, or "" when no session is stored.
func (a *AuthService) Restore(ctx context.Context) (string, error) {
	meta := a.store.Metadata()

	token, err := meta.Get(ctx, MetadataKeyAPIToken)
	if err != nil {
		return "", err
	}
	if len(token) == 0 {
		return "", nil
	}
	a.client.SetToken(string(token))

	username, err := meta.Get(ctx, syncx.MetadataKeyUsername)
	if err != nil {
		return "", err
	}
	return string(username), nil
}

// Logout drops the session and wipes all local data, watermark included.
func (a *AuthService) Logout(ctx context.Context) error {
	a.client.SetToken("")
	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// Username returns the cached viewer username, refreshing it from the
// server when absent.
func (a *AuthService) Username(ctx context.Context) (string, error) {
	raw, err := a.store.Metadata().Get(ctx, syncx.MetadataKeyUsername)
	if err != nil {
		return "", err
	}
	if len(raw) > 0 {
		return string(raw), nil
	}
	username, err := a.client.Viewer(ctx)
	if err != nil {
		return "", err
	}
	if err := a.store.Metadata().Set(ctx, syncx.MetadataKeyUsername, []byte(username)); err != nil {
		return "", err
	}
	return username, nil
}
