// Package token manages the encrypted, per-user OAuth token lifecycle:
// sealed persistence, transparent refresh ahead of expiry, and purge on
// refresh failure so a dead refresh token cannot wedge a user.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/billyshambrook/frameio-kit/internal/encryption"
	"github.com/billyshambrook/frameio-kit/internal/log"
	"github.com/billyshambrook/frameio-kit/internal/oauth"
	"github.com/billyshambrook/frameio-kit/internal/storage"
)

const (
	// DefaultRefreshBuffer is how far ahead of expiry a token is refreshed.
	DefaultRefreshBuffer = 5 * time.Minute

	// ttlSlack keeps stored records around past token expiry so the refresh
	// token inside them stays usable.
	ttlSlack = 24 * time.Hour
)

// Refresher is the slice of the OAuth client the manager needs.
type Refresher interface {
	Refresh(ctx context.Context, token *oauth.TokenData) (*oauth.TokenData, error)
}

// RefreshError reports that a stored token could not be refreshed. The
// stored record has been deleted; the user must re-authenticate.
type RefreshError struct {
	UserID string
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refreshing token for user %q: %v", e.UserID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Manager stores sealed tokens keyed by user and refreshes them on read
// when they approach expiry.
type Manager struct {
	store  storage.Store
	sealer *encryption.Sealer
	client Refresher
	buffer time.Duration
	logger *slog.Logger
}

// NewManager wires a Manager. A zero buffer gets DefaultRefreshBuffer.
func NewManager(store storage.Store, sealer *encryption.Sealer, client Refresher, buffer time.Duration) *Manager {
	if buffer <= 0 {
		buffer = DefaultRefreshBuffer
	}
	return &Manager{
		store:  store,
		sealer: sealer,
		client: client,
		buffer: buffer,
		logger: log.WithComponent("token"),
	}
}

func userKey(userID string) string { return "user:" + userID }

// Token returns the stored token for userID, refreshing it first when it
// expires within the buffer. Returns (nil, nil) when no token is stored.
// A failed refresh deletes the stored record and returns a RefreshError.
func (m *Manager) Token(ctx context.Context, userID string) (*oauth.TokenData, error) {
	sealed, ok, err := m.store.Get(ctx, userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading token for user %q: %w", userID, err)
	}
	if !ok {
		return nil, nil
	}

	raw, err := m.sealer.Decrypt(sealed)
	if err != nil {
		// Undecryptable records are useless; drop them so the user can
		// re-authenticate instead of erroring forever.
		m.logger.Warn("dropping undecryptable token record", "user_id", userID, "error", err)
		_ = m.store.Delete(ctx, userKey(userID))
		return nil, nil
	}

	var token oauth.TokenData
	if err := json.Unmarshal(raw, &token); err != nil {
		m.logger.Warn("dropping malformed token record", "user_id", userID, "error", err)
		_ = m.store.Delete(ctx, userKey(userID))
		return nil, nil
	}

	if !token.ExpiresWithin(m.buffer) {
		return &token, nil
	}

	refreshed, err := m.client.Refresh(ctx, &token)
	if err != nil {
		if delErr := m.store.Delete(ctx, userKey(userID)); delErr != nil {
			m.logger.Error("failed to purge token after refresh failure",
				"user_id", userID, "error", delErr)
		}
		return nil, &RefreshError{UserID: userID, Err: err}
	}
	refreshed.UserID = userID

	if err := m.Store(ctx, userID, refreshed); err != nil {
		return nil, err
	}
	m.logger.Debug("refreshed access token", "user_id", userID)
	return refreshed, nil
}

// Store seals and persists a token for userID. The record TTL is the token
// lifetime plus slack so the refresh token survives access-token expiry.
func (m *Manager) Store(ctx context.Context, userID string, token *oauth.TokenData) error {
	token.UserID = userID

	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token for user %q: %w", userID, err)
	}
	sealed, err := m.sealer.Encrypt(raw)
	if err != nil {
		return fmt.Errorf("sealing token for user %q: %w", userID, err)
	}

	ttl := token.Lifetime() + ttlSlack
	if ttl < 0 {
		ttl = 0
	}
	if err := m.store.Put(ctx, userKey(userID), sealed, ttl); err != nil {
		return fmt.Errorf("storing token for user %q: %w", userID, err)
	}
	return nil
}

// Delete removes the stored token for userID. Idempotent.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	if err := m.store.Delete(ctx, userKey(userID)); err != nil {
		return fmt.Errorf("deleting token for user %q: %w", userID, err)
	}
	return nil
}
