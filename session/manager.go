// Package session keeps a user's bearer credential valid across an
// arbitrarily long conversation. The policy is refresh-or-evict: a caller
// either gets a token the backend should still accept, or the stored
// record is gone and the user is cleanly logged out. A failed refresh is
// never retried silently.
package session

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/credentials"
	"github.com/hits-task/taskbot/token"
)

// ErrNoRefreshToken means the stored record had no refresh credential to
// renew the expired access credential with.
var ErrNoRefreshToken = errors.New("no refresh token available")

// AuthAPI is the slice of the backend gateway the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, proof backend.LoginProof) (*backend.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Manager owns the credential lifecycle for all users. It implements
// backend.TokenSource.
type Manager struct {
	store credentials.Repo
	api   AuthAPI
	group singleflight.Group
	log   zerolog.Logger
}

var _ backend.TokenSource = (*Manager)(nil)

// NewManager creates a session manager over a credential store and the
// backend's auth endpoints.
func NewManager(store credentials.Repo, api AuthAPI, logger zerolog.Logger) *Manager {
	return &Manager{
		store: store,
		api:   api,
		log:   logger.With().Str("component", "session").Logger(),
	}
}

// ValidAccessToken returns a currently-valid access credential for the
// user, refreshing it first when expired. ok=false means the user is
// logged out, including the case where a refresh attempt just failed and
// evicted the record. No network call is made when no record exists.
func (m *Manager) ValidAccessToken(ctx context.Context, telegramID int64) (string, bool) {
	rec, ok := m.store.Get(telegramID)
	if !ok {
		m.log.Debug().Int64("telegram_id", telegramID).Msg("no stored credentials")
		return "", false
	}

	if !token.IsExpired(rec.AccessToken) {
		return rec.AccessToken, true
	}

	m.log.Info().Int64("telegram_id", telegramID).Msg("access token expired, attempting refresh")

	// Concurrent updates for the same user share one refresh attempt.
	refreshed, err, _ := m.group.Do(strconv.FormatInt(telegramID, 10), func() (any, error) {
		return m.refresh(ctx, telegramID)
	})
	if err != nil {
		m.log.Info().Err(err).Int64("telegram_id", telegramID).Msg("token refresh failed, session evicted")
		return "", false
	}
	return refreshed.(string), true
}

// refresh mints a new access credential from the stored refresh
// credential. Any failure (missing refresh credential, transport
// failure, backend rejection) evicts the record so the user lands in a
// clean logged-out state.
func (m *Manager) refresh(ctx context.Context, telegramID int64) (string, error) {
	rec, ok := m.store.Get(telegramID)
	if !ok {
		return "", ErrNoRefreshToken
	}
	if rec.RefreshToken == "" {
		_ = m.store.Delete(telegramID)
		return "", ErrNoRefreshToken
	}

	access, err := m.api.Refresh(ctx, rec.RefreshToken)
	if err != nil || access == "" {
		_ = m.store.Delete(telegramID)
		if err == nil {
			err = errors.New("refresh returned an empty access token")
		}
		return "", err
	}

	// Refresh credential is unchanged; only the access credential rotates.
	if err := m.store.Put(telegramID, access, rec.RefreshToken); err != nil {
		return "", err
	}
	m.log.Info().Int64("telegram_id", telegramID).Msg("access token refreshed")
	return access, nil
}

// IsLoggedIn reports whether the user currently holds a valid credential.
func (m *Manager) IsLoggedIn(ctx context.Context, telegramID int64) bool {
	_, ok := m.ValidAccessToken(ctx, telegramID)
	return ok
}

// Login exchanges a login-widget proof for a credential pair and persists
// it. When the backend returns no refresh credential nothing is persisted:
// the session then cannot survive expiry and silently ends, which is the
// same observable shape as never having logged in.
func (m *Manager) Login(ctx context.Context, proof backend.LoginProof) (*backend.LoginResult, error) {
	result, err := m.api.Login(ctx, proof)
	if err != nil {
		return nil, err
	}

	if result.RefreshToken == "" {
		m.log.Warn().Int64("telegram_id", proof.ID).Msg("login returned no refresh token, session will not survive expiry")
		return result, nil
	}

	if err := m.store.Put(proof.ID, result.AccessToken, result.RefreshToken); err != nil {
		return nil, err
	}
	m.log.Info().Int64("telegram_id", proof.ID).Msg("user logged in")
	return result, nil
}

// Logout deletes the user's stored credentials. Idempotent.
func (m *Manager) Logout(telegramID int64) {
	if err := m.store.Delete(telegramID); err != nil {
		m.log.Error().Err(err).Int64("telegram_id", telegramID).Msg("failed to delete credentials on logout")
		return
	}
	m.log.Info().Int64("telegram_id", telegramID).Msg("user logged out")
}

// Identity decodes the identity claims from the user's current valid
// access credential. ok=false when the user is logged out.
func (m *Manager) Identity(ctx context.Context, telegramID int64) (*token.Identity, bool) {
	access, ok := m.ValidAccessToken(ctx, telegramID)
	if !ok {
		return nil, false
	}
	return token.ExtractIdentity(access)
}
