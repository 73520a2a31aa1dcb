package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-client/api"
	"github.com/jrsteele09/go-session-client/events"
)

// loadIdentity fetches the authoritative identity record with the
// current access token. On an unauthorized response it refreshes the
// credential and retries exactly once (the refresh path performs the
// retried fetch itself). Transient network failures leave the
// credential intact: a still-possibly-valid session must not be
// destroyed over a flaky connection.
func (m *Manager) loadIdentity(ctx context.Context, allowRetry bool) bool {
	err := m.fetchIdentityOnce(ctx)
	if err == nil {
		return true
	}

	if !errors.Is(err, api.ErrUnauthorized) {
		m.log.Warn().Err(err).Msg("identity fetch failed; keeping credential")
		return false
	}

	m.mu.Lock()
	refreshToken := m.cred.RefreshToken
	m.mu.Unlock()

	if allowRetry && refreshToken != "" {
		if !m.Refresh(ctx) {
			return false // refresh already tore the session down
		}
		return m.hasIdentity()
	}

	m.log.Warn().Err(err).Msg("identity fetch unauthorized; tearing down session")
	if m.teardown() {
		m.bus.Emit(events.LoggedOut, nil)
	}
	return false
}

func (m *Manager) fetchIdentityOnce(ctx context.Context) error {
	m.mu.Lock()
	cred := m.cred.Clone()
	m.mu.Unlock()

	if cred.AccessToken == "" {
		return errors.Wrap(api.ErrUnauthorized, "[fetchIdentityOnce] no access token")
	}
	if m.clock.IsExpired(cred) {
		// Fail closed without a network round trip.
		return errors.Wrap(api.ErrUnauthorized, "[fetchIdentityOnce] access token expired")
	}

	ident, err := m.api.FetchIdentity(ctx, cred.AccessToken)
	if err != nil {
		return errors.Wrap(err, "[fetchIdentityOnce]")
	}

	m.mu.Lock()
	m.ident = ident
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.bus.Emit(events.UserInfoLoaded, map[string]any{"user": ident.User})
	return nil
}

func (m *Manager) hasIdentity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ident != nil
}
