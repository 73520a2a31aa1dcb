package session

import (
	"context"

	"github.com/jrsteele09/go-session-client/events"
)

// Refresh renews the credential using the held refresh token. Renewals
// are single-flight: while one network renewal is outstanding, every
// concurrent caller waits on it and receives the same outcome, and the
// flight is cleared afterwards so the next call starts fresh.
//
// On success the credential is replaced wholesale, persisted with its
// previous durability, the identity record is reloaded, and the renewal
// timer is re-armed. On any failure the whole session is torn down.
func (m *Manager) Refresh(ctx context.Context) bool {
	result, _, _ := m.flight.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx), nil
	})
	return result.(bool)
}

func (m *Manager) doRefresh(ctx context.Context) bool {
	m.mu.Lock()
	refreshToken := m.cred.RefreshToken
	durable := m.durable
	wasAuthenticated := m.state == StateAuthenticated
	if refreshToken != "" && wasAuthenticated {
		m.state = StateRefreshing
	}
	m.mu.Unlock()

	if refreshToken == "" {
		return false
	}

	m.bus.Emit(events.TokenRefreshStarted, nil)

	newCred, err := m.api.Refresh(ctx, refreshToken)
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed; tearing down session")
		hadSession := m.teardown()
		m.bus.Emit(events.TokenRefreshFailed, map[string]any{"error": err.Error()})
		if hadSession {
			m.bus.Emit(events.LoggedOut, nil)
		}
		return false
	}

	// Servers may rotate only the access token; keep the prior refresh
	// token when the response omits a new one.
	if newCred.RefreshToken == "" {
		newCred.RefreshToken = refreshToken
	}

	m.mu.Lock()
	m.cred = newCred.Clone()
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.store.Save(newCred, durable); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed credential")
	}

	// The token is brand new, so a 401 here is not recoverable by
	// another refresh; no retry.
	m.loadIdentity(ctx, false)
	m.armScheduler()

	m.bus.Emit(events.TokenRefreshCompleted, map[string]any{"success": true})
	return true
}
