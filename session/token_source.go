package session

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned by the token source when no usable
// credential is held and none can be obtained by refreshing.
var ErrNotAuthenticated = errors.New("not authenticated")

type tokenSource struct {
	manager *Manager
	ctx     context.Context
}

// TokenSource adapts the session to oauth2.TokenSource so any
// oauth2-aware HTTP plumbing can draw bearer tokens from it. An expired
// credential is refreshed (single-flight) before being handed out.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{manager: m, ctx: ctx}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	m := ts.manager

	cred := m.Credential()
	if cred.Empty() {
		return nil, errors.Wrap(ErrNotAuthenticated, "[tokenSource.Token]")
	}

	if m.clock.IsExpired(cred) {
		if !m.Refresh(ts.ctx) {
			return nil, errors.Wrap(ErrNotAuthenticated, "[tokenSource.Token] refresh failed")
		}
		cred = m.Credential()
	}

	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
	}
	if cred.ExpiresAt != nil {
		token.Expiry = *cred.ExpiresAt
	}
	return token, nil
}
