// Package apifake provides an in-memory session.API implementation for
// tests.
package apifake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-client/credential"
	"github.com/jrsteele09/go-session-client/identity"
)

// FakeAPI implements session.API with pluggable behavior per endpoint
// and call counting.
type FakeAPI struct {
	mu            sync.Mutex
	loginCalls    int
	refreshCalls  int
	identityCalls int
	logoutCalls   int

	LoginFn    func(identifier, secret string, remember bool) (credential.Credential, error)
	RefreshFn  func(refreshToken string) (credential.Credential, error)
	IdentityFn func(accessToken string) (*identity.Identity, error)
	LogoutFn   func(accessToken, refreshToken string) error
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{}
}

func (f *FakeAPI) Login(_ context.Context, identifier, secret string, remember bool) (credential.Credential, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.LoginFn
	f.mu.Unlock()

	if fn == nil {
		return credential.Credential{}, errors.New("fake login not configured")
	}
	return fn(identifier, secret, remember)
}

func (f *FakeAPI) Refresh(_ context.Context, refreshToken string) (credential.Credential, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.RefreshFn
	f.mu.Unlock()

	if fn == nil {
		return credential.Credential{}, errors.New("fake refresh not configured")
	}
	return fn(refreshToken)
}

func (f *FakeAPI) FetchIdentity(_ context.Context, accessToken string) (*identity.Identity, error) {
	f.mu.Lock()
	f.identityCalls++
	fn := f.IdentityFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("fake identity fetch not configured")
	}
	return fn(accessToken)
}

func (f *FakeAPI) Logout(_ context.Context, accessToken, refreshToken string) error {
	f.mu.Lock()
	f.logoutCalls++
	fn := f.LogoutFn
	f.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(accessToken, refreshToken)
}

func (f *FakeAPI) LoginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

func (f *FakeAPI) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *FakeAPI) IdentityCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identityCalls
}

func (f *FakeAPI) LogoutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}
