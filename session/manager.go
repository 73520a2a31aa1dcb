// Package session owns the client-side authentication session: the
// credential lifecycle from login or startup load, through proactive
// renewal and cross-context reconciliation, to logout. The Manager is
// the only writer of the credential and identity records; callers
// receive copies.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-session-client/api"
	"github.com/jrsteele09/go-session-client/credential"
	"github.com/jrsteele09/go-session-client/events"
	"github.com/jrsteele09/go-session-client/identity"
	"github.com/jrsteele09/go-session-client/store"
)

// State is the session lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

// DefaultRefreshLead is how far before expiry the proactive renewal
// fires.
const DefaultRefreshLead = 5 * time.Minute

// API is the transport surface the manager drives. *api.Client
// implements it.
type API interface {
	Login(ctx context.Context, identifier, secret string, remember bool) (credential.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (credential.Credential, error)
	FetchIdentity(ctx context.Context, accessToken string) (*identity.Identity, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

var _ API = (*api.Client)(nil)

// Manager composes the credential store, expiry clock, transport client,
// renewal scheduler, and cross-context watcher into the session state
// machine. Construct one per process via New; there is no package-level
// instance.
type Manager struct {
	api   API
	store *store.Store
	bus   *events.Bus
	clock *credential.Clock
	log   zerolog.Logger

	nowFunc     func() time.Time
	refreshLead time.Duration

	mu       sync.Mutex
	state    State
	cred     credential.Credential
	ident    *identity.Identity
	durable  bool // "remember me": whether saves go to the durable backend
	initOnce bool

	flight    singleflight.Group
	scheduler *renewalScheduler

	cancelSync context.CancelFunc
	syncDone   chan struct{}
}

type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithClock overrides the expiry clock.
func WithClock(clock *credential.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithEventBus attaches an externally owned event bus so consumers can
// subscribe before the manager exists.
func WithEventBus(bus *events.Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithRefreshLead sets how far before expiry the proactive renewal
// fires.
func WithRefreshLead(lead time.Duration) Option {
	return func(m *Manager) {
		m.refreshLead = lead
	}
}

// WithTimerFunc overrides timer construction (primarily for testing the
// scheduler without waiting).
func WithTimerFunc(timerFunc TimerFunc) Option {
	return func(m *Manager) {
		m.scheduler.timerFunc = timerFunc
	}
}

// New builds a session manager over the given transport and store.
func New(apiClient API, credStore *store.Store, options ...Option) (*Manager, error) {
	if apiClient == nil {
		return nil, errors.New("[session.New] api client is required")
	}
	if credStore == nil {
		return nil, errors.New("[session.New] credential store is required")
	}

	m := &Manager{
		api:         apiClient,
		store:       credStore,
		nowFunc:     time.Now,
		refreshLead: DefaultRefreshLead,
		state:       StateUnauthenticated,
		log:         zerolog.Nop(),
	}
	m.scheduler = newRenewalScheduler(m)

	for _, opt := range options {
		opt(m)
	}

	if m.clock == nil {
		m.clock = credential.NewClock(credential.WithNowFunc(m.nowFunc))
	}
	if m.bus == nil {
		m.bus = events.NewBus(events.WithNowFunc(m.nowFunc))
	}
	return m, nil
}

// Events returns the lifecycle event bus.
func (m *Manager) Events() *events.Bus { return m.bus }

// Initialize loads any persisted credential, refreshes it when expired,
// fetches the identity record, arms the renewal timer, and starts
// watching for cross-context changes. It runs once; later calls no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initOnce {
		m.mu.Unlock()
		return nil
	}
	m.initOnce = true
	m.state = StateInitializing
	m.mu.Unlock()

	authenticated := false
	if cred := m.store.Load(); !cred.Empty() {
		m.mu.Lock()
		m.cred = cred
		m.durable = true
		m.mu.Unlock()

		if m.clock.IsExpired(cred) {
			authenticated = m.Refresh(ctx)
		} else {
			authenticated = m.loadIdentity(ctx, true)
			m.armScheduler()
		}
	}

	m.mu.Lock()
	if authenticated {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	m.mu.Unlock()

	m.startSync()
	m.bus.Emit(events.Initialized, map[string]any{"authenticated": authenticated})
	return nil
}

// Login authenticates with the server and establishes a session. The
// remember flag selects durable persistence. On failure the returned
// error carries the server-provided message for display.
func (m *Manager) Login(ctx context.Context, identifier, secret string, remember bool) error {
	m.bus.Emit(events.LoginStarted, nil)

	cred, err := m.api.Login(ctx, identifier, secret, remember)
	if err != nil {
		m.bus.Emit(events.LoginFailed, map[string]any{"error": err.Error()})
		return errors.Wrap(err, "[Manager.Login]")
	}

	m.mu.Lock()
	m.cred = cred.Clone()
	m.durable = remember
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.store.Save(cred, remember); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist credential after login")
	}

	m.loadIdentity(ctx, true)
	m.armScheduler()

	m.bus.Emit(events.LoginCompleted, map[string]any{
		"success": true,
		"user":    m.CurrentUser(),
	})
	return nil
}

// Logout revokes the session server-side on a best-effort basis and
// always tears down local state.
func (m *Manager) Logout(ctx context.Context) error {
	m.bus.Emit(events.LogoutStarted, nil)

	m.mu.Lock()
	accessToken, refreshToken := m.cred.AccessToken, m.cred.RefreshToken
	m.mu.Unlock()

	if accessToken != "" || refreshToken != "" {
		if err := m.api.Logout(ctx, accessToken, refreshToken); err != nil {
			m.log.Debug().Err(err).Msg("server-side logout failed; proceeding with local teardown")
		}
	}

	m.teardown()
	m.bus.Emit(events.LoggedOut, nil)
	return nil
}

// Close stops the renewal timer and the cross-context watcher. The
// session state itself is left untouched.
func (m *Manager) Close() {
	m.scheduler.disarm()

	m.mu.Lock()
	cancel, done := m.cancelSync, m.syncDone
	m.cancelSync, m.syncDone = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// State returns the current lifecycle state. State tracks credential
// possession: a session whose identity fetch failed transiently is
// still StateAuthenticated here while IsAuthenticated reports false
// until the identity record loads.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a usable session with a loaded
// identity exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.ident != nil
}

// Credential returns a copy of the current credential.
func (m *Manager) Credential() credential.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred.Clone()
}

// AccessToken returns the current bearer token, empty when none is
// held.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred.AccessToken
}

// CurrentUser returns a copy of the authenticated user, nil when no
// identity is loaded.
func (m *Manager) CurrentUser() *identity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ident == nil || m.ident.User == nil {
		return nil
	}
	u := *m.ident.User
	return &u
}

// Identity returns a copy of the full identity record, nil when none is
// loaded.
func (m *Manager) Identity() *identity.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ident.Clone()
}

// Roles returns a copy of the loaded identity's roles.
func (m *Manager) Roles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ident == nil {
		return nil
	}
	return append([]string(nil), m.ident.Roles...)
}

// HasRole reports whether the loaded identity carries the role.
func (m *Manager) HasRole(role string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ident.HasRole(role)
}

// HasPermission reports whether the loaded identity carries the
// permission.
func (m *Manager) HasPermission(permission string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ident.HasPermission(permission)
}

// IsInTier reports whether the loaded identity satisfies the tier.
func (m *Manager) IsInTier(tier identity.TierType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ident == nil {
		return false
	}
	return m.ident.IsInTier(tier)
}

// teardown clears every trace of the session: credential, identity,
// persisted records, and the renewal timer. It reports whether there
// was a session to clear. Events are the caller's responsibility.
func (m *Manager) teardown() bool {
	m.scheduler.disarm()

	m.mu.Lock()
	hadSession := !m.cred.Empty() || m.ident != nil
	m.cred = credential.Credential{}
	m.ident = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()

	m.store.Clear()
	return hadSession
}

func (m *Manager) armScheduler() {
	m.mu.Lock()
	cred := m.cred.Clone()
	m.mu.Unlock()

	if cred.Empty() {
		return
	}
	m.scheduler.arm(cred)
}
