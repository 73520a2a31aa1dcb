package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/credential"
	"github.com/jrsteele09/go-session-client/events"
	"github.com/jrsteele09/go-session-client/identity"
	"github.com/jrsteele09/go-session-client/internal/utils"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/session/apifake"
	"github.com/jrsteele09/go-session-client/store"
)

const (
	testIdentifier   = "u"
	testSecret       = "p"
	testAccessToken  = "a.b.c"
	testRefreshToken = "r1"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeTimer is a timer that only fires when the test fires it.
type fakeTimer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) create(d time.Duration, f func()) session.Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) last() *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.timers) == 0 {
		return nil
	}
	return ft.timers[len(ft.timers)-1]
}

// active counts timers that are armed and have not fired.
func (ft *fakeTimers) active() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	count := 0
	for _, t := range ft.timers {
		t.mu.Lock()
		if !t.stopped {
			count++
		}
		t.mu.Unlock()
	}
	return count
}

// eventRecorder captures every lifecycle event name in emission order.
type eventRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *eventRecorder) attach(bus *events.Bus) {
	for _, name := range []string{
		events.Initialized, events.LoginStarted, events.LoginCompleted,
		events.LoginFailed, events.TokenRefreshStarted, events.TokenRefreshCompleted,
		events.TokenRefreshFailed, events.UserInfoLoaded, events.LogoutStarted,
		events.LoggedOut,
	} {
		bus.Subscribe(name, func(e events.Event) {
			r.mu.Lock()
			r.names = append(r.names, e.Name)
			r.mu.Unlock()
		})
	}
}

func (r *eventRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.names {
		if n == name {
			count++
		}
	}
	return count
}

func (r *eventRecorder) has(name string) bool {
	return r.count(name) > 0
}

// testFixture wires a manager over fakes: fake API, fake timers, and a
// real store on a temp directory.
type testFixture struct {
	api    *apifake.FakeAPI
	store  *store.Store
	file   *store.FileBackend
	memory *store.MemoryBackend
	timers *fakeTimers
	events *eventRecorder
	mgr    *session.Manager

	mu  sync.Mutex
	now time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		api:    apifake.NewFakeAPI(),
		timers: &fakeTimers{},
		events: &eventRecorder{},
		now:    testNow,
	}

	file, err := store.NewFileBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	f.file = file
	f.memory = store.NewMemoryBackend()

	f.store, err = store.New(file, f.memory)
	require.NoError(t, err)

	bus := events.NewBus(events.WithNowFunc(f.nowFunc))
	f.events.attach(bus)

	f.mgr, err = session.New(f.api, f.store,
		session.WithNowFunc(f.nowFunc),
		session.WithEventBus(bus),
		session.WithTimerFunc(f.timers.create),
	)
	require.NoError(t, err)
	t.Cleanup(f.mgr.Close)

	return f
}

func (f *testFixture) nowFunc() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *testFixture) validCredential() credential.Credential {
	return credential.Credential{
		AccessToken:  testAccessToken,
		RefreshToken: testRefreshToken,
		ExpiresAt:    utils.Ptr(testNow.Add(time.Hour)),
	}
}

func (f *testFixture) serveLogin(cred credential.Credential) {
	f.api.LoginFn = func(string, string, bool) (credential.Credential, error) {
		return cred, nil
	}
}

func (f *testFixture) serveIdentity(id *identity.Identity) {
	f.api.IdentityFn = func(string) (*identity.Identity, error) {
		return id, nil
	}
}

func premiumIdentity() *identity.Identity {
	return &identity.Identity{
		User:        &identity.User{ID: "user-1", Email: "john.doe@example.com"},
		Roles:       []string{"premium"},
		Permissions: []string{"files:read"},
		Tier:        identity.TierPremium,
	}
}
