package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-client/credential"
)

// Timer is the handle for a scheduled renewal.
type Timer interface {
	Stop() bool
}

// TimerFunc constructs a one-shot timer invoking f after d.
type TimerFunc func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// renewalScheduler keeps at most one armed timer that proactively
// refreshes the credential before it expires. Arming replaces any prior
// timer; disarming is idempotent and always safe.
type renewalScheduler struct {
	manager   *Manager
	timerFunc TimerFunc

	mu    sync.Mutex
	timer Timer
}

func newRenewalScheduler(m *Manager) *renewalScheduler {
	return &renewalScheduler{manager: m, timerFunc: afterFunc}
}

// arm schedules a refresh at max(timeUntilExpiry - lead, 0), using the
// same expiry precedence as the clock: explicit expiry over decoded
// claim. A credential with no determinable expiry is never scheduled.
func (s *renewalScheduler) arm(cred credential.Credential) {
	m := s.manager

	remaining, ok := m.clock.TimeUntilExpiry(cred)
	if !ok {
		s.disarm()
		m.log.Debug().Msg("credential has no determinable expiry; renewal not scheduled")
		return
	}

	delay := remaining - m.refreshLead
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.timerFunc(delay, s.fire)
	s.mu.Unlock()

	m.log.Debug().Dur("delay", delay).Msg("renewal scheduled")
}

// disarm cancels any pending renewal.
func (s *renewalScheduler) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// armed reports whether a renewal is currently scheduled.
func (s *renewalScheduler) armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// fire runs the scheduled refresh. On success the refresh path re-arms
// with the new credential; on failure the session is already torn down
// and the scheduler stays disarmed.
func (s *renewalScheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	if !s.manager.Refresh(context.Background()) {
		s.manager.log.Debug().Msg("scheduled renewal failed; session torn down")
	}
}
