package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-client/events"
	"github.com/jrsteele09/go-session-client/store"
)

// startSync begins watching the durable backend for changes made by
// other execution contexts sharing the same storage. Reconciliation is
// best-effort and eventually consistent: state converges when the
// change notification arrives.
func (m *Manager) startSync() {
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := m.store.WatchDurable(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, store.ErrWatchUnsupported) {
			m.log.Debug().Msg("durable backend not watchable; cross-context sync disabled")
		} else {
			m.log.Warn().Err(err).Msg("failed to start cross-context sync")
		}
		return
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.cancelSync = cancel
	m.syncDone = done
	m.mu.Unlock()

	go m.syncLoop(ctx, changes, done)
}

func (m *Manager) syncLoop(ctx context.Context, changes <-chan store.Change, done chan<- struct{}) {
	defer close(done)

	for change := range changes {
		rec := change.Record
		if change.Removed || rec == nil {
			// File deleted: logout elsewhere. A removal echoing our own
			// teardown finds the session already empty and is a no-op.
			if m.teardown() {
				m.log.Info().Msg("credential cleared in another context; session ended")
				m.bus.Emit(events.LoggedOut, nil)
			}
			continue
		}

		if rec.WriterID == m.store.WriterID() {
			continue // our own write or tombstone echoed back
		}
		if rec.Credential.Empty() {
			// Tombstone from another context vacating the durable slot.
			if m.teardown() {
				m.log.Info().Msg("credential cleared in another context; session ended")
				m.bus.Emit(events.LoggedOut, nil)
			}
			continue
		}

		m.log.Info().Msg("credential updated in another context; adopting")
		m.adopt(ctx, rec)
	}
}

// adopt replaces local state with a credential written by another
// context, reloads the identity, and re-arms the renewal timer.
func (m *Manager) adopt(ctx context.Context, rec *store.Record) {
	m.mu.Lock()
	m.cred = rec.Credential.Clone()
	m.durable = true // it arrived through the durable backend
	m.mu.Unlock()

	if m.loadIdentity(ctx, true) {
		m.mu.Lock()
		m.state = StateAuthenticated
		m.mu.Unlock()
	}
	m.armScheduler()
}
