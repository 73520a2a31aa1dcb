package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/credential"
)

// ErrWatchUnsupported is returned by WatchDurable when the durable
// backend cannot report external changes.
var ErrWatchUnsupported = errors.New("durable backend does not support watching")

// Store reads and writes the session credential across the backend
// chain. Load tries durable, then ephemeral, then transport; Save
// writes exactly one of durable/ephemeral ("remember me" semantics) and
// clears the other; Clear removes the record everywhere.
type Store struct {
	durable   Backend
	ephemeral Backend
	transport Backend // optional cookie mirror
	writerID  string
	nowFunc   func() time.Time
	log       zerolog.Logger
}

type Option func(*Store)

// WithNowFunc sets the record timestamp source (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// WithTransportBackend adds the optional transport-embedded backend to
// the end of the chain.
func WithTransportBackend(b Backend) Option {
	return func(s *Store) {
		s.transport = b
	}
}

// WithLogger sets the logger used for absorbed backend errors.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithWriterID overrides the generated writer identity.
func WithWriterID(id string) Option {
	return func(s *Store) {
		s.writerID = id
	}
}

func New(durable, ephemeral Backend, options ...Option) (*Store, error) {
	if durable == nil {
		return nil, errors.New("[store.New] durable backend is required")
	}
	if ephemeral == nil {
		return nil, errors.New("[store.New] ephemeral backend is required")
	}

	s := &Store{
		durable:   durable,
		ephemeral: ephemeral,
		writerID:  uuid.New().String(),
		nowFunc:   time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// WriterID identifies this store instance in persisted records.
func (s *Store) WriterID() string { return s.writerID }

// Load returns the first structurally valid, non-empty credential in
// backend priority order. Backend read and parse failures degrade to
// "no credential": they are logged and never propagated.
func (s *Store) Load() credential.Credential {
	for _, backend := range s.chain() {
		rec, err := backend.Read()
		if err != nil {
			s.log.Warn().Err(err).Str("backend", backend.Name()).Msg("ignoring unreadable credential record")
			continue
		}
		if rec == nil || rec.Credential.Empty() {
			continue
		}
		return rec.Credential.Clone()
	}
	return credential.Credential{}
}

// Save persists cred to the durable or ephemeral backend depending on
// the durable flag, overwrites the other of the two with a
// writer-stamped tombstone, and mirrors the token pair into the
// transport backend when one is configured. The tombstone, rather than
// a deletion, lets watchers of the vacated backend attribute the clear
// to this writer instead of mistaking it for a logout elsewhere.
func (s *Store) Save(cred credential.Credential, durable bool) error {
	rec := Record{Credential: cred.Clone(), WriterID: s.writerID, SavedAt: s.nowFunc()}
	tombstone := Record{WriterID: s.writerID, SavedAt: rec.SavedAt}

	primary, secondary := s.durable, s.ephemeral
	if !durable {
		primary, secondary = s.ephemeral, s.durable
	}

	if err := primary.Write(rec); err != nil {
		return errors.Wrapf(err, "[Store.Save] %s backend write", primary.Name())
	}
	if err := secondary.Write(tombstone); err != nil {
		s.log.Warn().Err(err).Str("backend", secondary.Name()).Msg("failed to clear stale credential record")
	}
	if s.transport != nil {
		if err := s.transport.Write(rec); err != nil {
			s.log.Warn().Err(err).Str("backend", s.transport.Name()).Msg("failed to mirror credential to transport backend")
		}
	}
	return nil
}

// Clear removes the credential record from every backend. Individual
// backend failures are logged and do not stop the remaining clears.
func (s *Store) Clear() {
	for _, backend := range s.chain() {
		if err := backend.Clear(); err != nil {
			s.log.Warn().Err(err).Str("backend", backend.Name()).Msg("failed to clear credential record")
		}
	}
}

// WatchDurable exposes external mutations of the durable backend for
// cross-context reconciliation.
func (s *Store) WatchDurable(ctx context.Context) (<-chan Change, error) {
	watcher, ok := s.durable.(Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return watcher.Watch(ctx)
}

func (s *Store) chain() []Backend {
	chain := []Backend{s.durable, s.ephemeral}
	if s.transport != nil {
		chain = append(chain, s.transport)
	}
	return chain
}
