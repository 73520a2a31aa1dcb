package store

import "sync"

// MemoryBackend is the ephemeral backend: the record lives only as long
// as the process, mirroring session-scoped storage.
type MemoryBackend struct {
	mu  sync.RWMutex
	rec *Record
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Read() (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.rec == nil {
		return nil, nil
	}
	rec := *m.rec
	rec.Credential = m.rec.Credential.Clone()
	return &rec, nil
}

func (m *MemoryBackend) Write(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Credential = rec.Credential.Clone()
	m.rec = &rec
	return nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec = nil
	return nil
}
