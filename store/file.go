package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const credentialFileName = "session-credential.json"

// FileBackend is the durable backend: one JSON file under the data
// folder, shared by every process belonging to the same user. External
// writes and removals are observable through Watch, which is how
// login/logout in one process propagates to the others.
type FileBackend struct {
	path string
	log  zerolog.Logger
}

var _ Backend = (*FileBackend)(nil)
var _ Watcher = (*FileBackend)(nil)

// NewFileBackend stores the credential record under dir, creating the
// directory if needed.
func NewFileBackend(dir string, log zerolog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileBackend] MkdirAll")
	}
	return &FileBackend{
		path: filepath.Join(dir, credentialFileName),
		log:  log.With().Str("backend", "file").Logger(),
	}, nil
}

func (f *FileBackend) Name() string { return "file" }

// Path returns the location of the credential file.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Read() (*Record, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileBackend.Read] ReadFile")
	}
	if len(data) == 0 {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "[FileBackend.Read] Unmarshal")
	}
	return &rec, nil
}

func (f *FileBackend) Write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "[FileBackend.Write] Marshal")
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileBackend.Write] WriteFile")
	}
	return nil
}

func (f *FileBackend) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileBackend.Clear] Remove")
	}
	return nil
}

// Watch reports external mutations of the credential file until ctx is
// done. Malformed file contents are logged and skipped, never emitted.
func (f *FileBackend) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "[FileBackend.Watch] NewWatcher")
	}

	// Watch the directory rather than the file: the file is removed and
	// recreated across logout/login cycles.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrap(err, "[FileBackend.Watch] watcher.Add")
	}

	changes := make(chan Change, 1)
	go f.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (f *FileBackend) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			change, ok := f.changeForEvent(event)
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn().Err(err).Msg("credential file watcher error")
		}
	}
}

func (f *FileBackend) changeForEvent(event fsnotify.Event) (Change, bool) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return Change{Removed: true}, true
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return Change{}, false
	}

	rec, err := f.Read()
	if err != nil {
		f.log.Warn().Err(err).Msg("ignoring malformed credential file change")
		return Change{}, false
	}
	if rec == nil {
		return Change{Removed: true}, true
	}
	// A record without tokens is a tombstone left by a writer vacating
	// this slot; pass it through so observers can attribute the clear.
	return Change{Record: rec}, true
}
