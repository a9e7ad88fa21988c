package credentials

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cdnops/trafficbridge/pkg/observability"
)

// Store holds the most recent good credential snapshot and reloads it on
// demand. A failed reload keeps the previous snapshot.
type Store struct {
	mu     sync.RWMutex
	source Source
	creds  Credentials
	logger *observability.Logger
}

// NewStore loads the initial snapshot from source. A nil logger gets a
// default.
func NewStore(source Source, logger *observability.Logger) (*Store, error) {
	creds, err := source.Load()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Store{source: source, creds: creds, logger: logger}, nil
}

// Get returns the current credential snapshot.
func (s *Store) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Reload re-runs the source chain and swaps the snapshot on success.
func (s *Store) Reload() {
	creds, err := s.source.Load()
	if err != nil {
		s.logger.WithError(err).Warn("credential reload failed, keeping previous snapshot")
		return
	}
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	s.logger.Debug("credentials reloaded")
}

// Watch reloads the store whenever path is written. It blocks until ctx
// is cancelled; callers run it in a goroutine.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.logger.WithField("file", event.Name).Info("credentials file changed")
				s.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("credentials watcher error")
		}
	}
}
