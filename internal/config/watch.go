package config

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CredentialWatcher tracks the API key across config file rewrites. The host
// environment (or the user, via `adlens auth set`) may replace the credential
// at any time; long-lived sessions pick the new key up on their next scan
// instead of restarting.
type CredentialWatcher struct {
	path    string
	key     atomic.Value // string
	watcher *fsnotify.Watcher
	log     *zap.Logger
	done    chan struct{}
}

// WatchCredential starts watching the config file. The watcher holds the
// current key from the given config immediately; environment overrides keep
// their precedence on every read.
func WatchCredential(path string, initial Config, log *zap.Logger) (*CredentialWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w := &CredentialWatcher{path: path, log: log, done: make(chan struct{})}
	w.key.Store(initial.ResolveAPIKey())

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: editors and `auth set` replace the
	// file, which drops a direct file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}
	w.watcher = fw

	go w.loop()
	return w, nil
}

func (w *CredentialWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn("config reload failed, keeping previous credential", zap.Error(err))
				continue
			}
			w.key.Store(cfg.ResolveAPIKey())
			w.log.Debug("credential reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// APIKey returns the current credential.
func (w *CredentialWatcher) APIKey() string {
	key, _ := w.key.Load().(string)
	return key
}

// Close stops the watcher.
func (w *CredentialWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
