package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher observes the backing YAML file for changes and logs a structured
// warning, grounded in the teacher's engine/internal/runtime.HotReloadSystem
// (HotReloadSystem.watcher is an *fsnotify.Watcher). Unlike the teacher,
// it never mutates a live Config: spec.md §5 states configuration is read
// once and treated as immutable for the Tracker's lifetime, so a detected
// change only ever produces an operator-facing log line recommending a
// restart — the Tracker keeps running on its original Snapshot.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	log  zerolog.Logger
	done chan struct{}
}

// NewWatcher starts watching path. Callers must call Close when done.
func NewWatcher(path string, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &Watcher{fsw: fsw, path: path, log: log, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.log.Warn().
					Str("path", w.path).
					Str("op", ev.Op.String()).
					Msg("config file changed on disk; tracker configuration is immutable for this process, restart to apply")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Str("path", w.path).Msg("config watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
