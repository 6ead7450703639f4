package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher turns OS-level file notifications into wake-ups for tailers.
// It watches parent directories so files that do not exist yet are still
// noticed when they are created.
type Watcher struct {
	fsw  *fsnotify.Watcher
	log  zerolog.Logger
	mu   sync.Mutex
	wake map[string][]chan struct{}
	dirs map[string]bool
}

// New creates a Watcher.
func New(log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:  fsw,
		log:  log.With().Str("component", "watcher").Logger(),
		wake: make(map[string][]chan struct{}),
		dirs: make(map[string]bool),
	}, nil
}

// Watch registers interest in path and returns a channel that receives a
// value whenever the file is written, created, renamed or removed. Wake-ups
// coalesce: a pending signal is never duplicated.
func (w *Watcher) Watch(path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return nil, err
		}
		w.dirs[dir] = true
	}

	ch := make(chan struct{}, 1)
	w.wake[abs] = append(w.wake[abs], ch)
	return ch, nil
}

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.notify(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// notify wakes every tailer registered for path.
func (w *Watcher) notify(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.wake[abs] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Expand resolves a configured path to the files it names. Plain paths are
// returned as-is even when the file does not exist yet; glob patterns
// (including recursive ones like /var/log/**/*.log) are expanded via
// doublestar and may match nothing.
func Expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
}
