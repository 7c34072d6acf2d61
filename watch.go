package g15desktop

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// fileWatcher runs onChange once a burst of file system events matching
// match has settled.
type fileWatcher struct {
	fs       *fsnotify.Watcher
	match    func(path string) bool
	onChange func()
	delay    time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// newFileWatcher watches dirs. Directories that cannot be watched (usually
// because they do not exist) are skipped.
func newFileWatcher(dirs []string, match func(string) bool, onChange func(), logger *slog.Logger) (*fileWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &fileWatcher{
		fs:       fs,
		match:    match,
		onChange: onChange,
		delay:    watchDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}

	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			logger.Debug("skipping directory watch", "dir", dir, "err", err)
			continue
		}

		logger.Debug("watching directory", "dir", dir)
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

func (w *fileWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (w *fileWatcher) handleEvent(event fsnotify.Event) {
	// Editors and config tools commonly write a temporary file and rename it
	// over the target, so renames and removals count as changes too.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	if w.match != nil && !w.match(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *fileWatcher) fire() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()

	if !closed {
		w.onChange()
	}
}

// Close stops the watcher. Pending debounced changes are dropped.
func (w *fileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}

	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()

	return err
}
