package universe

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher re-reads the universe file whenever it changes and reports newly
// added tickers. The initial universe seeds the seen set, so only tickers
// appearing after construction are emitted. The parent directory is watched
// rather than the file itself: editors that save by rename would otherwise
// silently drop the watch.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  logrus.FieldLogger

	seen   map[string]bool
	seenMu sync.Mutex

	added  chan []string
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewWatcher loads the universe at path and starts watching it for changes.
func NewWatcher(path string, logger logrus.FieldLogger) (*Watcher, error) {
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		logger:  logger,
		seen:    make(map[string]bool, len(initial)),
		added:   make(chan []string, 16),
		done:    make(chan struct{}),
	}
	for _, ticker := range initial {
		w.seen[ticker] = true
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Added returns the channel carrying batches of newly added tickers.
// The channel is closed by Close.
func (w *Watcher) Added() <-chan []string {
	return w.added
}

// Close stops the watcher and closes the Added channel. Safe to call twice.
func (w *Watcher) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.added)
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.WithError(err).Warn("Universe watcher error")
			}
		case <-w.done:
			return
		}
	}
}

// matches reports whether the event targets the universe file with an op
// that changes its contents. Rename-style saves surface as Create.
func (w *Watcher) matches(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)
}

func (w *Watcher) reload() {
	tickers, err := Load(w.path)
	if err != nil {
		// A truncate-then-write save can fire an event mid-write; the
		// follow-up event retries with the full contents.
		if w.logger != nil {
			w.logger.WithError(err).WithField("path", w.path).Warn("Universe reload failed")
		}
		return
	}

	w.seenMu.Lock()
	var fresh []string
	for _, ticker := range tickers {
		if w.seen[ticker] {
			continue
		}
		w.seen[ticker] = true
		fresh = append(fresh, ticker)
	}
	w.seenMu.Unlock()

	if len(fresh) == 0 {
		return
	}
	select {
	case w.added <- fresh:
	case <-w.done:
	}
}
