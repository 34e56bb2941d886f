// Package watch reloads the directory when its JSONL files change on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events a single edit produces.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *zap.SugaredLogger
}

// Watcher calls a function once per burst of changes to *.jsonl files in a
// directory. Writes the directory makes itself are seen too; reloading
// after them is harmless.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	onChange func() error
	debounce time.Duration
	log      *zap.SugaredLogger

	mu    sync.Mutex
	timer *time.Timer
}

// New watches dir. onChange runs on its own goroutine after each debounced
// burst; its error is logged.
func New(dir string, onChange func() error, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating fsnotify watcher")
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watching %s", dir)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watcher{
		dir:      dir,
		fsw:      fsw,
		onChange: onChange,
		debounce: debounce,
		log:      log,
	}, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.log.Debugw("Data file changed", "file", event.Name, "op", event.Op.String())
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("Data watcher error", "dir", w.dir, "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".jsonl" {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.onChange(); err != nil {
			w.log.Errorw("Data reload failed", "dir", w.dir, "error", err)
			return
		}
		w.log.Infow("Data reloaded", "dir", w.dir)
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if err := w.fsw.Close(); err != nil {
		w.log.Warnw("Closing data watcher", "error", err)
	}
}
