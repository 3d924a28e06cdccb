package daemon

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zoomauto/zoomauto/pkg/logger"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the schedule file when another process edits it. The
// parent directory is watched because saves replace the file by rename.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	changed  func() (bool, error)
	reload   func() error
	log      logger.Logger
	debounce time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher watches path. reload runs after a quiet period if changed
// reports the content differs from what this process last saw.
func NewWatcher(path string, changed func() (bool, error), reload func() error, l logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		changed:  changed,
		reload:   reload,
		log:      l,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Close stops watching and cancels a pending reload.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.log.Debug("watcher: %s %s", event.Op, event.Name)
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warning("schedule watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	changed, err := w.changed()
	if err != nil {
		w.log.Warning("cannot read %s: %v", w.path, err)
		return
	}
	if !changed {
		w.log.Debug("watcher: ignoring own write to %s", w.path)
		return
	}
	w.log.Info("schedule file changed on disk, reloading")
	if err := w.reload(); err != nil {
		w.log.Error("reload of %s failed: %v", w.path, err)
	}
}
