package desktop

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/fsutil"
	"github.com/mesh-intelligence/fileractions/internal/notify"
)

// DefaultDebounce is used when Watch is given a zero interval.
const DefaultDebounce = 200 * time.Millisecond

// Watcher turns filesystem events on descriptor files into change
// signals. Bursts of events for one file within the debounce interval
// produce a single signal.
type Watcher struct {
	mu       sync.Mutex
	dirs     []string
	debounce time.Duration
	queue    *notify.Queue
	log      *zap.Logger
	counter  atomic.Uint64

	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	stopCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher over dirs pushing to queue.
func NewWatcher(dirs []string, debounce time.Duration, queue *notify.Queue, log *zap.Logger) *Watcher {
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dirs:     dirs,
		debounce: debounce,
		queue:    queue,
		log:      log,
		pending:  make(map[string]*time.Timer),
	}
}

// Start adds a watch on every existing directory and starts the event loop.
// Directories that do not exist are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fw.Add(dir); err != nil {
			w.log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.log.Debug("watching directory", zap.String("dir", dir))
	}
	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.running = true
	go w.loop(ctx, fw, w.stopCh)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-stop:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	id, ok := fsutil.IDFromName(ev.Name, Ext)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if t, ok := w.pending[id]; ok {
		t.Stop()
	}
	w.pending[id] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
		w.queue.Push(w.counter.Add(1), id)
	})
}

// Stop ends the event loop and drops pending signals. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	for id, t := range w.pending {
		t.Stop()
		delete(w.pending, id)
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
