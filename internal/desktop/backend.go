package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/fsutil"
	"github.com/mesh-intelligence/fileractions/internal/keypath"
	"github.com/mesh-intelligence/fileractions/internal/notify"
	"github.com/mesh-intelligence/fileractions/internal/validate"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Options configures a Backend.
type Options struct {
	// Name tells several descriptor backends apart; defaults to
	// types.BackendDesktop.
	Name string

	// Dirs are searched in order; the first file found for an id wins.
	// New files are written to the first directory.
	Dirs     []string
	Locale   string
	Readonly bool
	Logger   *zap.Logger
}

// Backend implements types.Backend over descriptor files.
type Backend struct {
	mu       sync.RWMutex
	name     string
	dirs     []string
	locale   string
	readonly bool
	open     bool
	log      *zap.Logger
	queue    *notify.Queue
	watcher  *Watcher
}

// NewBackend creates a backend. Call Open before use.
func NewBackend(opts Options) *Backend {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = types.BackendDesktop
	}
	return &Backend{
		name:     name,
		dirs:     append([]string{}, opts.Dirs...),
		locale:   opts.Locale,
		readonly: opts.Readonly,
		log:      log.With(zap.String("backend", name)),
		queue:    notify.NewQueue(),
	}
}

// Name implements types.Backend.
func (b *Backend) Name() string { return b.name }

// Kind implements types.Backend.
func (b *Backend) Kind() string { return types.BackendDesktop }

// Open creates the first directory when it does not exist yet.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return types.ErrAlreadyOpen
	}
	if len(b.dirs) == 0 {
		return fmt.Errorf("%s: no directory configured", b.Name())
	}
	if !b.readonly {
		if err := os.MkdirAll(b.dirs[0], 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", b.dirs[0], err)
		}
	}
	b.open = true
	return nil
}

// Close stops the watcher, if any. Idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	b.open = false
	if b.watcher != nil {
		err := b.watcher.Stop()
		b.watcher = nil
		return err
	}
	return nil
}

// Writable implements types.Backend.
func (b *Backend) Writable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open && !b.readonly
}

// Dirs returns the search directories.
func (b *Backend) Dirs() []string {
	return append([]string{}, b.dirs...)
}

// ReadItems loads every descriptor file, earlier directories shadowing
// later ones.
func (b *Backend) ReadItems() ([]*types.Item, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, dir := range b.dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
		for _, e := range entries {
			id, ok := fsutil.IDFromName(e.Name(), Ext)
			if !ok || e.IsDir() || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var items []*types.Item
	var errs []error
	for _, id := range ids {
		it, err := b.ReadItem(id)
		if err != nil {
			b.log.Warn("skipping item", zap.String("item_id", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		items = append(items, it)
	}
	return items, errors.Join(errs...)
}

// ReadItem loads "<id>.desktop" from the first directory holding it.
func (b *Backend) ReadItem(id string) (*types.Item, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if !keypath.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidID, id)
	}
	path, info, err := b.find(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := Decode(id, path, data, b.locale)
	if err != nil {
		return nil, err
	}
	it, err := validate.Admit(r)
	if err != nil {
		return nil, err
	}

	it.Provider = b.Name()
	switch {
	case b.readonly:
		it.Readonly, it.Reason = true, types.ReasonProviderReadonly
	case !fsutil.Writable(info):
		it.Readonly, it.Reason = true, types.ReasonItemReadonly
	}
	it.Writable = !it.Readonly
	return it, nil
}

// WriteItem rewrites the item's file in place, or creates it in the first
// directory.
func (b *Backend) WriteItem(it *types.Item) error {
	if err := b.checkWrite(it.ID); err != nil {
		return err
	}
	path, _, err := b.find(it.ID)
	if err != nil {
		path = filepath.Join(b.dirs[0], it.ID+Ext)
	}
	err = fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, it)
	})
	if err != nil {
		return &types.WriteError{Backend: b.Name(), ItemID: it.ID, Err: err}
	}
	b.log.Debug("item written", zap.String("item_id", it.ID), zap.String("path", path))
	return nil
}

// DeleteItem removes the item's file from every directory so that no
// shadowed copy resurfaces.
func (b *Backend) DeleteItem(id string) error {
	if err := b.checkWrite(id); err != nil {
		return err
	}
	for _, dir := range b.dirs {
		path := filepath.Join(dir, id+Ext)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &types.WriteError{Backend: b.Name(), ItemID: id, Err: err}
		}
	}
	b.log.Debug("item deleted", zap.String("item_id", id))
	return nil
}

// Watch starts watching the directories for changes made by other
// programs. Signals are queued until drained; Close stops the watcher.
func (b *Backend) Watch(ctx context.Context, debounce time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return types.ErrClosed
	}
	if b.watcher != nil {
		return nil
	}
	w := NewWatcher(b.dirs, debounce, b.queue, b.log)
	if err := w.Start(ctx); err != nil {
		return err
	}
	b.watcher = w
	return nil
}

// Wake implements types.Notifier.
func (b *Backend) Wake() <-chan struct{} { return b.queue.Wake() }

// Drain implements types.Notifier.
func (b *Backend) Drain() []string { return b.queue.Drain() }

func (b *Backend) find(id string) (string, os.FileInfo, error) {
	for _, dir := range b.dirs {
		path := filepath.Join(dir, id+Ext)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, info, nil
		}
	}
	return "", nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
}

func (b *Backend) check() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.open {
		return types.ErrClosed
	}
	return nil
}

func (b *Backend) checkWrite(id string) error {
	if err := b.check(); err != nil {
		return err
	}
	if !keypath.ValidID(id) {
		return fmt.Errorf("%w: %q", types.ErrInvalidID, id)
	}
	if b.readonly {
		return &types.WriteError{Backend: b.Name(), ItemID: id, Err: types.ErrNotWritable}
	}
	return nil
}
