package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/keypath"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/validate"
	"github.com/mesh-intelligence/fileractions/internal/version"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// FileName is the store file created in the data directory.
const FileName = "kvstore.db"

// Options configures a Backend.
type Options struct {
	DataDir  string
	Root     string // Defaults to types.DefaultRoot.
	Readonly bool
	Logger   *zap.Logger
}

// Backend maps Items onto the key-value engine. It implements
// types.Backend and types.Notifier.
type Backend struct {
	mu       sync.RWMutex
	file     string
	paths    keypath.Builder
	readonly bool
	log      *zap.Logger
	db       *DB
}

// NewBackend creates a backend. Call Open before use.
func NewBackend(opts Options) *Backend {
	root := opts.Root
	if root == "" {
		root = types.DefaultRoot
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return &Backend{
		file:     filepath.Join(dataDir, FileName),
		paths:    keypath.New(root),
		readonly: opts.Readonly,
		log:      log.With(zap.String("backend", types.BackendKVStore)),
	}
}

// Name implements types.Backend.
func (b *Backend) Name() string { return types.BackendKVStore }

// Kind implements types.Backend.
func (b *Backend) Kind() string { return types.BackendKVStore }

// Open opens the store file, creating it when missing.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		return types.ErrAlreadyOpen
	}
	db, err := Open(b.file, b.paths.ItemID)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}

// Close implements types.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Writable implements types.Backend.
func (b *Backend) Writable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db != nil && !b.readonly
}

// DB exposes the engine, mainly for tests and tooling.
func (b *Backend) DB() *DB {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db
}

// ReadItems loads every item below the root.
func (b *Backend) ReadItems() ([]*types.Item, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	ids, err := db.Dirs(b.paths.Root)
	if err != nil {
		return nil, err
	}

	var items []*types.Item
	var errs []error
	for _, id := range ids {
		it, err := b.readItem(db, id)
		if err != nil {
			b.log.Warn("skipping item", zap.String("item_id", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		items = append(items, it)
	}
	return items, errors.Join(errs...)
}

// ReadItem loads one item.
func (b *Backend) ReadItem(id string) (*types.Item, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	return b.readItem(db, id)
}

func (b *Backend) readItem(db *DB, id string) (*types.Item, error) {
	r, err := b.readRecord(db, id)
	if err != nil {
		return nil, err
	}
	it, err := validate.Admit(r)
	if err != nil {
		return nil, err
	}
	it.Provider = b.Name()
	it.Writable = !b.readonly
	if b.readonly {
		it.Readonly = true
		it.Reason = types.ReasonProviderReadonly
	}
	return it, nil
}

func (b *Backend) readRecord(db *DB, id string) (*record.Record, error) {
	if !keypath.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidID, id)
	}
	r := record.New(id)
	dir := b.paths.ItemDir(id)

	entries, err := db.Entries(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		k, err := b.paths.Parse(e.Path)
		if err != nil {
			return nil, err
		}
		r.Item[k.Field] = e.Value
	}

	subdirs, err := db.Dirs(dir)
	if err != nil {
		return nil, err
	}
	for _, sub := range subdirs {
		pid, ok := keypath.ProfileID(sub)
		if !ok {
			continue
		}
		pentries, err := db.Entries(b.paths.ProfileDir(id, pid))
		if err != nil {
			return nil, err
		}
		p := r.EnsureProfile(pid)
		for _, e := range pentries {
			k, err := b.paths.Parse(e.Path)
			if err != nil {
				return nil, err
			}
			p.Values[k.Field] = e.Value
		}
	}

	if len(entries) == 0 && len(subdirs) == 0 {
		return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	return r, nil
}

// WriteItem replaces every stored field of it, stamping the current
// version. Item-level keys left by legacy layouts and profiles no longer
// listed are removed in the same transaction.
func (b *Backend) WriteItem(it *types.Item) error {
	db, err := b.writeHandle(it.ID)
	if err != nil {
		return err
	}
	r := record.Flatten(it, version.Current)

	err = db.Update(func(tx *Tx) error {
		for _, key := range schema.LegacyKeys() {
			if err := tx.Unset(b.paths.Build(it.ID, "", key)); err != nil {
				return err
			}
		}
		existing, err := tx.Dirs(b.paths.ItemDir(it.ID))
		if err != nil {
			return err
		}
		for _, sub := range existing {
			if pid, ok := keypath.ProfileID(sub); ok && r.Profile(pid) == nil {
				if err := tx.RecursiveUnset(b.paths.ProfileDir(it.ID, pid)); err != nil {
					return err
				}
			}
		}
		for _, d := range schema.ItemDefs() {
			if err := tx.Set(b.paths.Build(it.ID, "", d.Key), r.Item[d.Key]); err != nil {
				return err
			}
		}
		for _, p := range r.Profiles {
			for _, d := range schema.ProfileDefs() {
				if err := tx.Set(b.paths.Build(it.ID, p.ID, d.Key), p.Values[d.Key]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return &types.WriteError{Backend: b.Name(), ItemID: it.ID, Err: err}
	}
	b.log.Debug("item written", zap.String("item_id", it.ID))
	return nil
}

// DeleteItem removes the item node and everything below it.
func (b *Backend) DeleteItem(id string) error {
	db, err := b.writeHandle(id)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *Tx) error {
		return tx.RecursiveUnset(b.paths.ItemDir(id))
	})
	if err != nil {
		return &types.WriteError{Backend: b.Name(), ItemID: id, Err: err}
	}
	b.log.Debug("item deleted", zap.String("item_id", id))
	return nil
}

// Wake implements types.Notifier. It returns nil while the backend is
// closed.
func (b *Backend) Wake() <-chan struct{} {
	db := b.DB()
	if db == nil {
		return nil
	}
	return db.Wake()
}

// Drain implements types.Notifier.
func (b *Backend) Drain() []string {
	db := b.DB()
	if db == nil {
		return nil
	}
	return db.Drain()
}

// Watch polls for commits made by other processes until ctx is done.
func (b *Backend) Watch(ctx context.Context, interval time.Duration) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	return db.Watch(ctx, interval)
}

func (b *Backend) handle() (*DB, error) {
	db := b.DB()
	if db == nil {
		return nil, types.ErrClosed
	}
	return db, nil
}

func (b *Backend) writeHandle(id string) (*DB, error) {
	if !keypath.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidID, id)
	}
	if b.readonly {
		return nil, &types.WriteError{Backend: b.Name(), ItemID: id, Err: types.ErrNotWritable}
	}
	return b.handle()
}
