package interchange

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/fsutil"
	"github.com/mesh-intelligence/fileractions/internal/keypath"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/validate"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Options configures a directory Backend.
type Options struct {
	Dir      string
	Dialect  string // DialectDump or DialectSchema.
	Root     string // Root written into documents; defaults to types.DefaultRoot.
	Readonly bool
	Logger   *zap.Logger
}

// Backend keeps one interchange document per item in a directory, named
// as Export names them.
type Backend struct {
	mu       sync.RWMutex
	dir      string
	dialect  string
	ext      string
	root     string
	readonly bool
	open     bool
	log      *zap.Logger
}

// NewBackend creates a directory backend. It fails for dialects other
// than dump and schema.
func NewBackend(opts Options) (*Backend, error) {
	if opts.Dialect != DialectDump && opts.Dialect != DialectSchema {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownDialect, opts.Dialect)
	}
	ext, _ := Ext(opts.Dialect)
	root := opts.Root
	if root == "" {
		root = types.DefaultRoot
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		dir:      opts.Dir,
		dialect:  opts.Dialect,
		ext:      ext,
		root:     root,
		readonly: opts.Readonly,
		log:      log.With(zap.String("backend", opts.Dialect)),
	}, nil
}

// Name implements types.Backend.
func (b *Backend) Name() string { return b.dialect }

// Kind implements types.Backend.
func (b *Backend) Kind() string { return b.dialect }

// Open implements types.Backend.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return types.ErrAlreadyOpen
	}
	if !b.readonly {
		if err := os.MkdirAll(b.dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", b.dir, err)
		}
	}
	b.open = true
	return nil
}

// Close implements types.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	return nil
}

// Writable implements types.Backend.
func (b *Backend) Writable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open && !b.readonly
}

// ReadItems decodes every document in the directory. A malformed document
// is reported and skipped; within a readable document only the malformed
// items are.
func (b *Backend) ReadItems() ([]*types.Item, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	files, err := b.files()
	if err != nil {
		return nil, err
	}

	var items []*types.Item
	var errs []error
	seen := map[string]bool{}
	for _, file := range files {
		recs, err := b.decode(file)
		if err != nil {
			b.log.Warn("skipping unreadable items", zap.String("path", file), zap.Error(err))
			errs = append(errs, err)
		}
		for _, r := range recs {
			if seen[r.ItemID] {
				errs = append(errs, fmt.Errorf("%s: %w: %s", file, types.ErrDuplicateID, r.ItemID))
				continue
			}
			it, err := b.admit(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			seen[r.ItemID] = true
			items = append(items, it)
		}
	}
	return items, errors.Join(errs...)
}

// ReadItem decodes the document named after id.
func (b *Backend) ReadItem(id string) (*types.Item, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if !keypath.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidID, id)
	}
	recs, err := b.decode(b.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	for _, r := range recs {
		if r.ItemID == id {
			return b.admit(r)
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
}

// WriteItem replaces the item's document.
func (b *Backend) WriteItem(it *types.Item) error {
	if err := b.checkWrite(it.ID); err != nil {
		return err
	}
	err := fsutil.WriteFileAtomic(b.path(it.ID), 0o644, func(w io.Writer) error {
		return Encode(w, b.dialect, b.root, it)
	})
	if err != nil {
		return &types.WriteError{Backend: b.Name(), ItemID: it.ID, Err: err}
	}
	return nil
}

// DeleteItem removes the item's document.
func (b *Backend) DeleteItem(id string) error {
	if err := b.checkWrite(id); err != nil {
		return err
	}
	if err := os.Remove(b.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &types.WriteError{Backend: b.Name(), ItemID: id, Err: err}
	}
	return nil
}

func (b *Backend) admit(r *record.Record) (*types.Item, error) {
	it, err := validate.Admit(r)
	if err != nil {
		return nil, err
	}
	it.Provider = b.Name()
	it.Writable = !b.readonly
	if b.readonly {
		it.Readonly, it.Reason = true, types.ReasonProviderReadonly
	}
	return it, nil
}

func (b *Backend) decode(file string) ([]*record.Record, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	_, recs, err := Decode(data, file, b.dialect, "")
	return recs, err
}

func (b *Backend) files() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", b.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != b.ext || e.Name()[0] == '.' {
			continue
		}
		out = append(out, filepath.Join(b.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) path(id string) string {
	return filepath.Join(b.dir, BaseName(id, b.dialect)+b.ext)
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
