// Package store keeps the in-memory set of configured Items in sync with
// an ordered list of persistence backends.
//
// Backends are consulted in priority order: when two backends hold the
// same item id, the first one wins and the other copy is reported. Updates
// go back to the backend that provided the item; new items go to the
// first writable backend. Observers are told about every change, whether
// it came through this API or from a backend change signal.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/keypath"
	"github.com/mesh-intelligence/fileractions/internal/reconcile"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/version"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// DefaultWatchInterval is the polling or debounce interval used by Run
// when none is given.
const DefaultWatchInterval = 500 * time.Millisecond

// Options configures a Store.
type Options struct {
	// Backends in priority order.
	Backends []types.Backend
	Root     string // Root written into exported documents.
	Locale   string // Locale used when importing descriptor files.
	Logger   *zap.Logger

	// Watch makes Run observe changes made outside this process: the
	// descriptor directories are watched and the KV change log is polled.
	Watch bool
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	backends []types.Backend
	items    map[string]*types.Item
	root     string
	locale   string
	watch    bool
	log      *zap.Logger

	subMu  sync.Mutex
	subs   map[int]func(types.Event)
	nextID int

	reconcilers []*reconcile.Reconciler
}

// watcher is implemented by backends that can observe changes made by
// other processes.
type watcher interface {
	Watch(ctx context.Context, interval time.Duration) error
}

// New creates a store over backends. Call Open, then Load.
func New(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	root := opts.Root
	if root == "" {
		root = types.DefaultRoot
	}
	s := &Store{
		backends: append([]types.Backend{}, opts.Backends...),
		items:    make(map[string]*types.Item),
		root:     root,
		locale:   opts.Locale,
		watch:    opts.Watch,
		log:      log,
		subs:     make(map[int]func(types.Event)),
	}
	for _, b := range s.backends {
		if n, ok := b.(types.Notifier); ok {
			s.reconcilers = append(s.reconcilers,
				reconcile.New(n, b, &backendTarget{store: s, backend: b}, log.With(zap.String("backend", b.Name()))))
		}
	}
	return s
}

// Open opens every backend. On failure the backends already opened are
// closed again.
func (s *Store) Open() error {
	for i, b := range s.backends {
		if err := b.Open(); err != nil {
			for _, opened := range s.backends[:i] {
				opened.Close()
			}
			return fmt.Errorf("opening %s: %w", b.Name(), err)
		}
	}
	return nil
}

// Close closes every backend and joins their errors.
func (s *Store) Close() error {
	var errs []error
	for _, b := range s.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Backends returns the backends in priority order.
func (s *Store) Backends() []types.Backend {
	return append([]types.Backend{}, s.backends...)
}

// Load replaces the item set with what the backends hold. It returns the
// joined errors of every item that could not be loaded, duplicates
// included; the items that did load are kept.
func (s *Store) Load() error {
	items := make(map[string]*types.Item)
	var errs []error
	for _, b := range s.backends {
		loaded, err := b.ReadItems()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
		for _, it := range loaded {
			if prev, dup := items[it.ID]; dup {
				errs = append(errs, fmt.Errorf("%s: %w: %s already provided by %s",
					b.Name(), types.ErrDuplicateID, it.ID, prev.Provider))
				continue
			}
			s.stamp(it, b)
			items[it.ID] = it
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.log.Info("items loaded", zap.Int("count", len(items)), zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// Items returns copies of every item, sorted by id.
func (s *Store) Items() []*types.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of the item with id.
func (s *Store) Get(id string) (*types.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	return it.Clone(), nil
}

// Add stores a new item in the first writable backend. An item without an
// id is given a fresh one, written back to it. Adding an id already in
// the set fails with types.ErrDuplicateID.
func (s *Store) Add(it *types.Item) error {
	if it == nil {
		return types.ErrInvalidID
	}
	if it.ID == "" {
		it.SetID(NewID())
	}
	if _, err := s.Get(it.ID); err == nil {
		return fmt.Errorf("item %s: %w", it.ID, types.ErrDuplicateID)
	}
	return s.save(it)
}

// Update rewrites an item already in the set through its provider.
// Unknown ids fail with types.ErrNotFound.
func (s *Store) Update(it *types.Item) error {
	if it == nil {
		return types.ErrInvalidID
	}
	if _, err := s.Get(it.ID); err != nil {
		return err
	}
	return s.save(it)
}

// save writes it to its provider, or to the first writable backend when
// the item is new, and updates the item set. The stored copy carries the
// version written.
func (s *Store) save(it *types.Item) error {
	if err := checkItem(it); err != nil {
		return err
	}
	s.mu.RLock()
	prev, exists := s.items[it.ID]
	s.mu.RUnlock()

	var target types.Backend
	if exists {
		if !prev.Writable {
			return &types.WriteError{Backend: prev.Provider, ItemID: it.ID, Err: types.ErrNotWritable}
		}
		target = s.backend(prev.Provider)
	} else {
		target = s.firstWritable()
	}
	if target == nil {
		return &types.WriteError{Backend: "", ItemID: it.ID, Err: types.ErrNotWritable}
	}

	c := it.Clone()
	if c.Kind == "" {
		c.Kind = types.KindAction
	}
	if err := target.WriteItem(c); err != nil {
		return err
	}
	c.Version = version.Current
	s.stamp(c, target)

	kind := types.EventAdded
	if exists {
		kind = types.EventChanged
		if record.Equal(prev, c) {
			s.put(c)
			return nil
		}
	}
	s.put(c)
	s.emit(types.Event{Kind: kind, ItemID: c.ID, Item: c.Clone()})
	return nil
}

// Delete removes the item from its provider and from the item set.
func (s *Store) Delete(id string) error {
	s.mu.RLock()
	prev, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	if !prev.Writable {
		return &types.WriteError{Backend: prev.Provider, ItemID: id, Err: types.ErrNotWritable}
	}
	b := s.backend(prev.Provider)
	if b == nil {
		return &types.WriteError{Backend: prev.Provider, ItemID: id, Err: types.ErrNotWritable}
	}
	if err := b.DeleteItem(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	s.emit(types.Event{Kind: types.EventRemoved, ItemID: id})
	return nil
}

// NewID returns a fresh item id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Subscribe registers fn for every future event and returns a function
// that unregisters it. fn runs synchronously on the goroutine that caused
// the event and must not call back into the store's mutating methods.
func (s *Store) Subscribe(fn func(types.Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Drain processes every pending backend change signal and returns the
// events that resulted.
func (s *Store) Drain() []types.Event {
	var out []types.Event
	for _, r := range s.reconcilers {
		out = append(out, r.Drain()...)
	}
	return out
}

// Run reconciles change signals until ctx is done. With Options.Watch set
// it also watches every backend that supports it.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(s.backends))
	for _, b := range s.backends {
		w, ok := b.(watcher)
		if !ok || !s.watch {
			continue
		}
		wg.Add(1)
		go func(b types.Backend) {
			defer wg.Done()
			if err := w.Watch(ctx, interval); err != nil {
				errCh <- fmt.Errorf("watching %s: %w", b.Name(), err)
			}
		}(b)
	}
	for _, r := range s.reconcilers {
		wg.Add(1)
		go func(r *reconcile.Reconciler) {
			defer wg.Done()
			r.Run(ctx)
		}(r)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Store) put(it *types.Item) {
	s.mu.Lock()
	s.items[it.ID] = it
	s.mu.Unlock()
}

func (s *Store) emit(ev types.Event) {
	s.subMu.Lock()
	subs := make([]func(types.Event), 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subMu.Unlock()

	s.log.Debug("event", zap.String("item_id", ev.ItemID), zap.String("event", string(ev.Kind)))
	for _, fn := range subs {
		fn(ev)
	}
}

// stamp records the provider and the resulting write status on it.
func (s *Store) stamp(it *types.Item, b types.Backend) {
	it.Provider = b.Name()
	switch {
	case it.Readonly:
		it.Writable = false
		if it.Reason == types.ReasonWritable {
			it.Reason = types.ReasonItemReadonly
		}
	case !b.Writable():
		it.Writable, it.Reason = false, types.ReasonProviderReadonly
	default:
		it.Writable, it.Reason = true, types.ReasonWritable
	}
}

func (s *Store) backend(name string) types.Backend {
	for _, b := range s.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

func (s *Store) firstWritable() types.Backend {
	for _, b := range s.backends {
		if b.Writable() {
			return b
		}
	}
	return nil
}

func (s *Store) priority(name string) int {
	for i, b := range s.backends {
		if b.Name() == name {
			return i
		}
	}
	return len(s.backends)
}

func checkItem(it *types.Item) error {
	if it == nil || !keypath.ValidID(it.ID) {
		return types.ErrInvalidID
	}
	if !it.IsAction() {
		return nil
	}
	if len(it.Profiles) == 0 {
		return fmt.Errorf("item %s: %w", it.ID, types.ErrNoValidProfile)
	}
	seen := map[string]bool{}
	for _, p := range it.Profiles {
		if !keypath.ValidID(p.ID) {
			return fmt.Errorf("item %s: profile %q: %w", it.ID, p.ID, types.ErrInvalidID)
		}
		if seen[p.ID] {
			return fmt.Errorf("item %s: profile %s: %w", it.ID, p.ID, types.ErrDuplicateID)
		}
		seen[p.ID] = true
	}
	return nil
}

// backendTarget applies reconciler decisions for one backend, honouring
// backend priority.
type backendTarget struct {
	store   *Store
	backend types.Backend
}

func (t *backendTarget) Lookup(id string) (*types.Item, bool) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	it, ok := t.store.items[id]
	if !ok || it.Provider != t.backend.Name() {
		return nil, false
	}
	return it, true
}

func (t *backendTarget) Apply(ev types.Event) {
	s := t.store
	s.mu.Lock()
	switch ev.Kind {
	case types.EventRemoved:
		delete(s.items, ev.ItemID)
	default:
		if cur, ok := s.items[ev.ItemID]; ok && cur.Provider != t.backend.Name() {
			if s.priority(cur.Provider) < s.priority(t.backend.Name()) {
				s.mu.Unlock()
				s.log.Warn("ignoring shadowed item",
					zap.String("item_id", ev.ItemID), zap.String("backend", t.backend.Name()))
				return
			}
			ev.Kind = types.EventChanged
		}
		it := ev.Item.Clone()
		s.stamp(it, t.backend)
		s.items[ev.ItemID] = it
		ev.Item = it.Clone()
	}
	s.mu.Unlock()
	s.emit(ev)
}
