// Package reconcile turns backend change signals into Added, Changed and
// Removed events on an in-memory item set.
//
// A signal only names an item. The reconciler re-reads that item from its
// source and compares the result with what the target currently holds:
//
//	absent  -> present  Added
//	present -> present  Changed, only when the content differs
//	present -> absent   Removed
//
// An item that fails to read (not found, undetermined version, incomplete)
// counts as absent.
package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/notify"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Source re-reads a single item.
type Source interface {
	ReadItem(id string) (*types.Item, error)
}

// Target is the item set kept in sync.
type Target interface {
	// Lookup returns the item currently held for id.
	Lookup(id string) (*types.Item, bool)

	// Apply records the decision. For EventRemoved, Item is nil.
	Apply(ev types.Event)
}

// Reconciler drains one notifier. It is not safe for concurrent Drain
// calls; Run serializes them.
type Reconciler struct {
	notifier types.Notifier
	source   Source
	target   Target
	log      *zap.Logger
}

// New returns a reconciler reading signals from n and items from src.
func New(n types.Notifier, src Source, tgt Target, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{notifier: n, source: src, target: tgt, log: log}
}

// Drain processes every pending signal and returns the events applied,
// in signal order.
func (r *Reconciler) Drain() []types.Event {
	var events []types.Event
	for _, sig := range r.notifier.Drain() {
		_, id, ok := notify.Parse(sig)
		if !ok {
			r.log.Warn("ignoring malformed signal", zap.String("signal", sig))
			continue
		}
		if ev, changed := r.Reconcile(id); changed {
			events = append(events, ev)
		}
	}
	return events
}

// Reconcile re-reads one item and applies the resulting event, if any.
func (r *Reconciler) Reconcile(id string) (types.Event, bool) {
	fresh, err := r.source.ReadItem(id)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			r.log.Info("item rejected on re-read", zap.String("item_id", id), zap.Error(err))
		}
		fresh = nil
	}
	old, had := r.target.Lookup(id)

	var ev types.Event
	switch {
	case !had && fresh == nil:
		return types.Event{}, false
	case !had:
		ev = types.Event{Kind: types.EventAdded, ItemID: id, Item: fresh}
	case fresh == nil:
		ev = types.Event{Kind: types.EventRemoved, ItemID: id}
	case record.Equal(old, fresh):
		return types.Event{}, false
	default:
		ev = types.Event{Kind: types.EventChanged, ItemID: id, Item: fresh}
	}
	r.log.Debug("reconciled", zap.String("item_id", id), zap.String("event", string(ev.Kind)))
	r.target.Apply(ev)
	return ev, true
}

// Run drains signals whenever the notifier wakes, until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	r.Drain()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.notifier.Wake():
			r.Drain()
		}
	}
}
