package types

// Backend is one physical persistence mechanism. The closed set of
// implementations is the KV store, descriptor files, and the dump and
// schema interchange dialects.
//
// Backends are opened and closed explicitly; every handle they acquire
// inside a call is released before the call returns.
type Backend interface {
	// Name identifies the backend instance in logs and in Item.Provider.
	Name() string

	// Kind returns one of the Backend* constants.
	Kind() string

	// Open acquires the backend. Returns ErrAlreadyOpen if already open.
	Open() error

	// Close releases the backend. Idempotent.
	Close() error

	// Writable reports whether WriteItem and DeleteItem may succeed.
	Writable() bool

	// ReadItems loads every item. Items that fail version resolution or
	// completeness checks are skipped and reported in the joined error;
	// the returned items are still valid.
	ReadItems() ([]*Item, error)

	// ReadItem loads one item. Returns ErrNotFound when no data exists
	// for id.
	ReadItem(id string) (*Item, error)

	// WriteItem replaces every stored field of item.
	WriteItem(item *Item) error

	// DeleteItem removes every stored field of the item.
	DeleteItem(id string) error
}

// Notifier is implemented by backends that emit change signals of the
// form "<counter>:<item-id>".
type Notifier interface {
	// Wake is signalled whenever at least one signal is pending.
	Wake() <-chan struct{}

	// Drain returns and clears the pending signals in emission order.
	Drain() []string
}
