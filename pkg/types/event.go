package types

// EventKind tells observers what happened to an item.
type EventKind string

// Event kinds emitted by the Store.
const (
	EventAdded   EventKind = "Added"
	EventChanged EventKind = "Changed"
	EventRemoved EventKind = "Removed"
)

// Event reports one change to the Store's item set. Item is a copy of the
// new state, nil for EventRemoved.
type Event struct {
	Kind   EventKind
	ItemID string
	Item   *Item
}
