// Package notify queues change signals of the form "<counter>:<item-id>"
// between a backend that observes changes and the reconciler that drains
// them.
package notify

import (
	"strconv"
	"strings"
	"sync"
)

// Queue is a signal queue safe for concurrent use. The zero value is not
// usable; call NewQueue.
type Queue struct {
	mu      sync.Mutex
	pending []string
	wake    chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends one signal built from counter and itemID.
func (q *Queue) Push(counter uint64, itemID string) {
	q.PushRaw(Format(counter, itemID))
}

// PushRaw appends a signal as is. Malformed signals are the reader's
// problem; the queue never inspects them.
func (q *Queue) PushRaw(signal string) {
	q.mu.Lock()
	q.pending = append(q.pending, signal)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled after a push. Several pushes may share one wake-up.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Drain returns the pending signals in push order and empties the queue.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending signals.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Format builds a signal.
func Format(counter uint64, itemID string) string {
	return strconv.FormatUint(counter, 10) + ":" + itemID
}

// Parse splits a signal at its first colon. The counter must be a decimal
// number and the item id must not be empty; the id may itself contain
// colons.
func Parse(signal string) (counter uint64, itemID string, ok bool) {
	head, tail, found := strings.Cut(signal, ":")
	if !found || tail == "" {
		return 0, "", false
	}
	n, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, tail, true
}
