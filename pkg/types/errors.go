package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Persistence errors. Typed errors below wrap these so callers can use
// errors.Is on any of them.
var (
	ErrMalformedPath             = errors.New("malformed path")
	ErrVersionUndetermined       = errors.New("version undetermined")
	ErrIncompleteProfile         = errors.New("incomplete profile")
	ErrMissingMandatoryItemField = errors.New("missing mandatory item field")
	ErrNoValidProfile            = errors.New("action has no valid profile")
	ErrDuplicateID               = errors.New("duplicate item id")
	ErrNotFound                  = errors.New("item not found")
	ErrWriteFailed               = errors.New("write failed")
	ErrParseFailed               = errors.New("parse failed")
	ErrNotWritable               = errors.New("item is not writable")
	ErrInvalidID                 = errors.New("invalid item id")
	ErrUnknownDialect            = errors.New("unknown dialect")
	ErrUnknownPolicy             = errors.New("unknown conflict policy")
	ErrClosed                    = errors.New("backend is closed")
	ErrAlreadyOpen               = errors.New("backend is already open")
)

// IncompleteProfileError lists, per incomplete profile of one item, the
// mandatory keys that were not found.
type IncompleteProfileError struct {
	ItemID  string
	Version string
	Missing map[string][]string // profile id -> missing keys
}

func (e *IncompleteProfileError) Error() string {
	ids := make([]string, 0, len(e.Missing))
	for id := range e.Missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("profile %s missing %s", id, strings.Join(e.Missing[id], ", ")))
	}
	return fmt.Sprintf("item %s (version %q): %s", e.ItemID, e.Version, strings.Join(parts, "; "))
}

func (e *IncompleteProfileError) Unwrap() error { return ErrIncompleteProfile }

// MissingItemFieldError reports item-level mandatory keys that were absent.
type MissingItemFieldError struct {
	ItemID  string
	Missing []string
}

func (e *MissingItemFieldError) Error() string {
	return fmt.Sprintf("item %s: missing %s", e.ItemID, strings.Join(e.Missing, ", "))
}

func (e *MissingItemFieldError) Unwrap() error { return ErrMissingMandatoryItemField }

// WriteError reports a failed write or delete on one backend.
type WriteError struct {
	Backend string
	ItemID  string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: write %s: %v", e.Backend, e.ItemID, e.Err)
}

// Unwrap exposes both ErrWriteFailed and the underlying cause.
func (e *WriteError) Unwrap() []error { return []error{ErrWriteFailed, e.Err} }

// ParseError reports an interchange or descriptor document that could not
// be parsed. Line is 1-based; 0 means unknown.
type ParseError struct {
	Dialect string
	Path    string
	Line    int
	Err     error
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "<input>"
	}
	return fmt.Sprintf("%s: %s:%d: %v", e.Dialect, where, e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParseFailed, e.Err} }
