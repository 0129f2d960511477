// Package kv implements the hierarchical key-value store and the backend
// adapter that maps Items onto it.
//
// The engine keeps one row per key path in a SQLite file. Every committed
// transaction appends the subjects it touched to a change log; polling the
// log turns commits from this process and from any other process sharing
// the file into change signals.
package kv

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/fileractions/internal/notify"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// changeLogKeep bounds the change log; older rows are pruned on commit.
const changeLogKeep = 1024

// Stored kinds. Localized strings are stored as plain strings.
const (
	kindString = "string"
	kindBool   = "bool"
	kindInt    = "int"
	kindList   = "list"
)

// Entry is one stored key.
type Entry struct {
	Path  string
	Value schema.Value
}

// SubjectFunc maps a key path to the subject reported in change signals.
// Paths for which it returns false are not reported.
type SubjectFunc func(path string) (string, bool)

// DB is the key-value engine.
type DB struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	subject SubjectFunc
	queue   *notify.Queue
	lastSeq int64
}

// Open opens or creates the store file at path.
func Open(path string, subject SubjectFunc) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	d := &DB{db: db, path: path, subject: subject, queue: notify.NewQueue()}
	if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM changes").Scan(&d.lastSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading change log: %w", err)
	}
	return d, nil
}

// Close releases the file. Idempotent.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Path returns the file backing the store.
func (d *DB) Path() string { return d.path }

// Get returns the value stored at path.
func (d *DB) Get(path string) (schema.Value, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return schema.Value{}, false, types.ErrClosed
	}
	return get(d.db, path)
}

// Entries returns the keys stored directly under dir, sorted by path.
func (d *DB) Entries(dir string) ([]Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, types.ErrClosed
	}
	return entries(d.db, dir)
}

// Dirs returns the names of the directories directly under dir, sorted.
// A directory exists as long as at least one key lives below it.
func (d *DB) Dirs(dir string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, types.ErrClosed
	}
	return dirs(d.db, dir)
}

// Update runs fn inside one transaction. When fn returns nil the changes
// are committed, the touched subjects are logged, and one signal per
// touched subject becomes pending on the store's queue.
func (d *DB) Update(fn func(tx *Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return types.ErrClosed
	}

	sqlTx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	tx := &Tx{tx: sqlTx, touched: map[string]bool{}}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := d.logChanges(tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return d.pollLocked()
}

func (d *DB) logChanges(tx *Tx) error {
	if d.subject == nil || len(tx.touched) == 0 {
		return nil
	}
	subjects := map[string]bool{}
	for path := range tx.touched {
		if s, ok := d.subject(path); ok {
			subjects[s] = true
		}
	}
	ordered := make([]string, 0, len(subjects))
	for s := range subjects {
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)
	for _, s := range ordered {
		if _, err := tx.tx.Exec("INSERT INTO changes (subject) VALUES (?)", s); err != nil {
			return fmt.Errorf("logging change: %w", err)
		}
	}
	if _, err := tx.tx.Exec(
		"DELETE FROM changes WHERE seq <= (SELECT MAX(seq) FROM changes) - ?", changeLogKeep); err != nil {
		return fmt.Errorf("pruning change log: %w", err)
	}
	return nil
}

// Poll reads change log rows appended since the last poll, including
// those written by other processes, and queues one signal per row.
func (d *DB) Poll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return types.ErrClosed
	}
	return d.pollLocked()
}

func (d *DB) pollLocked() error {
	rows, err := d.db.Query("SELECT seq, subject FROM changes WHERE seq > ? ORDER BY seq", d.lastSeq)
	if err != nil {
		return fmt.Errorf("reading change log: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var seq int64
		var subject string
		if err := rows.Scan(&seq, &subject); err != nil {
			return fmt.Errorf("scanning change: %w", err)
		}
		d.queue.Push(uint64(seq), subject)
		d.lastSeq = seq
	}
	return rows.Err()
}

// Watch polls the change log every interval until ctx is done.
func (d *DB) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Poll(); err != nil {
				if errors.Is(err, types.ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}

// Wake implements types.Notifier.
func (d *DB) Wake() <-chan struct{} { return d.queue.Wake() }

// Drain implements types.Notifier.
func (d *DB) Drain() []string { return d.queue.Drain() }

// Tx is one write transaction. It is only valid inside the Update callback.
type Tx struct {
	tx      *sql.Tx
	touched map[string]bool
}

// Get reads a value, seeing the transaction's own writes.
func (tx *Tx) Get(path string) (schema.Value, bool, error) {
	return get(tx.tx, path)
}

// Entries lists keys directly under dir, seeing the transaction's writes.
func (tx *Tx) Entries(dir string) ([]Entry, error) {
	return entries(tx.tx, dir)
}

// Dirs lists directories directly under dir, seeing the transaction's
// writes.
func (tx *Tx) Dirs(dir string) ([]string, error) {
	return dirs(tx.tx, dir)
}

// Set stores v at path, replacing any previous value.
func (tx *Tx) Set(path string, v schema.Value) error {
	kind, raw := encodeValue(v)
	_, err := tx.tx.Exec(`
		INSERT INTO entries (path, kind, value) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, value = excluded.value`,
		path, kind, raw)
	if err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	tx.touched[path] = true
	return nil
}

// Unset removes the key at path. Removing a missing key is not an error.
func (tx *Tx) Unset(path string) error {
	res, err := tx.tx.Exec("DELETE FROM entries WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("unsetting %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		tx.touched[path] = true
	}
	return nil
}

// RecursiveUnset removes dir and every key below it.
func (tx *Tx) RecursiveUnset(dir string) error {
	dir = strings.TrimSuffix(dir, "/")
	prefix := dir + "/"
	res, err := tx.tx.Exec(
		"DELETE FROM entries WHERE path = ? OR (path >= ? AND path < ?)", dir, prefix, upperBound(prefix))
	if err != nil {
		return fmt.Errorf("unsetting %s: %w", dir, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		tx.touched[prefix] = true
	}
	return nil
}

// upperBound returns the smallest string greater than every string
// starting with prefix, which must end in the separator.
func upperBound(prefix string) string {
	return prefix[:len(prefix)-1] + string(rune(prefix[len(prefix)-1]+1))
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func get(q querier, path string) (schema.Value, bool, error) {
	var kind, raw string
	err := q.QueryRow("SELECT kind, value FROM entries WHERE path = ?", path).Scan(&kind, &raw)
	if err == sql.ErrNoRows {
		return schema.Value{}, false, nil
	}
	if err != nil {
		return schema.Value{}, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return decodeValue(kind, raw), true, nil
}

func entries(q querier, dir string) ([]Entry, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	rows, err := q.Query(
		"SELECT path, kind, value FROM entries WHERE path >= ? AND path < ? ORDER BY path",
		prefix, upperBound(prefix))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var path, kind, raw string
		if err := rows.Scan(&path, &kind, &raw); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if strings.Contains(path[len(prefix):], "/") {
			continue
		}
		out = append(out, Entry{Path: path, Value: decodeValue(kind, raw)})
	}
	return out, rows.Err()
}

func dirs(q querier, dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	rows, err := q.Query(
		"SELECT path FROM entries WHERE path >= ? AND path < ?", prefix, upperBound(prefix))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if name, _, nested := strings.Cut(path[len(prefix):], "/"); nested && name != "" {
			seen[name] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func encodeValue(v schema.Value) (kind, raw string) {
	switch v.Kind {
	case schema.KindBool:
		return kindBool, strconv.FormatBool(v.Bool)
	case schema.KindUint:
		return kindInt, strconv.FormatUint(uint64(v.Uint), 10)
	case schema.KindList:
		list := v.List
		if list == nil {
			list = []string{}
		}
		b, _ := json.Marshal(list)
		return kindList, string(b)
	default:
		return kindString, v.Str
	}
}

// decodeValue never fails; unreadable payloads decode as zero values of
// their kind and the registry substitutes defaults where it matters.
func decodeValue(kind, raw string) schema.Value {
	switch kind {
	case kindBool:
		b, _ := strconv.ParseBool(raw)
		return schema.Value{Kind: schema.KindBool, Bool: b}
	case kindInt:
		n, _ := strconv.ParseUint(raw, 10, 64)
		return schema.Value{Kind: schema.KindUint, Uint: uint(n)}
	case kindList:
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil || list == nil {
			list = []string{}
		}
		return schema.Value{Kind: schema.KindList, List: list}
	default:
		return schema.Value{Kind: schema.KindString, Str: raw}
	}
}
