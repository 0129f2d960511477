package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

const root = types.DefaultRoot

func openBackend(t *testing.T, readonly bool) *Backend {
	t.Helper()
	b := NewBackend(Options{DataDir: t.TempDir(), Readonly: readonly})
	require.NoError(t, b.Open())
	t.Cleanup(func() { b.Close() })
	return b
}

func newAction(id string) *types.Item {
	it := schema.NewItem(id, types.KindAction)
	it.Label = "Edit"
	it.Tooltip = "Edit the file"
	it.Icon = "gedit"
	it.Profiles[0].Path = "/usr/bin/gedit"
	it.Profiles[0].Parameters = "%M"
	return it
}

func setRaw(t *testing.T, b *Backend, values map[string]schema.Value) {
	t.Helper()
	require.NoError(t, b.DB().Update(func(tx *Tx) error {
		for p, v := range values {
			if err := tx.Set(p, v); err != nil {
				return err
			}
		}
		return nil
	}))
}

func str(s string) schema.Value { return schema.Encode(s, schema.KindString) }

func TestBackendOpenTwice(t *testing.T) {
	b := openBackend(t, false)
	assert.ErrorIs(t, b.Open(), types.ErrAlreadyOpen)
	assert.True(t, b.Writable())
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := openBackend(t, false)
	it := newAction("a1")
	p2 := schema.NewProfile("p2", "a1")
	p2.Path = "/bin/ls"
	p2.IsDir = true
	it.Profiles = append(it.Profiles, p2)
	it.Children = []string{"main", "p2"}

	require.NoError(t, b.WriteItem(it))

	got, err := b.ReadItem("a1")
	require.NoError(t, err)
	assert.True(t, record.Equal(it, got))
	assert.Equal(t, "2.0", got.Version)
	assert.Equal(t, types.BackendKVStore, got.Provider)
	assert.True(t, got.Writable)

	v, ok, err := b.DB().Get(root + "/a1/version")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2.0", v.Str)
}

func TestWriteRemovesDroppedProfiles(t *testing.T) {
	b := openBackend(t, false)
	it := newAction("a1")
	p2 := schema.NewProfile("p2", "a1")
	p2.Path = "/bin/ls"
	it.Profiles = append(it.Profiles, p2)
	require.NoError(t, b.WriteItem(it))

	it.Profiles = it.Profiles[:1]
	it.Children = []string{"main"}
	require.NoError(t, b.WriteItem(it))

	dirs, err := b.DB().Dirs(root + "/a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"profile-main"}, dirs)
}

func TestReadLegacyUnversionedItem(t *testing.T) {
	b := openBackend(t, false)
	setRaw(t, b, map[string]schema.Value{
		root + "/old/label":                 str("Legacy"),
		root + "/old/tooltip":               str("Legacy tip"),
		root + "/old/icon":                  str(""),
		root + "/old/path":                  str("/usr/bin/xterm"),
		root + "/old/parameters":            str(""),
		root + "/old/basenames":             schema.Encode([]string{"*"}, schema.KindList),
		root + "/old/isfile":                schema.Encode(true, schema.KindBool),
		root + "/old/isdir":                 schema.Encode(true, schema.KindBool),
		root + "/old/accept-multiple-files": schema.Encode(false, schema.KindBool),
		root + "/old/schemes":               schema.Encode([]string{"file"}, schema.KindList),
	})

	it, err := b.ReadItem("old")
	require.NoError(t, err)
	assert.Equal(t, "", it.Version)
	require.Len(t, it.Profiles, 1)
	assert.Equal(t, types.DefaultProfileID, it.Profiles[0].ID)
	assert.Equal(t, "/usr/bin/xterm", it.Profiles[0].Path)

	// Rewriting at the current version removes the item-level legacy keys.
	require.NoError(t, b.WriteItem(it))
	_, ok, err := b.DB().Get(root + "/old/path")
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := b.ReadItem("old")
	require.NoError(t, err)
	assert.True(t, record.Equal(it, again))
	assert.Equal(t, "2.0", again.Version)
}

func TestReadItemsSkipsInvalid(t *testing.T) {
	b := openBackend(t, false)
	require.NoError(t, b.WriteItem(newAction("good")))
	setRaw(t, b, map[string]schema.Value{
		root + "/noversion/label": str("x"),

		root + "/incomplete/version":           str("1.1"),
		root + "/incomplete/label":             str("x"),
		root + "/incomplete/tooltip":           str("x"),
		root + "/incomplete/icon":              str("x"),
		root + "/incomplete/profile-main/path": str("/bin/true"),

		root + "/pathonly/version":           str("2.0"),
		root + "/pathonly/label":             str("x"),
		root + "/pathonly/tooltip":           str("x"),
		root + "/pathonly/icon":              str("x"),
		root + "/pathonly/profile-main/path": str("/bin/true"),
	})

	items, err := b.ReadItems()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrVersionUndetermined))
	assert.True(t, errors.Is(err, types.ErrIncompleteProfile))
	require.Len(t, items, 1)
	assert.Equal(t, "good", items[0].ID)
}

func TestReadItemNotFound(t *testing.T) {
	b := openBackend(t, false)
	_, err := b.ReadItem("nope")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.ReadItem("a/b")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestDeleteItem(t *testing.T) {
	b := openBackend(t, false)
	require.NoError(t, b.WriteItem(newAction("a1")))
	b.Drain()

	require.NoError(t, b.DeleteItem("a1"))
	_, err := b.ReadItem("a1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Len(t, b.Drain(), 1)
}

func TestWriteEmitsOneSignal(t *testing.T) {
	b := openBackend(t, false)
	require.NoError(t, b.WriteItem(newAction("a1")))

	signals := b.Drain()
	require.Len(t, signals, 1)
	assert.Equal(t, "1:a1", signals[0])
}

func TestReadonlyBackend(t *testing.T) {
	b := openBackend(t, true)
	assert.False(t, b.Writable())

	err := b.WriteItem(newAction("a1"))
	assert.ErrorIs(t, err, types.ErrWriteFailed)
	assert.ErrorIs(t, err, types.ErrNotWritable)
}

func TestClosedBackend(t *testing.T) {
	b := NewBackend(Options{DataDir: t.TempDir()})
	_, err := b.ReadItems()
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.Nil(t, b.Drain())
	assert.False(t, b.Writable())
}
