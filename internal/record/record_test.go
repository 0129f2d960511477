package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

func sampleAction() *types.Item {
	it := schema.NewItem("a1", types.KindAction)
	it.Label = "Open terminal"
	it.Tooltip = "Open a terminal here"
	it.Icon = "utilities-terminal"
	p2 := schema.NewProfile("p2", "a1")
	p2.Name = "Folders"
	p2.IsDir = true
	it.Profiles = append(it.Profiles, p2)
	it.Children = []string{"main", "p2"}
	return it
}

func TestFlattenAssembleRoundTrip(t *testing.T) {
	it := sampleAction()

	r := Flatten(it, "2.0")
	v, ok := r.Version()
	require.True(t, ok)
	assert.Equal(t, "2.0", v)
	assert.Len(t, r.Profiles, 2)
	assert.Equal(t, []string{"main", "p2"}, r.Item[schema.KeyItems].List)

	got := Assemble(r, "2.0")
	assert.Equal(t, "2.0", got.Version)
	assert.True(t, Equal(it, got))
	assert.Equal(t, "a1", got.Profiles[1].ActionID)
}

func TestFlattenMenuHasNoProfiles(t *testing.T) {
	m := schema.NewItem("m1", types.KindMenu)
	m.Children = []string{"a1", "a2"}

	r := Flatten(m, "2.0")
	assert.Empty(t, r.Profiles)
	assert.Equal(t, []string{"a1", "a2"}, r.Item[schema.KeyItems].List)

	got := Assemble(r, "2.0")
	assert.Equal(t, types.KindMenu, got.Kind)
	assert.Equal(t, []string{"a1", "a2"}, got.Children)
	assert.Empty(t, got.Profiles)
}

func TestAssembleOrdersProfiles(t *testing.T) {
	r := New("a1")
	r.Item[schema.KeyItems] = schema.Encode([]string{"p2", "gone", "main"}, schema.KindList)
	r.EnsureProfile("main")
	r.EnsureProfile("extra")
	r.EnsureProfile("p2")

	it := Assemble(r, "2.0")
	assert.Equal(t, []string{"p2", "main", "extra"}, it.Children)
	require.Len(t, it.Profiles, 3)
	assert.Equal(t, "extra", it.Profiles[2].ID)
}

func TestAssembleFillsDefaults(t *testing.T) {
	r := New("a1")
	r.Item[schema.KeyLabel] = schema.Encode("L", schema.KindLocalized)
	r.EnsureProfile("main").Values[schema.KeyPath] = schema.Encode("/bin/true", schema.KindString)

	it := Assemble(r, "")
	assert.True(t, it.Enabled)
	assert.Equal(t, uint(3), it.IVersion)
	require.Len(t, it.Profiles, 1)
	p := it.Profiles[0]
	assert.Equal(t, "/bin/true", p.Path)
	assert.Equal(t, []string{"*"}, p.Basenames)
	assert.Equal(t, []string{"file"}, p.Schemes)
	assert.True(t, p.MatchCase)
}

func TestEqual(t *testing.T) {
	a := sampleAction()
	b := a.Clone()
	assert.True(t, Equal(a, b))

	b.Version = "1.1"
	b.Provider = "desktop"
	assert.True(t, Equal(a, b), "version and runtime state are ignored")

	b.Profiles[1].Schemes = []string{"sftp"}
	assert.False(t, Equal(a, b))

	c := a.Clone()
	c.Profiles = c.Profiles[:1]
	assert.False(t, Equal(a, c))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestEqualTreatsNilAndEmptyListsAlike(t *testing.T) {
	a := sampleAction()
	b := a.Clone()
	a.Profiles[0].Folders = nil
	b.Profiles[0].Folders = []string{}
	assert.True(t, Equal(a, b))
}

func TestRecordHelpers(t *testing.T) {
	r := New("a1")
	assert.True(t, r.Empty())

	r.EnsureProfile("main")
	assert.True(t, r.Empty(), "profiles without values are empty")

	r.EnsureProfile("main").Values[schema.KeyPath] = schema.Encode("x", schema.KindString)
	assert.False(t, r.Empty())
	assert.Len(t, r.Profiles, 1)

	r.RemoveProfile("main")
	assert.Nil(t, r.Profile("main"))

	_, ok := r.Version()
	assert.False(t, ok)
}
