package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

func str(s string) schema.Value { return schema.Encode(s, schema.KindString) }

func TestLessIsLexicographic(t *testing.T) {
	assert.True(t, Less("0.1", "1.0"))
	assert.True(t, Less("1.0", "1.1"))
	assert.True(t, Less("1.1", "2.0"))
	assert.True(t, Less("1.10", "1.2"))
	assert.False(t, Less("2.0", "2.0"))
	assert.True(t, AtLeast("2.0", "2.0"))
	assert.True(t, AtLeast("3.0", "2.0"))
	assert.True(t, IsLegacy(""))
	assert.True(t, IsLegacy("1.0"))
	assert.False(t, IsLegacy("1.1"))
}

func TestResolveUndetermined(t *testing.T) {
	r := record.New("a1")
	r.Item[schema.KeyLabel] = str("L")

	_, err := Resolve(r)
	require.ErrorIs(t, err, types.ErrVersionUndetermined)
}

func TestResolveUnversionedLegacy(t *testing.T) {
	r := record.New("a1")
	r.Item[schema.KeyLabel] = str("L")
	r.Item[schema.KeyPath] = str("/usr/bin/gedit")
	r.Item[schema.KeySchemes] = schema.Encode([]string{"file"}, schema.KindList)

	res, err := Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "", res.Version)
	assert.True(t, res.Legacy)

	p := r.Profile(types.DefaultProfileID)
	require.NotNil(t, p)
	assert.True(t, p.Synthesized)
	assert.Equal(t, "/usr/bin/gedit", p.Values[schema.KeyPath].Str)
	_, stillOnItem := r.Item[schema.KeyPath]
	assert.False(t, stillOnItem)
}

func TestResolveVersion10ForcesValuesAfterward(t *testing.T) {
	r := record.New("a1")
	r.Item[schema.KeyVersion] = str(V10)
	r.Item[schema.KeyPath] = str("/usr/bin/gedit")
	r.Item[schema.KeyMatchCase] = schema.Encode(false, schema.KindBool)

	res, err := Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, V10, res.Version)

	p := r.Profile(types.DefaultProfileID)
	assert.False(t, p.Values[schema.KeyMatchCase].Bool, "forced values wait for Apply")
	_, named := p.Values[schema.KeyDescName]
	assert.False(t, named)

	res.Apply(r)
	assert.True(t, p.Values[schema.KeyMatchCase].Bool)
	assert.Equal(t, []string{"*/*"}, p.Values[schema.KeyMimetypes].List)
	assert.Equal(t, types.DefaultProfileName, p.Values[schema.KeyDescName].Str)
}

func TestResolveVersion01DoesNotForce(t *testing.T) {
	r := record.New("a1")
	r.Item[schema.KeyVersion] = str(V01)
	r.Item[schema.KeyPath] = str("/bin/ls")

	res, err := Resolve(r)
	require.NoError(t, err)
	res.Apply(r)

	p := r.Profile(types.DefaultProfileID)
	_, ok := p.Values[schema.KeyMatchCase]
	assert.False(t, ok)
}

func TestResolveModernAddsPlaceholder(t *testing.T) {
	r := record.New("a1")
	r.Item[schema.KeyVersion] = str(V20)
	r.EnsureProfile("p2").Values[schema.KeyPath] = str("/bin/ls")

	res, err := Resolve(r)
	require.NoError(t, err)
	assert.False(t, res.Legacy)

	require.Len(t, r.Profiles, 2)
	def := r.Profile(types.DefaultProfileID)
	require.NotNil(t, def)
	assert.True(t, def.Synthesized)
	assert.Empty(t, def.Values)
}

func TestResolveModernKeepsExistingDefaultProfile(t *testing.T) {
	r := record.New("a1")
	r.Item[schema.KeyVersion] = str(V11)
	r.EnsureProfile(types.DefaultProfileID).Values[schema.KeyPath] = str("/bin/ls")

	_, err := Resolve(r)
	require.NoError(t, err)
	require.Len(t, r.Profiles, 1)
	assert.False(t, r.Profiles[0].Synthesized)
}

func TestResolveMenuGetsNoProfiles(t *testing.T) {
	r := record.New("m1")
	r.Item[schema.KeyVersion] = str(V20)
	r.Item[schema.KeyType] = str(string(types.KindMenu))
	r.EnsureProfile("stray")

	_, err := Resolve(r)
	require.NoError(t, err)
	assert.Empty(t, r.Profiles)
}
