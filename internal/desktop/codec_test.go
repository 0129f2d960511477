package desktop

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/validate"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

const sample = `[Desktop Entry]
Type=Action
Name=Open terminal
Name[fr]=Ouvrir un terminal
Tooltip=Open a terminal in this folder
Icon=utilities-terminal
Profiles=dir;files;

[X-Action-Profile dir]
Name=Folders
Exec=/usr/bin/gnome-terminal
Parameters=--working-directory=%d/%b
IsDir=true
IsFile=false
MimeTypes=inode/directory;

[X-Action-Profile files]
Exec=/usr/bin/xterm
Basenames=*.sh;a\;b;
`

func TestDecodeSample(t *testing.T) {
	r, err := Decode("term", "term.desktop", []byte(sample), "")
	require.NoError(t, err)

	it, err := validate.Admit(r)
	require.NoError(t, err)
	assert.Equal(t, "2.0", it.Version)
	assert.Equal(t, "Open terminal", it.Label)
	assert.Equal(t, []string{"dir", "files"}, it.Children)
	require.Len(t, it.Profiles, 2)

	dir := it.Profiles[0]
	assert.Equal(t, "Folders", dir.Name)
	assert.Equal(t, "--working-directory=%d/%b", dir.Parameters)
	assert.True(t, dir.IsDir)
	assert.False(t, dir.IsFile)
	assert.Equal(t, []string{"inode/directory"}, dir.Mimetypes)

	files := it.Profiles[1]
	assert.Equal(t, []string{"*.sh", "a;b"}, files.Basenames)
	assert.Equal(t, []string{"file"}, files.Schemes, "absent keys take defaults")
}

func TestDecodeLocalized(t *testing.T) {
	for _, loc := range []string{"fr", "fr_FR", "fr_FR.UTF-8"} {
		r, err := Decode("term", "", []byte(sample), loc)
		require.NoError(t, err)
		assert.Equal(t, "Ouvrir un terminal", r.Item[schema.KeyLabel].Str, loc)
	}
	r, err := Decode("term", "", []byte(sample), "de_DE")
	require.NoError(t, err)
	assert.Equal(t, "Open terminal", r.Item[schema.KeyLabel].Str)
}

func TestDecodeMissingEntryGroup(t *testing.T) {
	_, err := Decode("x", "x.desktop", []byte("[Other]\nA=b\n"), "")
	require.ErrorIs(t, err, types.ErrParseFailed)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, Dialect, pe.Dialect)
	assert.Equal(t, "x.desktop", pe.Path)
}

func TestDecodeProfileWithoutExecIsIncomplete(t *testing.T) {
	data := "[Desktop Entry]\nName=x\nProfiles=p;\n\n[X-Action-Profile p]\nIsFile=true\n"
	r, err := Decode("x", "", []byte(data), "")
	require.NoError(t, err)
	_, err = validate.Admit(r)
	assert.ErrorIs(t, err, types.ErrIncompleteProfile)
	var ipe *types.IncompleteProfileError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, []string{schema.KeyPath}, ipe.Missing["p"], "omitted optional keys default")
}

func TestDecodeMenu(t *testing.T) {
	data := "[Desktop Entry]\nType=Menu\nName=Tools\nItemsList=a1;a2;\n"
	r, err := Decode("m", "", []byte(data), "")
	require.NoError(t, err)
	it, err := validate.Admit(r)
	require.NoError(t, err)
	assert.Equal(t, types.KindMenu, it.Kind)
	assert.Equal(t, []string{"a1", "a2"}, it.Children)
	assert.Empty(t, it.Profiles)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	it := schema.NewItem("a1", types.KindAction)
	it.Label = " padded label "
	it.Tooltip = "line one\nline two\twith tab and back\\slash"
	it.Icon = "/usr/share/icons/x.png"
	it.TargetToolbar = true
	p := it.Profiles[0]
	p.Path = "/bin/sh"
	p.Parameters = "-c 'echo a;b # not a comment'"
	p.Basenames = []string{"*.txt", "semi;colon", `back\slash`}
	p.Folders = []string{}

	data, err := EncodeBytes(it)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "[Desktop Entry]\n"))
	assert.Contains(t, text, "Type=Action\n")
	assert.Contains(t, text, "[X-Action-Profile main]\n")
	assert.Contains(t, text, `Basenames=*.txt;semi\;colon;back\\slash;`)

	r, err := Decode("a1", "", data, "")
	require.NoError(t, err)
	got, err := validate.Admit(r)
	require.NoError(t, err)
	assert.True(t, record.Equal(it, got))
}

func TestEncodeMenuUsesItemsList(t *testing.T) {
	m := schema.NewItem("m1", types.KindMenu)
	m.Label, m.Tooltip, m.Icon = "M", "", ""
	m.Children = []string{"a1"}

	data, err := EncodeBytes(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ItemsList=a1;\n")
	assert.NotContains(t, string(data), "Profiles=")
	assert.NotContains(t, string(data), "X-Action-Profile")
}

func TestListSplitting(t *testing.T) {
	assert.Equal(t, []string{}, splitList(""))
	assert.Equal(t, []string{"a"}, splitList("a"))
	assert.Equal(t, []string{"a", "b"}, splitList("a;b;"))
	assert.Equal(t, []string{"a;b", "c"}, splitList(`a\;b;c`))
	assert.Equal(t, []string{"", "x"}, splitList(";x;"))
}

func TestLocaleChain(t *testing.T) {
	assert.Equal(t, []string{"sr_RS@latin", "sr_RS", "sr@latin", "sr"}, localeChain("sr_RS.UTF-8@latin"))
	assert.Nil(t, localeChain("C"))
	assert.Nil(t, localeChain(""))
}

func TestDecodeDefaultsOptionalProfileKeys(t *testing.T) {
	r, err := Decode("term", "term.desktop", []byte(sample), "")
	require.NoError(t, err)
	files := r.Profile("files")
	require.NotNil(t, files)
	assert.Equal(t, schema.Encode(true, schema.KindBool), files.Values[schema.KeyMatchCase])
	assert.Contains(t, files.Values, schema.KeyMimetypes)
}

func TestEncodeKeepsBareDelimiterAndQuotedValues(t *testing.T) {
	it := schema.NewItem("a1", types.KindAction)
	it.Label, it.Tooltip, it.Icon = "`ticked` label", `"""triple`, "i"
	it.Profiles[0].Path = "/bin/true"

	data, err := EncodeBytes(it)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "\nIcon=i\n")
	assert.NotContains(t, text, " = ")
	assert.True(t, strings.HasPrefix(text, "[Desktop Entry]\n"))

	r, err := Decode("a1", "", data, "")
	require.NoError(t, err)
	got, err := validate.Admit(r)
	require.NoError(t, err)
	assert.Equal(t, it.Label, got.Label)
	assert.Equal(t, it.Tooltip, got.Tooltip)
}
