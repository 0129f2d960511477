package interchange

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/validate"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

func newAction(id string) *types.Item {
	it := schema.NewItem(id, types.KindAction)
	it.Label = "Compress"
	it.Tooltip = "Compress <selected> files & folders"
	it.Icon = "package-x-generic"
	p := it.Profiles[0]
	p.Path = "/usr/bin/file-roller"
	p.Parameters = "--add %M"
	p.Mimetypes = []string{"*/*"}
	p.AcceptMultiple = true
	p2 := schema.NewProfile("dirs", id)
	p2.Path = "/usr/bin/file-roller"
	p2.IsDir, p2.IsFile = true, false
	it.Profiles = append(it.Profiles, p2)
	it.Children = []string{"main", "dirs"}
	return it
}

func admitOne(t *testing.T, recs []*record.Record) *types.Item {
	t.Helper()
	require.Len(t, recs, 1)
	it, err := validate.Admit(recs[0])
	require.NoError(t, err)
	return it
}

func TestRoundTrip(t *testing.T) {
	for _, dialect := range []string{DialectDump, DialectSchema, DialectDesktop} {
		t.Run(dialect, func(t *testing.T) {
			it := newAction("a1")
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, dialect, types.DefaultRoot, it))

			ext, err := Ext(dialect)
			require.NoError(t, err)
			got, recs, err := Decode(buf.Bytes(), BaseName("a1", dialect)+ext, dialect, "")
			require.NoError(t, err)
			assert.Equal(t, dialect, got)

			back := admitOne(t, recs)
			assert.True(t, record.Equal(it, back))
			assert.Equal(t, "2.0", back.Version)
		})
	}
}

func TestAutoDetection(t *testing.T) {
	it := newAction("a1")
	for _, dialect := range []string{DialectDump, DialectSchema} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, dialect, types.DefaultRoot, it))
		got, recs, err := Decode(buf.Bytes(), "x", DialectAuto, "")
		require.NoError(t, err)
		assert.Equal(t, dialect, got)
		assert.Len(t, recs, 1)
	}
}

func TestDumpWireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DialectDump, types.DefaultRoot, newAction("a1")))
	out := buf.String()

	assert.Contains(t, out, `<gconfentryfile>`)
	assert.Contains(t, out, `<entrylist base="`+types.DefaultRoot+`/a1">`)
	assert.Contains(t, out, `<key>profile-dirs/isdir</key>`)
	assert.Contains(t, out, `<bool>true</bool>`)
	assert.Contains(t, out, `<list type="string">`)
	assert.Contains(t, out, `&lt;selected&gt;`)
}

func TestSchemaWireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DialectSchema, types.DefaultRoot, newAction("a1")))
	out := buf.String()

	assert.Contains(t, out, `<key>/schemas`+types.DefaultRoot+`/a1/label</key>`)
	assert.Contains(t, out, `<applyto>`+types.DefaultRoot+`/a1/profile-main/mimetypes</applyto>`)
	assert.Contains(t, out, `<owner>fileractions</owner>`)
	assert.Contains(t, out, `<list_type>string</list_type>`)
	assert.Contains(t, out, `<default>[*/*]</default>`)
	assert.Contains(t, out, `<locale name="C">`)
}

const legacyDump = `<?xml version="1.0"?>
<gconfentryfile>
  <entrylist base="/apps/nautilus-actions/configurations/old">
    <entry><key>label</key><value><string>Legacy</string></value></entry>
    <entry><key>tooltip</key><value><string>tip</string></value></entry>
    <entry><key>icon</key><value><string></string></value></entry>
    <entry><key>version</key><value><string>1.0</string></value></entry>
    <entry><key>path</key><value><string>/usr/bin/gedit</string></value></entry>
    <entry><key>parameters</key><value><string>%M</string></value></entry>
    <entry><key>basenames</key><value><list type="string"><value><string>*.txt</string></value></list></value></entry>
    <entry><key>isfile</key><value><bool>true</bool></value></entry>
    <entry><key>isdir</key><value><bool>false</bool></value></entry>
    <entry><key>accept-multiple-files</key><value><bool>false</bool></value></entry>
    <entry><key>schemes</key><value><list type="string"><value><string>file</string></value></list></value></entry>
  </entrylist>
</gconfentryfile>
`

func TestLegacyDumpImport(t *testing.T) {
	_, recs, err := Decode([]byte(legacyDump), "old.xml", DialectAuto, "")
	require.NoError(t, err)
	it := admitOne(t, recs)

	assert.Equal(t, "old", it.ID)
	assert.Equal(t, "1.0", it.Version)
	require.Len(t, it.Profiles, 1)
	p := it.Profiles[0]
	assert.Equal(t, types.DefaultProfileID, p.ID)
	assert.Equal(t, "/usr/bin/gedit", p.Path)
	assert.True(t, p.MatchCase)
	assert.Equal(t, []string{"*/*"}, p.Mimetypes)
	assert.Equal(t, []string{"*.txt"}, p.Basenames)
}

func TestParseErrorsCarryLine(t *testing.T) {
	broken := "<?xml version=\"1.0\"?>\n<gconfentryfile>\n  <entrylist base=\"/r/a1\">\n  </oops>\n</gconfentryfile>\n"
	_, _, err := Decode([]byte(broken), "broken.xml", DialectAuto, "")
	require.ErrorIs(t, err, types.ErrParseFailed)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, DialectDump, pe.Dialect)
	assert.Equal(t, 4, pe.Line)
	assert.Equal(t, "broken.xml", pe.Path)
}

func TestUnknownRootFails(t *testing.T) {
	_, _, err := Decode([]byte("<other/>"), "x.xml", DialectAuto, "")
	assert.ErrorIs(t, err, types.ErrParseFailed)

	_, _, err = Decode([]byte("<other/>"), "x.xml", "yaml", "")
	assert.ErrorIs(t, err, types.ErrUnknownDialect)
}

func TestBadRelativeKey(t *testing.T) {
	doc := "<gconfentryfile>\n<entrylist base=\"/r/a1\">\n<entry><key>x/y/z</key><value><string>v</string></value></entry>\n</entrylist>\n</gconfentryfile>"
	_, _, err := Decode([]byte(doc), "bad.xml", DialectDump, "")
	require.ErrorIs(t, err, types.ErrMalformedPath)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
}

func TestSchemaReadsForeignRoot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DialectSchema, "/apps/elsewhere/cfg", newAction("a1")))
	_, recs, err := Decode(buf.Bytes(), "x.schemas", DialectSchema, "")
	require.NoError(t, err)
	it := admitOne(t, recs)
	assert.Equal(t, "a1", it.ID)
}

func TestExportNaming(t *testing.T) {
	dir := t.TempDir()
	it := newAction("a1")

	first, err := Export(it, dir, DialectDump, types.DefaultRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config_a1.xml"), first)

	second, err := Export(it, dir, DialectDump, types.DefaultRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config_a1_0.xml"), second)

	third, err := Export(it, dir, DialectDump, types.DefaultRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config_a1_1.xml"), third)

	schemas, err := Export(it, dir, DialectSchema, types.DefaultRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config_a1.schemas"), schemas)

	desk, err := Export(it, dir, DialectDesktop, types.DefaultRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a1.desktop"), desk)

	_, err = Export(it, dir, "yaml", types.DefaultRoot)
	assert.ErrorIs(t, err, types.ErrUnknownDialect)
}

func TestDecodeFileDesktopHint(t *testing.T) {
	dir := t.TempDir()
	path, err := Export(newAction("a1"), dir, DialectDesktop, types.DefaultRoot)
	require.NoError(t, err)

	dialect, recs, err := DecodeFile(path, DialectDesktop, "")
	require.NoError(t, err)
	assert.Equal(t, DialectDesktop, dialect)
	assert.Equal(t, "a1", admitOne(t, recs).ID)
}

func TestIsInterchangeFile(t *testing.T) {
	assert.True(t, IsInterchangeFile("a.XML"))
	assert.True(t, IsInterchangeFile("a.schemas"))
	assert.True(t, IsInterchangeFile("a.desktop"))
	assert.False(t, IsInterchangeFile("a.txt"))
}

func TestDirectoryBackend(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBackend(Options{Dir: dir, Dialect: DialectDump})
	require.NoError(t, err)
	require.NoError(t, b.Open())
	defer b.Close()

	it := newAction("a1")
	require.NoError(t, b.WriteItem(it))
	require.NoError(t, b.WriteItem(newAction("a2")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config_bad.xml"), []byte("<nope"), 0o644))

	items, err := b.ReadItems()
	assert.ErrorIs(t, err, types.ErrParseFailed)
	require.Len(t, items, 2)
	assert.True(t, record.Equal(it, items[0]))
	assert.Equal(t, DialectDump, items[0].Provider)

	require.NoError(t, b.DeleteItem("a1"))
	_, err = b.ReadItem("a1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = NewBackend(Options{Dir: dir, Dialect: DialectDesktop})
	assert.ErrorIs(t, err, types.ErrUnknownDialect)
}

func TestMultiItemDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DialectDump, types.DefaultRoot, newAction("a1"), newAction("a2")))
	assert.Equal(t, 2, strings.Count(buf.String(), "<entrylist "))

	_, recs, err := Decode(buf.Bytes(), "", DialectDump, "")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

const partlyMalformedDump = `<?xml version="1.0"?>
<gconfentryfile>
  <entrylist base="/r/good">
    <entry><key>label</key><value><string>Good</string></value></entry>
  </entrylist>
  <entrylist base="/r/bad">
    <entry><key>label</key><value><string>Bad</string></value></entry>
    <entry><key>bogus/deep/key</key><value><string>v</string></value></entry>
  </entrylist>
</gconfentryfile>
`

func TestDumpSkipsOnlyMalformedItem(t *testing.T) {
	dialect, recs, err := Decode([]byte(partlyMalformedDump), "f.xml", DialectAuto, "")
	assert.Equal(t, DialectDump, dialect)
	require.ErrorIs(t, err, types.ErrMalformedPath)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 8, pe.Line)
	assert.Contains(t, err.Error(), "item bad")

	require.Len(t, recs, 1)
	assert.Equal(t, "good", recs[0].ItemID)
	assert.Equal(t, "Good", recs[0].Item[schema.KeyLabel].Str)
}

func TestSchemaUnknownTypeDropsOnlyItsItem(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DialectSchema, types.DefaultRoot, newAction("a1"), newAction("a2")))
	out := buf.String()
	at := strings.Index(out, "<key>/schemas"+types.DefaultRoot+"/a2/label</key>")
	require.Positive(t, at)
	doc := out[:at] + strings.Replace(out[at:], "<type>string</type>", "<type>complex</type>", 1)

	_, recs, err := Decode([]byte(doc), "x.schemas", DialectSchema, "")
	require.ErrorIs(t, err, types.ErrParseFailed)
	assert.Contains(t, err.Error(), "item a2")
	it := admitOne(t, recs)
	assert.Equal(t, "a1", it.ID)
}

func TestDirectoryBackendKeepsGoodItemsOfDocument(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBackend(Options{Dir: dir, Dialect: DialectDump})
	require.NoError(t, err)
	require.NoError(t, b.Open())
	defer b.Close()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DialectDump, types.DefaultRoot, newAction("a1")))
	doc := strings.Replace(buf.String(), "</gconfentryfile>",
		"  <entrylist base=\"/r/a9\">\n    <entry><key>x/y/z</key><value><string>v</string></value></entry>\n  </entrylist>\n</gconfentryfile>", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config_a1.xml"), []byte(doc), 0o644))

	items, err := b.ReadItems()
	assert.ErrorIs(t, err, types.ErrMalformedPath)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)

	got, err := b.ReadItem("a1")
	require.NoError(t, err)
	assert.True(t, record.Equal(newAction("a1"), got))
}
