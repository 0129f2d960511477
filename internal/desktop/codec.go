// Package desktop stores Items as descriptor files: one INI-syntax file
// named "<id>.desktop" per Item, with a "[Desktop Entry]" group for the
// Item and one "[X-Action-Profile <id>]" group per Profile.
//
// Descriptor files carry no version token; they are read as version 2.0.
// Every profile key but the command path is optional and takes its
// default when omitted.
package desktop

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-ini/ini"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/version"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Dialect names the format in parse errors and import hints.
const Dialect = "desktop"

// Ext is the descriptor file extension.
const Ext = ".desktop"

const (
	entryGroup    = "Desktop Entry"
	profilePrefix = "X-Action-Profile "
	menuItemsKey  = "ItemsList"
)

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:      true,
	IgnoreContinuation:       true,
	PreserveSurroundedQuote:  true,
	KeyValueDelimiters:       "=",
	KeyValueDelimiterOnWrite: "=",
}

// Decode parses one descriptor file into a raw record for itemID. Keys of
// localizable fields are looked up for locale first, then for its
// language, then unlocalized. path only labels parse errors.
func Decode(itemID, path string, data []byte, locale string) (*record.Record, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, &types.ParseError{Dialect: Dialect, Path: path, Err: err}
	}
	entry, err := f.GetSection(entryGroup)
	if err != nil {
		return nil, &types.ParseError{Dialect: Dialect, Path: path, Line: 1, Err: fmt.Errorf("missing [%s] group", entryGroup)}
	}

	r := record.New(itemID)
	r.Item[schema.KeyVersion] = schema.Encode(version.V20, schema.KindString)

	menu := entry.HasKey("Type") && entry.Key("Type").Value() == string(types.KindMenu)
	for _, d := range schema.ItemDefs() {
		key := desktopKey(d, menu)
		if key == "" {
			continue
		}
		if v, ok := lookup(entry, key, d, locale); ok {
			r.Item[d.Key] = v
		}
	}
	// Only the label is required in descriptor files.
	for _, k := range []string{schema.KeyTooltip, schema.KeyIcon} {
		if _, ok := r.Item[k]; !ok {
			r.Item[k] = schema.Encode("", schema.KindLocalized)
		}
	}

	if menu {
		return r, nil
	}
	for _, sec := range f.Sections() {
		pid, ok := strings.CutPrefix(sec.Name(), profilePrefix)
		if !ok || pid == "" {
			continue
		}
		p := r.EnsureProfile(pid)
		for _, d := range schema.ProfileDefs() {
			if v, ok := lookup(sec, d.DesktopKey, d, locale); ok {
				p.Values[d.Key] = v
			} else if d.Key != schema.KeyPath {
				p.Values[d.Key] = d.DefaultRepr()
			}
		}
	}
	return r, nil
}

// Encode writes it as a descriptor file.
func Encode(w io.Writer, it *types.Item) error {
	f := ini.Empty(loadOptions)
	r := record.Flatten(it, version.Current)
	menu := !it.IsAction()

	entry, err := f.NewSection(entryGroup)
	if err != nil {
		return err
	}
	for _, d := range schema.ItemDefs() {
		key := desktopKey(d, menu)
		if key == "" {
			continue
		}
		if _, err := entry.NewKey(key, formatValue(r.Item[d.Key])); err != nil {
			return err
		}
	}
	for _, p := range r.Profiles {
		sec, err := f.NewSection(profilePrefix + p.ID)
		if err != nil {
			return err
		}
		for _, d := range schema.ProfileDefs() {
			if _, err := sec.NewKey(d.DesktopKey, formatValue(p.Values[d.Key])); err != nil {
				return err
			}
		}
	}
	return write(w, f)
}

// write emits each group as a "[name]" line followed by unpadded
// "key=value" lines.
func write(w io.Writer, f *ini.File) error {
	bw := bufio.NewWriter(w)
	first := true
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		if !first {
			bw.WriteByte('\n')
		}
		first = false
		fmt.Fprintf(bw, "[%s]\n", sec.Name())
		for _, k := range sec.Keys() {
			fmt.Fprintf(bw, "%s=%s\n", k.Name(), quoteValue(k.Value()))
		}
	}
	return bw.Flush()
}

// quoteValue protects values the go-ini reader would otherwise take for a
// quoted string.
func quoteValue(v string) string {
	if strings.HasPrefix(v, "`") || strings.HasPrefix(v, `"""`) {
		return `"""` + v + `"""`
	}
	return v
}

// EncodeBytes is Encode into memory.
func EncodeBytes(it *types.Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func desktopKey(d *schema.Def, menu bool) string {
	if d.Key == schema.KeyItems && menu {
		return menuItemsKey
	}
	return d.DesktopKey
}

func lookup(sec *ini.Section, key string, d *schema.Def, locale string) (schema.Value, bool) {
	if d.Localizable {
		for _, loc := range localeChain(locale) {
			if k := key + "[" + loc + "]"; sec.HasKey(k) {
				return parseValue(sec.Key(k).Value(), d.Kind)
			}
		}
	}
	if !sec.HasKey(key) {
		return schema.Value{}, false
	}
	return parseValue(sec.Key(key).Value(), d.Kind)
}

// localeChain expands "fr_FR.UTF-8@euro" to "fr_FR@euro", "fr_FR",
// "fr@euro", "fr".
func localeChain(locale string) []string {
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		if j := strings.IndexByte(locale[i:], '@'); j >= 0 {
			locale = locale[:i] + locale[i+j:]
		} else {
			locale = locale[:i]
		}
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return nil
	}
	base, modifier, hasMod := strings.Cut(locale, "@")
	lang, _, hasCountry := strings.Cut(base, "_")

	var out []string
	if hasCountry && hasMod {
		out = append(out, base+"@"+modifier)
	}
	if hasCountry {
		out = append(out, base)
	}
	if hasMod {
		out = append(out, lang+"@"+modifier)
	}
	return append(out, lang)
}

// parseValue never fails on content: unreadable booleans and numbers are
// reported as absent so the field takes its default.
func parseValue(raw string, kind schema.Kind) (schema.Value, bool) {
	switch kind {
	case schema.KindList:
		return schema.Value{Kind: kind, List: splitList(raw)}, true
	case schema.KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return schema.Value{}, false
		}
		return schema.Value{Kind: kind, Bool: b}, true
	case schema.KindUint:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
		if err != nil {
			return schema.Value{}, false
		}
		return schema.Value{Kind: kind, Uint: uint(n)}, true
	default:
		return schema.Value{Kind: kind, Str: unescape(raw)}, true
	}
}

func formatValue(v schema.Value) string {
	switch v.Kind {
	case schema.KindList:
		return joinList(v.List)
	case schema.KindBool:
		return strconv.FormatBool(v.Bool)
	case schema.KindUint:
		return strconv.FormatUint(uint64(v.Uint), 10)
	default:
		return escape(v.Str, false)
	}
}

func escape(s string, inList bool) string {
	var b strings.Builder
	for i, c := range s {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == ';' && inList:
			b.WriteString(`\;`)
		case c == ' ' && (i == 0 || i == len(s)-1):
			b.WriteString(`\s`)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 's':
			b.WriteByte(' ')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', ';':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func joinList(list []string) string {
	var b strings.Builder
	for _, s := range list {
		b.WriteString(escape(s, true))
		b.WriteByte(';')
	}
	return b.String()
}

// splitList splits on unescaped semicolons. The trailing separator is
// optional.
func splitList(raw string) []string {
	out := []string{}
	var cur strings.Builder
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == '\\' && i+1 < len(raw):
			cur.WriteByte(raw[i])
			cur.WriteByte(raw[i+1])
			i++
		case raw[i] == ';':
			out = append(out, unescape(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(raw[i])
		}
	}
	if cur.Len() > 0 {
		out = append(out, unescape(cur.String()))
	}
	return out
}
