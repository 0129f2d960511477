package interchange

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mesh-intelligence/fileractions/internal/keypath"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/version"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// SchemaOwner is written in the owner element of every schema entry.
const SchemaOwner = "fileractions"

const schemasPrefix = "/schemas"

type schemaFile struct {
	XMLName xml.Name    `xml:"gconfschemafile"`
	Lists   []schemaSet `xml:"schemalist"`
}

type schemaSet struct {
	Schemas []schemaEntry `xml:"schema"`
}

type schemaEntry struct {
	Key      string         `xml:"key"`
	ApplyTo  string         `xml:"applyto,omitempty"`
	Owner    string         `xml:"owner,omitempty"`
	Type     string         `xml:"type"`
	ListType string         `xml:"list_type,omitempty"`
	Default  *string        `xml:"default,omitempty"`
	Locale   []schemaLocale `xml:"locale"`
}

type schemaLocale struct {
	Name    string  `xml:"name,attr"`
	Default *string `xml:"default,omitempty"`
	Short   string  `xml:"short,omitempty"`
	Long    string  `xml:"long,omitempty"`
}

// Type names used in the type element.
const (
	typeString = "string"
	typeBool   = "bool"
	typeInt    = "int"
	typeList   = "list"
)

func typeName(k schema.Kind) string {
	switch k {
	case schema.KindBool:
		return typeBool
	case schema.KindUint:
		return typeInt
	case schema.KindList:
		return typeList
	default:
		return typeString
	}
}

func kindOf(typ string) (schema.Kind, bool) {
	switch typ {
	case typeString:
		return schema.KindString, true
	case typeBool:
		return schema.KindBool, true
	case typeInt:
		return schema.KindUint, true
	case typeList:
		return schema.KindList, true
	default:
		return "", false
	}
}

func encodeSchemas(w io.Writer, items []*types.Item, root string) error {
	paths := keypath.New(root)
	set := schemaSet{}
	for _, it := range items {
		r := record.Flatten(it, version.Current)
		for _, d := range schema.ItemDefs() {
			set.Schemas = append(set.Schemas, toSchemaEntry(d, paths.Build(it.ID, "", d.Key), r.Item[d.Key]))
		}
		for _, p := range r.Profiles {
			for _, d := range schema.ProfileDefs() {
				set.Schemas = append(set.Schemas, toSchemaEntry(d, paths.Build(it.ID, p.ID, d.Key), p.Values[d.Key]))
			}
		}
	}
	return writeXML(w, schemaFile{Lists: []schemaSet{set}})
}

func toSchemaEntry(d *schema.Def, applyTo string, v schema.Value) schemaEntry {
	text := schema.FormatText(v)
	e := schemaEntry{
		Key:     schemasPrefix + applyTo,
		ApplyTo: applyTo,
		Owner:   SchemaOwner,
		Type:    typeName(d.Kind),
	}
	if d.Kind == schema.KindList {
		e.ListType = typeString
	}
	loc := schemaLocale{Name: "C", Short: d.Short, Long: d.Long}
	if d.Localizable {
		loc.Default = &text
	} else {
		e.Default = &text
	}
	e.Locale = []schemaLocale{loc}
	return e
}

// decodeSchemas groups schema entries by item. An entry whose key names no
// item is skipped and reported. An entry of unknown type drops its whole
// item; the other items are still returned.
func decodeSchemas(data []byte, file string) ([]*record.Record, error) {
	var doc schemaFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(DialectSchema, file, err)
	}

	var (
		ids  []string
		errs []error
	)
	byID := map[string]*record.Record{}
	failed := map[string]bool{}
	for _, set := range doc.Lists {
		for _, e := range set.Schemas {
			target := e.ApplyTo
			if target == "" {
				target = strings.TrimPrefix(e.Key, schemasPrefix)
			}
			k, err := keypath.ParseTail(target)
			if err != nil {
				errs = append(errs, &types.ParseError{Dialect: DialectSchema, Path: file, Line: lineOf(data, e.Key), Err: err})
				continue
			}
			if failed[k.ItemID] {
				continue
			}
			r := byID[k.ItemID]
			if r == nil {
				r = record.New(k.ItemID)
				byID[k.ItemID] = r
				ids = append(ids, k.ItemID)
			}

			kind, ok := kindOf(e.Type)
			if !ok {
				failed[k.ItemID] = true
				errs = append(errs, &types.ParseError{Dialect: DialectSchema, Path: file, Line: lineOf(data, e.Key),
					Err: fmt.Errorf("item %s: unknown type %q", k.ItemID, e.Type)})
				continue
			}
			text, ok := defaultText(e)
			if !ok {
				continue
			}
			v, ok := schema.ParseText(text, kind)
			if !ok {
				continue
			}
			if k.IsProfile() {
				r.EnsureProfile(k.ProfileID).Values[k.Field] = v
			} else {
				r.Item[k.Field] = v
			}
		}
	}

	var out []*record.Record
	for _, id := range ids {
		if !failed[id] {
			out = append(out, byID[id])
		}
	}
	return out, errors.Join(errs...)
}

// defaultText prefers the default under the schema, then the C locale,
// then any locale.
func defaultText(e schemaEntry) (string, bool) {
	if e.Default != nil {
		return *e.Default, true
	}
	for _, loc := range e.Locale {
		if loc.Name == "C" && loc.Default != nil {
			return *loc.Default, true
		}
	}
	for _, loc := range e.Locale {
		if loc.Default != nil {
			return *loc.Default, true
		}
	}
	return "", false
}
