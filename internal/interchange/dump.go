package interchange

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/mesh-intelligence/fileractions/internal/keypath"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/version"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

type dumpFile struct {
	XMLName xml.Name    `xml:"gconfentryfile"`
	Lists   []entryList `xml:"entrylist"`
}

type entryList struct {
	Base    string  `xml:"base,attr"`
	Entries []entry `xml:"entry"`
}

type entry struct {
	Key   string     `xml:"key"`
	Value entryValue `xml:"value"`
}

type entryValue struct {
	String *string   `xml:"string,omitempty"`
	Bool   *string   `xml:"bool,omitempty"`
	Int    *string   `xml:"int,omitempty"`
	List   *listNode `xml:"list,omitempty"`
}

type listNode struct {
	Type   string      `xml:"type,attr"`
	Values []listValue `xml:"value"`
}

type listValue struct {
	String string `xml:"string"`
}

func encodeDump(w io.Writer, items []*types.Item, root string) error {
	paths := keypath.New(root)
	doc := dumpFile{}
	for _, it := range items {
		r := record.Flatten(it, version.Current)
		list := entryList{Base: paths.ItemDir(it.ID)}
		for _, d := range schema.ItemDefs() {
			list.Entries = append(list.Entries, entry{Key: d.Key, Value: toEntryValue(r.Item[d.Key])})
		}
		for _, p := range r.Profiles {
			for _, d := range schema.ProfileDefs() {
				list.Entries = append(list.Entries, entry{
					Key:   keypath.ProfilePrefix + p.ID + keypath.Separator + d.Key,
					Value: toEntryValue(p.Values[d.Key]),
				})
			}
		}
		doc.Lists = append(doc.Lists, list)
	}
	return writeXML(w, doc)
}

// decodeDump returns the records of every well-formed entry list. An entry
// list with a bad base or a malformed key is left out and reported; the
// others are still returned.
func decodeDump(data []byte, file string) ([]*record.Record, error) {
	var doc dumpFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(DialectDump, file, err)
	}
	var (
		out  []*record.Record
		errs []error
	)
	for _, list := range doc.Lists {
		r, err := decodeEntryList(list, data, file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}

func decodeEntryList(list entryList, data []byte, file string) (*record.Record, error) {
	id := path.Base(list.Base)
	if !keypath.ValidID(id) || list.Base == "" {
		return nil, &types.ParseError{Dialect: DialectDump, Path: file, Line: lineOf(data, list.Base),
			Err: fmt.Errorf("%w: entrylist base %q", types.ErrMalformedPath, list.Base)}
	}
	r := record.New(id)
	for _, e := range list.Entries {
		k, err := keypath.ParseRelative(id, e.Key)
		if err != nil {
			return nil, &types.ParseError{Dialect: DialectDump, Path: file, Line: lineOf(data, e.Key),
				Err: fmt.Errorf("item %s: %w", id, err)}
		}
		v, ok := fromEntryValue(e.Value)
		if !ok {
			continue
		}
		if k.IsProfile() {
			r.EnsureProfile(k.ProfileID).Values[k.Field] = v
		} else {
			r.Item[k.Field] = v
		}
	}
	return r, nil
}

func toEntryValue(v schema.Value) entryValue {
	switch v.Kind {
	case schema.KindBool:
		s := strconv.FormatBool(v.Bool)
		return entryValue{Bool: &s}
	case schema.KindUint:
		s := strconv.FormatUint(uint64(v.Uint), 10)
		return entryValue{Int: &s}
	case schema.KindList:
		l := &listNode{Type: "string", Values: []listValue{}}
		for _, s := range v.List {
			l.Values = append(l.Values, listValue{String: s})
		}
		return entryValue{List: l}
	default:
		s := v.Str
		return entryValue{String: &s}
	}
}

// fromEntryValue converts a parsed value. Unreadable scalars are dropped so
// that the field counts as absent.
func fromEntryValue(ev entryValue) (schema.Value, bool) {
	switch {
	case ev.List != nil:
		list := make([]string, 0, len(ev.List.Values))
		for _, lv := range ev.List.Values {
			list = append(list, lv.String)
		}
		return schema.Value{Kind: schema.KindList, List: list}, true
	case ev.Bool != nil:
		return schema.ParseText(*ev.Bool, schema.KindBool)
	case ev.Int != nil:
		return schema.ParseText(*ev.Int, schema.KindUint)
	case ev.String != nil:
		return schema.Value{Kind: schema.KindString, Str: *ev.String}, true
	default:
		return schema.Value{}, false
	}
}
