// Package interchange reads and writes Items in the portable formats used
// for import and export: the dump dialect (an entry list per item), the
// schema dialect (one schema entry per field) and descriptor files.
package interchange

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/fileractions/internal/desktop"
	"github.com/mesh-intelligence/fileractions/internal/fsutil"
	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Dialects. DialectAuto is only valid as a read hint.
const (
	DialectAuto    = "auto"
	DialectDump    = types.BackendDump
	DialectSchema  = types.BackendSchema
	DialectDesktop = desktop.Dialect
)

// Ext returns the file extension written for dialect.
func Ext(dialect string) (string, error) {
	switch dialect {
	case DialectDump:
		return ".xml", nil
	case DialectSchema:
		return ".schemas", nil
	case DialectDesktop:
		return desktop.Ext, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownDialect, dialect)
	}
}

// BaseName returns the file name, without extension, used for id.
func BaseName(id, dialect string) string {
	if dialect == DialectDesktop {
		return id
	}
	return "config_" + id
}

// Decode parses data as the hinted dialect. With DialectAuto the dump
// dialect is tried first, then the schema dialect. file labels errors and
// gives descriptor files their item id. A document whose items are only
// partly malformed yields the well-formed records together with the error.
func Decode(data []byte, file, hint, locale string) (string, []*record.Record, error) {
	switch hint {
	case DialectDump:
		recs, err := decodeDump(data, file)
		return DialectDump, recs, err
	case DialectSchema:
		recs, err := decodeSchemas(data, file)
		return DialectSchema, recs, err
	case DialectDesktop:
		id, ok := fsutil.IDFromName(file, desktop.Ext)
		if !ok {
			return DialectDesktop, nil, &types.ParseError{Dialect: DialectDesktop, Path: file,
				Err: fmt.Errorf("%w: file name does not end in %s", types.ErrInvalidID, desktop.Ext)}
		}
		r, err := desktop.Decode(id, file, data, locale)
		if err != nil {
			return DialectDesktop, nil, err
		}
		return DialectDesktop, []*record.Record{r}, nil
	case DialectAuto, "":
		return decodeAuto(data, file)
	default:
		return "", nil, fmt.Errorf("%w: %q", types.ErrUnknownDialect, hint)
	}
}

func decodeAuto(data []byte, file string) (string, []*record.Record, error) {
	switch rootElement(data) {
	case "gconfentryfile":
		recs, err := decodeDump(data, file)
		return DialectDump, recs, err
	case "gconfschemafile":
		recs, err := decodeSchemas(data, file)
		return DialectSchema, recs, err
	}
	// Neither root matched: report what the dump reader makes of it.
	if _, err := decodeDump(data, file); err != nil {
		return "", nil, err
	}
	return "", nil, &types.ParseError{Dialect: DialectAuto, Path: file, Line: 1, Err: types.ErrUnknownDialect}
}

// DecodeFile reads and decodes one file.
func DecodeFile(path, hint, locale string) (string, []*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data, path, hint, locale)
}

// Encode writes items in dialect. Dump and schema documents may hold
// several items; descriptor files hold exactly one.
func Encode(w io.Writer, dialect, root string, items ...*types.Item) error {
	switch dialect {
	case DialectDump:
		return encodeDump(w, items, root)
	case DialectSchema:
		return encodeSchemas(w, items, root)
	case DialectDesktop:
		if len(items) != 1 {
			return fmt.Errorf("descriptor files hold one item, got %d", len(items))
		}
		return desktop.Encode(w, items[0])
	default:
		return fmt.Errorf("%w: %q", types.ErrUnknownDialect, dialect)
	}
}

// Export writes it into folder under its conventional name, appending _0,
// _1, ... when the name is taken. It returns the path written.
func Export(it *types.Item, folder, dialect, root string) (string, error) {
	ext, err := Ext(dialect)
	if err != nil {
		return "", err
	}
	path := fsutil.UniquePath(folder, BaseName(it.ID, dialect), ext)
	err = fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, dialect, root, it)
	})
	if err != nil {
		return "", &types.WriteError{Backend: dialect, ItemID: it.ID, Err: err}
	}
	return path, nil
}

func writeXML(w io.Writer, doc any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// rootElement returns the local name of the first element, or "".
func rootElement(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

func parseError(dialect, file string, err error) error {
	pe := &types.ParseError{Dialect: dialect, Path: file, Err: err}
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		pe.Line = syn.Line
	} else {
		pe.Line = 1
	}
	return pe
}

// lineOf returns the 1-based line of the first occurrence of needle, or 0.
func lineOf(data []byte, needle string) int {
	if needle == "" {
		return 0
	}
	i := bytes.Index(data, []byte(needle))
	if i < 0 {
		return 0
	}
	return bytes.Count(data[:i], []byte("\n")) + 1
}

// IsInterchangeFile reports whether name carries an interchange extension.
func IsInterchangeFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml", ".schemas", desktop.Ext:
		return true
	}
	return false
}
