package schema

import (
	"strconv"
	"strings"
)

// Kind is the value kind of a field.
type Kind string

// Value kinds.
const (
	KindString    Kind = "string"
	KindLocalized Kind = "localized-string"
	KindBool      Kind = "boolean"
	KindList      Kind = "string-list"
	KindUint      Kind = "uint"
)

// Value is the backend-neutral representation of one stored field.
// Exactly one of the payload fields is meaningful, chosen by Kind.
type Value struct {
	Kind Kind
	Str  string
	Bool bool
	List []string
	Uint uint
}

// Encode converts a Go value of the given kind into a Value. Values of the
// wrong Go type encode as the zero Value of the kind.
func Encode(v any, kind Kind) Value {
	out := Value{Kind: kind}
	switch kind {
	case KindString, KindLocalized:
		out.Str, _ = v.(string)
	case KindBool:
		out.Bool, _ = v.(bool)
	case KindUint:
		out.Uint, _ = v.(uint)
	case KindList:
		if l, ok := v.([]string); ok {
			out.List = append([]string{}, l...)
		} else {
			out.List = []string{}
		}
	}
	return out
}

// Decode returns the Go value held by repr for the given kind. It never
// fails: a nil or mismatched repr yields def.
func Decode(repr *Value, kind Kind, def any) any {
	if repr == nil || !compatible(repr.Kind, kind) {
		return def
	}
	switch kind {
	case KindString, KindLocalized:
		return repr.Str
	case KindBool:
		return repr.Bool
	case KindUint:
		return repr.Uint
	case KindList:
		return append([]string{}, repr.List...)
	}
	return def
}

func compatible(have, want Kind) bool {
	if have == want {
		return true
	}
	return (have == KindString && want == KindLocalized) || (have == KindLocalized && want == KindString)
}

// FormatText renders v in the textual form shared by the interchange
// dialects: booleans as "true"/"false", lists as "[a,b,c]".
func FormatText(v Value) string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindUint:
		return strconv.FormatUint(uint64(v.Uint), 10)
	case KindList:
		return FormatList(v.List)
	default:
		return v.Str
	}
}

// ParseText parses s as the textual form of kind. The boolean result is
// false when s is malformed for the kind.
func ParseText(s string, kind Kind) (Value, bool) {
	out := Value{Kind: kind}
	switch kind {
	case KindBool:
		switch s {
		case "true":
			out.Bool = true
		case "false":
		default:
			return out, false
		}
	case KindUint:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 0)
		if err != nil {
			return out, false
		}
		out.Uint = uint(n)
	case KindList:
		l, ok := ParseList(s)
		if !ok {
			return out, false
		}
		out.List = l
	default:
		out.Str = s
	}
	return out, true
}

// FormatList renders a list as "[a,b,c]" with no quoting and no trailing
// comma; the empty list is "[]".
func FormatList(l []string) string {
	return "[" + strings.Join(l, ",") + "]"
}

// ParseList parses the bracketed form produced by FormatList. Elements are
// split on every comma.
func ParseList(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, false
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return []string{}, true
	}
	return strings.Split(inner, ","), true
}

// Equal reports whether two values carry the same payload. Nil and empty
// lists are equal.
func Equal(a, b Value) bool {
	if !compatible(a.Kind, b.Kind) {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindUint:
		return a.Uint == b.Uint
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if a.List[i] != b.List[i] {
				return false
			}
		}
		return true
	default:
		return a.Str == b.Str
	}
}
