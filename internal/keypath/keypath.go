// Package keypath composes and decomposes the hierarchical paths under which
// item and profile fields are stored:
//
//	<root>/<item-id>/<field-key>
//	<root>/<item-id>/<profile-prefix><profile-id>/<field-key>
package keypath

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Separator splits path segments.
const Separator = "/"

// ProfilePrefix marks the segment that names a profile node.
const ProfilePrefix = "profile-"

// Key is the decomposed form of a field path. ProfileID is empty for item
// fields.
type Key struct {
	ItemID    string
	ProfileID string
	Field     string
}

// IsProfile reports whether the key addresses a profile field.
func (k Key) IsProfile() bool {
	return k.ProfileID != ""
}

// Builder builds and parses paths under one root. Aliases are extra roots
// accepted by Parse, never produced by Build.
type Builder struct {
	Root    string
	Aliases []string
}

// New returns a Builder for root that also accepts the legacy root.
func New(root string) Builder {
	b := Builder{Root: root}
	if root != types.LegacyRoot {
		b.Aliases = []string{types.LegacyRoot}
	}
	return b
}

// Build returns the path of field for the item, or for the profile when
// profileID is non-empty.
func (b Builder) Build(itemID, profileID, field string) string {
	if profileID == "" {
		return b.Root + Separator + itemID + Separator + field
	}
	return b.Root + Separator + itemID + Separator + ProfilePrefix + profileID + Separator + field
}

// ItemDir returns the node path of an item.
func (b Builder) ItemDir(itemID string) string {
	return b.Root + Separator + itemID
}

// ProfileDir returns the node path of a profile.
func (b Builder) ProfileDir(itemID, profileID string) string {
	return b.ItemDir(itemID) + Separator + ProfilePrefix + profileID
}

// Parse decomposes path. The three-segment profile form is tried before
// the two-segment item form. Returns an error wrapping
// types.ErrMalformedPath when path is outside every root or has the wrong
// shape.
func (b Builder) Parse(path string) (Key, error) {
	tail, ok := b.trimRoot(path)
	if !ok {
		return Key{}, fmt.Errorf("%w: %q is not under %s", types.ErrMalformedPath, path, b.Root)
	}
	segs := strings.Split(tail, Separator)
	for _, s := range segs {
		if s == "" {
			return Key{}, fmt.Errorf("%w: %q has an empty segment", types.ErrMalformedPath, path)
		}
	}
	switch len(segs) {
	case 3:
		if !strings.HasPrefix(segs[1], ProfilePrefix) || len(segs[1]) == len(ProfilePrefix) {
			return Key{}, fmt.Errorf("%w: %q: %q is not a profile node", types.ErrMalformedPath, path, segs[1])
		}
		return Key{ItemID: segs[0], ProfileID: strings.TrimPrefix(segs[1], ProfilePrefix), Field: segs[2]}, nil
	case 2:
		return Key{ItemID: segs[0], Field: segs[1]}, nil
	default:
		return Key{}, fmt.Errorf("%w: %q has %d segments below the root", types.ErrMalformedPath, path, len(segs))
	}
}

// ItemID extracts the item id from any path at or below an item node.
func (b Builder) ItemID(path string) (string, bool) {
	tail, ok := b.trimRoot(path)
	if !ok || tail == "" {
		return "", false
	}
	id, _, _ := strings.Cut(tail, Separator)
	return id, id != ""
}

// ProfileID returns the profile id named by a node segment.
func ProfileID(segment string) (string, bool) {
	if !strings.HasPrefix(segment, ProfilePrefix) || len(segment) == len(ProfilePrefix) {
		return "", false
	}
	return strings.TrimPrefix(segment, ProfilePrefix), true
}

// ValidID reports whether id can be used as a path segment.
func ValidID(id string) bool {
	return id != "" && !strings.Contains(id, Separator) && id != "." && id != ".."
}

func (b Builder) trimRoot(path string) (string, bool) {
	for _, root := range append([]string{b.Root}, b.Aliases...) {
		if strings.HasPrefix(path, root+Separator) {
			return path[len(root)+1:], true
		}
	}
	return "", false
}

// ParseRelative decomposes a path relative to an item node, either
// "<field>" or "<profile-prefix><profile-id>/<field>".
func ParseRelative(itemID, rel string) (Key, error) {
	segs := strings.Split(strings.Trim(rel, Separator), Separator)
	switch {
	case len(segs) == 1 && segs[0] != "":
		return Key{ItemID: itemID, Field: segs[0]}, nil
	case len(segs) == 2 && segs[1] != "":
		pid, ok := ProfileID(segs[0])
		if !ok {
			return Key{}, fmt.Errorf("%w: %q: %q is not a profile node", types.ErrMalformedPath, rel, segs[0])
		}
		return Key{ItemID: itemID, ProfileID: pid, Field: segs[1]}, nil
	default:
		return Key{}, fmt.Errorf("%w: relative key %q", types.ErrMalformedPath, rel)
	}
}

// ParseTail decomposes an absolute path whose root is unknown, looking
// only at its last segments. Interchange files written under another root
// are read through it.
func ParseTail(path string) (Key, error) {
	segs := strings.Split(strings.Trim(path, Separator), Separator)
	n := len(segs)
	if n >= 3 {
		if pid, ok := ProfileID(segs[n-2]); ok && segs[n-3] != "" && segs[n-1] != "" {
			return Key{ItemID: segs[n-3], ProfileID: pid, Field: segs[n-1]}, nil
		}
	}
	if n >= 2 && segs[n-2] != "" && segs[n-1] != "" {
		return Key{ItemID: segs[n-2], Field: segs[n-1]}, nil
	}
	return Key{}, fmt.Errorf("%w: %q", types.ErrMalformedPath, path)
}
