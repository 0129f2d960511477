// Package version detects the schema version of a stored item and maps
// legacy single-profile layouts onto the profile-based model.
//
// Version tokens are compared as raw strings, so "1.10" sorts before "1.2".
// Stored data written by earlier releases relies on that ordering.
package version

import (
	"fmt"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Known version tokens.
const (
	V01 = "0.1"
	V10 = "1.0"
	V11 = "1.1"
	V20 = "2.0"
)

// Current is the token written by every writer.
const Current = V20

// Less reports whether a sorts before b. The comparison is lexicographic.
func Less(a, b string) bool {
	return a < b
}

// AtLeast reports whether v sorts at or after min.
func AtLeast(v, min string) bool {
	return !Less(v, min)
}

// IsLegacy reports whether v uses the single-profile layout. The empty
// token stands for unversioned data.
func IsLegacy(v string) bool {
	return Less(v, V11)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Version string
	Legacy  bool

	// forced holds values overriding whatever the synthesized profile
	// carries, applied after validation.
	forced map[string]schema.Value
}

// Resolve determines the record's version and rewrites the record into the
// profile-based layout:
//
//   - no token and no legacy keys: error wrapping types.ErrVersionUndetermined;
//   - token below "1.1" (or none): legacy keys move into a synthesized
//     default profile;
//   - otherwise profiles come from their own nodes, and the default profile
//     is added as an empty placeholder when absent.
//
// Menus never receive profiles.
func Resolve(r *record.Record) (*Resolution, error) {
	token, hasToken := r.Version()
	legacy := legacyKeysFound(r)
	if token == "" && !legacy {
		return nil, fmt.Errorf("item %s: %w", r.ItemID, types.ErrVersionUndetermined)
	}

	res := &Resolution{Version: token, Legacy: IsLegacy(token)}
	if !hasToken {
		res.Version = ""
	}
	if isMenu(r) {
		r.Profiles = nil
		return res, nil
	}

	if !res.Legacy {
		if r.Profile(types.DefaultProfileID) == nil {
			r.Profiles = append(r.Profiles, &record.Profile{
				ID:          types.DefaultProfileID,
				Values:      map[string]schema.Value{},
				Synthesized: true,
			})
		}
		return res, nil
	}

	p := r.Profile(types.DefaultProfileID)
	if p == nil {
		p = &record.Profile{ID: types.DefaultProfileID, Values: map[string]schema.Value{}, Synthesized: true}
		r.Profiles = append([]*record.Profile{p}, r.Profiles...)
	}
	for _, key := range schema.LegacyKeys() {
		if v, ok := r.Item[key]; ok {
			if _, set := p.Values[key]; !set {
				p.Values[key] = v
			}
			delete(r.Item, key)
		}
	}

	res.forced = map[string]schema.Value{
		schema.KeyDescName: schema.Encode(types.DefaultProfileName, schema.KindLocalized),
	}
	if token == V10 {
		res.forced[schema.KeyMatchCase] = schema.Encode(true, schema.KindBool)
		res.forced[schema.KeyMimetypes] = schema.Encode([]string{"*/*"}, schema.KindList)
	}
	return res, nil
}

// Apply writes the values the version imposes on the synthesized profile.
// It runs after validation so that imposed values never count as found.
func (res *Resolution) Apply(r *record.Record) {
	if len(res.forced) == 0 {
		return
	}
	p := r.Profile(types.DefaultProfileID)
	if p == nil {
		return
	}
	for k, v := range res.forced {
		if k == schema.KeyDescName {
			if _, ok := p.Values[k]; ok {
				continue
			}
		}
		p.Values[k] = v
	}
}

func legacyKeysFound(r *record.Record) bool {
	for _, key := range schema.LegacyKeys() {
		if _, ok := r.Item[key]; ok {
			return true
		}
	}
	return false
}

func isMenu(r *record.Record) bool {
	v, ok := r.Item[schema.KeyType]
	return ok && types.Kind(v.Str) == types.KindMenu
}
