// Package record defines the transient flattened form of one Item and its
// Profiles. Every backend read produces a Record and every backend write
// consumes one; a Record never outlives the call that built it.
package record

import (
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Record holds the stored values of one item, keyed by storage key.
type Record struct {
	ItemID   string
	Item     map[string]schema.Value
	Profiles []*Profile
}

// Profile holds the stored values of one profile node.
type Profile struct {
	ID     string
	Values map[string]schema.Value

	// Synthesized marks a profile that was not found as a node but created
	// by the reader, either from legacy item-level keys or as the default
	// placeholder.
	Synthesized bool
}

// New returns an empty record for itemID.
func New(itemID string) *Record {
	return &Record{ItemID: itemID, Item: map[string]schema.Value{}}
}

// Empty reports whether nothing at all was found for the item.
func (r *Record) Empty() bool {
	if len(r.Item) > 0 {
		return false
	}
	for _, p := range r.Profiles {
		if len(p.Values) > 0 {
			return false
		}
	}
	return true
}

// Value returns the item-level value stored under key.
func (r *Record) Value(key string) (schema.Value, bool) {
	v, ok := r.Item[key]
	return v, ok
}

// Profile returns the profile record with id, or nil.
func (r *Record) Profile(id string) *Profile {
	for _, p := range r.Profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// EnsureProfile returns the profile record with id, appending an empty one
// when it does not exist yet.
func (r *Record) EnsureProfile(id string) *Profile {
	if p := r.Profile(id); p != nil {
		return p
	}
	p := &Profile{ID: id, Values: map[string]schema.Value{}}
	r.Profiles = append(r.Profiles, p)
	return p
}

// RemoveProfile drops the profile record with id.
func (r *Record) RemoveProfile(id string) {
	out := r.Profiles[:0]
	for _, p := range r.Profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	r.Profiles = out
}

// Version returns the version token stored on the item, if any.
func (r *Record) Version() (string, bool) {
	v, ok := r.Item[schema.KeyVersion]
	if !ok {
		return "", false
	}
	return v.Str, true
}

// Flatten converts it into a record stamped with version. Every defined
// field is present, so writers produce a full overwrite.
func Flatten(it *types.Item, version string) *Record {
	r := New(it.ID)
	for _, d := range schema.ItemDefs() {
		r.Item[d.Key] = d.ItemValue(it)
	}
	r.Item[schema.KeyVersion] = schema.Encode(version, schema.KindString)
	if !it.IsAction() {
		return r
	}
	ids := make([]string, 0, len(it.Profiles))
	for _, p := range it.Profiles {
		pr := r.EnsureProfile(p.ID)
		for _, d := range schema.ProfileDefs() {
			pr.Values[d.Key] = d.ProfileValue(p)
		}
		ids = append(ids, p.ID)
	}
	r.Item[schema.KeyItems] = schema.Encode(ids, schema.KindList)
	return r
}

// Assemble builds an Item from a record that already passed version
// resolution and validation. Missing fields take their defaults. Profiles
// follow the order of the "items" list; profiles not listed keep their
// discovery order after the listed ones.
func Assemble(r *Record, version string) *types.Item {
	it := &types.Item{ID: r.ItemID}
	for _, d := range schema.ItemDefs() {
		if d.Key == schema.KeyVersion {
			continue
		}
		if v, ok := r.Item[d.Key]; ok {
			d.SetItem(it, &v)
		} else {
			d.SetItem(it, nil)
		}
	}
	it.Version = version
	if !it.IsAction() {
		return it
	}

	for _, pr := range orderProfiles(r, it.Children) {
		p := &types.Profile{ID: pr.ID, ActionID: r.ItemID}
		for _, d := range schema.ProfileDefs() {
			if v, ok := pr.Values[d.Key]; ok {
				d.SetProfile(p, &v)
			} else {
				d.SetProfile(p, nil)
			}
		}
		it.Profiles = append(it.Profiles, p)
	}
	it.Children = make([]string, 0, len(it.Profiles))
	for _, p := range it.Profiles {
		it.Children = append(it.Children, p.ID)
	}
	return it
}

func orderProfiles(r *Record, listed []string) []*Profile {
	out := make([]*Profile, 0, len(r.Profiles))
	used := make(map[string]bool, len(r.Profiles))
	for _, id := range listed {
		if p := r.Profile(id); p != nil && !used[id] {
			out = append(out, p)
			used[id] = true
		}
	}
	for _, p := range r.Profiles {
		if !used[p.ID] {
			out = append(out, p)
			used[p.ID] = true
		}
	}
	return out
}

// Equal compares two items field by field through the registry. The
// version token and runtime flags are not compared.
func Equal(a, b *types.Item) bool {
	if a == nil || b == nil {
		return a == b
	}
	ra, rb := Flatten(a, ""), Flatten(b, "")
	if ra.ItemID != rb.ItemID || len(ra.Profiles) != len(rb.Profiles) {
		return false
	}
	if !equalValues(ra.Item, rb.Item) {
		return false
	}
	for i := range ra.Profiles {
		if ra.Profiles[i].ID != rb.Profiles[i].ID || !equalValues(ra.Profiles[i].Values, rb.Profiles[i].Values) {
			return false
		}
	}
	return true
}

func equalValues(a, b map[string]schema.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !schema.Equal(va, vb) {
			return false
		}
	}
	return true
}
