// Package validate checks that a resolved record carries every mandatory
// field for its version, and admits complete records as Items.
package validate

import (
	"fmt"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/internal/version"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

var itemMandatory = []string{schema.KeyLabel, schema.KeyTooltip, schema.KeyIcon}

var legacyMandatory = []string{
	schema.KeyBasenames, schema.KeyIsFile, schema.KeyIsDir, schema.KeyMultiple, schema.KeySchemes,
}

var v11Mandatory = append(append([]string{}, legacyMandatory...), schema.KeyMatchCase, schema.KeyMimetypes)

var v20Mandatory = append(append([]string{}, v11Mandatory...), schema.KeyPath)

// ItemMandatory returns the item-level keys every item must carry.
func ItemMandatory() []string {
	return append([]string{}, itemMandatory...)
}

// ProfileMandatory returns the profile keys required at version v.
func ProfileMandatory(v string) []string {
	var keys []string
	switch {
	case version.AtLeast(v, version.V20):
		keys = v20Mandatory
	case version.AtLeast(v, version.V11):
		keys = v11Mandatory
	default:
		keys = legacyMandatory
	}
	return append([]string{}, keys...)
}

// Check verifies a record already rewritten by version.Resolve.
//
// A synthesized profile with no value at all is removed from the record
// without being reported. Any other profile missing a mandatory key makes
// the whole item fail with a *types.IncompleteProfileError naming every
// missing key of every incomplete profile. Actions left without any
// profile fail with types.ErrNoValidProfile.
func Check(r *record.Record, v string) error {
	if missing := missingKeys(r.Item, itemMandatory); len(missing) > 0 {
		return &types.MissingItemFieldError{ItemID: r.ItemID, Missing: missing}
	}
	if isMenu(r) {
		return nil
	}

	for _, p := range append([]*record.Profile{}, r.Profiles...) {
		if p.Synthesized && len(p.Values) == 0 {
			r.RemoveProfile(p.ID)
		}
	}

	required := ProfileMandatory(v)
	incomplete := map[string][]string{}
	for _, p := range r.Profiles {
		if missing := missingKeys(p.Values, required); len(missing) > 0 {
			incomplete[p.ID] = missing
		}
	}
	if len(incomplete) > 0 {
		return &types.IncompleteProfileError{ItemID: r.ItemID, Version: v, Missing: incomplete}
	}
	if len(r.Profiles) == 0 {
		return fmt.Errorf("item %s: %w", r.ItemID, types.ErrNoValidProfile)
	}
	return nil
}

// Admit runs the full read pipeline on a raw record: version resolution,
// completeness checking, version-imposed values and assembly. The record
// is consumed.
func Admit(r *record.Record) (*types.Item, error) {
	res, err := version.Resolve(r)
	if err != nil {
		return nil, err
	}
	if err := Check(r, res.Version); err != nil {
		return nil, err
	}
	res.Apply(r)
	return record.Assemble(r, res.Version), nil
}

func missingKeys(values map[string]schema.Value, keys []string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := values[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func isMenu(r *record.Record) bool {
	v, ok := r.Item[schema.KeyType]
	return ok && types.Kind(v.Str) == types.KindMenu
}
