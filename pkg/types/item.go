package types

// Kind discriminates the two Item variants.
type Kind string

// Item kinds as written in the "type" field.
const (
	KindAction Kind = "Action"
	KindMenu   Kind = "Menu"
)

// Writable reason codes reported in Item.Reason.
const (
	ReasonWritable         = 0
	ReasonItemReadonly     = 1
	ReasonProviderReadonly = 2
	ReasonNoProvider       = 3
)

// DefaultProfileID is the id of the profile synthesized for legacy
// single-profile items and for Actions created without a profile.
const DefaultProfileID = "main"

// DefaultProfileName is the display name of the synthesized profile.
const DefaultProfileName = "Default profile"

// Item is a top-level configured entity: an Action or a Menu.
// The Store owns every Item; callers receive copies.
type Item struct {
	ID               string   // Stable identifier, immutable once assigned.
	Kind             Kind     // Action or Menu.
	Label            string   // Display label (locale-resolved).
	Tooltip          string   // Tooltip text (locale-resolved).
	Icon             string   // Icon name or path.
	Enabled          bool     // Whether the item is shown at all.
	Children         []string // Profile ids (Action) or sub-item ids (Menu), ordered.
	TargetToolbar    bool     // Also shown in the file manager toolbar.
	TargetBackground bool     // Also shown in the folder background menu.
	IVersion         uint     // Internal layout revision.
	Version          string   // Schema version token the item was read at.

	// Profiles holds the Action's profiles in Children order. Always empty
	// for Menus.
	Profiles []*Profile

	// Runtime state, never persisted.
	Readonly bool   // Set by read-only providers.
	Writable bool   // Whether an update can be persisted.
	Reason   int    // One of the Reason constants.
	Provider string // Name of the backend the item was read from.
}

// Profile is one command plus match-predicate variant of an Action.
type Profile struct {
	ID             string   // Unique within the owning Action.
	ActionID       string   // Id of the owning Action.
	Name           string   // Display name (locale-resolved).
	Path           string   // Command path.
	Parameters     string   // Argument template.
	Basenames      []string // Basename match patterns.
	MatchCase      bool     // Whether basename matching is case-sensitive.
	Mimetypes      []string // Mimetype patterns.
	IsFile         bool     // Accepts files.
	IsDir          bool     // Accepts folders.
	AcceptMultiple bool     // Accepts a multiple selection.
	Schemes        []string // URI scheme patterns.
	Folders        []string // Background folder patterns.
}

// IsAction reports whether the item is an Action.
func (it *Item) IsAction() bool {
	return it.Kind != KindMenu
}

// Profile returns the profile with the given id, or nil.
func (it *Item) Profile(id string) *Profile {
	for _, p := range it.Profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Clone returns a deep copy of the item and its profiles.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	c := *it
	c.Children = cloneStrings(it.Children)
	c.Profiles = make([]*Profile, 0, len(it.Profiles))
	for _, p := range it.Profiles {
		c.Profiles = append(c.Profiles, p.Clone())
	}
	return &c
}

// SetID assigns a new id to the item and rewrites every profile's
// back-reference to it.
func (it *Item) SetID(id string) {
	it.ID = id
	for _, p := range it.Profiles {
		p.ActionID = id
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Basenames = cloneStrings(p.Basenames)
	c.Mimetypes = cloneStrings(p.Mimetypes)
	c.Schemes = cloneStrings(p.Schemes)
	c.Folders = cloneStrings(p.Folders)
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
