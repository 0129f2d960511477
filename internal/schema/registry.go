package schema

import (
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Owner says which entity a field belongs to.
type Owner int

// Field owners.
const (
	OwnerItem Owner = iota
	OwnerProfile
)

// Storage keys. KV paths, dump entries and schema applyto paths use them as
// the last path segment.
const (
	KeyVersion          = "version"
	KeyType             = "type"
	KeyLabel            = "label"
	KeyTooltip          = "tooltip"
	KeyIcon             = "icon"
	KeyEnabled          = "enabled"
	KeyItems            = "items"
	KeyTargetToolbar    = "target-toolbar"
	KeyTargetBackground = "target-background"
	KeyIVersion         = "iversion"
	KeyDescName         = "desc-name"
	KeyPath             = "path"
	KeyParameters       = "parameters"
	KeyBasenames        = "basenames"
	KeyMatchCase        = "matchcase"
	KeyMimetypes        = "mimetypes"
	KeyIsFile           = "isfile"
	KeyIsDir            = "isdir"
	KeyMultiple         = "accept-multiple-files"
	KeySchemes          = "schemes"
	KeyFolders          = "folders"
)

// Def is one field definition. Defs are immutable and shared process-wide.
type Def struct {
	ID          string
	Key         string
	DesktopKey  string // Empty when the field is not stored in descriptor files.
	Kind        Kind
	Default     any
	Localizable bool
	Owner       Owner
	Since       string // First version token carrying the field.
	Short       string
	Long        string

	item    func(*types.Item) any
	setItem func(*types.Item, any)
	prof    func(*types.Profile) any
	setProf func(*types.Profile, any)
}

// ItemValue returns the field's current value on it.
func (d *Def) ItemValue(it *types.Item) Value {
	return Encode(d.item(it), d.Kind)
}

// SetItem decodes repr into it, falling back to the default.
func (d *Def) SetItem(it *types.Item, repr *Value) {
	d.setItem(it, Decode(repr, d.Kind, d.DefaultValue()))
}

// ProfileValue returns the field's current value on p.
func (d *Def) ProfileValue(p *types.Profile) Value {
	return Encode(d.prof(p), d.Kind)
}

// SetProfile decodes repr into p, falling back to the default.
func (d *Def) SetProfile(p *types.Profile, repr *Value) {
	d.setProf(p, Decode(repr, d.Kind, d.DefaultValue()))
}

// DefaultValue returns a fresh copy of the default.
func (d *Def) DefaultValue() any {
	if l, ok := d.Default.([]string); ok {
		return append([]string{}, l...)
	}
	return d.Default
}

// DefaultRepr returns the default as a Value.
func (d *Def) DefaultRepr() Value {
	return Encode(d.DefaultValue(), d.Kind)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func list(v any) []string {
	l, _ := v.([]string)
	return l
}

func unsigned(v any) uint {
	n, _ := v.(uint)
	return n
}

// The version field is read by the version resolver and never assembled
// into the model through SetItem; its accessors keep the table uniform.
var itemDefs = []*Def{
	{
		ID: "version", Key: KeyVersion, Kind: KindString, Default: "", Owner: OwnerItem,
		Short: "Schema version", Long: "Version token of the layout the item was written with.",
		item:    func(it *types.Item) any { return it.Version },
		setItem: func(it *types.Item, v any) { it.Version = str(v) },
	},
	{
		ID: "type", Key: KeyType, DesktopKey: "Type", Kind: KindString, Default: string(types.KindAction),
		Owner: OwnerItem, Since: "2.0",
		Short: "Item type", Long: "Either Action or Menu.",
		item: func(it *types.Item) any { return string(it.Kind) },
		setItem: func(it *types.Item, v any) {
			if types.Kind(str(v)) == types.KindMenu {
				it.Kind = types.KindMenu
			} else {
				it.Kind = types.KindAction
			}
		},
	},
	{
		ID: "label", Key: KeyLabel, DesktopKey: "Name", Kind: KindLocalized, Default: "", Localizable: true,
		Owner: OwnerItem, Since: "0.1",
		Short: "Label", Long: "Label displayed in the context menu.",
		item:    func(it *types.Item) any { return it.Label },
		setItem: func(it *types.Item, v any) { it.Label = str(v) },
	},
	{
		ID: "tooltip", Key: KeyTooltip, DesktopKey: "Tooltip", Kind: KindLocalized, Default: "", Localizable: true,
		Owner: OwnerItem, Since: "0.1",
		Short: "Tooltip", Long: "Tooltip displayed in the status bar when the item is hovered.",
		item:    func(it *types.Item) any { return it.Tooltip },
		setItem: func(it *types.Item, v any) { it.Tooltip = str(v) },
	},
	{
		ID: "icon", Key: KeyIcon, DesktopKey: "Icon", Kind: KindLocalized, Default: "", Localizable: true,
		Owner: OwnerItem, Since: "0.1",
		Short: "Icon", Long: "Themed icon name or path of the icon file.",
		item:    func(it *types.Item) any { return it.Icon },
		setItem: func(it *types.Item, v any) { it.Icon = str(v) },
	},
	{
		ID: "enabled", Key: KeyEnabled, DesktopKey: "Enabled", Kind: KindBool, Default: true,
		Owner: OwnerItem, Since: "2.0",
		Short: "Enabled", Long: "Whether the item is displayed.",
		item:    func(it *types.Item) any { return it.Enabled },
		setItem: func(it *types.Item, v any) { it.Enabled = boolean(v) },
	},
	{
		ID: "items", Key: KeyItems, DesktopKey: "Profiles", Kind: KindList, Default: []string{},
		Owner: OwnerItem, Since: "2.0",
		Short: "Children", Long: "Ordered profile ids of an action, or sub-item ids of a menu.",
		item:    func(it *types.Item) any { return it.Children },
		setItem: func(it *types.Item, v any) { it.Children = list(v) },
	},
	{
		ID: "target-toolbar", Key: KeyTargetToolbar, DesktopKey: "TargetToolbar", Kind: KindBool, Default: false,
		Owner: OwnerItem, Since: "2.0",
		Short: "Toolbar target", Long: "Whether the action is also displayed in the toolbar.",
		item:    func(it *types.Item) any { return it.TargetToolbar },
		setItem: func(it *types.Item, v any) { it.TargetToolbar = boolean(v) },
	},
	{
		ID: "target-background", Key: KeyTargetBackground, DesktopKey: "TargetBackground", Kind: KindBool, Default: false,
		Owner: OwnerItem, Since: "2.0",
		Short: "Background target", Long: "Whether the item is displayed in the folder background menu.",
		item:    func(it *types.Item) any { return it.TargetBackground },
		setItem: func(it *types.Item, v any) { it.TargetBackground = boolean(v) },
	},
	{
		ID: "iversion", Key: KeyIVersion, DesktopKey: "X-Iversion", Kind: KindUint, Default: uint(3),
		Owner: OwnerItem, Since: "2.0",
		Short: "Internal version", Long: "Numeric revision of the on-disk layout.",
		item:    func(it *types.Item) any { return it.IVersion },
		setItem: func(it *types.Item, v any) { it.IVersion = unsigned(v) },
	},
}

var profileDefs = []*Def{
	{
		ID: "desc-name", Key: KeyDescName, DesktopKey: "Name", Kind: KindLocalized, Default: "", Localizable: true,
		Owner: OwnerProfile, Since: "1.1",
		Short: "Profile name", Long: "Display name of the profile.",
		prof:    func(p *types.Profile) any { return p.Name },
		setProf: func(p *types.Profile, v any) { p.Name = str(v) },
	},
	{
		ID: "path", Key: KeyPath, DesktopKey: "Exec", Kind: KindString, Default: "",
		Owner: OwnerProfile, Since: "0.1",
		Short: "Command path", Long: "Path of the command to execute.",
		prof:    func(p *types.Profile) any { return p.Path },
		setProf: func(p *types.Profile, v any) { p.Path = str(v) },
	},
	{
		ID: "parameters", Key: KeyParameters, DesktopKey: "Parameters", Kind: KindString, Default: "",
		Owner: OwnerProfile, Since: "0.1",
		Short: "Parameters", Long: "Argument template passed to the command.",
		prof:    func(p *types.Profile) any { return p.Parameters },
		setProf: func(p *types.Profile, v any) { p.Parameters = str(v) },
	},
	{
		ID: "basenames", Key: KeyBasenames, DesktopKey: "Basenames", Kind: KindList, Default: []string{"*"},
		Owner: OwnerProfile, Since: "0.1",
		Short: "Basenames", Long: "Patterns matched against the basename of selected files.",
		prof:    func(p *types.Profile) any { return p.Basenames },
		setProf: func(p *types.Profile, v any) { p.Basenames = list(v) },
	},
	{
		ID: "matchcase", Key: KeyMatchCase, DesktopKey: "Matchcase", Kind: KindBool, Default: true,
		Owner: OwnerProfile, Since: "1.1",
		Short: "Case sensitive", Long: "Whether basename patterns are matched case-sensitively.",
		prof:    func(p *types.Profile) any { return p.MatchCase },
		setProf: func(p *types.Profile, v any) { p.MatchCase = boolean(v) },
	},
	{
		ID: "mimetypes", Key: KeyMimetypes, DesktopKey: "MimeTypes", Kind: KindList, Default: []string{"*/*"},
		Owner: OwnerProfile, Since: "1.1",
		Short: "Mimetypes", Long: "Patterns matched against the mimetype of selected files.",
		prof:    func(p *types.Profile) any { return p.Mimetypes },
		setProf: func(p *types.Profile, v any) { p.Mimetypes = list(v) },
	},
	{
		ID: "isfile", Key: KeyIsFile, DesktopKey: "IsFile", Kind: KindBool, Default: true,
		Owner: OwnerProfile, Since: "0.1",
		Short: "Accepts files", Long: "Whether the profile applies to files.",
		prof:    func(p *types.Profile) any { return p.IsFile },
		setProf: func(p *types.Profile, v any) { p.IsFile = boolean(v) },
	},
	{
		ID: "isdir", Key: KeyIsDir, DesktopKey: "IsDir", Kind: KindBool, Default: false,
		Owner: OwnerProfile, Since: "0.1",
		Short: "Accepts folders", Long: "Whether the profile applies to folders.",
		prof:    func(p *types.Profile) any { return p.IsDir },
		setProf: func(p *types.Profile, v any) { p.IsDir = boolean(v) },
	},
	{
		ID: "accept-multiple-files", Key: KeyMultiple, DesktopKey: "AcceptMultiple", Kind: KindBool, Default: false,
		Owner: OwnerProfile, Since: "0.1",
		Short: "Multiple selection", Long: "Whether the profile applies when several files are selected.",
		prof:    func(p *types.Profile) any { return p.AcceptMultiple },
		setProf: func(p *types.Profile, v any) { p.AcceptMultiple = boolean(v) },
	},
	{
		ID: "schemes", Key: KeySchemes, DesktopKey: "Schemes", Kind: KindList, Default: []string{"file"},
		Owner: OwnerProfile, Since: "0.1",
		Short: "Schemes", Long: "URI schemes the selected files must be in.",
		prof:    func(p *types.Profile) any { return p.Schemes },
		setProf: func(p *types.Profile, v any) { p.Schemes = list(v) },
	},
	{
		ID: "folders", Key: KeyFolders, DesktopKey: "Folders", Kind: KindList, Default: []string{"/"},
		Owner: OwnerProfile, Since: "2.0",
		Short: "Folders", Long: "Folder patterns for background menu targets.",
		prof:    func(p *types.Profile) any { return p.Folders },
		setProf: func(p *types.Profile, v any) { p.Folders = list(v) },
	},
}

var byKey = func() map[Owner]map[string]*Def {
	m := map[Owner]map[string]*Def{OwnerItem: {}, OwnerProfile: {}}
	for _, d := range itemDefs {
		m[OwnerItem][d.Key] = d
	}
	for _, d := range profileDefs {
		m[OwnerProfile][d.Key] = d
	}
	return m
}()

// ItemDefs returns the item-level definitions in table order.
func ItemDefs() []*Def { return itemDefs }

// ProfileDefs returns the profile-level definitions in table order.
func ProfileDefs() []*Def { return profileDefs }

// Lookup returns the definition for key under owner.
func Lookup(owner Owner, key string) (*Def, bool) {
	d, ok := byKey[owner][key]
	return d, ok
}

// LegacyKeys lists the profile keys that releases before 1.1 stored directly
// on the item node.
func LegacyKeys() []string {
	return []string{
		KeyPath, KeyParameters, KeyBasenames, KeyMatchCase, KeyMimetypes,
		KeyIsFile, KeyIsDir, KeyMultiple, KeySchemes,
	}
}

// NewProfile returns a profile carrying every default value.
func NewProfile(id, actionID string) *types.Profile {
	p := &types.Profile{ID: id, ActionID: actionID}
	for _, d := range profileDefs {
		d.SetProfile(p, nil)
	}
	return p
}

// NewItem returns an item of the given kind carrying every default value.
// Actions receive the default profile.
func NewItem(id string, kind types.Kind) *types.Item {
	it := &types.Item{ID: id}
	for _, d := range itemDefs {
		d.SetItem(it, nil)
	}
	it.Kind = kind
	if kind == types.KindAction {
		p := NewProfile(types.DefaultProfileID, id)
		p.Name = types.DefaultProfileName
		it.Profiles = []*types.Profile{p}
		it.Children = []string{p.ID}
	}
	return it
}
