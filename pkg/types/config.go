// Package types defines the Item/Profile model, the Backend interface, and
// standard errors for the fileractions configuration layer.
package types

import "errors"

// Config holds backend selection and parameters for the Store.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Root is the KV path under which item nodes live.
	Root string `json:"root" yaml:"root" mapstructure:"root"`

	// Locale selects localized label/tooltip variants in descriptor and
	// schema files. Empty means the unlocalized value.
	Locale string `json:"locale" yaml:"locale" mapstructure:"locale"`

	// DesktopDirs lists extra read-only descriptor directories, lowest
	// priority last.
	DesktopDirs []string `json:"desktop_dirs" yaml:"desktop_dirs" mapstructure:"desktop_dirs"`

	// Watch makes long-running commands observe changes made by other
	// programs.
	Watch bool `json:"watch" yaml:"watch" mapstructure:"watch"`
}

// Supported backend names.
const (
	BackendKVStore = "kvstore"
	BackendDesktop = "desktop"
	BackendDump    = "dump"
	BackendSchema  = "schema"
)

// DefaultRoot is the KV path holding one node per item.
const DefaultRoot = "/apps/filemanager-actions/configurations"

// LegacyRoot is the root written by the oldest releases; the path parser
// accepts it as an alias of DefaultRoot.
const LegacyRoot = "/apps/nautilus-actions/configurations"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrRootInvalid    = errors.New("root must be an absolute path without trailing slash")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendKVStore: true,
	BackendDesktop: true,
	BackendDump:    true,
	BackendSchema:  true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Root != "" {
		if c.Root[0] != '/' || (len(c.Root) > 1 && c.Root[len(c.Root)-1] == '/') {
			return ErrRootInvalid
		}
	}
	return nil
}

// GetRoot returns Root, or DefaultRoot when unset.
func (c Config) GetRoot() string {
	if c.Root == "" {
		return DefaultRoot
	}
	return c.Root
}
