package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var reasonText = map[int]string{
	types.ReasonWritable:         "writable",
	types.ReasonItemReadonly:     "item is read-only",
	types.ReasonProviderReadonly: "provider is read-only",
	types.ReasonNoProvider:       "no writable provider",
}

type itemView struct {
	ID               string        `json:"id" yaml:"id"`
	Type             string        `json:"type" yaml:"type"`
	Label            string        `json:"label" yaml:"label"`
	Tooltip          string        `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Icon             string        `json:"icon,omitempty" yaml:"icon,omitempty"`
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	TargetToolbar    bool          `json:"target_toolbar" yaml:"target_toolbar"`
	TargetBackground bool          `json:"target_background" yaml:"target_background"`
	Items            []string      `json:"items,omitempty" yaml:"items,omitempty"`
	Version          string        `json:"version" yaml:"version"`
	Provider         string        `json:"provider" yaml:"provider"`
	Writable         string        `json:"writable" yaml:"writable"`
	Profiles         []profileView `json:"profiles,omitempty" yaml:"profiles,omitempty"`
}

type profileView struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Path           string   `json:"path" yaml:"path"`
	Parameters     string   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Basenames      []string `json:"basenames" yaml:"basenames,flow"`
	MatchCase      bool     `json:"matchcase" yaml:"matchcase"`
	Mimetypes      []string `json:"mimetypes" yaml:"mimetypes,flow"`
	IsFile         bool     `json:"isfile" yaml:"isfile"`
	IsDir          bool     `json:"isdir" yaml:"isdir"`
	AcceptMultiple bool     `json:"accept_multiple" yaml:"accept_multiple"`
	Schemes        []string `json:"schemes" yaml:"schemes,flow"`
	Folders        []string `json:"folders" yaml:"folders,flow"`
}

func newItemView(it *types.Item) itemView {
	v := itemView{
		ID:               it.ID,
		Type:             string(it.Kind),
		Label:            it.Label,
		Tooltip:          it.Tooltip,
		Icon:             it.Icon,
		Enabled:          it.Enabled,
		TargetToolbar:    it.TargetToolbar,
		TargetBackground: it.TargetBackground,
		Version:          it.Version,
		Provider:         it.Provider,
		Writable:         reasonText[it.Reason],
	}
	if !it.IsAction() {
		v.Items = it.Children
	}
	for _, p := range it.Profiles {
		v.Profiles = append(v.Profiles, profileView{
			ID:             p.ID,
			Name:           p.Name,
			Path:           p.Path,
			Parameters:     p.Parameters,
			Basenames:      p.Basenames,
			MatchCase:      p.MatchCase,
			Mimetypes:      p.Mimetypes,
			IsFile:         p.IsFile,
			IsDir:          p.IsDir,
			AcceptMultiple: p.AcceptMultiple,
			Schemes:        p.Schemes,
			Folders:        p.Folders,
		})
	}
	return v
}

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if f == format {
			return nil
		}
	}
	return userError{fmt.Errorf("unsupported output format: %q (valid: %s)", format, strings.Join(allowed, ", "))}
}

// render writes v as JSON or YAML.
func render(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
}

// writeItemTable lists items one per row.
func writeItemTable(w io.Writer, items []*types.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, text.FgYellow.Sprint("no items"))
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "TYPE", "LABEL", "PROFILES", "PROVIDER", "WRITABLE"})
	for _, it := range items {
		writable := "yes"
		if !it.Writable {
			writable = "no"
		}
		t.AppendRow(table.Row{it.ID, it.Kind, it.Label, len(it.Profiles), it.Provider, writable})
	}
	t.Render()
}
