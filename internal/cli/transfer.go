package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fileractions/internal/interchange"
	"github.com/mesh-intelligence/fileractions/pkg/store"
)

func newImportCmd(a *app) *cobra.Command {
	var format, policy string
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import items from interchange or descriptor files",
		Long: `Import reads every file and stores the items it declares.

A file that cannot be parsed is reported and skipped; the remaining files
are still imported. When an imported id is already in use the policy
decides: renumber gives the imported item a fresh id, override replaces
the existing item, reject skips it.

Example:
  fmactl import config_a1.xml
  fmactl import --format desktop --policy override open-terminal.desktop`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParsePolicy(policy)
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := s.ImportFiles(args, format, p)
			out := cmd.OutOrStdout()
			for _, res := range results {
				fmt.Fprintf(out, "%s (%s): %d imported", res.Path, res.Dialect, len(res.Imported))
				if len(res.Rejected) > 0 {
					fmt.Fprintf(out, ", %d rejected", len(res.Rejected))
				}
				fmt.Fprintln(out)
				olds := make([]string, 0, len(res.Renumbered))
				for old := range res.Renumbered {
					olds = append(olds, old)
				}
				sort.Strings(olds)
				for _, old := range olds {
					fmt.Fprintf(out, "  %s renumbered to %s\n", old, res.Renumbered[old])
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", interchange.DialectAuto, "input format: auto, dump, schema or desktop")
	cmd.Flags().StringVar(&policy, "policy", string(store.PolicyReject), "id conflict policy: renumber, override or reject")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format, dir string
	cmd := &cobra.Command{
		Use:   "export <id>...",
		Short: "Export items to interchange or descriptor files",
		Long: `Export writes each item into the target directory. Existing files are
never overwritten: a numeric suffix is appended instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := interchange.Ext(format); err != nil {
				return err
			}
			s, closeFn, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer closeFn()

			for _, id := range args {
				path, err := s.ExportItem(id, dir, format)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", interchange.DialectDump, "output format: dump, schema or desktop")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "target directory")
	return cmd
}
