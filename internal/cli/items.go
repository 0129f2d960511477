package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every action and menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output, formatTable, formatJSON, formatYAML); err != nil {
				return err
			}
			s, closeFn, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer closeFn()

			items := s.Items()
			if output == formatTable {
				writeItemTable(cmd.OutOrStdout(), items)
				return nil
			}
			views := make([]itemView, 0, len(items))
			for _, it := range items {
				views = append(views, newItemView(it))
			}
			return render(cmd.OutOrStdout(), output, views)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display one item with its profiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output, formatJSON, formatYAML); err != nil {
				return err
			}
			s, closeFn, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer closeFn()

			it, err := s.Get(args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, newItemView(it))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatYAML, "output format: yaml or json")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item from its backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := s.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
