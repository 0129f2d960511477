package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml, then create the storage of the primary backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s backend in %s (%d items)\n",
				a.cfg.Backend, a.cfg.DataDir, len(s.Items()))
			return nil
		},
	}
}
