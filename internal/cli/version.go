package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fileractions/internal/version"
)

// Version is the fmactl release.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/fileractions"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fmactl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "fmactl v%s\nmodule: %s\nschema version: %s\n",
				Version, modulePath, version.Current)
			return nil
		},
	}
}
