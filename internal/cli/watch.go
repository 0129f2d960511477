package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fileractions/pkg/store"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print item changes as they happen",
		Long: `Watch keeps the store open and prints one line per added, changed or
removed item until interrupted. Changes made by other programs are seen
when the "watch" configuration setting is on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			s, closeFn, err := a.openStore(a.cfg.Watch)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			unsubscribe := s.Subscribe(func(ev types.Event) {
				label := ""
				if ev.Item != nil {
					label = ev.Item.Label
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", ev.Kind, ev.ItemID, label)
			})
			defer unsubscribe()

			fmt.Fprintf(out, "watching %d items\n", len(s.Items()))
			return s.Run(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", store.DefaultWatchInterval, "polling and debounce interval")
	return cmd
}
