// Package cli implements the fmactl command-line interface, a thin front
// end over pkg/store.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/config"
	"github.com/mesh-intelligence/fileractions/internal/logger"
	"github.com/mesh-intelligence/fileractions/internal/paths"
	"github.com/mesh-intelligence/fileractions/pkg/backend"
	"github.com/mesh-intelligence/fileractions/pkg/store"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	locale    string
}

// app carries the flags and the loaded configuration of one invocation.
type app struct {
	flags rootFlags
	cfg   *config.Config
	log   *zap.Logger
}

// NewRootCmd creates the top-level "fmactl" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fmactl",
		Short: "Manage file manager actions and menus",
		Long: "fmactl lists, imports, exports and deletes the actions and menus\n" +
			"stored in the configured backends.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/fileractions)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/fileractions)")
	root.PersistentFlags().StringVar(&a.flags.backend, "backend", "", "primary backend: kvstore, desktop, dump or schema")
	root.PersistentFlags().StringVar(&a.flags.locale, "locale", "", "locale for localized labels")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newWatchCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fmactl:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// load reads the configuration and applies the global flags on top.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.flags.backend != "" {
		cfg.Backend = a.flags.backend
	}
	if a.flags.locale != "" {
		cfg.Locale = a.flags.locale
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return userError{fmt.Errorf("invalid config: %w", err)}
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg, a.log = cfg, log
	return nil
}

// openStore builds, opens and loads the store. Items that fail to load
// are logged and skipped. The caller must call the returned close
// function.
func (a *app) openStore(watch bool) (*store.Store, func(), error) {
	if err := a.load(); err != nil {
		return nil, nil, err
	}
	backends, err := backend.New(a.cfg.Config, a.log)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(store.Options{
		Backends: backends,
		Root:     a.cfg.GetRoot(),
		Locale:   a.cfg.Locale,
		Logger:   a.log,
		Watch:    watch,
	})
	if err := s.Open(); err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Load(); err != nil {
		a.log.Warn("some items could not be loaded", zap.Error(err))
	}
	closeFn := func() {
		if err := s.Close(); err != nil {
			a.log.Error("closing store", zap.Error(err))
		}
		_ = a.log.Sync()
	}
	return s, closeFn, nil
}
