// Package backend provides the public factory for the persistence
// backends, keeping the implementations internal.
package backend

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/desktop"
	"github.com/mesh-intelligence/fileractions/internal/interchange"
	"github.com/mesh-intelligence/fileractions/internal/kv"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// SystemDesktopName names the read-only backend over Config.DesktopDirs.
const SystemDesktopName = "desktop-system"

// DesktopSubdir is the directory under DataDir holding descriptor files
// when the desktop backend is selected.
const DesktopSubdir = "actions"

// New builds the backends cfg describes, in priority order: the primary
// backend named by cfg.Backend, then a read-only descriptor backend over
// cfg.DesktopDirs when any are configured. The backends are not opened.
//
// Example:
//
//	backends, err := backend.New(types.Config{
//	    Backend: types.BackendKVStore,
//	    DataDir: dataDir,
//	}, log)
func New(cfg types.Config, log *zap.Logger) ([]types.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	var primary types.Backend
	switch cfg.Backend {
	case types.BackendKVStore:
		primary = kv.NewBackend(kv.Options{
			DataDir: cfg.DataDir,
			Root:    cfg.GetRoot(),
			Logger:  log,
		})
	case types.BackendDesktop:
		primary = desktop.NewBackend(desktop.Options{
			Dirs:   []string{filepath.Join(cfg.DataDir, DesktopSubdir)},
			Locale: cfg.Locale,
			Logger: log,
		})
	case types.BackendDump, types.BackendSchema:
		b, err := interchange.NewBackend(interchange.Options{
			Dir:     filepath.Join(cfg.DataDir, cfg.Backend),
			Dialect: cfg.Backend,
			Root:    cfg.GetRoot(),
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		primary = b
	}

	backends := []types.Backend{primary}
	if len(cfg.DesktopDirs) > 0 {
		backends = append(backends, desktop.NewBackend(desktop.Options{
			Name:     SystemDesktopName,
			Dirs:     cfg.DesktopDirs,
			Locale:   cfg.Locale,
			Readonly: true,
			Logger:   log,
		}))
	}
	return backends, nil
}
