// Package config loads fileractions settings from config.yaml in the
// configuration directory, an optional .env file beside it, and FMA_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/fileractions/internal/logger"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envFileName    = ".env"

	// EnvPrefix prefixes every environment override, e.g. FMA_BACKEND or
	// FMA_LOG_LEVEL.
	EnvPrefix = "FMA"
)

// Config keys.
const (
	KeyBackend     = "backend"
	KeyDataDir     = "data_dir"
	KeyRoot        = "root"
	KeyLocale      = "locale"
	KeyDesktopDirs = "desktop_dirs"
	KeyWatch       = "watch"
	KeyLogLevel    = "log.level"
	KeyLogFormat   = "log.format"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# fileractions configuration

# Primary backend: kvstore, desktop, dump or schema.
backend: kvstore

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Locale used for localized labels in descriptor files, e.g. fr_FR.
# locale:

# Extra read-only descriptor directories, highest priority first.
# desktop_dirs:
#   - /usr/share/file-manager/actions

# Observe changes made by other programs.
watch: true

log:
  level: info
  format: console
`

// Config is the loaded configuration.
type Config struct {
	types.Config `mapstructure:",squash"`

	Log logger.Config `mapstructure:"log"`
}

// Load reads the configuration from configDir. It creates the directory
// and a default config.yaml on first run. A missing .env file is not an
// error.
func Load(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}
	if err := godotenv.Load(filepath.Join(configDir, envFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFileName, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Path returns the config.yaml path inside configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, configFileExt)
}

// setDefaults registers every key, which also makes AutomaticEnv see it.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, types.BackendKVStore)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyRoot, "")
	v.SetDefault(KeyLocale, "")
	v.SetDefault(KeyDesktopDirs, []string{})
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeyLogLevel, logger.DefaultLevel)
	v.SetDefault(KeyLogFormat, logger.DefaultFormat)
}

func ensureDefaultConfigFile(configDir string) error {
	path := Path(configDir)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
