// Package config loads settings from defaults, an optional config file,
// and MINVCS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MINVCS"

	// EnvConfigFile names an explicit config file.
	EnvConfigFile = "MINVCS_CONFIG"

	// FileName is the config file looked for in the metadata directory.
	FileName = "config.yaml"
)

// Config describes the settings of a repository and the CLI.
type Config struct {
	Author           string        `mapstructure:"author" yaml:"author"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level"`
	CompressionLevel int           `mapstructure:"compression_level" yaml:"compression_level"`
	CacheSize        int           `mapstructure:"cache_size" yaml:"cache_size"`
	Lock             bool          `mapstructure:"lock" yaml:"lock"`
	LockWait         time.Duration `mapstructure:"lock_wait" yaml:"lock_wait"`
	MountDebug       bool          `mapstructure:"mount_debug" yaml:"mount_debug"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

func defaultAuthor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// Load reads the configuration for the repository in root. The config file
// is taken from MINVCS_CONFIG when set, otherwise from
// <root>/<metaDir>/config.yaml when present. An empty root skips the
// repository file.
func Load(fs afero.Fs, root, metaDir string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault("author", defaultAuthor())
	v.SetDefault("log_level", "info")
	v.SetDefault("compression_level", 1)
	v.SetDefault("cache_size", 256)
	v.SetDefault("lock", true)
	v.SetDefault("lock_wait", 10*time.Second)
	v.SetDefault("mount_debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv() // read in environment variables that match

	file := os.Getenv(EnvConfigFile)
	if file == "" && root != "" {
		candidate := filepath.Join(root, metaDir, FileName)
		if _, err := fs.Stat(candidate); err == nil {
			file = candidate
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file

	if strings.Contains(cfg.Author, "\n") {
		return nil, fmt.Errorf("author %q contains a newline", cfg.Author)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("cache_size must be positive, got %d", cfg.CacheSize)
	}
	if cfg.LockWait < 0 {
		return nil, fmt.Errorf("lock_wait must not be negative, got %s", cfg.LockWait)
	}
	return &cfg, nil
}
