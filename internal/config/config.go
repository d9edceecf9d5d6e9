package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sadopc/somnus/internal/store"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath   string `yaml:"db_path"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
	Listen   string `yaml:"listen"`
}

// Environment overrides, applied after the config file.
const (
	EnvDB       = "SOMNUS_DB"
	EnvLogFile  = "SOMNUS_LOG_FILE"
	EnvLogLevel = "SOMNUS_LOG_LEVEL"
	EnvListen   = "SOMNUS_LISTEN"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Default returns the configuration used when nothing is set.
func Default() (Config, error) {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return Config{}, fmt.Errorf("locate config dir: %w", err)
	}
	return Config{
		DBPath:   dbPath,
		LogFile:  filepath.Join(stateDir(), "somnus", "somnus.log"),
		LogLevel: "info",
		Listen:   "127.0.0.1:7420",
	}, nil
}

// DefaultPath returns ~/.config/somnus/config.yaml
func DefaultPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, "somnus", "config.yaml"), nil
}

// Load layers the defaults, the YAML file at path (if it exists), a .env
// file in the working directory (if it exists) and the SOMNUS_*
// environment variables.
func Load(path string) (Config, error) {
	return LoadWith(path, Config{})
}

// LoadWith is Load with a final layer of overrides, typically command-line
// flags. Empty fields in override are ignored.
func LoadWith(path string, override Config) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			var file Config
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.merge(file)
		}
	}

	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg.merge(Config{
		DBPath:   os.Getenv(EnvDB),
		LogFile:  os.Getenv(EnvLogFile),
		LogLevel: os.Getenv(EnvLogLevel),
		Listen:   os.Getenv(EnvListen),
	})
	cfg.merge(override)

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level %q (want debug, info, warn or error)", c.LogLevel)
	}
	return nil
}

// merge overwrites every field that is set in o.
func (c *Config) merge(o Config) {
	if o.DBPath != "" {
		c.DBPath = expandHome(o.DBPath)
	}
	if o.LogFile != "" {
		c.LogFile = expandHome(o.LogFile)
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func stateDir() string {
	if d := os.Getenv("XDG_STATE_HOME"); d != "" {
		return d
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}
	return os.TempDir()
}
