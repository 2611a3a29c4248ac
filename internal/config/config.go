package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/georgeharker/sharedserver/internal/ui"
	"gopkg.in/yaml.v3"
)

// Config holds resolved defaults for lock directory, grace period, and
// logging. Precedence, low to high: built-in defaults, config file,
// environment variables, CLI flags (flags are applied by callers after
// Load returns).
type Config struct {
	LockDir          string `yaml:"lock_dir"`
	DefaultGrace     string `yaml:"grace_period"`
	LogDir           string `yaml:"log_dir"`
	DisableUpdateCheck bool `yaml:"disable_update_check"`
}

// Defaults returns the built-in configuration before any file or
// environment overrides are applied.
func Defaults() Config {
	return Config{
		LockDir:      "",
		DefaultGrace: "5m",
		LogDir:       "",
	}
}

// configFilePath resolves the optional YAML config file location:
// $SHAREDSERVER_CONFIG, else ~/.config/sharedserver/config.yaml.
func configFilePath() string {
	if v := os.Getenv("SHAREDSERVER_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sharedserver", "config.yaml")
}

// Load resolves Config from defaults, then an optional YAML file, then
// environment variables. A missing or unreadable config file is silently
// ignored (it is optional); a malformed one is reported via WarnIfBadConfig.
func Load() Config {
	cfg := Defaults()

	if path := configFilePath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var fileCfg Config
			if yaml.Unmarshal(data, &fileCfg) == nil {
				mergeNonEmpty(&cfg, fileCfg)
			} else {
				lastConfigErr = path
			}
		}
	}

	if v := os.Getenv("SHAREDSERVER_LOCKDIR"); v != "" {
		cfg.LockDir = v
	}
	if v := os.Getenv("SHAREDSERVER_GRACE_PERIOD"); v != "" {
		cfg.DefaultGrace = v
	}
	if v := os.Getenv("SHAREDSERVER_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}

	return cfg
}

func mergeNonEmpty(dst *Config, src Config) {
	if src.LockDir != "" {
		dst.LockDir = src.LockDir
	}
	if src.DefaultGrace != "" {
		dst.DefaultGrace = src.DefaultGrace
	}
	if src.LogDir != "" {
		dst.LogDir = src.LogDir
	}
	if src.DisableUpdateCheck {
		dst.DisableUpdateCheck = true
	}
}

var lastConfigErr string

// warnedOnce guards the one-time malformed-config-file warning per process.
var warnedOnce sync.Once

// WarnIfBadConfig prints a one-time stderr warning if the config file at
// configFilePath() failed to parse during Load.
func WarnIfBadConfig(p ui.Printer) {
	if lastConfigErr == "" {
		return
	}
	warnedOnce.Do(func() {
		p.Warn("Ignoring malformed config file: " + lastConfigErr)
	})
}
