// Package config handles hacheck configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned by FindConfig when no file exists on the
// search path. Callers fall back to Default.
var ErrNoConfig = errors.New("no config file found")

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./hacheck.yaml, ~/.config/hacheck/config.yaml, /etc/hacheck/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"hacheck.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hacheck", "config.yaml"))
	}

	paths = append(paths, "/etc/hacheck/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists,
// or an error wrapping ErrNoConfig.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, DefaultSearchPaths())
}

// Config holds all hacheck configuration.
type Config struct {
	// ConfigDir is the Home Assistant configuration directory checked
	// when no directory is given on the command line.
	ConfigDir     string              `yaml:"config_dir"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`

	// Workers bounds how many files are checked in parallel. Zero means
	// one per CPU.
	Workers   int    `yaml:"workers"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Output    string `yaml:"output"`
}

// HomeAssistantConfig defines the live registry connection.
type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	// LiveRegistry fetches the registries over the WebSocket API instead
	// of reading .storage. The on-disk files remain the fallback.
	LiveRegistry bool `yaml:"live_registry"`
}

// Configured reports whether enough is set to open a connection.
func (h HomeAssistantConfig) Configured() bool {
	return h.URL != "" && h.Token != ""
}

// Load reads a config file. Environment variables in the file are
// expanded before parsing, so tokens can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ConfigDir = ExpandHome(cfg.ConfigDir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory. Paths
// of the form ~user are returned unchanged.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		ConfigDir: "config",
		Workers:   runtime.GOMAXPROCS(0),
		LogLevel:  "warn",
		LogFormat: LogFormatText,
		Output:    "text",
	}
}

// Validate rejects values that cannot work.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative (got %d)", c.Workers)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("log_format must be %q or %q (got %q)", LogFormatText, LogFormatJSON, c.LogFormat)
	}
	if c.HomeAssistant.LiveRegistry && !c.HomeAssistant.Configured() {
		return errors.New("homeassistant.live_registry requires homeassistant.url and homeassistant.token")
	}
	return nil
}
