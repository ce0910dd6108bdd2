package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"periph.io/x/devices/v3/ddcci"
)

const (
	appName    = "ddcctl"
	configFile = "config.yaml"
)

// Config is the ddcctl configuration.
type Config struct {
	Bus      string            `yaml:"bus" toml:"bus"`                                 // Default I²C bus name or number
	LogLevel string            `yaml:"log_level,omitempty" toml:"log_level,omitempty"` // Empty for silent
	Strict   bool              `yaml:"strict" toml:"strict"`                           // Treat failed reply checks as errors
	Displays map[string]string `yaml:"displays,omitempty" toml:"displays,omitempty"`   // Nickname to bus
	Aliases  map[string]int    `yaml:"aliases,omitempty" toml:"aliases,omitempty"`     // Name to VCP code
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		Bus:      "",
		Displays: map[string]string{},
		Aliases:  map[string]int{},
	}
}

// GetConfigDir returns the configuration directory for ddcctl.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration at path. An empty path means the default
// location, where a missing file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate rejects aliases that are not VCP codes, shadow a built-in name or
// collide with another alias once case is ignored, and displays without a
// bus. Alias names are stored lower-cased.
func (c *Config) Validate() error {
	aliases := make(map[string]int, len(c.Aliases))
	for name, code := range c.Aliases {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return fmt.Errorf("alias with empty name")
		}
		if code < 0 || code > 0xff {
			return fmt.Errorf("alias %q: code %d out of range", name, code)
		}
		if _, ok := ddcci.LookupCode(key); ok {
			return fmt.Errorf("alias %q shadows a built-in code name", name)
		}
		if _, ok := aliases[key]; ok {
			return fmt.Errorf("alias %q defined more than once", key)
		}
		aliases[key] = code
	}
	c.Aliases = aliases
	for name, bus := range c.Displays {
		if strings.TrimSpace(bus) == "" {
			return fmt.Errorf("display %q has no bus", name)
		}
	}
	return nil
}

// ResolveBus maps a display nickname to its bus. Anything else is returned
// unchanged, falling back to the configured default bus when empty.
func (c *Config) ResolveBus(name string) string {
	if name == "" {
		name = c.Bus
	}
	if bus, ok := c.Displays[name]; ok {
		return bus
	}
	return name
}

// ResolveCode maps an alias, a built-in code name or a number to a VCP code.
func (c *Config) ResolveCode(s string) (byte, error) {
	if code, ok := c.Aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return byte(code), nil
	}
	return ddcci.ParseCode(s)
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
