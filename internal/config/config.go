// Package config handles loading and saving of the tray configuration.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// DirName is the name of the Gnome15 directory inside the user
	// configuration directory.
	DirName = "gnome15"

	// FileName is the name of the tray configuration file.
	FileName = "tray.yaml"
)

// Config is the configuration of the g15-tray program.
type Config struct {
	// Maximum duration of a single call to the desktop service.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Command that opens the configuration user interface.
	ConfigCommand []string `yaml:"config_command"`

	// Command that starts the desktop service.
	ServiceCommand []string `yaml:"service_command"`

	// Run from a source tree: icons are not installed, and scripts are
	// looked up in ScriptsDir first.
	Dev bool `yaml:"dev"`

	// Directory with uninstalled icons, used in development mode.
	IconsDir string `yaml:"icons_dir"`

	// Directory with uninstalled scripts, used in development mode.
	ScriptsDir string `yaml:"scripts_dir"`

	// Shared desktop component settings file. Empty means the default
	// location.
	SettingsFile string `yaml:"settings_file"`

	// Maximum number of pages listed in the menu.
	MaxPages int `yaml:"max_pages"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		CallTimeout:    5 * time.Second,
		ConfigCommand:  []string{"g15-config"},
		ServiceCommand: []string{"g15-desktop-service", "-f"},
		MaxPages:       10,
	}
}

// Dir returns the path to the Gnome15 configuration directory
// ($XDG_CONFIG_HOME/gnome15/).
func Dir() string {
	return filepath.Join(xdg.ConfigHome, DirName)
}

// DefaultFile returns the path to the tray.yaml file.
func DefaultFile() string {
	return filepath.Join(Dir(), FileName)
}

// Load loads the configuration from path. If the file doesn't exist,
// returns the default configuration. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	cfg, err := LoadYAMLOrDefault(path, New)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the tray cannot work with.
func (c *Config) Validate() error {
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %s", c.CallTimeout)
	}
	if len(c.ConfigCommand) == 0 {
		return fmt.Errorf("config_command must not be empty")
	}
	if len(c.ServiceCommand) == 0 {
		return fmt.Errorf("service_command must not be empty")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be positive, got %d", c.MaxPages)
	}
	return nil
}
