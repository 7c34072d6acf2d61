package g15desktop

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/shelepuginivan/g15desktop/internal/config"
)

// SettingsFileName is the name of the desktop component settings file.
const SettingsFileName = "desktop.yaml"

// Settings are global options shared by all desktop components.
type Settings struct {
	// Only show the indicator when the service needs attention.
	IndicateOnlyOnError bool `yaml:"indicate_only_on_error"`
}

// DefaultSettingsFile returns the path of the settings file in the user
// configuration directory, e.g. ~/.config/gnome15/desktop.yaml.
func DefaultSettingsFile() string {
	return filepath.Join(xdg.ConfigHome, config.DirName, SettingsFileName)
}

// LoadSettings reads settings from path. A missing file yields default
// settings.
func LoadSettings(path string) (Settings, error) {
	settings, err := config.LoadYAMLOrDefault(path, func() *Settings { return &Settings{} })
	if err != nil {
		return Settings{}, err
	}

	return *settings, nil
}

// SaveSettings writes settings to path, creating parent directories.
func SaveSettings(path string, settings Settings) error {
	return config.SaveYAML(path, settings)
}
