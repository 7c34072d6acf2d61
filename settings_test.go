package g15desktop

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings != (Settings{}) {
		t.Errorf("LoadSettings() = %+v, want defaults", settings)
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gnome15", SettingsFileName)

	if err := SaveSettings(path, Settings{IndicateOnlyOnError: true}); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if !settings.IndicateOnlyOnError {
		t.Error("IndicateOnlyOnError was not persisted")
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFileName)
	if err := os.WriteFile(path, []byte("indicate_only_on_error: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("LoadSettings() of invalid YAML succeeded")
	}
}

func TestDefaultSettingsFile(t *testing.T) {
	setXDGEnv(t, map[string]string{"XDG_CONFIG_HOME": "/home/user/.config"})

	if got, want := DefaultSettingsFile(), "/home/user/.config/gnome15/desktop.yaml"; got != want {
		t.Errorf("DefaultSettingsFile() = %q, want %q", got, want)
	}
}
