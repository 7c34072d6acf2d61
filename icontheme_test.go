package g15desktop

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

func touch(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

// setXDGEnv sets XDG base directory variables for the duration of the test.
func setXDGEnv(t *testing.T, env map[string]string) {
	t.Helper()

	// Registered first, so it runs after the variables are restored.
	t.Cleanup(xdg.Reload)

	for key, value := range env {
		t.Setenv(key, value)
	}

	xdg.Reload()
}

func TestIconPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "hicolor", "128x128", "apps", "logitech-g19.png"))
	touch(t, filepath.Join(dir, "hicolor", "scalable", "apps", "logitech-g19.svg"))
	touch(t, filepath.Join(dir, "hicolor", "scalable", "apps", "gnome15.svg"))
	touch(t, filepath.Join(dir, "hicolor", "22x22", "status", "g15-error.png"))
	touch(t, filepath.Join(dir, "plain.png"))

	tests := []struct {
		name  string
		theme *IconTheme
		icon  string
		want  string
	}{
		{"installed", NewIconTheme(dir, false), "gnome15", "gnome15"},
		{"prefers 128px", NewIconTheme(dir, true), "logitech-g19", filepath.Join(dir, "hicolor", "128x128", "apps", "logitech-g19.png")},
		{"scalable", NewIconTheme(dir, true), "gnome15", filepath.Join(dir, "hicolor", "scalable", "apps", "gnome15.svg")},
		{"any size", NewIconTheme(dir, true), "g15-error", filepath.Join(dir, "hicolor", "22x22", "status", "g15-error.png")},
		{"root", NewIconTheme(dir, true), "plain", filepath.Join(dir, "plain.png")},
		{"missing", NewIconTheme(dir, true), "missing", "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.theme.IconPath(tt.icon); got != tt.want {
				t.Errorf("IconPath(%q) = %q, want %q", tt.icon, got, tt.want)
			}
		})
	}
}

func TestIconThemeSearchPaths(t *testing.T) {
	dir := t.TempDir()
	setXDGEnv(t, map[string]string{
		"XDG_DATA_HOME": "/data/home",
		"XDG_DATA_DIRS": "/a:/b",
	})

	paths := NewIconTheme(dir, true).SearchPaths()
	if len(paths) == 0 || paths[0] != dir {
		t.Fatalf("SearchPaths() = %v, want %s first", paths, dir)
	}

	for _, want := range []string{"/data/home/icons", "/a/icons", "/b/icons"} {
		found := false
		for _, path := range paths {
			if path == want {
				found = true
			}
		}

		if !found {
			t.Errorf("SearchPaths() = %v, missing %s", paths, want)
		}
	}

	for _, path := range NewIconTheme(dir, false).SearchPaths() {
		if path == dir {
			t.Error("icons directory is searched outside development mode")
		}
	}
}

func TestIconThemeGTKDir(t *testing.T) {
	setXDGEnv(t, map[string]string{"XDG_CONFIG_HOME": "/home/user/.config"})

	theme := NewIconTheme("", false)
	if !theme.matches("/home/user/.config/gtk-3.0/settings.ini") || theme.matches("/home/user/.config/gtk-3.0/bookmarks") {
		t.Errorf("GTK settings are not tracked in %s", theme.gtkDir)
	}
}

func TestIconThemeMatches(t *testing.T) {
	theme := &IconTheme{gtkDir: "/home/user/.config/gtk-3.0"}

	tests := []struct {
		path string
		want bool
	}{
		{"/home/user/.config/gtk-3.0/settings.ini", true},
		{"/home/user/.config/gtk-3.0/bookmarks", false},
		{"/usr/share/icons/hicolor/index.theme", true},
	}

	for _, tt := range tests {
		if got := theme.matches(tt.path); got != tt.want {
			t.Errorf("matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFindIcon(t *testing.T) {
	dir := t.TempDir()
	setXDGEnv(t, map[string]string{
		"XDG_DATA_HOME": t.TempDir(),
		"XDG_DATA_DIRS": dir,
	})

	want := filepath.Join(dir, "icons", "hicolor", "128x128", "apps", "gnome15.png")
	touch(t, want)
	touch(t, filepath.Join(dir, "icons", "hicolor", "22x22", "apps", "gnome15.png"))

	theme := NewIconTheme("", false)

	got, err := theme.FindIcon("gnome15")
	if err != nil {
		t.Fatalf("FindIcon() error = %v", err)
	}

	if got != want {
		t.Errorf("FindIcon() = %q, want %q", got, want)
	}

	if _, err := theme.FindIcon("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("FindIcon(missing) error = %v, want %v", err, fs.ErrNotExist)
	}
}
