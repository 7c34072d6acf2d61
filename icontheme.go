package g15desktop

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
)

// IconTheme locates themed icons for a desktop component. A component
// receives its theme explicitly, so several components in one process can
// use different themes.
type IconTheme struct {
	searchPaths []string
	iconsDir    string
	dev         bool
	gtkDir      string
}

// NewIconTheme returns an [IconTheme] using the XDG icon directories.
//
// When dev is true, icons are not expected to be installed: iconsDir is
// prepended to the search path, and [IconTheme.IconPath] resolves names to
// files in iconsDir.
func NewIconTheme(iconsDir string, dev bool) *IconTheme {
	t := &IconTheme{
		iconsDir: iconsDir,
		dev:      dev,
	}

	if dev && iconsDir != "" {
		t.searchPaths = append(t.searchPaths, iconsDir)
	}

	t.searchPaths = append(t.searchPaths, xdgIconDirs()...)

	t.gtkDir = filepath.Join(xdg.ConfigHome, "gtk-3.0")

	return t
}

// SearchPaths returns directories searched for icons, in order.
func (t *IconTheme) SearchPaths() []string {
	return slices.Clone(t.searchPaths)
}

// IconPath returns the icon name to use for name. Installed icons are
// referred to by name. In development mode the full path of the icon file
// is returned, which may scale less nicely in some panels.
func (t *IconTheme) IconPath(name string) string {
	if !t.dev || t.iconsDir == "" {
		return name
	}

	patterns := []string{
		filepath.Join(t.iconsDir, "hicolor", "128x128", "*", name+".*"),
		filepath.Join(t.iconsDir, "hicolor", "scalable", "*", name+".*"),
		filepath.Join(t.iconsDir, "hicolor", "*", "*", name+".*"),
		filepath.Join(t.iconsDir, name+".*"),
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}

		slices.Sort(matches)
		return matches[0]
	}

	return name
}

// FindIcon returns the path of an icon file named name in the search paths.
// Larger raster icons are preferred, as trays scale them down.
func (t *IconTheme) FindIcon(name string) (string, error) {
	if path := t.IconPath(name); path != name {
		return path, nil
	}

	for _, dir := range t.searchPaths {
		patterns := []string{
			filepath.Join(dir, "hicolor", "128x128", "*", name+".png"),
			filepath.Join(dir, "*", "128x128", "*", name+".png"),
			filepath.Join(dir, "hicolor", "*", "*", name+".png"),
			filepath.Join(dir, name+".png"),
		}

		for _, pattern := range patterns {
			matches, err := filepath.Glob(pattern)
			if err != nil || len(matches) == 0 {
				continue
			}

			slices.Sort(matches)
			return matches[0], nil
		}
	}

	return "", fmt.Errorf("icon %s: %w", name, fs.ErrNotExist)
}

// watchDirs returns directories whose changes indicate a theme change.
func (t *IconTheme) watchDirs() []string {
	dirs := t.SearchPaths()
	if t.gtkDir != "" {
		dirs = append(dirs, t.gtkDir)
	}

	return dirs
}

// matches reports whether a change of path affects the icon theme. Only the
// GTK settings file matters in the GTK configuration directory, as it holds
// the name of the selected theme.
func (t *IconTheme) matches(path string) bool {
	if t.gtkDir != "" && filepath.Dir(path) == t.gtkDir {
		return filepath.Base(path) == "settings.ini"
	}

	return true
}

// xdgIconDirs returns the icon directories of the freedesktop.org icon theme
// specification, most specific first.
func xdgIconDirs() []string {
	dirs := []string{
		filepath.Join(xdg.DataHome, "icons"),
		filepath.Join(xdg.Home, ".icons"),
	}

	for _, dir := range xdg.DataDirs {
		dirs = append(dirs, filepath.Join(dir, "icons"))
	}

	return append(dirs, "/usr/share/pixmaps")
}
