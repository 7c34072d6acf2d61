package tray

import (
	_ "embed"
	"log/slog"
	"os"

	"github.com/shelepuginivan/g15desktop"
)

// Themed icon names. Embedded icons are used when the theme has none.
const (
	normalIconName    = "logitech-g-keyboard-panel"
	attentionIconName = "logitech-g-keyboard-error-panel"
)

//go:embed icons/normal.png
var normalIcon []byte

//go:embed icons/attention.png
var attentionIcon []byte

//go:embed icons/passive.png
var passiveIcon []byte

type iconKind int

const (
	iconNormal iconKind = iota
	iconAttention
	iconPassive
)

type iconSet map[iconKind][]byte

// loadIcons reads themed icons, falling back to the embedded ones.
func loadIcons(theme *g15desktop.IconTheme, logger *slog.Logger) iconSet {
	icons := iconSet{
		iconNormal:    normalIcon,
		iconAttention: attentionIcon,
		iconPassive:   passiveIcon,
	}

	for kind, name := range map[iconKind]string{
		iconNormal:    normalIconName,
		iconAttention: attentionIconName,
	} {
		path, err := theme.FindIcon(name)
		if err != nil {
			logger.Debug("using embedded icon", "icon", name, "err", err)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read icon", "path", path, "err", err)
			continue
		}

		icons[kind] = data
	}

	return icons
}

// selectIcon returns the icon to show. With indicateOnlyOnError, the tray
// stays invisible until something needs attention.
func selectIcon(attention, indicateOnlyOnError bool) iconKind {
	switch {
	case attention:
		return iconAttention
	case indicateOnlyOnError:
		return iconPassive
	default:
		return iconNormal
	}
}
