package tray

import (
	"fmt"

	"github.com/shelepuginivan/g15desktop"
)

// pageEntry is a page shown in one of the pre-allocated menu slots.
type pageEntry struct {
	Sequence int
	Title    string
}

// pageEntries lists pages of all screens, at most limit of them. Titles are
// prefixed with the device name when more than one screen is present.
func pageEntries(screens []g15desktop.Screen, limit int) []pageEntry {
	var entries []pageEntry

	for _, screen := range screens {
		for _, page := range screen.Pages() {
			if len(entries) == limit {
				return entries
			}

			title := page.Title
			if len(screens) > 1 {
				title = fmt.Sprintf("%s: %s", screen.ModelFullName, title)
			}

			entries = append(entries, pageEntry{Sequence: page.Sequence, Title: title})
		}
	}

	return entries
}

func formatTooltip(screens int, attention bool, message string) string {
	switch {
	case attention && message != "":
		return message
	case attention:
		return "Gnome15 needs attention"
	case screens == 1:
		return "Gnome15: 1 screen"
	default:
		return fmt.Sprintf("Gnome15: %d screens", screens)
	}
}
