package g15desktop

import (
	"maps"
	"slices"
	"strconv"
)

// Screen is the client side representation of a remote screen. It holds
// general details such as model name and UID, and the pages that screen is
// currently showing.
type Screen struct {
	// D-Bus object path of the screen. Unique among screens.
	Path string

	// Short model name of the device, e.g. "g19".
	ModelName string

	// Human readable model name of the device.
	ModelFullName string

	// Unique identifier of the device.
	DeviceUID string

	// USB identifier of the device.
	DeviceUSBID string

	// Titles of visible pages, keyed by decimal page sequence number.
	Items map[string]string

	// Attention message the screen had already requested when it was
	// discovered.
	Message string
}

func newScreen(path string, info DeviceInfo) *Screen {
	return &Screen{
		Path:          path,
		ModelName:     info.ModelName,
		ModelFullName: info.ModelFullName,
		DeviceUID:     info.UID,
		DeviceUSBID:   info.USBID,
		Items:         make(map[string]string),
	}
}

// Page is a visible page of a [Screen].
type Page struct {
	Sequence int
	Title    string
}

// Pages returns pages of the screen ordered by sequence number.
func (s Screen) Pages() []Page {
	pages := make([]Page, 0, len(s.Items))

	for key, title := range s.Items {
		seq, err := strconv.Atoi(key)
		if err != nil {
			continue
		}

		pages = append(pages, Page{Sequence: seq, Title: title})
	}

	slices.SortFunc(pages, func(a, b Page) int {
		return a.Sequence - b.Sequence
	})

	return pages
}

func (s *Screen) clone() Screen {
	c := *s
	c.Items = maps.Clone(s.Items)

	return c
}

func pageKey(seq int) string {
	return strconv.Itoa(seq)
}
