// Package tray implements a Gnome15 system tray icon on top of
// [g15desktop.Component].
package tray

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/shelepuginivan/g15desktop"
)

// Tray is a [g15desktop.Adapter] showing the state of the desktop service
// in the system tray. Its menu lists visible pages and lets the user start
// or stop the service and open the configuration.
//
// Tray must be created and initialised from the onReady callback of
// [systray.Run].
type Tray struct {
	theme    *g15desktop.IconTheme
	logger   *slog.Logger
	maxPages int
	timeout  time.Duration
	onQuit   func()

	mu        sync.Mutex
	component *g15desktop.Component
	icons     iconSet
	attention bool
	message   string
	slotPages []int

	// Pre-allocated page menu slots
	pageSlots     []*systray.MenuItem
	noScreensItem *systray.MenuItem
	startItem     *systray.MenuItem
	stopItem      *systray.MenuItem
	configItem    *systray.MenuItem
	quitItem      *systray.MenuItem

	done     chan struct{}
	stopOnce sync.Once
}

var _ g15desktop.Adapter = (*Tray)(nil)

// New returns a tray listing at most maxPages pages. timeout bounds user
// actions sent to the service, and onQuit runs when the user picks "Quit".
func New(theme *g15desktop.IconTheme, maxPages int, timeout time.Duration, onQuit func(), logger *slog.Logger) *Tray {
	return &Tray{
		theme:    theme,
		logger:   logger,
		maxPages: maxPages,
		timeout:  timeout,
		onQuit:   onQuit,
		done:     make(chan struct{}),
	}
}

// Attach binds the tray to its component. It must be called before the
// component is started.
func (t *Tray) Attach(c *g15desktop.Component) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.component = c
}

// Stop stops handling menu clicks.
func (t *Tray) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *Tray) attached() *g15desktop.Component {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.component
}

// Initialise creates the menu.
func (t *Tray) Initialise() {
	systray.SetTitle("Gnome15")
	systray.SetTooltip(formatTooltip(0, false, ""))

	header := systray.AddMenuItem("Gnome15", "")
	header.Disable()

	systray.AddSeparator()

	t.pageSlots = make([]*systray.MenuItem, t.maxPages)
	t.slotPages = make([]int, t.maxPages)
	for i := range t.pageSlots {
		t.pageSlots[i] = systray.AddMenuItem("", "Show this page on the keyboard screen")
		t.pageSlots[i].Hide()
	}

	t.noScreensItem = systray.AddMenuItem("No screens", "")
	t.noScreensItem.Disable()

	systray.AddSeparator()

	t.startItem = systray.AddMenuItem("Start Desktop Service", "Start the Gnome15 desktop service")
	t.stopItem = systray.AddMenuItem("Stop Desktop Service", "Stop the Gnome15 desktop service")
	t.stopItem.Hide()
	t.configItem = systray.AddMenuItem("Configuration", "Open Gnome15 configuration")

	systray.AddSeparator()

	t.quitItem = systray.AddMenuItem("Quit", "Close the tray icon")

	for i, slot := range t.pageSlots {
		go t.handleClicks(slot, func() { t.showPageAtSlot(i) })
	}
	go t.handleClicks(t.startItem, t.startService)
	go t.handleClicks(t.stopItem, t.stopService)
	go t.handleClicks(t.configItem, t.showConfiguration)
	go t.handleClicks(t.quitItem, t.quit)
}

// Rebuild updates the page slots and service items from the component.
func (t *Tray) Rebuild() {
	c := t.attached()
	if c == nil {
		return
	}

	screens := c.Screens()
	connected := c.Connected()
	entries := pageEntries(screens, t.maxPages)

	t.mu.Lock()
	for i, slot := range t.pageSlots {
		if i >= len(entries) {
			t.slotPages[i] = -1
			slot.Hide()
			continue
		}

		t.slotPages[i] = entries[i].Sequence
		slot.SetTitle(entries[i].Title)
		slot.Show()
	}
	t.mu.Unlock()

	if len(screens) == 0 {
		t.noScreensItem.Show()
	} else {
		t.noScreensItem.Hide()
	}

	if connected {
		t.startItem.Hide()
		t.stopItem.Show()
	} else {
		t.stopItem.Hide()
		t.startItem.Show()
	}

	c.CheckAttention()
}

// ClearAttention restores the normal icon.
func (t *Tray) ClearAttention() {
	t.mu.Lock()
	t.attention = false
	t.message = ""
	t.mu.Unlock()

	t.refresh()
}

// Attention shows the attention icon with message in the tooltip.
func (t *Tray) Attention(message string) {
	t.mu.Lock()
	t.attention = true
	t.message = message
	t.mu.Unlock()

	t.refresh()
}

// IconsChanged reloads icons from the theme.
func (t *Tray) IconsChanged() {
	icons := loadIcons(t.theme, t.logger)

	t.mu.Lock()
	t.icons = icons
	t.mu.Unlock()

	t.refresh()
}

// OptionsChanged applies the indicate_only_on_error option.
func (t *Tray) OptionsChanged() {
	t.refresh()
}

// refresh updates the icon and tooltip.
func (t *Tray) refresh() {
	var (
		settings g15desktop.Settings
		screens  int
	)

	if c := t.attached(); c != nil {
		settings = c.Settings()
		screens = len(c.Screens())
	}

	t.mu.Lock()
	icon := t.icons[selectIcon(t.attention, settings.IndicateOnlyOnError)]
	tooltip := formatTooltip(screens, t.attention, t.message)
	t.mu.Unlock()

	if icon != nil {
		systray.SetIcon(icon)
	}
	systray.SetTooltip(tooltip)
}

func (t *Tray) handleClicks(item *systray.MenuItem, action func()) {
	for {
		select {
		case <-t.done:
			return
		case <-item.ClickedCh:
			action()
		}
	}
}

func (t *Tray) showPageAtSlot(slot int) {
	t.mu.Lock()
	seq := t.slotPages[slot]
	t.mu.Unlock()

	c := t.attached()
	if seq < 0 || c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if err := c.ShowPage(ctx, seq); err != nil {
		t.logger.Error("failed to show page", "page", seq, "err", err)
	}
}

func (t *Tray) startService() {
	if c := t.attached(); c != nil {
		if err := c.StartService(); err != nil {
			t.logger.Error("failed to start desktop service", "err", err)
		}
	}
}

func (t *Tray) stopService() {
	c := t.attached()
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if err := c.StopService(ctx); err != nil {
		t.logger.Error("failed to stop desktop service", "err", err)
	}
}

func (t *Tray) showConfiguration() {
	if c := t.attached(); c != nil {
		if err := c.ShowConfiguration(); err != nil {
			t.logger.Error("failed to show configuration", "err", err)
		}
	}
}

func (t *Tray) quit() {
	t.logger.Info("quit requested from tray menu")
	if t.onQuit != nil {
		t.onQuit()
	}
}
