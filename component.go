package g15desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// State is the state of the connection to the service.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Component mirrors the state of the Gnome15 desktop service and lets the
// user control it. It does all the work of connecting to D-Bus and
// monitoring events, and notifies its [Adapter] whenever something that
// should be displayed changes.
//
// The component reconnects whenever the service appears on the bus, and
// falls back to a "service is not running" attention message whenever it
// disappears.
type Component struct {
	bus          transport
	adapter      Adapter
	launcher     *Launcher
	theme        *IconTheme
	logger       *slog.Logger
	callTimeout  time.Duration
	settingsFile string
	noWatch      bool

	// mu guards the cache: screens with their items, attention messages,
	// service handle, and state. Adapter hooks are never called with mu
	// held.
	mu        sync.Mutex
	state     State
	service   *serviceObject
	screens   map[string]*Screen
	attention *attentionSet
	settings  Settings
	watchers  []*fileWatcher
	started   bool
	closed    bool

	subMu      sync.Mutex
	subscribed bool

	signals chan *dbus.Signal
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewComponent returns a new [Component] that talks to the service over
// conn, which is normally the session bus.
//
// adapter.Initialise and adapter.IconsChanged are called before NewComponent
// returns. The component does not touch the bus until [Component.Start] is
// called.
func NewComponent(conn *dbus.Conn, adapter Adapter, opts ...Option) *Component {
	return newComponent(connTransport{conn}, adapter, opts...)
}

func newComponent(bus transport, adapter Adapter, opts ...Option) *Component {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Component{
		bus:          bus,
		adapter:      adapter,
		logger:       slog.Default(),
		callTimeout:  DefaultCallTimeout,
		settingsFile: DefaultSettingsFile(),
		screens:      make(map[string]*Screen),
		attention:    newAttentionSet(),
		signals:      make(chan *dbus.Signal, 64),
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.theme == nil {
		c.theme = NewIconTheme("", false)
	}

	if c.launcher == nil {
		c.launcher = NewLauncher()
		c.launcher.Logger = c.logger
	}

	if c.settingsFile != "" {
		settings, err := LoadSettings(c.settingsFile)
		if err != nil {
			c.logger.Warn("failed to load settings", "err", err)
		}
		c.settings = settings
	}

	adapter.Initialise()
	adapter.IconsChanged()

	return c
}

// Start connects to the service and starts watching the bus, the settings
// file, and the icon theme.
//
// A service that is not running is not an error: the component stays
// active, shows the "service is not running" attention message, and
// connects as soon as the service appears on the bus.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("start: %w", ErrClosed)
	}

	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("start: component is already started")
	}

	c.started = true
	c.mu.Unlock()

	// Signals queue up in the channel until the initial connect is done.
	c.bus.Signal(c.signals)

	if err := c.bus.AddMatchSignal(nameOwnerChangedMatch()...); err != nil {
		return fmt.Errorf("start: failed to watch %s: %w", BusName, err)
	}

	c.connectOrDisconnect(ctx)

	if !c.noWatch {
		c.startWatchers()
	}

	c.wg.Add(1)
	go c.dispatch()

	return nil
}

// Close stops watching the bus, the settings file, and the icon theme.
//
// Component cannot be reused after Close was called.
func (c *Component) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	started := c.started
	watchers := c.watchers
	c.watchers = nil
	c.mu.Unlock()

	c.cancel()

	var errs []error

	for _, w := range watchers {
		errs = append(errs, w.Close())
	}

	if started {
		c.bus.RemoveSignal(c.signals)
		close(c.signals)
		c.wg.Wait()

		errs = append(errs, c.unsubscribe())
		errs = append(errs, c.bus.RemoveMatchSignal(nameOwnerChangedMatch()...))
	}

	return errors.Join(errs...)
}

// State returns the current connection state.
func (c *Component) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connected reports whether the service is running and connected.
func (c *Component) Connected() bool {
	return c.State() == Connected
}

// Screens returns a snapshot of known screens ordered by path.
func (c *Component) Screens() []Screen {
	c.mu.Lock()
	defer c.mu.Unlock()

	screens := make([]Screen, 0, len(c.screens))
	for _, path := range slices.Sorted(maps.Keys(c.screens)) {
		screens = append(screens, c.screens[path].clone())
	}

	return screens
}

// Screen returns a snapshot of the screen with the given path.
func (c *Component) Screen(path string) (Screen, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	screen, ok := c.screens[path]
	if !ok {
		return Screen{}, false
	}

	return screen.clone(), true
}

// AttentionMessages returns pending attention messages in the order they
// were requested.
func (c *Component) AttentionMessages() []AttentionMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attention.list()
}

// CheckAttention checks the current state of attention, either clearing it
// or displaying a message.
//
// Only one message is displayed at a time even if several sources request
// attention: the oldest one.
func (c *Component) CheckAttention() {
	c.mu.Lock()
	message, ok := c.attention.first()
	c.mu.Unlock()

	if !ok {
		c.adapter.ClearAttention()
		return
	}

	c.adapter.Attention(message.Message)
}

// Settings returns current global desktop component settings.
func (c *Component) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.settings
}

// IconTheme returns the icon theme of the component.
func (c *Component) IconTheme() *IconTheme {
	return c.theme
}

// IconPath returns the icon path or name to use for icon name.
func (c *Component) IconPath(name string) string {
	return c.theme.IconPath(name)
}

// ShowConfiguration shows the configuration user interface.
func (c *Component) ShowConfiguration() error {
	return c.launcher.ShowConfiguration()
}

// StartService starts the desktop service. The component connects once the
// service appears on the bus.
func (c *Component) StartService() error {
	return c.launcher.StartService()
}

// StopService stops the desktop service.
func (c *Component) StopService(ctx context.Context) error {
	c.mu.Lock()
	service := c.service
	c.mu.Unlock()

	if service == nil {
		return fmt.Errorf("stop service: %w", ErrNotConnected)
	}

	return service.Stop(ctx)
}

// ShowPage cycles the screen to the page with the given sequence number.
func (c *Component) ShowPage(ctx context.Context, seq int) error {
	if !c.Connected() {
		return fmt.Errorf("show page %d: %w", seq, ErrNotConnected)
	}

	return newPageObject(c.bus, seq, c.callTimeout).CycleTo(ctx)
}

// EnableDevice enables the device with the given object path.
func (c *Component) EnableDevice(ctx context.Context, path string) error {
	if !c.Connected() {
		return fmt.Errorf("enable device %s: %w", path, ErrNotConnected)
	}

	return newDeviceObject(c.bus, path, c.callTimeout).Enable(ctx)
}

// DisableDevice disables the device with the given object path.
func (c *Component) DisableDevice(ctx context.Context, path string) error {
	if !c.Connected() {
		return fmt.Errorf("disable device %s: %w", path, ErrNotConnected)
	}

	return newDeviceObject(c.bus, path, c.callTimeout).Disable(ctx)
}

// connect loads all screens and their pages and subscribes to service
// signals. The cache is replaced only when everything was loaded.
func (c *Component) connect(ctx context.Context) error {
	c.logger.Debug("connecting", "bus_name", BusName)

	c.resetAttention()

	if err := c.subscribe(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	service := newServiceObject(c.bus, c.callTimeout)

	paths, err := service.Screens(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	screens := make(map[string]*Screen, len(paths))
	attention := newAttentionSet()

	for _, path := range paths {
		screen, requested, err := c.loadScreen(ctx, path)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		if err := c.loadPages(ctx, screen); err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		screens[path] = screen
		if requested {
			attention.add(path, screen.Message)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", ErrClosed)
	}

	c.screens = screens
	c.attention = attention
	c.service = service
	c.state = Connected
	c.mu.Unlock()

	c.logger.Info("connected to service", "screens", len(screens))
	c.adapter.Rebuild()

	return nil
}

// connectOrDisconnect connects to the service. Any failure leaves the
// component disconnected with no partially loaded state.
func (c *Component) connectOrDisconnect(ctx context.Context) {
	err := c.connect(ctx)
	if err == nil || errors.Is(err, ErrClosed) {
		return
	}

	c.logger.Warn("failed to connect to service", "err", err)
	c.disconnect()
}

// disconnect drops all screens and shows the "service is not running"
// attention message.
func (c *Component) disconnect() {
	c.logger.Debug("disconnecting")

	if err := c.unsubscribe(); err != nil {
		c.logger.Warn("failed to unsubscribe from service signals", "err", err)
	}

	c.mu.Lock()
	paths := slices.Sorted(maps.Keys(c.screens))
	c.mu.Unlock()

	for _, path := range paths {
		c.removeScreen(path)
	}

	c.mu.Lock()
	c.attention.reset()
	c.attention.add(ServiceAttentionKey, ServiceNotRunningMessage)
	c.service = nil
	c.state = Disconnected
	c.mu.Unlock()

	c.logger.Info("disconnected from service")
	c.adapter.Rebuild()
}

// resync drops everything and loads it again from the service.
func (c *Component) resync() {
	c.disconnect()
	c.connectOrDisconnect(c.ctx)
}

func (c *Component) resetAttention() {
	c.mu.Lock()
	changed := c.attention.len() > 0
	c.attention.reset()
	c.mu.Unlock()

	if changed {
		c.adapter.Rebuild()
	}
}

// removeScreen removes screen with the given path and rebuilds.
func (c *Component) removeScreen(path string) {
	c.mu.Lock()
	delete(c.screens, path)
	// A removed screen cannot clear its own attention request anymore.
	c.attention.remove(path)
	c.mu.Unlock()

	c.adapter.Rebuild()
}

// loadScreen fetches device information and the pending attention message
// of a screen. It reports whether the screen requests attention.
func (c *Component) loadScreen(ctx context.Context, path string) (*Screen, bool, error) {
	remote := newScreenObject(c.bus, path, c.callTimeout)

	info, err := remote.DeviceInformation(ctx)
	if err != nil {
		return nil, false, err
	}

	screen := newScreen(path, info)

	requested, err := remote.IsAttentionRequested(ctx)
	if err != nil {
		return nil, false, err
	}

	if requested {
		screen.Message, err = remote.Message(ctx)
		if err != nil {
			return nil, false, err
		}
	}

	return screen, requested, nil
}

// loadPages fills items of screen with its visible pages.
func (c *Component) loadPages(ctx context.Context, screen *Screen) error {
	remote := newScreenObject(c.bus, screen.Path, c.callTimeout)

	seqs, err := remote.PageSequenceNumbers(ctx, PriorityLow)
	if err != nil {
		return err
	}

	for _, seq := range seqs {
		page := newPageObject(c.bus, seq, c.callTimeout)

		priority, err := page.Priority(ctx)
		if err != nil {
			return err
		}

		if priority < PriorityLow {
			continue
		}

		key := pageKey(seq)
		if _, exists := screen.Items[key]; exists {
			continue
		}

		title, err := page.Title(ctx)
		if err != nil {
			return err
		}

		screen.Items[key] = title
	}

	return nil
}

// serviceSignals are the signals the component reacts to while connected.
var serviceSignals = []struct {
	iface  string
	member string
}{
	{ServiceInterface, "ScreenAdded"},
	{ServiceInterface, "ScreenRemoved"},
	{ScreenInterface, "PageCreated"},
	{ScreenInterface, "PageTitleChanged"},
	{ScreenInterface, "PageDeleting"},
	{ScreenInterface, "AttentionRequested"},
	{ScreenInterface, "AttentionCleared"},
}

func serviceSignalMatch(iface, member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
		dbus.WithMatchSender(BusName),
	}
}

// nameOwnerChangedMatch matches ownership changes of the service name.
// Whenever the service appears or disappears, D-Bus sends NameOwnerChanged
// with an empty old or new owner respectively.
func nameOwnerChangedMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, BusName),
	}
}

// subscribe subscribes to service signals. It is a no-op when already
// subscribed.
func (c *Component) subscribe() error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.subscribed {
		return nil
	}

	for idx, s := range serviceSignals {
		if err := c.bus.AddMatchSignal(serviceSignalMatch(s.iface, s.member)...); err != nil {
			for _, added := range serviceSignals[:idx] {
				_ = c.bus.RemoveMatchSignal(serviceSignalMatch(added.iface, added.member)...)
			}

			return fmt.Errorf("failed to subscribe to %s.%s: %w", s.iface, s.member, err)
		}
	}

	c.subscribed = true

	return nil
}

// unsubscribe removes all service signal subscriptions.
func (c *Component) unsubscribe() error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if !c.subscribed {
		return nil
	}

	var errs []error
	for _, s := range serviceSignals {
		if err := c.bus.RemoveMatchSignal(serviceSignalMatch(s.iface, s.member)...); err != nil {
			errs = append(errs, fmt.Errorf("failed to unsubscribe from %s.%s: %w", s.iface, s.member, err))
		}
	}

	c.subscribed = false

	return errors.Join(errs...)
}

func (c *Component) startWatchers() {
	var watchers []*fileWatcher

	if c.settingsFile != "" {
		if w, err := c.watchSettings(); err != nil {
			c.logger.Warn("failed to watch settings", "path", c.settingsFile, "err", err)
		} else {
			watchers = append(watchers, w)
		}
	}

	if w, err := newFileWatcher(c.theme.watchDirs(), c.theme.matches, c.adapter.IconsChanged, c.logger); err != nil {
		c.logger.Warn("failed to watch icon theme", "err", err)
	} else {
		watchers = append(watchers, w)
	}

	c.mu.Lock()
	c.watchers = append(c.watchers, watchers...)
	c.mu.Unlock()
}

func (c *Component) watchSettings() (*fileWatcher, error) {
	path := filepath.Clean(c.settingsFile)

	// The directory must exist to be watched, even if the file does not.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	return newFileWatcher(
		[]string{filepath.Dir(path)},
		func(name string) bool { return filepath.Clean(name) == path },
		c.reloadSettings,
		c.logger,
	)
}

// reloadSettings reloads the settings file and notifies the adapter when
// any option changed.
func (c *Component) reloadSettings() {
	settings, err := LoadSettings(c.settingsFile)
	if err != nil {
		c.logger.Warn("failed to reload settings", "err", err)
		return
	}

	c.mu.Lock()
	changed := settings != c.settings
	c.settings = settings
	c.mu.Unlock()

	if changed {
		c.logger.Debug("settings changed", "indicate_only_on_error", settings.IndicateOnlyOnError)
		c.adapter.OptionsChanged()
	}
}
