package g15desktop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

var errServiceUnknown = errors.New("org.freedesktop.DBus.Error.ServiceUnknown")

// fakeBus is an in-memory Gnome15 service. It answers method calls from its
// fields and records everything the component does on the bus.
type fakeBus struct {
	mu sync.Mutex

	running    bool
	screens    []string
	devices    map[string]DeviceInfo
	attention  map[string]string
	pages      map[string][]int
	priorities map[int]Priority
	titles     map[int]string
	failures   map[string]bool
	hangs      map[string]bool

	calls   []string
	matches int
	signals chan<- *dbus.Signal
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		running:    true,
		devices:    make(map[string]DeviceInfo),
		attention:  make(map[string]string),
		pages:      make(map[string][]int),
		priorities: make(map[int]Priority),
		titles:     make(map[int]string),
		failures:   make(map[string]bool),
		hangs:      make(map[string]bool),
	}
}

func (f *fakeBus) addScreen(path string, info DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.screens = append(f.screens, path)
	f.devices[path] = info
}

func (f *fakeBus) addPage(screen string, seq int, priority Priority, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pages[screen] = append(f.pages[screen], seq)
	f.priorities[seq] = priority
	f.titles[seq] = title
}

func (f *fakeBus) setRunning(running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.running = running
}

// fail makes calls of method on path fail.
func (f *fakeBus) fail(path, method string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[path+" "+method] = true
}

// hang makes calls of method on path block until their context is done.
func (f *fakeBus) hang(path, method string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hangs[path+" "+method] = true
}

func (f *fakeBus) hanging(path, method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hangs[path+" "+method] {
		return false
	}

	f.calls = append(f.calls, path+" "+method)
	return true
}

func (f *fakeBus) callCount(path, method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, call := range f.calls {
		if call == path+" "+method {
			count++
		}
	}

	return count
}

func (f *fakeBus) matchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.matches
}

func (f *fakeBus) object(path dbus.ObjectPath) caller {
	return fakeObject{bus: f, path: string(path)}
}

func (f *fakeBus) AddMatchSignal(...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.matches++
	return nil
}

func (f *fakeBus) RemoveMatchSignal(...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.matches--
	return nil
}

func (f *fakeBus) Signal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signals = ch
}

func (f *fakeBus) RemoveSignal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signals = nil
}

func (f *fakeBus) emit(signal *dbus.Signal) {
	f.mu.Lock()
	ch := f.signals
	f.mu.Unlock()

	ch <- signal
}

func (f *fakeBus) call(path, method string, args []any) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, path+" "+method)

	if !f.running || f.failures[path+" "+method] {
		return &dbus.Call{Err: errServiceUnknown}
	}

	seq, _ := strconv.Atoi(strings.TrimPrefix(path, pagePathPrefix))

	switch method {
	case ServiceInterface + ".GetScreens":
		return reply(slices.Clone(f.screens))
	case ScreenInterface + ".GetDeviceInformation":
		info := f.devices[path]
		return reply(info.UID, info.ModelName, info.USBID, info.ModelFullName)
	case ScreenInterface + ".IsAttentionRequested":
		_, requested := f.attention[path]
		return reply(requested)
	case ScreenInterface + ".GetMessage":
		return reply(f.attention[path])
	case ScreenInterface + ".GetPageSequenceNumbers":
		// The priority argument is ignored, so the component has to filter.
		seqs := make([]int32, 0, len(f.pages[path]))
		for _, seq := range f.pages[path] {
			seqs = append(seqs, int32(seq))
		}
		return reply(seqs)
	case PageInterface + ".GetPriority":
		return reply(int32(f.priorities[seq]))
	case PageInterface + ".GetTitle":
		return reply(f.titles[seq])
	case ServiceInterface + ".Stop",
		PageInterface + ".CycleTo",
		DeviceInterface + ".Enable",
		DeviceInterface + ".Disable":
		return reply()
	}

	return &dbus.Call{Err: errors.New("org.freedesktop.DBus.Error.UnknownMethod")}
}

func reply(body ...any) *dbus.Call {
	return &dbus.Call{Body: body}
}

type fakeObject struct {
	bus  *fakeBus
	path string
}

func (o fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call {
	if err := ctx.Err(); err != nil {
		return &dbus.Call{Err: err}
	}

	if o.bus.hanging(o.path, method) {
		<-ctx.Done()
		return &dbus.Call{Err: ctx.Err()}
	}

	return o.bus.call(o.path, method, args)
}

// fakeAdapter records hook invocations. Like real desktop components, it
// checks attention on every rebuild.
type fakeAdapter struct {
	mu sync.Mutex

	component      *Component
	initialised    int
	rebuilds       int
	iconsChanged   int
	optionsChanged int
	attention      bool
	message        string
}

func (a *fakeAdapter) Initialise() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.initialised++
}

func (a *fakeAdapter) Rebuild() {
	a.mu.Lock()
	a.rebuilds++
	c := a.component
	a.mu.Unlock()

	if c != nil {
		c.CheckAttention()
	}
}

func (a *fakeAdapter) ClearAttention() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attention = false
	a.message = ""
}

func (a *fakeAdapter) Attention(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attention = true
	a.message = message
}

func (a *fakeAdapter) IconsChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.iconsChanged++
}

func (a *fakeAdapter) OptionsChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.optionsChanged++
}

func (a *fakeAdapter) rebuildCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.rebuilds
}

func (a *fakeAdapter) displayed() (bool, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.attention, a.message
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestComponent returns a started component connected to bus. opts are
// applied after the test defaults.
func newTestComponent(t *testing.T, bus *fakeBus, opts ...Option) (*Component, *fakeAdapter) {
	t.Helper()

	adapter := &fakeAdapter{}
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithSettingsFile(""),
		WithoutWatchers(),
	}, opts...)
	c := newComponent(bus, adapter, opts...)

	adapter.mu.Lock()
	adapter.component = c
	adapter.mu.Unlock()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	return c, adapter
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func screenPaths(c *Component) []string {
	var paths []string
	for _, screen := range c.Screens() {
		paths = append(paths, screen.Path)
	}

	return paths
}

func newSignal(name string, body ...any) *dbus.Signal {
	return &dbus.Signal{
		Sender: ":1.42",
		Name:   name,
		Body:   body,
	}
}
