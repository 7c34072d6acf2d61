package g15desktop

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/godbus/dbus/v5"
)

// Well-known name and objects of the Gnome15 desktop service.
const (
	BusName = "org.gnome15.Gnome15"

	ServicePath      = "/org/gnome15/Service"
	ServiceInterface = "org.gnome15.Service"
	ScreenInterface  = "org.gnome15.Screen"
	PageInterface    = "org.gnome15.Page"
	DeviceInterface  = "org.gnome15.Device"

	pagePathPrefix = "/org/gnome15/Page"
)

// Priority is the priority of a page on a screen. Pages with priority below
// [PriorityLow] are never shown by desktop components.
type Priority int32

// Page priorities used by the service.
const (
	PriorityInvisible Priority = 0
	PriorityLow       Priority = 20
	PriorityNormal    Priority = 50
	PriorityHigh      Priority = 99
	PriorityExclusive Priority = 100
	PriorityPopup     Priority = 999
)

// DeviceInfo is the result of org.gnome15.Screen.GetDeviceInformation.
type DeviceInfo struct {
	UID           string
	ModelName     string
	USBID         string
	ModelFullName string
}

// PagePath returns object path of the page with sequence number seq.
func PagePath(seq int) dbus.ObjectPath {
	return dbus.ObjectPath(pagePathPrefix + strconv.Itoa(seq))
}

// caller is satisfied by [dbus.BusObject].
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// transport is the part of [dbus.Conn] the component depends on.
type transport interface {
	object(path dbus.ObjectPath) caller
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

type connTransport struct {
	*dbus.Conn
}

func (t connTransport) object(path dbus.ObjectPath) caller {
	return t.Object(BusName, path)
}

// remoteObject issues method calls on a single object of the service. Every
// call is bounded by timeout and never auto-starts the service.
type remoteObject struct {
	obj     caller
	iface   string
	timeout time.Duration
}

func (o remoteObject) call(ctx context.Context, method string, args ...any) *dbus.Call {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	return o.obj.CallWithContext(ctx, o.iface+"."+method, dbus.FlagNoAutoStart, args...)
}

// serviceObject wraps /org/gnome15/Service.
type serviceObject struct {
	remoteObject
}

func newServiceObject(bus transport, timeout time.Duration) *serviceObject {
	return &serviceObject{remoteObject{
		obj:     bus.object(ServicePath),
		iface:   ServiceInterface,
		timeout: timeout,
	}}
}

// Screens returns object paths of all screens known to the service.
func (s *serviceObject) Screens(ctx context.Context) ([]string, error) {
	call := s.call(ctx, "GetScreens")
	if call.Err != nil {
		return nil, fmt.Errorf("get screens: %w", call.Err)
	}

	if len(call.Body) < 1 {
		return nil, fmt.Errorf("get screens: empty response body")
	}

	paths, err := toStrings(call.Body[0])
	if err != nil {
		return nil, fmt.Errorf("get screens: %w", err)
	}

	return paths, nil
}

// Stop asks the service to shut down.
func (s *serviceObject) Stop(ctx context.Context) error {
	if call := s.call(ctx, "Stop"); call.Err != nil {
		return fmt.Errorf("stop service: %w", call.Err)
	}

	return nil
}

// screenObject wraps a single org.gnome15.Screen object.
type screenObject struct {
	remoteObject
	path string
}

func newScreenObject(bus transport, path string, timeout time.Duration) *screenObject {
	return &screenObject{
		remoteObject: remoteObject{
			obj:     bus.object(dbus.ObjectPath(path)),
			iface:   ScreenInterface,
			timeout: timeout,
		},
		path: path,
	}
}

func (s *screenObject) DeviceInformation(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo

	err := s.call(ctx, "GetDeviceInformation").Store(
		&info.UID,
		&info.ModelName,
		&info.USBID,
		&info.ModelFullName,
	)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("get device information of %s: %w", s.path, err)
	}

	return info, nil
}

func (s *screenObject) IsAttentionRequested(ctx context.Context) (bool, error) {
	var requested bool

	if err := s.call(ctx, "IsAttentionRequested").Store(&requested); err != nil {
		return false, fmt.Errorf("is attention requested on %s: %w", s.path, err)
	}

	return requested, nil
}

func (s *screenObject) Message(ctx context.Context) (string, error) {
	call := s.call(ctx, "GetMessage")
	if call.Err != nil {
		return "", fmt.Errorf("get message of %s: %w", s.path, call.Err)
	}

	// The service may reply with an empty body when no message is set.
	if len(call.Body) == 0 {
		return "", nil
	}

	message, ok := toString(call.Body[0])
	if !ok {
		return "", fmt.Errorf("get message of %s: invalid message type %T", s.path, call.Body[0])
	}

	return message, nil
}

// PageSequenceNumbers returns sequence numbers of pages with priority of at
// least minPriority.
func (s *screenObject) PageSequenceNumbers(ctx context.Context, minPriority Priority) ([]int, error) {
	call := s.call(ctx, "GetPageSequenceNumbers", int32(minPriority))
	if call.Err != nil {
		return nil, fmt.Errorf("get page sequence numbers of %s: %w", s.path, call.Err)
	}

	if len(call.Body) < 1 {
		return nil, fmt.Errorf("get page sequence numbers of %s: empty response body", s.path)
	}

	seqs, err := toInts(call.Body[0])
	if err != nil {
		return nil, fmt.Errorf("get page sequence numbers of %s: %w", s.path, err)
	}

	return seqs, nil
}

// pageObject wraps a single org.gnome15.Page object.
type pageObject struct {
	remoteObject
	seq int
}

func newPageObject(bus transport, seq int, timeout time.Duration) *pageObject {
	return &pageObject{
		remoteObject: remoteObject{
			obj:     bus.object(PagePath(seq)),
			iface:   PageInterface,
			timeout: timeout,
		},
		seq: seq,
	}
}

func (p *pageObject) Priority(ctx context.Context) (Priority, error) {
	call := p.call(ctx, "GetPriority")
	if call.Err != nil {
		return 0, fmt.Errorf("get priority of page %d: %w", p.seq, call.Err)
	}

	if len(call.Body) < 1 {
		return 0, fmt.Errorf("get priority of page %d: empty response body", p.seq)
	}

	priority, ok := toInt(call.Body[0])
	if !ok {
		return 0, fmt.Errorf("get priority of page %d: invalid priority type %T", p.seq, call.Body[0])
	}

	return Priority(priority), nil
}

func (p *pageObject) Title(ctx context.Context) (string, error) {
	var title string

	if err := p.call(ctx, "GetTitle").Store(&title); err != nil {
		return "", fmt.Errorf("get title of page %d: %w", p.seq, err)
	}

	return title, nil
}

func (p *pageObject) CycleTo(ctx context.Context) error {
	if call := p.call(ctx, "CycleTo"); call.Err != nil {
		return fmt.Errorf("cycle to page %d: %w", p.seq, call.Err)
	}

	return nil
}

// deviceObject wraps a single org.gnome15.Device object.
type deviceObject struct {
	remoteObject
	path string
}

func newDeviceObject(bus transport, path string, timeout time.Duration) *deviceObject {
	return &deviceObject{
		remoteObject: remoteObject{
			obj:     bus.object(dbus.ObjectPath(path)),
			iface:   DeviceInterface,
			timeout: timeout,
		},
		path: path,
	}
}

func (d *deviceObject) Enable(ctx context.Context) error {
	if call := d.call(ctx, "Enable"); call.Err != nil {
		return fmt.Errorf("enable device %s: %w", d.path, call.Err)
	}

	return nil
}

func (d *deviceObject) Disable(ctx context.Context) error {
	if call := d.call(ctx, "Disable"); call.Err != nil {
		return fmt.Errorf("disable device %s: %w", d.path, call.Err)
	}

	return nil
}

// toInt converts an integer value of any D-Bus integer type to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case byte:
		return int(n), true
	case int16:
		return int(n), true
	case uint16:
		return int(n), true
	case int32:
		return int(n), true
	case uint32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case int:
		return n, true
	case dbus.Variant:
		return toInt(n.Value())
	default:
		return 0, false
	}
}

// toInts converts a D-Bus integer array to []int.
func toInts(v any) ([]int, error) {
	switch arr := v.(type) {
	case []int32:
		return convertInts(arr), nil
	case []uint32:
		return convertInts(arr), nil
	case []int64:
		return convertInts(arr), nil
	case []uint64:
		return convertInts(arr), nil
	case []int16:
		return convertInts(arr), nil
	case []uint16:
		return convertInts(arr), nil
	case []byte:
		return convertInts(arr), nil
	case []int:
		return arr, nil
	case []any:
		ints := make([]int, 0, len(arr))
		for _, item := range arr {
			n, ok := toInt(item)
			if !ok {
				return nil, fmt.Errorf("invalid array element type %T", item)
			}
			ints = append(ints, n)
		}
		return ints, nil
	default:
		return nil, fmt.Errorf("invalid array type %T", v)
	}
}

func convertInts[T byte | int16 | uint16 | int32 | uint32 | int64 | uint64](arr []T) []int {
	ints := make([]int, len(arr))
	for idx, n := range arr {
		ints[idx] = int(n)
	}

	return ints
}

// toString converts a D-Bus string or object path to string.
func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case dbus.ObjectPath:
		return string(s), true
	case dbus.Variant:
		return toString(s.Value())
	default:
		return "", false
	}
}

// toStrings converts a D-Bus array of strings or object paths to []string.
func toStrings(v any) ([]string, error) {
	switch arr := v.(type) {
	case []string:
		return arr, nil
	case []dbus.ObjectPath:
		strs := make([]string, len(arr))
		for idx, path := range arr {
			strs[idx] = string(path)
		}
		return strs, nil
	case []any:
		strs := make([]string, 0, len(arr))
		for _, item := range arr {
			s, ok := toString(item)
			if !ok {
				return nil, fmt.Errorf("invalid array element type %T", item)
			}
			strs = append(strs, s)
		}
		return strs, nil
	default:
		return nil, fmt.Errorf("invalid array type %T", v)
	}
}
