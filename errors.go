package g15desktop

import "errors"

var (
	// ErrNotConnected is returned by operations that require the service
	// while it is not running.
	ErrNotConnected = errors.New("service is not connected")

	// ErrUnknownScreen is returned when the service refers to a screen the
	// component does not know about.
	ErrUnknownScreen = errors.New("unknown screen")

	// ErrClosed is returned by operations on a closed component.
	ErrClosed = errors.New("component is closed")
)
