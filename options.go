package g15desktop

import (
	"log/slog"
	"time"
)

// DefaultCallTimeout bounds every method call made to the service.
const DefaultCallTimeout = 5 * time.Second

// Option configures a [Component].
type Option func(*Component)

// WithLogger sets the logger of the component. [slog.Default] is used by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) {
		c.logger = logger
	}
}

// WithCallTimeout sets the maximum duration of a single method call to the
// service. A call that times out is handled like a lost connection.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Component) {
		c.callTimeout = timeout
	}
}

// WithSettingsFile sets the watched settings file. Pass an empty path to
// disable settings watching.
func WithSettingsFile(path string) Option {
	return func(c *Component) {
		c.settingsFile = path
	}
}

// WithIconTheme sets the icon theme of the component.
func WithIconTheme(theme *IconTheme) Option {
	return func(c *Component) {
		c.theme = theme
	}
}

// WithLauncher sets the launcher used to start the configuration user
// interface and the service.
func WithLauncher(launcher *Launcher) Option {
	return func(c *Component) {
		c.launcher = launcher
	}
}

// WithoutWatchers disables the settings and icon theme watchers.
func WithoutWatchers() Option {
	return func(c *Component) {
		c.noWatch = true
	}
}
