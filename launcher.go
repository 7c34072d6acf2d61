package g15desktop

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Launcher starts Gnome15 programs on behalf of a desktop component.
type Launcher struct {
	// Command that opens the configuration user interface.
	ConfigCommand []string

	// Command that starts the desktop service in the background.
	ServiceCommand []string

	// Directory with uninstalled scripts. When set, commands found there
	// take precedence over the ones in PATH.
	ScriptsDir string

	// Logger receives exit failures of launched programs.
	Logger *slog.Logger
}

// NewLauncher returns a [Launcher] with the default commands.
func NewLauncher() *Launcher {
	return &Launcher{
		ConfigCommand:  []string{"g15-config"},
		ServiceCommand: []string{"g15-desktop-service", "-f"},
		Logger:         slog.Default(),
	}
}

// ShowConfiguration starts the configuration user interface.
func (l *Launcher) ShowConfiguration() error {
	return l.run(l.ConfigCommand)
}

// StartService starts the desktop service.
func (l *Launcher) StartService() error {
	return l.run(l.ServiceCommand)
}

// run starts argv without waiting for it to exit.
func (l *Launcher) run(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("run: empty command")
	}

	name := l.resolve(argv[0])

	cmd := exec.Command(name, argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}

	go func() {
		if err := cmd.Wait(); err != nil && l.Logger != nil {
			l.Logger.Warn("launched program failed", "command", name, "err", err)
		}
	}()

	return nil
}

func (l *Launcher) resolve(name string) string {
	if l.ScriptsDir == "" || filepath.IsAbs(name) {
		return name
	}

	path := filepath.Join(l.ScriptsDir, name)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}

	return name
}
