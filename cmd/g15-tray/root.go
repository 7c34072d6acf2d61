package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getlantern/systray"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/shelepuginivan/g15desktop"
	"github.com/shelepuginivan/g15desktop/internal/config"
	"github.com/shelepuginivan/g15desktop/internal/tray"
)

var (
	configPath  string
	callTimeout time.Duration
	devMode     bool
	iconsDir    string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "g15-tray",
	Short: "Gnome15 system tray icon",
	Long: `g15-tray shows the state of the Gnome15 desktop service in the system tray.
It lists the pages shown on the keyboard screens, displays attention messages,
and lets you start or stop the service and open the configuration.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTray,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (default ~/.config/gnome15/tray.yaml)")
	rootCmd.Flags().DurationVar(&callTimeout, "call-timeout", 0, "Maximum duration of a call to the desktop service")
	rootCmd.Flags().BoolVar(&devMode, "dev", false, "Run from a source tree with uninstalled icons and scripts")
	rootCmd.Flags().StringVar(&iconsDir, "icons-dir", "", "Directory with uninstalled icons")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultFile()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	// Flags override the file
	if cmd.Flags().Changed("call-timeout") {
		cfg.CallTimeout = callTimeout
	}
	if cmd.Flags().Changed("dev") {
		cfg.Dev = devMode
	}
	if cmd.Flags().Changed("icons-dir") {
		cfg.IconsDir = iconsDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runTray(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	theme := g15desktop.NewIconTheme(cfg.IconsDir, cfg.Dev)

	launcher := g15desktop.NewLauncher()
	launcher.ConfigCommand = cfg.ConfigCommand
	launcher.ServiceCommand = cfg.ServiceCommand
	launcher.Logger = logger
	if cfg.Dev {
		launcher.ScriptsDir = cfg.ScriptsDir
	}

	opts := []g15desktop.Option{
		g15desktop.WithLogger(logger),
		g15desktop.WithCallTimeout(cfg.CallTimeout),
		g15desktop.WithIconTheme(theme),
		g15desktop.WithLauncher(launcher),
	}
	if cfg.SettingsFile != "" {
		opts = append(opts, g15desktop.WithSettingsFile(cfg.SettingsFile))
	}

	var (
		component *g15desktop.Component
		icon      *tray.Tray
		startErr  error
	)

	// systray.Run must occupy the main goroutine on some platforms.
	onReady := func() {
		icon = tray.New(theme, cfg.MaxPages, cfg.CallTimeout, systray.Quit, logger)
		component = g15desktop.NewComponent(conn, icon, opts...)
		icon.Attach(component)

		if startErr = component.Start(cmd.Context()); startErr != nil {
			logger.Error("failed to start", "err", startErr)
			systray.Quit()
			return
		}

		logger.Info("tray started", "connected", component.Connected())

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			logger.Info("shutting down", "signal", sig.String())
			systray.Quit()
		}()
	}

	onExit := func() {
		if icon != nil {
			icon.Stop()
		}
		if component != nil {
			if err := component.Close(); err != nil {
				logger.Warn("failed to close component", "err", err)
			}
		}
	}

	systray.Run(onReady, onExit)

	return startErr
}
