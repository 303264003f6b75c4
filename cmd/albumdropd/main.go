package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/config"
	"github.com/Nomadcxx/albumdrop/internal/daemon"
	"github.com/Nomadcxx/albumdrop/internal/database"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/organizer"
	"github.com/Nomadcxx/albumdrop/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	healthAddr string
	noServer   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "albumdropd",
		Short: "albumdrop daemon service",
		Long: `albumdropd watches the downloads folder and extracts album archives into
the music library as soon as they finish downloading. A periodic rescan picks
up anything the watcher missed.`,
		RunE:         runDaemon,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&healthAddr, "health-addr", "", "health server address (default from config)")
	rootCmd.PersistentFlags().BoolVar(&noServer, "no-server", false, "do not start the health server")

	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUninstallCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadPath(cfgFile)
	}
	return config.Load()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}

	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}
	defer logger.Close()

	sink := logger.Sink("extract")
	ext := organizer.NewExtractor(
		organizer.WithDeleteSource(cfg.Extract.DeleteSource),
		organizer.WithOverwrite(cfg.Extract.Overwrite),
		organizer.WithStagingRoot(cfg.StagingDir()),
		organizer.WithSink(sink),
	)
	driverOpts := []func(*batch.Driver){batch.WithSink(logger.Sink("batch"))}

	var history *database.HistoryDB
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err == nil {
			history, err = database.OpenPath(path)
		}
		if err != nil {
			logger.Warn("daemon", "History disabled", logging.F("error", err.Error()))
			history = nil
		} else {
			defer history.Close()
			driverOpts = append(driverOpts, batch.WithHistory(history, "daemon"))
		}
	}
	driver := batch.NewDriver(ext, driverOpts...)

	handler, err := daemon.NewHandler(daemon.HandlerConfig{
		DownloadsDir: cfg.DownloadsDir(),
		LibraryDir:   cfg.LibraryDir(),
		Pattern:      cfg.Pattern(),
		Driver:       driver,
		DebounceTime: cfg.DebounceInterval(),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("unable to create handler: %w", err)
	}

	w, err := watcher.NewWatcher(handler, watcher.WithLogger(logger))
	if err != nil {
		return err
	}

	periodic := daemon.NewPeriodicScanner(cfg.ScanInterval(), handler, logger)

	var server *daemon.Server
	if !noServer {
		addr := cfg.Daemon.HealthAddr
		if healthAddr != "" {
			addr = healthAddr
		}
		// A nil *HistoryDB must not reach the interface
		var reader daemon.HistoryReader
		if history != nil {
			reader = history
		}
		server = daemon.NewServer(handler, periodic, reader, addr, logger)
	}

	logger.Info("daemon", "Configuration loaded",
		logging.F("library", cfg.LibraryDir()),
		logging.F("delete_source", cfg.Extract.DeleteSource),
		logging.F("debounce", cfg.DebounceInterval().String()),
		logging.F("scan_interval", cfg.ScanInterval().String()),
		logging.F("log_file", logger.FilePath()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.NewDaemon(handler, w, periodic, server, logger).Run(ctx)
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install albumdropd as a systemd user service",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("To install albumdropd as a systemd user service:")
			fmt.Println()
			fmt.Println("1. Copy the binary:")
			fmt.Println("   cp albumdropd ~/.local/bin/")
			fmt.Println()
			fmt.Println("2. Copy the service file:")
			fmt.Println("   cp albumdropd.service ~/.config/systemd/user/")
			fmt.Println()
			fmt.Println("3. Reload systemd:")
			fmt.Println("   systemctl --user daemon-reload")
			fmt.Println()
			fmt.Println("4. Enable and start:")
			fmt.Println("   systemctl --user enable --now albumdropd")
			fmt.Println()
			fmt.Println("5. Check status:")
			fmt.Println("   systemctl --user status albumdropd")
			fmt.Println("   journalctl --user -u albumdropd -f")
		},
	}
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the albumdropd systemd user service",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("To uninstall albumdropd:")
			fmt.Println()
			fmt.Println("1. Stop and disable:")
			fmt.Println("   systemctl --user disable --now albumdropd")
			fmt.Println()
			fmt.Println("2. Remove files:")
			fmt.Println("   rm ~/.config/systemd/user/albumdropd.service")
			fmt.Println("   rm ~/.local/bin/albumdropd")
			fmt.Println()
			fmt.Println("3. Reload systemd:")
			fmt.Println("   systemctl --user daemon-reload")
		},
	}
}
