package main

import (
	"fmt"
	"os"

	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/config"
	"github.com/Nomadcxx/albumdrop/internal/database"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/organizer"
	"github.com/spf13/cobra"
)

var (
	version = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"
	cfgFile string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "albumdrop",
		Short: "Unpack album archives into your music library",
		Long: `albumdrop finds album zips in your downloads folder, unpacks each one and
files it as <library>/<Artist>/<Album>.

Archive names are matched against a naming pattern such as
"Artist - Album.zip". Each archive must contain exactly one top-level folder.`,
		SilenceUsage: true,
	}

	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "albumdrop" {
			printHeader(version)
		}
		originalHelpFunc(cmd, args)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/albumdrop/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newPatternsCmd())
	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printHeader(version)
		},
	}
}

// loadConfig reads --config when given, the default file otherwise.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadPath(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func saveConfig(cfg *config.Config) error {
	if cfgFile != "" {
		return cfg.SavePath(cfgFile)
	}
	return cfg.Save()
}

func configLocation() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

// newLogger opens the log file. With --verbose lines are mirrored to stderr;
// mirror is false for the TUI, which owns the screen.
func newLogger(cfg *config.Config, mirror bool) (*logging.Logger, error) {
	lc := cfg.LoggerConfig()
	lc.Console = mirror && verbose
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("unable to create logger: %w", err)
	}
	if lc.Console {
		logger.SetLevel(logging.LevelDebug)
	}
	return logger, nil
}

// openHistory returns nil when history is disabled. A database that cannot
// be opened is reported and skipped; extraction does not depend on it.
func openHistory(cfg *config.Config, logger *logging.Logger) *database.HistoryDB {
	if !cfg.History.Enabled {
		return nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		logger.Warn("cli", "History disabled", logging.F("error", err.Error()))
		return nil
	}
	db, err := database.OpenPath(path)
	if err != nil {
		logger.Warn("cli", "History disabled", logging.F("path", path), logging.F("error", err.Error()))
		return nil
	}
	return db
}

// newDriver assembles the extractor and batch driver from cfg. history may be
// nil.
func newDriver(cfg *config.Config, deleteSource bool, sink logging.Sink, history *database.HistoryDB, trigger string) *batch.Driver {
	ext := organizer.NewExtractor(
		organizer.WithDeleteSource(deleteSource),
		organizer.WithOverwrite(cfg.Extract.Overwrite),
		organizer.WithStagingRoot(cfg.StagingDir()),
		organizer.WithSink(sink),
	)
	opts := []func(*batch.Driver){batch.WithSink(sink)}
	if history != nil {
		opts = append(opts, batch.WithHistory(history, trigger))
	}
	return batch.NewDriver(ext, opts...)
}
