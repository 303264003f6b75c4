package main

import (
	"fmt"

	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/Nomadcxx/albumdrop/internal/tui"
	"github.com/Nomadcxx/albumdrop/internal/ui"
	"github.com/spf13/cobra"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive scan and extract",
		Long: `Open the interactive view: review what matched, then extract everything
while watching progress.

Keys:
  enter  extract all        r  rescan
  p      next pattern       d  toggle deleting zips
  q/esc  quit (stops after the archive in progress)

Pattern and delete choices are saved to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer logger.Close()

			history := openHistory(cfg, logger)
			if history != nil {
				defer history.Close()
			}

			summary, err := tui.Run(tui.Config{
				DownloadsDir: cfg.DownloadsDir(),
				LibraryDir:   cfg.LibraryDir(),
				Pattern:      cfg.Pattern(),
				DeleteSource: cfg.Extract.DeleteSource,
				NewDriver: func(deleteSource bool, sink logging.Sink) *batch.Driver {
					return newDriver(cfg, deleteSource, logging.Tee(sink, logger.Sink("tui")), history, "tui")
				},
				SettingsChanged: func(p naming.Pattern, deleteSource bool) error {
					cfg.Extract.NamingPattern = p.Name
					cfg.Extract.DeleteSource = deleteSource
					return saveConfig(cfg)
				},
			})
			if err != nil {
				return err
			}

			if summary.Attempted() > 0 {
				fmt.Printf("Processed %d, failed %d in %s\n",
					summary.Processed, summary.Failed, ui.FormatDuration(summary.Duration))
			}
			return nil
		},
	}
}
