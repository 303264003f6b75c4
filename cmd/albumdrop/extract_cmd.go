package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/scanner"
	"github.com/Nomadcxx/albumdrop/internal/ui"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var (
		flags       folderFlags
		keepSource  bool
		noOverwrite bool
		stagingDir  string
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract every matching archive into the library",
		Long: `Scan the downloads folder and extract every matching archive into
<library>/<Artist>/<Album>. Archives are processed one at a time; a failed
archive is reported and the rest carry on.

Press Ctrl+C to stop after the archive in progress.

Examples:
  albumdrop extract
  albumdrop extract --keep-source --yes
  albumdrop extract --library /mnt/music --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("keep-source") {
				cfg.Extract.DeleteSource = !keepSource
			}
			if cmd.Flags().Changed("no-overwrite") {
				cfg.Extract.Overwrite = !noOverwrite
			}
			if stagingDir != "" {
				cfg.Extract.StagingDir = stagingDir
			}
			if flags.save {
				if err := saveConfig(cfg); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
			}

			logger, err := newLogger(cfg, true)
			if err != nil {
				return err
			}
			defer logger.Close()

			history := openHistory(cfg, logger)
			if history != nil {
				defer history.Close()
			}

			sink := logger.Sink("extract")
			driver := newDriver(cfg, cfg.Extract.DeleteSource, sink, history, "cli")

			downloads, library := cfg.DownloadsDir(), cfg.LibraryDir()
			if err := driver.Validate(downloads, library); err != nil {
				return err
			}

			records, err := scanner.Scan(downloads, cfg.Pattern(), logger.Sink("scanner"))
			if err != nil {
				return err
			}
			if len(records) == 0 {
				ui.InfoMsg("No archives in %s match %q", downloads, cfg.Pattern().Example)
				return nil
			}

			ui.Section(fmt.Sprintf("Found %s", ui.Plural(len(records), "album")))
			printMatches(records)
			fmt.Println()

			if !cfg.Extract.DeleteSource {
				ui.InfoMsg("Archives will be kept after extraction")
			}
			if !yes && ui.IsTerminal() {
				if !ui.Confirm(fmt.Sprintf("Extract %s into %s?", ui.Plural(len(records), "album"), library)) {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary := runExtraction(ctx, driver, records, library)
			printSummary(summary, len(records))

			if summary.Failed > 0 {
				return fmt.Errorf("%s failed", ui.Plural(summary.Failed, "album"))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&keepSource, "keep-source", "k", false, "keep the zip after a successful extraction")
	cmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "fail instead of replacing an existing album folder")
	cmd.Flags().StringVar(&stagingDir, "staging-dir", "", "where archives are unpacked before the move (default: next to the archive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

// runExtraction drives the batch with a progress bar, then prints every
// result once the bar is done.
func runExtraction(ctx context.Context, driver *batch.Driver, records []album.MatchRecord, library string) batch.Summary {
	bar := ui.NewProgressBar(len(records), "Extracting")
	var results []album.Outcome

	summary := driver.ExtractAll(ctx, records, library,
		func(p batch.Progress) {
			bar.Update(p.Index, p.CurrentName)
		},
		func(o album.Outcome) {
			results = append(results, o)
		},
	)

	fmt.Println()
	for _, o := range results {
		printOutcome(o)
	}
	if summary.Cancelled {
		ui.WarningMsg("Stopped early: %d of %d archives were not attempted",
			len(records)-summary.Attempted(), len(records))
	}
	return summary
}
