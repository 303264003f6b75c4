package main

import (
	"fmt"

	"github.com/Nomadcxx/albumdrop/internal/config"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/Nomadcxx/albumdrop/internal/scanner"
	"github.com/Nomadcxx/albumdrop/internal/ui"
	"github.com/spf13/cobra"
)

// folderFlags are the one-run overrides shared by scan and extract.
type folderFlags struct {
	downloads string
	library   string
	pattern   string
	save      bool
}

func (f *folderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.downloads, "downloads", "d", "", "downloads folder to scan")
	cmd.Flags().StringVarP(&f.library, "library", "l", "", "music library root")
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", "", fmt.Sprintf("naming pattern (%s)", naming.DefaultPatternName))
	cmd.Flags().BoolVar(&f.save, "save", false, "remember these settings in the config file")
}

// apply copies the flags that were set onto cfg.
func (f *folderFlags) apply(cfg *config.Config) error {
	overrides := []struct{ key, value string }{
		{"folders.downloads", f.downloads},
		{"folders.library", f.library},
		{"extract.naming_pattern", f.pattern},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		if err := cfg.Set(o.key, o.value); err != nil {
			return err
		}
	}
	return nil
}

func newScanCmd() *cobra.Command {
	var flags folderFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List album archives that match the naming pattern",
		Long: `Scan the downloads folder and show which archives would be extracted,
without touching anything.

Examples:
  albumdrop scan
  albumdrop scan --downloads ~/Downloads/music --pattern "Artist_Album.zip"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
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

			pattern := cfg.Pattern()
			records, err := scanner.Scan(cfg.DownloadsDir(), pattern, logger.Sink("scanner"))
			if err != nil {
				return err
			}

			fmt.Printf("Scanning %s for %s\n", ui.Path(cfg.DownloadsDir()), ui.Info(pattern.Example))
			if len(records) == 0 {
				ui.InfoMsg("No matching archives found")
				return nil
			}

			ui.Section(fmt.Sprintf("Found %s", ui.Plural(len(records), "album")))
			printMatches(records)
			fmt.Printf("\nRun %s to extract them into %s\n", ui.Action("albumdrop extract"), ui.Path(cfg.LibraryDir()))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
