package main

import (
	"fmt"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/database"
	"github.com/Nomadcxx/albumdrop/internal/ui"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		failedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent extractions",
		Long: `Show the most recent extractions recorded by the CLI, the TUI and the
daemon, newest first.

Examples:
  albumdrop history
  albumdrop history --limit 100 --failed
  albumdrop history prune --older-than 2160h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistoryForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.Stats()
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			rows, err := db.RecentExtractions(limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			ui.Section("Extraction history")
			fmt.Printf("Total: %s  Succeeded: %s  Failed: %s  Extracted: %s  Last: %s\n\n",
				ui.FormatCount(stats.Total),
				ui.Success(ui.FormatCount(stats.Succeeded)),
				ui.Error(ui.FormatCount(stats.Failed)),
				ui.FormatBytes(stats.BytesExtracted),
				ui.FormatAgo(stats.LastExtraction))

			table := ui.NewTable("When", "Via", "Archive", "Result")
			for _, r := range rows {
				if failedOnly && r.Success {
					continue
				}
				result := "✓ " + r.DestinationPath
				if !r.Success {
					result = "✗ " + r.ErrorDetail
				}
				table.AddRow(ui.FormatAgo(r.CreatedAt), r.TriggeredBy, r.FileName, result)
			}
			if table.Len() == 0 {
				ui.InfoMsg("Nothing recorded yet")
				return nil
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of rows to show")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only show failures")

	cmd.AddCommand(newHistoryPruneCmd())
	return cmd
}

func newHistoryPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history rows older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			db, err := openHistoryForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.PruneBefore(time.Now().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}
			ui.SuccessMsg("Removed %s", ui.Plural(int(n), "row"))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "age of the rows to delete")
	return cmd
}

func openHistoryForRead() (*database.HistoryDB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled (set history.enabled = true)")
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	db, err := database.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}
