package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/ui"
)

//go:embed assets/header.txt
var asciiHeader string

// printHeader displays the ASCII header with version info
func printHeader(version string) {
	fmt.Println(asciiHeader)
	fmt.Printf("Version: %s\n\n", version)
}

// printMatches shows what a scan found. Sizes are the archive sizes on disk.
func printMatches(records []album.MatchRecord) {
	table := ui.NewTable("Artist", "Album", "Archive", "Size")
	for _, r := range records {
		size := "?"
		if info, err := os.Stat(r.SourcePath); err == nil {
			size = ui.FormatBytes(info.Size())
		}
		table.AddRow(r.Artist, r.Album, r.FileName, size)
	}
	table.Render()
}

func printOutcome(o album.Outcome) {
	if o.Success {
		ui.SuccessMsg("%s / %s → %s %s", ui.Artist(o.Record.Artist), ui.Album(o.Record.Album), ui.Path(o.DestinationPath),
			ui.Dim(fmt.Sprintf("(%d files, %s)", o.Files, ui.FormatBytes(o.Bytes))))
		return
	}
	ui.ErrorMsg("%s: %s", o.Record.FileName, o.ErrorDetail)
}

func printSummary(s batch.Summary, found int) {
	ui.Section("Summary")
	fmt.Printf("Found:      %s\n", ui.FormatCount(found))
	fmt.Printf("Processed:  %s\n", ui.Success(ui.FormatCount(s.Processed)))
	if s.Failed > 0 {
		fmt.Printf("Failed:     %s\n", ui.Error(ui.FormatCount(s.Failed)))
	} else {
		fmt.Printf("Failed:     0\n")
	}
	if s.Cancelled {
		fmt.Printf("Skipped:    %s\n", ui.Warning(ui.FormatCount(found-s.Attempted())+" (cancelled)"))
	}
	fmt.Printf("Duration:   %s\n", ui.FormatDuration(s.Duration))

	if s.Failed > 0 {
		fmt.Println()
		for _, o := range s.Outcomes {
			if !o.Success {
				fmt.Printf("  %s %s\n", ui.Error("✗"), o.Record.FileName)
				fmt.Printf("    %s\n", ui.Dim(o.ErrorDetail))
			}
		}
	}
}
