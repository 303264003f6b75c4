package main

import (
	"fmt"

	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/Nomadcxx/albumdrop/internal/ui"
	"github.com/spf13/cobra"
)

func newPatternsCmd() *cobra.Command {
	var try string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the archive naming patterns",
		Long: `List the naming patterns albumdrop understands. The active one is marked.

Use --try to see how a filename would be split into artist and album.

Examples:
  albumdrop patterns
  albumdrop patterns --try "Radiohead - OK Computer.zip"
  albumdrop config set extract.naming_pattern "Artist_Album.zip"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			active := cfg.Pattern()

			if try != "" {
				return tryPatterns(try, active)
			}

			table := ui.NewTable("", "Pattern", "Example")
			for _, p := range naming.Patterns() {
				mark := ""
				if p.Name == active.Name {
					mark = "●"
				}
				table.AddRow(mark, p.Name, p.Example)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&try, "try", "", "show how each pattern splits this filename")
	return cmd
}

func tryPatterns(fileName string, active naming.Pattern) error {
	if !naming.IsArchive(fileName) {
		ui.WarningMsg("%s is not a .zip file and would be ignored", fileName)
	}

	table := ui.NewTable("Pattern", "Artist", "Album")
	matched := false
	for _, p := range naming.Patterns() {
		name := p.Name
		if p.Name == active.Name {
			name += " (active)"
		}
		artist, albumName, ok := p.Match(fileName)
		if !ok {
			table.AddRow(name, "-", "-")
			continue
		}
		matched = true
		table.AddRow(name, artist, albumName)
	}
	table.Render()

	if !matched {
		return fmt.Errorf("no pattern matches %q", fileName)
	}
	return nil
}
