package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Nomadcxx/albumdrop/internal/config"
	"github.com/Nomadcxx/albumdrop/internal/ui"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage albumdrop configuration",
		Long: `Commands for managing albumdrop configuration.

The config file is stored at: ~/.config/albumdrop/config.toml

Examples:
  albumdrop config init                               # Create default config file
  albumdrop config show                               # Display current configuration
  albumdrop config set folders.library /mnt/music     # Change one setting
  albumdrop config path                               # Show config file path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Long: `Create a new configuration file with default values.

The downloads folder defaults to ~/Downloads and the library to ~/Music.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configLocation()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := saveConfig(config.DefaultConfig()); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("✓ Created config file: %s\n", path)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Edit the config file to set your downloads and library folders")
			fmt.Println("  2. Run 'albumdrop scan' to see which archives match")
			fmt.Println("  3. Run 'albumdrop extract' or 'albumdrop tui' to unpack them")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path, _ := configLocation()
			if _, err := os.Stat(path); err != nil {
				fmt.Printf("Config file: %s %s\n\n", path, ui.Dim("(not created yet, showing defaults)"))
			} else {
				fmt.Printf("Config file: %s\n\n", path)
			}

			fmt.Println("=== Folders ===")
			fmt.Printf("Downloads: %s\n", cfg.DownloadsDir())
			fmt.Printf("Library:   %s\n", cfg.LibraryDir())

			fmt.Println("\n=== Extract ===")
			fmt.Printf("Naming Pattern: %s\n", cfg.Pattern().Name)
			fmt.Printf("Delete Source:  %v\n", cfg.Extract.DeleteSource)
			fmt.Printf("Overwrite:      %v\n", cfg.Extract.Overwrite)
			staging := cfg.StagingDir()
			if staging == "" {
				staging = "(next to the archive)"
			}
			fmt.Printf("Staging Dir:    %s\n", staging)

			fmt.Println("\n=== Daemon ===")
			fmt.Printf("Debounce:       %s\n", cfg.DebounceInterval())
			fmt.Printf("Scan Frequency: %s\n", cfg.ScanInterval())
			fmt.Printf("Health Addr:    %s\n", cfg.Daemon.HealthAddr)

			fmt.Println("\n=== History ===")
			fmt.Printf("Enabled: %v\n", cfg.History.Enabled)
			if historyPath, err := cfg.HistoryPath(); err == nil {
				fmt.Printf("Path:    %s\n", historyPath)
			}

			fmt.Println("\n=== Logging ===")
			fmt.Printf("Level:       %s\n", cfg.Logging.Level)
			logFile := cfg.Logging.File
			if logFile == "" {
				logFile = "(default)"
			}
			fmt.Printf("File:        %s\n", logFile)
			fmt.Printf("Rotation:    %d MB x %d\n", cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a single setting",
		Long: fmt.Sprintf(`Change a single setting and save the config file.

Keys:
  %s`, strings.Join(config.Keys(), "\n  ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			ui.SuccessMsg("%s = %s", args[0], args[1])
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configLocation()
			if err != nil {
				return err
			}
			fmt.Println(path)
			if _, err := os.Stat(path); err != nil {
				fmt.Println("(file does not exist)")
			}
			return nil
		},
	}
}
