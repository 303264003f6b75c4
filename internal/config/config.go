package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/Nomadcxx/albumdrop/internal/paths"
	"github.com/spf13/viper"
)

type Config struct {
	Folders FoldersConfig `mapstructure:"folders"`
	Extract ExtractConfig `mapstructure:"extract"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FoldersConfig holds the two folders albumdrop works between
type FoldersConfig struct {
	Downloads string `mapstructure:"downloads"`
	Library   string `mapstructure:"library"`
}

type ExtractConfig struct {
	// NamingPattern is the display name of one of the catalog patterns.
	NamingPattern string `mapstructure:"naming_pattern"`
	DeleteSource  bool   `mapstructure:"delete_source"`
	// Overwrite replaces an existing Artist/Album folder. When false the
	// archive is left alone and the record fails.
	Overwrite bool `mapstructure:"overwrite"`
	// StagingDir is where archives are unpacked before the move. Empty
	// means next to the archive.
	StagingDir string `mapstructure:"staging_dir"`
}

type DaemonConfig struct {
	Debounce      string `mapstructure:"debounce"`
	ScanFrequency string `mapstructure:"scan_frequency"`
	HealthAddr    string `mapstructure:"health_addr"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Folders: FoldersConfig{
			Downloads: paths.DefaultDownloadsDir(),
			Library:   paths.DefaultLibraryDir(),
		},
		Extract: ExtractConfig{
			NamingPattern: naming.DefaultPatternName,
			DeleteSource:  true,
			Overwrite:     true,
		},
		Daemon: DaemonConfig{
			Debounce:      "10s",
			ScanFrequency: "5m",
			HealthAddr:    ":8687",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// Load loads configuration from the default path or returns defaults
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config path: %w", err)
	}
	return LoadPath(configPath)
}

// LoadPath loads configuration from configPath. A missing file yields the
// defaults.
func LoadPath(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default path
func (c *Config) Save() error {
	configFile, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SavePath(configFile)
}

func (c *Config) SavePath(configFile string) error {
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}
	return os.WriteFile(configFile, []byte(c.ToTOML()), 0644)
}

func ConfigPath() (string, error) {
	return paths.ConfigPath()
}

func ConfigExists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Keys lists the settings accepted by Set, in file order.
func Keys() []string {
	return []string{
		"folders.downloads",
		"folders.library",
		"extract.naming_pattern",
		"extract.delete_source",
		"extract.overwrite",
		"extract.staging_dir",
		"daemon.debounce",
		"daemon.scan_frequency",
		"daemon.health_addr",
		"history.enabled",
		"history.path",
		"logging.level",
		"logging.file",
		"logging.max_size_mb",
		"logging.max_backups",
	}
}

// Set assigns a single dotted key from its string form, e.g.
// Set("extract.delete_source", "false").
func (c *Config) Set(key, value string) error {
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	updated := *c
	v := viper.New()
	v.Set(key, value)
	if err := v.Unmarshal(&updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if key == "extract.naming_pattern" {
		p, ok := naming.Lookup(value)
		if !ok {
			return fmt.Errorf("unknown naming pattern %q", value)
		}
		updated.Extract.NamingPattern = p.Name
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	*c = updated
	return nil
}

// Validate checks the fields that have a fixed format.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Daemon.Debounce); err != nil {
		return fmt.Errorf("daemon.debounce: %w", err)
	}
	if _, err := time.ParseDuration(c.Daemon.ScanFrequency); err != nil {
		return fmt.Errorf("daemon.scan_frequency: %w", err)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return fmt.Errorf("logging sizes must not be negative")
	}
	return nil
}

// Pattern returns the configured naming pattern. Names outside the catalog
// fall back to the default.
func (c *Config) Pattern() naming.Pattern {
	if p, ok := naming.Lookup(c.Extract.NamingPattern); ok {
		return p
	}
	return naming.Default()
}

// DownloadsDir returns the downloads folder with ~ expanded.
func (c *Config) DownloadsDir() string {
	return expand(c.Folders.Downloads)
}

// LibraryDir returns the library root with ~ expanded.
func (c *Config) LibraryDir() string {
	return expand(c.Folders.Library)
}

// StagingDir returns the staging root with ~ expanded, or "".
func (c *Config) StagingDir() string {
	return expand(c.Extract.StagingDir)
}

func (c *Config) DebounceInterval() time.Duration {
	return parseDurationOr(c.Daemon.Debounce, 10*time.Second)
}

func (c *Config) ScanInterval() time.Duration {
	return parseDurationOr(c.Daemon.ScanFrequency, 5*time.Minute)
}

// HistoryPath returns the history database location.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return paths.ExpandHome(c.History.Path)
	}
	return paths.DatabasePath()
}

// LoggerConfig converts the [logging] table for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.File = c.Logging.File
	if c.Logging.MaxSizeMB > 0 {
		lc.MaxSizeMB = c.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups > 0 {
		lc.MaxBackups = c.Logging.MaxBackups
	}
	return lc
}

// expand resolves a leading ~, leaving p unchanged if the home directory
// cannot be found.
func expand(p string) string {
	if out, err := paths.ExpandHome(p); err == nil {
		return out
	}
	return p
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) ToTOML() string {
	return fmt.Sprintf(`# albumdrop configuration
# Generated by: albumdrop config init

# ============================================================================
# FOLDERS
# ============================================================================
[folders]
# Where album archives are downloaded to (scanned non-recursively)
downloads = %q

# Music library root - albums are placed at <library>/<Artist>/<Album>/
library = %q

# ============================================================================
# EXTRACTION
# ============================================================================
[extract]
# One of: %s
naming_pattern = %q

# Delete the archive after a successful extraction
delete_source = %v

# Replace an existing <Artist>/<Album> folder (false = fail the archive instead)
overwrite = %v

# Where archives are unpacked before the move ("" = next to the archive)
staging_dir = %q

# ============================================================================
# DAEMON SETTINGS
# For albumdropd
# ============================================================================
[daemon]
# Wait this long after the last write before extracting a new archive
debounce = %q
scan_frequency = %q
health_addr = %q

# ============================================================================
# HISTORY
# Every extraction is recorded in a local SQLite database
# ============================================================================
[history]
enabled = %v
path = %q

# ============================================================================
# LOGGING
# ============================================================================
[logging]
level = %q
file = %q
max_size_mb = %d
max_backups = %d
`,
		c.Folders.Downloads,
		c.Folders.Library,
		formatPatternNames(),
		c.Extract.NamingPattern,
		c.Extract.DeleteSource,
		c.Extract.Overwrite,
		c.Extract.StagingDir,
		c.Daemon.Debounce,
		c.Daemon.ScanFrequency,
		c.Daemon.HealthAddr,
		c.History.Enabled,
		c.History.Path,
		c.Logging.Level,
		c.Logging.File,
		c.Logging.MaxSizeMB,
		c.Logging.MaxBackups,
	)
}

func formatPatternNames() string {
	names := naming.Names()
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", n)
	}
	return out
}
