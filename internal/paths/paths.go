// Package paths provides sudo-aware path resolution for albumdrop.
//
// When running with sudo, these functions resolve to the original user's
// directories (via SUDO_USER) instead of root's, so the daemon and the CLI
// agree on where the config, history database and logs live.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the home directory of the actual user.
// If running with sudo, returns the SUDO_USER's home directory, not root's.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// AppDir returns ~/.config/albumdrop for the actual user.
func AppDir() (string, error) {
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "albumdrop"), nil
}

// ConfigPath returns ~/.config/albumdrop/config.toml.
func ConfigPath() (string, error) {
	return inAppDir("config.toml")
}

// DatabasePath returns ~/.config/albumdrop/history.db.
func DatabasePath() (string, error) {
	return inAppDir("history.db")
}

// LogPath returns ~/.config/albumdrop/logs/albumdrop.log.
func LogPath() (string, error) {
	return inAppDir(filepath.Join("logs", "albumdrop.log"))
}

// DefaultDownloadsDir returns ~/Downloads.
func DefaultDownloadsDir() string {
	return inHome("Downloads")
}

// DefaultLibraryDir returns ~/Music.
func DefaultLibraryDir() string {
	return inHome("Music")
}

// ExpandHome replaces a leading ~ with the actual user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}

func inAppDir(name string) (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func inHome(name string) string {
	home, err := UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}
