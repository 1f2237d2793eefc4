// Package session lays out the per-session directory tree under
// ~/.wpp-harvest and resolves which session a command targets.
package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.wpp-harvest, or $HARVEST_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("HARVEST_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wpp-harvest")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// DataDir holds the five JSON collections.
func DataDir(name string) string {
	return filepath.Join(Dir(name), "data")
}

// SocketPath returns the control socket path.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "harvestd.sock")
}

// WASessionDBPath returns the whatsmeow device store path.
func WASessionDBPath(name string) string {
	return filepath.Join(Dir(name), "wa-session.db")
}

// JournalDBPath returns the audit and outbox database path.
func JournalDBPath(name string) string {
	return filepath.Join(Dir(name), "journal.db")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "harvestd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree. dataDir overrides the
// default data directory when non-empty.
func EnsureDir(name, dataDir string) error {
	if dataDir == "" {
		dataDir = DataDir(name)
	}
	for _, d := range []string{Dir(name), LogDir(name), dataDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
