package session

import (
	"os"

	"github.com/matheus3301/wpp-harvest/internal/config"
)

// DefaultSessionName is used when nothing else names a session.
const DefaultSessionName = "main"

// EnvSession names the session when no flag is given.
const EnvSession = "HARVEST_SESSION"

// Resolve picks the active session name, first match wins:
// the --session flag, $HARVEST_SESSION, default_session in config.toml, "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if env := os.Getenv(EnvSession); env != "" {
		return env
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
