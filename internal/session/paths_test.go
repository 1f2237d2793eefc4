package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/wpp-harvest/internal/config"
)

func TestDir(t *testing.T) {
	t.Setenv("HARVEST_HOME", "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".wpp-harvest", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestPathsLiveInSessionDir(t *testing.T) {
	t.Setenv("HARVEST_HOME", t.TempDir())
	tests := map[string]string{
		"socket":  SocketPath("test"),
		"journal": JournalDBPath("test"),
		"wa":      WASessionDBPath("test"),
		"data":    DataDir("test"),
		"log":     LogPath("test"),
	}
	for name, p := range tests {
		if !strings.HasPrefix(p, Dir("test")+string(filepath.Separator)) {
			t.Errorf("%s path %q is outside %q", name, p, Dir("test"))
		}
	}
	if filepath.Base(SocketPath("test")) != "harvestd.sock" {
		t.Errorf("SocketPath(test) = %q", SocketPath("test"))
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("HARVEST_HOME", t.TempDir())

	if err := EnsureDir("test", ""); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{Dir("test"), LogDir("test"), DataDir("test")} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("%s not created: %v", d, err)
		}
		if info.Mode().Perm() != 0700 {
			t.Errorf("%s perm = %o, want 0700", d, info.Mode().Perm())
		}
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("HARVEST_HOME", t.TempDir())
	t.Setenv(EnvSession, "")

	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("Resolve() with nothing set = %q, want %q", got, DefaultSessionName)
	}

	cfg := config.Default()
	cfg.DefaultSession = "fromconfig"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "fromconfig" {
		t.Errorf("Resolve() = %q, want fromconfig", got)
	}

	t.Setenv(EnvSession, "fromenv")
	if got := Resolve(""); got != "fromenv" {
		t.Errorf("Resolve() = %q, want fromenv", got)
	}

	if got := Resolve("fromflag"); got != "fromflag" {
		t.Errorf("Resolve(fromflag) = %q", got)
	}
}
