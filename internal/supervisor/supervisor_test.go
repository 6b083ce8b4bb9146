package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"core": {"log_file": "/tmp/nanobot.log", "db": "", "nickname": "nanobot", "realname": "nanobot"},
		"networks": [{"name": "libera", "hostname": "irc.libera.chat", "channels": [{"name": "#test"}]}],
		"plugins": [{"name": "eval", "module": "eval"}]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Core.Nickname != "nanobot" {
		t.Fatalf("got nickname %q", cfg.Core.Nickname)
	}
	if len(cfg.Networks) != 1 || cfg.Networks[0].PortOrDefault() != 6667 {
		t.Fatalf("unexpected networks: %+v", cfg.Networks)
	}
}

func TestSupervisor_ShutdownIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"core": {"nickname": "n", "realname": "n"}, "networks": [], "plugins": []}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	s := New(testLogger(), Options{Config: cfg, WorkerPath: "/bin/true"})
	s.Shutdown()
	s.Shutdown()

	if !s.isExiting() {
		t.Fatal("expected supervisor to be marked exiting")
	}
}
