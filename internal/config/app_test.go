package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("MOLT_DIR=/from/file\nHTTP_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/colosseum")
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("MOLT_DIR", "")
	os.Unsetenv("MOLT_DIR")

	LoadDotEnv(path)
	t.Cleanup(func() { os.Unsetenv("MOLT_DIR") })

	cfg, err := LoadApp()
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if cfg.Server.MoltDir != "/from/file" {
		t.Fatalf("MoltDir = %q, want /from/file", cfg.Server.MoltDir)
	}
	if cfg.Server.HTTPAddr != ":7000" {
		t.Fatalf("HTTPAddr = %q, want :7000", cfg.Server.HTTPAddr)
	}
	if cfg.Queue.TickInterval == 0 {
		t.Fatal("queue config not loaded")
	}
}
