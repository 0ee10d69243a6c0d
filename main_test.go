package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetFlags() {
	*listen = ""
	*dbPath = ""
	*cacheDir = ""
	*archiveURL = ""
	*scanInterval = ""
	*quality = ""
	*configPath = ""
}

func TestBuildConfigDefaults(t *testing.T) {
	resetFlags()

	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("buildConfig returned error: %v", err)
	}
	if cfg.GetListenAddr() != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.GetListenAddr())
	}
	if cfg.GetScanInterval() != time.Minute {
		t.Errorf("expected default scan interval 1m, got %v", cfg.GetScanInterval())
	}
}

func TestBuildConfigFlagOverridesFile(t *testing.T) {
	resetFlags()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"listen_addr": ":9000", "db_path": "from_file.db"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	*configPath = path
	*listen = ":7000"

	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("buildConfig returned error: %v", err)
	}
	if cfg.GetListenAddr() != ":7000" {
		t.Errorf("expected flag to win with :7000, got %s", cfg.GetListenAddr())
	}
	if cfg.GetDBPath() != "from_file.db" {
		t.Errorf("expected db path from file, got %s", cfg.GetDBPath())
	}
}

func TestBuildConfigInvalid(t *testing.T) {
	resetFlags()
	*quality = "strict"

	if _, err := buildConfig(); err == nil {
		t.Error("expected error for invalid quality preset")
	}
	resetFlags()
}
