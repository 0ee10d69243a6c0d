package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skywatch-data/lightcurve.report/internal/tpf"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"listen_addr": ":9090", "quality": "hard"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.GetListenAddr() != ":9090" {
		t.Errorf("listen addr = %q", cfg.GetListenAddr())
	}
	if cfg.GetQualityMask() != tpf.QualityHard {
		t.Errorf("quality mask = %d", cfg.GetQualityMask())
	}

	// unset fields fall back to defaults
	if cfg.GetDBPath() != DefaultDBPath {
		t.Errorf("db path = %q", cfg.GetDBPath())
	}
	if cfg.GetCacheDir() != DefaultCacheDir {
		t.Errorf("cache dir = %q", cfg.GetCacheDir())
	}
	if cfg.GetArchiveURL() != DefaultArchiveURL {
		t.Errorf("archive url = %q", cfg.GetArchiveURL())
	}
	if cfg.GetScanInterval() != DefaultScanInterval {
		t.Errorf("scan interval = %v", cfg.GetScanInterval())
	}
	if cfg.GetTimeScale() != "" {
		t.Errorf("time scale = %q", cfg.GetTimeScale())
	}
}

func TestLoadScanInterval(t *testing.T) {
	path := writeConfig(t, `{"scan_interval": "5m"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetScanInterval() != 5*time.Minute {
		t.Errorf("scan interval = %v", cfg.GetScanInterval())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("config.yaml"); err == nil {
		t.Error("expected error for non-json extension")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := writeConfig(t, `{not json`)
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	badInterval := writeConfig(t, `{"scan_interval": "often"}`)
	if _, err := Load(badInterval); err == nil {
		t.Error("expected error for bad scan_interval")
	}

	// a zero or negative interval would make the scanner's ticker panic
	zeroInterval := writeConfig(t, `{"scan_interval": "0s"}`)
	if _, err := Load(zeroInterval); err == nil {
		t.Error("expected error for zero scan_interval")
	}

	negInterval := writeConfig(t, `{"scan_interval": "-1m"}`)
	if _, err := Load(negInterval); err == nil {
		t.Error("expected error for negative scan_interval")
	}

	badQuality := writeConfig(t, `{"quality": "extreme"}`)
	if _, err := Load(badQuality); err == nil {
		t.Error("expected error for bad quality preset")
	}

	badScale := writeConfig(t, `{"time_scale": "unix"}`)
	if _, err := Load(badScale); err == nil {
		t.Error("expected error for bad time_scale")
	}
}

func TestMerge(t *testing.T) {
	base := Empty()
	listen := ":7070"
	base.ListenAddr = &listen

	cache := "/var/cache/tpf"
	scale := "bkjd"
	overlay := &Config{CacheDir: &cache, TimeScale: &scale}

	base.Merge(overlay)
	if base.GetListenAddr() != ":7070" {
		t.Errorf("merge clobbered listen addr: %q", base.GetListenAddr())
	}
	if base.GetCacheDir() != "/var/cache/tpf" {
		t.Errorf("cache dir = %q", base.GetCacheDir())
	}
	if base.GetTimeScale() != "bkjd" {
		t.Errorf("time scale = %q", base.GetTimeScale())
	}

	base.Merge(nil) // no-op
	if base.GetCacheDir() != "/var/cache/tpf" {
		t.Error("nil merge changed config")
	}
}
