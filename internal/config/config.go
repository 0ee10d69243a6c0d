// Package config loads the server configuration from JSON. Fields are
// pointer-valued so a partial config file overrides only what it names; the
// Get* accessors fall back to defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skywatch-data/lightcurve.report/internal/tpf"
	"github.com/skywatch-data/lightcurve.report/internal/units"
)

// Defaults used when a field is absent from the config file.
const (
	DefaultListenAddr   = ":8080"
	DefaultDBPath       = "tpf_index.db"
	DefaultCacheDir     = "cache"
	DefaultArchiveURL   = "https://archive.stsci.edu/missions/api"
	DefaultScanInterval = time.Minute
)

// Config is the root configuration. The schema matches the /api/config
// endpoint so the same JSON round-trips through both.
type Config struct {
	ListenAddr   *string `json:"listen_addr,omitempty"`
	DBPath       *string `json:"db_path,omitempty"`
	CacheDir     *string `json:"cache_dir,omitempty"`
	ArchiveURL   *string `json:"archive_url,omitempty"`
	ScanInterval *string `json:"scan_interval,omitempty"` // duration string like "60s"
	Quality      *string `json:"quality,omitempty"`       // none, default or hard
	TimeScale    *string `json:"time_scale,omitempty"`    // jd, mjd, bkjd or btjd
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. Omitted fields keep their defaults,
// so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that can fail later if wrong.
func (c *Config) Validate() error {
	if c.ScanInterval != nil && *c.ScanInterval != "" {
		d, err := time.ParseDuration(*c.ScanInterval)
		if err != nil {
			return fmt.Errorf("invalid scan_interval '%s': %w", *c.ScanInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("scan_interval must be positive, got '%s'", *c.ScanInterval)
		}
	}
	if c.Quality != nil {
		if _, ok := tpf.QualityMaskByName(*c.Quality); !ok {
			return fmt.Errorf("invalid quality preset '%s' (valid: none, default, hard)", *c.Quality)
		}
	}
	if c.TimeScale != nil && !units.IsValid(*c.TimeScale) {
		return fmt.Errorf("invalid time_scale '%s' (valid: %s)", *c.TimeScale, units.GetValidScalesString())
	}
	return nil
}

// Merge overlays other onto c: any field set in other wins.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.ListenAddr != nil {
		c.ListenAddr = other.ListenAddr
	}
	if other.DBPath != nil {
		c.DBPath = other.DBPath
	}
	if other.CacheDir != nil {
		c.CacheDir = other.CacheDir
	}
	if other.ArchiveURL != nil {
		c.ArchiveURL = other.ArchiveURL
	}
	if other.ScanInterval != nil {
		c.ScanInterval = other.ScanInterval
	}
	if other.Quality != nil {
		c.Quality = other.Quality
	}
	if other.TimeScale != nil {
		c.TimeScale = other.TimeScale
	}
}

// GetListenAddr returns the listen address or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetDBPath returns the index database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetCacheDir returns the product cache directory or the default.
func (c *Config) GetCacheDir() string {
	if c.CacheDir == nil || *c.CacheDir == "" {
		return DefaultCacheDir
	}
	return *c.CacheDir
}

// GetArchiveURL returns the archive base URL or the default.
func (c *Config) GetArchiveURL() string {
	if c.ArchiveURL == nil || *c.ArchiveURL == "" {
		return DefaultArchiveURL
	}
	return *c.ArchiveURL
}

// GetScanInterval parses the cache scan interval, defaulting on absence or
// parse failure.
func (c *Config) GetScanInterval() time.Duration {
	if c.ScanInterval == nil || *c.ScanInterval == "" {
		return DefaultScanInterval
	}
	d, err := time.ParseDuration(*c.ScanInterval)
	if err != nil {
		return DefaultScanInterval
	}
	return d
}

// GetQualityMask returns the configured quality bitmask preset.
func (c *Config) GetQualityMask() int32 {
	if c.Quality == nil {
		return tpf.QualityDefault
	}
	mask, ok := tpf.QualityMaskByName(*c.Quality)
	if !ok {
		return tpf.QualityDefault
	}
	return mask
}

// GetTimeScale returns the display time scale, empty meaning "native".
func (c *Config) GetTimeScale() string {
	if c.TimeScale == nil {
		return ""
	}
	return *c.TimeScale
}
