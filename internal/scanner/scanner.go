// Package scanner watches the cache directory and indexes target pixel
// files that appear on disk, whether downloaded by this process or
// dropped in by hand.
package scanner

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-data/lightcurve.report/internal/db"
	"github.com/skywatch-data/lightcurve.report/internal/monitoring"
	"github.com/skywatch-data/lightcurve.report/internal/timeutil"
	"github.com/skywatch-data/lightcurve.report/internal/tpf"
)

type Scanner struct {
	db       *db.DB
	cacheDir string
	interval time.Duration
	clock    timeutil.Clock
}

// New creates a scanner over cacheDir indexing into database every
// interval. A nil clock uses the real one.
func New(database *db.DB, cacheDir string, interval time.Duration, clock timeutil.Clock) *Scanner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Scanner{
		db:       database,
		cacheDir: cacheDir,
		interval: interval,
		clock:    clock,
	}
}

// Run scans immediately and then on every tick until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	if added, err := s.ScanOnce(ctx); err != nil {
		monitoring.Logf("cache scan failed: %v", err)
	} else if added > 0 {
		monitoring.Logf("cache scan indexed %d new file(s)", added)
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			if added, err := s.ScanOnce(ctx); err != nil {
				monitoring.Logf("cache scan failed: %v", err)
			} else if added > 0 {
				monitoring.Logf("cache scan indexed %d new file(s)", added)
			}
		case <-ctx.Done():
			return
		}
	}
}

func isTPFName(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".fits") || strings.HasSuffix(name, ".fits.gz")
}

// ScanOnce walks the cache directory once and indexes files not yet in
// the database. Unreadable files are skipped with a log line so one
// corrupt download cannot stall the scan. Returns the number of files
// added.
func (s *Scanner) ScanOnce(ctx context.Context) (int, error) {
	added := 0
	err := filepath.WalkDir(s.cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isTPFName(d.Name()) {
			return nil
		}

		if _, err := s.db.GetFileByPath(path); err == nil {
			return nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if err := s.indexFile(path, d); err != nil {
			monitoring.Logf("skipping %s: %v", path, err)
			return nil
		}
		added++
		return nil
	})
	return added, err
}

func (s *Scanner) indexFile(path string, d fs.DirEntry) error {
	t, err := tpf.Open(path)
	if err != nil {
		return err
	}

	info, err := d.Info()
	if err != nil {
		return err
	}

	rec := db.FileRecord{
		ID:       "tpf_" + uuid.NewString(),
		Target:   t.Object(),
		Object:   t.Object(),
		Mission:  t.Mission(),
		Path:     path,
		Size:     info.Size(),
		Cadences: t.NCadences(),
	}
	if period := t.ObservingPeriod(); period >= 0 {
		if t.Mission() == "TESS" {
			rec.Sector = period
		} else {
			rec.Quarter = period
		}
	}
	return s.db.RecordFile(rec)
}
