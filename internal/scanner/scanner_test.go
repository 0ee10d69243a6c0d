package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skywatch-data/lightcurve.report/internal/db"
	"github.com/skywatch-data/lightcurve.report/internal/testutil"
	"github.com/skywatch-data/lightcurve.report/internal/timeutil"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "index.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func writeTPF(t *testing.T, dir, name string, gz bool) string {
	t.Helper()
	data := testutil.BuildTPF(testutil.TPFSpec{
		Object:  "KIC 1234567",
		Mission: "Kepler",
		Quarter: 4,
		Rows:    2,
		Cols:    2,
		Time:    []float64{100, 101},
		Flux: [][]float32{
			{1, 2, 3, 4},
			{1, 2, 3, 4},
		},
		Gzip: gz,
	})
	path := filepath.Join(dir, name)
	testutil.AssertNoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestScanOnce(t *testing.T) {
	database := newTestDB(t)
	dir := t.TempDir()

	sub := filepath.Join(dir, "kepler", "KIC_1234567")
	testutil.AssertNoError(t, os.MkdirAll(sub, 0o755))
	writeTPF(t, sub, "kplr001234567.fits", false)
	writeTPF(t, sub, "kplr001234567_llc.fits.gz", true)

	// Non-product files are ignored.
	testutil.AssertNoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0o644))

	s := New(database, dir, time.Minute, nil)
	added, err := s.ScanOnce(context.Background())
	testutil.AssertNoError(t, err)
	if added != 2 {
		t.Fatalf("expected 2 files indexed, got %d", added)
	}

	files, err := database.ListFiles()
	testutil.AssertNoError(t, err)
	if len(files) != 2 {
		t.Fatalf("expected 2 records, got %d", len(files))
	}
	for _, f := range files {
		if f.Mission != "Kepler" || f.Quarter != 4 || f.Cadences != 2 {
			t.Errorf("unexpected record: %+v", f)
		}
	}
}

func TestScanOnceIdempotent(t *testing.T) {
	database := newTestDB(t)
	dir := t.TempDir()
	writeTPF(t, dir, "a.fits", false)

	s := New(database, dir, time.Minute, nil)

	added, err := s.ScanOnce(context.Background())
	testutil.AssertNoError(t, err)
	if added != 1 {
		t.Fatalf("expected 1 file indexed, got %d", added)
	}

	added, err = s.ScanOnce(context.Background())
	testutil.AssertNoError(t, err)
	if added != 0 {
		t.Errorf("expected rescan to index nothing, got %d", added)
	}
}

func TestScanOnceSkipsUnreadable(t *testing.T) {
	database := newTestDB(t)
	dir := t.TempDir()
	writeTPF(t, dir, "good.fits", false)
	testutil.AssertNoError(t, os.WriteFile(filepath.Join(dir, "bad.fits"), []byte("not fits"), 0o644))

	s := New(database, dir, time.Minute, nil)
	added, err := s.ScanOnce(context.Background())
	testutil.AssertNoError(t, err)
	if added != 1 {
		t.Errorf("expected only the readable file indexed, got %d", added)
	}
}

func TestRunScansOnTick(t *testing.T) {
	database := newTestDB(t)
	dir := t.TempDir()

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s := New(database, dir, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The initial scan sees an empty directory. Drop a file in and tick.
	waitFor(t, func() bool {
		files, err := database.ListFiles()
		return err == nil && len(files) == 0
	})
	writeTPF(t, dir, "late.fits", false)

	// Keep advancing until the tick lands; the ticker is registered
	// asynchronously inside Run.
	waitFor(t, func() bool {
		clock.Advance(time.Minute)
		files, err := database.ListFiles()
		return err == nil && len(files) == 1
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
