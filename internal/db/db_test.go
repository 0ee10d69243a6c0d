package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(id, path string) FileRecord {
	return FileRecord{
		ID:       id,
		Target:   "KIC 6922244",
		Object:   "KIC 6922244",
		Mission:  "Kepler",
		Quarter:  4,
		Path:     path,
		Size:     192960,
		Cadences: 4397,
	}
}

func TestRecordAndGetFile(t *testing.T) {
	db := testDB(t)

	rec := testRecord("tpf_1", "/cache/kepler/KIC_6922244/q4.fits")
	if err := db.RecordFile(rec); err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}

	got, err := db.GetFile("tpf_1")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got.Target != rec.Target || got.Mission != rec.Mission || got.Quarter != 4 ||
		got.Size != rec.Size || got.Cadences != rec.Cadences {
		t.Errorf("got %+v, want %+v", got, rec)
	}
	if got.DownloadedAt.IsZero() {
		t.Error("downloaded_at was not populated")
	}

	byPath, err := db.GetFileByPath(rec.Path)
	if err != nil {
		t.Fatalf("GetFileByPath failed: %v", err)
	}
	if byPath.ID != "tpf_1" {
		t.Errorf("byPath.ID = %q", byPath.ID)
	}

	if _, err := db.GetFile("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetFile(missing) err = %v, want sql.ErrNoRows", err)
	}
}

func TestRecordFileUpsert(t *testing.T) {
	db := testDB(t)
	path := "/cache/kepler/KIC_6922244/q4.fits"

	if err := db.RecordFile(testRecord("tpf_1", path)); err != nil {
		t.Fatal(err)
	}

	// re-indexing the same path refreshes the row instead of failing
	updated := testRecord("tpf_2", path)
	updated.Cadences = 9999
	if err := db.RecordFile(updated); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := db.GetFileByPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cadences != 9999 {
		t.Errorf("cadences = %d, want 9999", got.Cadences)
	}

	files, err := db.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("file count = %d, want 1", len(files))
	}
}

func TestRecordFileValidation(t *testing.T) {
	db := testDB(t)

	if err := db.RecordFile(FileRecord{Path: "/x"}); err == nil {
		t.Error("expected error for missing id")
	}
	if err := db.RecordFile(FileRecord{ID: "x"}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestListFilesAndStats(t *testing.T) {
	db := testDB(t)

	if files, err := db.ListFiles(); err != nil || len(files) != 0 {
		t.Errorf("empty list = %v, %v", files, err)
	}

	for i, path := range []string{"/cache/a.fits", "/cache/b.fits", "/cache/c.fits"} {
		rec := testRecord("tpf_"+path[7:8], path)
		rec.Size = int64(1000 * (i + 1))
		if err := db.RecordFile(rec); err != nil {
			t.Fatal(err)
		}
	}

	files, err := db.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("file count = %d, want 3", len(files))
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 3 || stats.TotalBytes != 6000 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDeleteFile(t *testing.T) {
	db := testDB(t)

	if err := db.RecordFile(testRecord("tpf_1", "/cache/a.fits")); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteFile("tpf_1"); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if _, err := db.GetFile("tpf_1"); !errors.Is(err, sql.ErrNoRows) {
		t.Error("record still present after delete")
	}

	// deleting an unknown id is a no-op
	if err := db.DeleteFile("missing"); err != nil {
		t.Errorf("DeleteFile(missing) = %v", err)
	}
}
