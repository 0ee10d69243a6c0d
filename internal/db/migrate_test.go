package db

import "testing"

func TestMigrateUpDown(t *testing.T) {
	db := testDB(t)

	version, dirty, err := db.MigrateVersion("migrations")
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh db version = %d dirty = %v", version, dirty)
	}

	if err := db.MigrateUp("migrations"); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	version, dirty, err = db.MigrateVersion("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Errorf("after up: version = %d dirty = %v", version, dirty)
	}

	// the campaign column from migration 1 is now writable
	if _, err := db.Exec(`UPDATE files SET campaign = 0`); err != nil {
		t.Errorf("campaign column missing after migration: %v", err)
	}

	// idempotent
	if err := db.MigrateUp("migrations"); err != nil {
		t.Errorf("second MigrateUp failed: %v", err)
	}

	if err := db.MigrateDown("migrations"); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, err = db.MigrateVersion("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Errorf("after down: version = %d", version)
	}
}
